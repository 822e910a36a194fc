package main

import "gitjournal/cmd"

func main() {
	cmd.Execute()
}

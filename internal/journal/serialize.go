package journal

import (
	"fmt"
	"strings"

	"gitjournal/internal/chatlog"
	"gitjournal/internal/gitctx"
	"gitjournal/internal/shellhist"
)

// PromptContext is everything the aggregator gathered for one commit,
// serialized once and shared by every section prompt.
type PromptContext struct {
	Commit   *gitctx.Commit
	Window   []chatlog.Record
	Commands []shellhist.Command
}

// charsPerToken approximates mixed code/prose content across the model
// families in use; character-based estimation beats word counts for
// code-heavy text.
const charsPerToken = 3.5

func estimateTokens(text string) int {
	return int(float64(len(text)) / charsPerToken)
}

// Serialize renders the context as structured text. The conversation block
// is trimmed oldest-first to fit tokenCap; commit and terminal blocks are
// small and always kept whole.
func (pc *PromptContext) Serialize(tokenCap int) string {
	var sb strings.Builder

	c := pc.Commit
	sb.WriteString("## Commit\n")
	fmt.Fprintf(&sb, "%s by %s on %s\n", c.ShortHash, c.Author, c.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Message: %s\n\n", c.Message)

	sb.WriteString("## Changed files\n")
	for _, f := range c.Files {
		if f.Binary {
			fmt.Fprintf(&sb, "- %s (binary changed)\n", f.Path)
		} else {
			fmt.Fprintf(&sb, "- %s (+%d/-%d)\n", f.Path, f.Insertions, f.Deletions)
		}
	}
	sb.WriteString("\n")

	if len(pc.Commands) > 0 {
		sb.WriteString("## Terminal\n")
		for _, cmd := range pc.Commands {
			fmt.Fprintf(&sb, "$ %s\n", cmd.Line)
		}
		sb.WriteString("\n")
	}

	if conv := serializeWindow(pc.Window, tokenCap-estimateTokens(sb.String())); conv != "" {
		sb.WriteString("## Conversation\n")
		sb.WriteString(conv)
	}

	return sb.String()
}

// serializeWindow renders records oldest first, dropping from the oldest
// end until the block fits the remaining token budget.
func serializeWindow(window []chatlog.Record, budget int) string {
	if len(window) == 0 {
		return ""
	}

	render := func(records []chatlog.Record) string {
		var sb strings.Builder
		for _, r := range records {
			speaker := "Human"
			if r.Role == chatlog.RoleAssistant {
				speaker = "Assistant"
			}
			fmt.Fprintf(&sb, "%s: %s\n\n", speaker, r.Text)
		}
		return sb.String()
	}

	if budget <= 0 {
		budget = 1
	}
	for start := 0; start < len(window); start++ {
		text := render(window[start:])
		if estimateTokens(text) <= budget {
			return text
		}
	}

	// Even the newest record alone is over budget: keep a truncated tail.
	last := window[len(window)-1]
	max := int(float64(budget) * charsPerToken)
	if max < len(last.Text) {
		last.Text = last.Text[:max]
	}
	return render([]chatlog.Record{last})
}

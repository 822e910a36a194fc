package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration, loaded from defaults, then
// a TOML file, then GITJOURNAL_-prefixed environment variables.
type Config struct {
	Journal struct {
		Dir string `koanf:"dir"` // journal output root, relative to the repo
	} `koanf:"journal"`

	Model struct {
		Provider          string  `koanf:"provider"`
		APIKey            string  `koanf:"api_key"`
		Name              string  `koanf:"name"`
		BaseURL           string  `koanf:"base_url"`
		Temperature       float64 `koanf:"temperature"`
		MaxTokens         int     `koanf:"max_tokens"`
		TimeoutSeconds    int     `koanf:"timeout_seconds"`
		RequestsPerMinute int     `koanf:"requests_per_minute"`
	} `koanf:"model"`

	Chat struct {
		Dir        string `koanf:"dir"`         // transcript dir override
		MessageCap int    `koanf:"message_cap"` // hard scan/window bound
		WindowMax  int    `koanf:"window_max"`  // messages kept after scoring
		TokenCap   int    `koanf:"token_cap"`   // serialized-window budget
	} `koanf:"chat"`

	History struct {
		File  string `koanf:"file"`
		Limit int    `koanf:"limit"`
	} `koanf:"history"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"journal.dir":               "journal",
		"model.provider":            "anthropic",
		"model.name":                "",
		"model.temperature":         0.4,
		"model.max_tokens":          1024,
		"model.timeout_seconds":     60,
		"model.requests_per_minute": 30,
		"chat.message_cap":          150,
		"chat.window_max":           40,
		"chat.token_cap":            12000,
		"history.limit":             50,
	}
}

// Load reads configuration. With an empty path the default locations are
// tried in order; a missing file is fine, defaults plus env still apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(defaults(), "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
	} else {
		for _, path := range defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("GITJOURNAL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GITJOURNAL_")), "_", ".", 1)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func defaultPaths() []string {
	paths := []string{"gitjournal.toml", ".gitjournal/gitjournal.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".gitjournal.toml"))
	}
	return paths
}

// Init writes a commented sample configuration file.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}

	sample := `# gitjournal configuration

[journal]
# Output root, relative to the repository.
dir = "journal"

[model]
# One of: openai, anthropic, googleai, ollama
provider = "anthropic"
api_key = ""
name = ""
temperature = 0.4
max_tokens = 1024
timeout_seconds = 60
requests_per_minute = 30

[chat]
# Hard bound on how many conversation messages are scanned per commit.
message_cap = 150
# How many of the scanned messages are kept after relevance scoring.
window_max = 40

[history]
# Shell history file; leave empty to auto-detect.
file = ""
limit = 50
`
	return os.WriteFile(path, []byte(sample), 0o644)
}

// Validate checks that the configuration can actually drive a run.
func Validate(cfg *Config) error {
	if cfg.Journal.Dir == "" {
		return fmt.Errorf("journal.dir is required")
	}

	switch cfg.Model.Provider {
	case "openai", "anthropic", "googleai":
		if cfg.Model.APIKey == "" {
			return fmt.Errorf("model.api_key is required for provider %s", cfg.Model.Provider)
		}
	case "ollama":
		// Local provider, no key.
	default:
		return fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}

	if cfg.Chat.MessageCap <= 0 {
		return fmt.Errorf("chat.message_cap must be positive")
	}
	if cfg.Chat.WindowMax <= 0 || cfg.Chat.WindowMax > cfg.Chat.MessageCap {
		return fmt.Errorf("chat.window_max must be in 1..message_cap")
	}
	return nil
}

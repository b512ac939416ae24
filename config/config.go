package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlServer holds the HTTP server settings
type TomlServer struct {
	Hostname string `toml:"hostname"`
	Port     int    `toml:"port"`
}

// TomlDatabase holds the PostgreSQL connection settings
type TomlDatabase struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// TomlFeed holds the feed composition settings
type TomlFeed struct {
	DefaultPageSize int    `toml:"default_page_size"`
	MaxPageSize     int    `toml:"max_page_size"`
	CursorSecret    string `toml:"cursor_secret"`
	RetentionDays   int    `toml:"retention_days"`
}

// TomlScoring holds the engagement score weights. Likes always weigh 1.0,
// the other interactions are weighted relative to that. Gravity controls
// how fast scores decay with age.
type TomlScoring struct {
	CommentWeight float64 `toml:"comment_weight"`
	ShareWeight   float64 `toml:"share_weight"`
	Gravity       float64 `toml:"gravity"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Server   TomlServer   `toml:"server"`
	Database TomlDatabase `toml:"database"`
	Feed     TomlFeed     `toml:"feed"`
	Scoring  TomlScoring  `toml:"scoring"`
}

// DefaultConfig returns the config used when no file is given. The cursor
// secret has no default on purpose: an unset secret still produces valid
// signatures, it just offers no tamper evidence across restarts.
func DefaultConfig() *TomlConfig {
	return &TomlConfig{
		Server: TomlServer{
			Hostname: "localhost",
			Port:     3000,
		},
		Database: TomlDatabase{
			Host: "localhost",
			Port: 5432,
			User: "homefeed",
			Name: "homefeed",
		},
		Feed: TomlFeed{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RetentionDays:   90,
		},
		Scoring: TomlScoring{
			CommentWeight: 2.0,
			ShareWeight:   3.0,
			Gravity:       1.5,
		},
	}
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete agentteam configuration
type Config struct {
	Team    TeamConfig    `mapstructure:"team"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Tmux    TmuxConfig    `mapstructure:"tmux"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TeamConfig controls where team state lives and who leads it
type TeamConfig struct {
	// PersistDir is the directory holding team snapshots.
	// Relative paths resolve against the working directory; ~ expands to home.
	PersistDir string `mapstructure:"persist_dir"`
	// LeadName is the name given to the lead agent on team creation (default: "lead")
	LeadName string `mapstructure:"lead_name"`
	// LeadHandle identifies the CLI as the lead's execution handle, so the
	// CLI that created a team can also clean it up (default: "cli")
	LeadHandle string `mapstructure:"lead_handle"`
	// TeammateMode selects where teammates run.
	// Options: "auto", "in_process", "tmux"
	TeammateMode string `mapstructure:"teammate_mode"`
	// Assignment hands claimable tasks to teammates automatically.
	// Options: "manual", "round_robin", "least_busy"
	Assignment string `mapstructure:"assignment"`
}

// AgentConfig controls how teammate processes are started
type AgentConfig struct {
	// Command is the agent CLI to run (default: "claude")
	Command string `mapstructure:"command"`
	// Args are extra arguments passed before the team flags
	Args []string `mapstructure:"args"`
	// GracefulStopMs is how long to wait after an interrupt before killing (default: 500)
	GracefulStopMs int `mapstructure:"graceful_stop_ms"`
}

// TmuxConfig controls the tmux pane backend
type TmuxConfig struct {
	// Socket is the tmux server socket name, isolating agentteam panes
	// from the user's own tmux server (default: "agentteam")
	Socket string `mapstructure:"socket"`
	// Session is the session that holds teammate windows (default: "agentteam")
	Session string `mapstructure:"session"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for debug.log. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Team: TeamConfig{
			PersistDir:   filepath.Join(".agentteam", "teams"),
			LeadName:     "lead",
			LeadHandle:   "cli",
			TeammateMode: "auto",
			Assignment:   "manual",
		},
		Agent: AgentConfig{
			Command:        "claude",
			Args:           []string{},
			GracefulStopMs: 500,
		},
		Tmux: TmuxConfig{
			Socket:  "agentteam",
			Session: "agentteam",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "", // Empty means stderr
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// GracefulStop returns the graceful stop timeout as a time.Duration
func (c *AgentConfig) GracefulStop() time.Duration {
	return time.Duration(c.GracefulStopMs) * time.Millisecond
}

// ResolvePersistDir returns the resolved snapshot directory.
// If PersistDir is empty, it returns the default path relative to baseDir.
// A leading ~ expands to the user's home directory and relative paths
// resolve against baseDir.
func (t *TeamConfig) ResolvePersistDir(baseDir string) string {
	if t.PersistDir == "" {
		return filepath.Join(baseDir, ".agentteam", "teams")
	}
	return resolvePath(t.PersistDir, baseDir)
}

// ResolveDir returns the resolved log directory, or "" for stderr.
func (l *LoggingConfig) ResolveDir(baseDir string) string {
	if l.Dir == "" {
		return ""
	}
	return resolvePath(l.Dir, baseDir)
}

func resolvePath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Team defaults
	viper.SetDefault("team.persist_dir", defaults.Team.PersistDir)
	viper.SetDefault("team.lead_name", defaults.Team.LeadName)
	viper.SetDefault("team.lead_handle", defaults.Team.LeadHandle)
	viper.SetDefault("team.teammate_mode", defaults.Team.TeammateMode)
	viper.SetDefault("team.assignment", defaults.Team.Assignment)

	// Agent defaults
	viper.SetDefault("agent.command", defaults.Agent.Command)
	viper.SetDefault("agent.args", defaults.Agent.Args)
	viper.SetDefault("agent.graceful_stop_ms", defaults.Agent.GracefulStopMs)

	// Tmux defaults
	viper.SetDefault("tmux.socket", defaults.Tmux.Socket)
	viper.SetDefault("tmux.session", defaults.Tmux.Session)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentteam")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentteam"
	}
	return filepath.Join(home, ".config", "agentteam")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Package config provides CLI commands for managing agentteam configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appconfig "github.com/Iron-Ham/agentteam/internal/config"
)

// Wrapper functions for exec to allow testing
var execLookPath = exec.LookPath
var execCommand = exec.Command

// settableKeys maps each key accepted by "config set" to its value kind.
var settableKeys = map[string]string{
	"team.persist_dir":       "string",
	"team.lead_name":         "string",
	"team.lead_handle":       "string",
	"team.teammate_mode":     "string",
	"team.assignment":        "string",
	"agent.command":          "string",
	"agent.graceful_stop_ms": "int",
	"tmux.socket":            "string",
	"tmux.session":           "string",
	"logging.enabled":        "bool",
	"logging.level":          "string",
	"logging.dir":            "string",
	"logging.max_size_mb":    "int",
	"logging.max_backups":    "int",
}

// Register adds the config command to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify agentteam configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  agentteam config set team.teammate_mode tmux
  agentteam config set agent.command claude
  agentteam config set logging.level debug

Valid keys:
  team.persist_dir        - Directory holding team snapshots
  team.lead_name          - Name of the lead agent
  team.lead_handle        - Handle identifying this CLI as the lead
  team.teammate_mode      - Options: auto, in_process, tmux
  team.assignment         - Options: manual, round_robin, least_busy
  agent.command           - Agent CLI command name/path
  agent.graceful_stop_ms  - Wait after interrupt before killing an agent
  tmux.socket             - tmux socket name
  tmux.session            - tmux session name
  logging.enabled         - Enable logging (true/false)
  logging.level           - Options: debug, info, warn, error
  logging.dir             - Directory for debug.log (empty for stderr)
  logging.max_size_mb     - Log size before rotation
  logging.max_backups     - Rotated logs to keep`,
			Args: cobra.ExactArgs(2),
			RunE: runConfigSet,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default config file",
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the config file path",
			Args:  cobra.NoArgs,
			RunE:  runConfigPath,
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Open config file in your editor",
			Long: `Open the config file in your preferred editor.

Uses $EDITOR, then $VISUAL, then the first of vim, nano or vi found.
If no config file exists, one is created with default values first.`,
			Args: cobra.NoArgs,
			RunE: runConfigEdit,
		},
	)
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "team:")
	fmt.Fprintf(out, "  persist_dir: %s\n", cfg.Team.PersistDir)
	fmt.Fprintf(out, "  lead_name: %s\n", cfg.Team.LeadName)
	fmt.Fprintf(out, "  lead_handle: %s\n", cfg.Team.LeadHandle)
	fmt.Fprintf(out, "  teammate_mode: %s\n", cfg.Team.TeammateMode)
	fmt.Fprintf(out, "  assignment: %s\n", cfg.Team.Assignment)

	fmt.Fprintln(out, "agent:")
	fmt.Fprintf(out, "  command: %s\n", cfg.Agent.Command)
	fmt.Fprintf(out, "  args: %v\n", cfg.Agent.Args)
	fmt.Fprintf(out, "  graceful_stop_ms: %d\n", cfg.Agent.GracefulStopMs)

	fmt.Fprintln(out, "tmux:")
	fmt.Fprintf(out, "  socket: %s\n", cfg.Tmux.Socket)
	fmt.Fprintf(out, "  session: %s\n", cfg.Tmux.Session)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)

	return nil
}

// parseValue converts value to the kind registered for key.
func parseValue(key, value string) (any, error) {
	kind, ok := settableKeys[key]
	if !ok {
		keys := make([]string, 0, len(settableKeys))
		for k := range settableKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys: %v", key, keys)
	}

	switch kind {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, typed)
	if _, err := appconfig.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typed)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const configTemplate = `# agentteam configuration

team:
  # Directory holding team snapshots, relative to the working directory
  persist_dir: .agentteam/teams
  # Name given to the lead agent
  lead_name: lead
  # Handle that identifies this CLI as the lead, so it may clean up the team
  lead_handle: cli
  # Where teammates run: auto, in_process or tmux
  teammate_mode: auto
  # How claimable tasks reach teammates: manual, round_robin or least_busy
  assignment: manual

agent:
  # Agent CLI started for each teammate
  command: claude
  # Extra arguments placed before --team/--agent
  args: []
  # Milliseconds to wait after an interrupt before killing an agent
  graceful_stop_ms: 500

tmux:
  socket: agentteam
  session: agentteam

logging:
  enabled: true
  # debug, info, warn or error
  level: info
  # Directory for debug.log; empty logs to stderr
  dir: ""
  max_size_mb: 10
  max_backups: 3
`

func writeDefaultConfig(out io.Writer) error {
	configFile := appconfig.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'agentteam config set' to modify values", configFile)
	}
	if err := os.MkdirAll(appconfig.ConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	return writeDefaultConfig(cmd.OutOrStdout())
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", appconfig.ConfigFile())
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: AGENTTEAM_* (e.g., AGENTTEAM_TEAM_TEAMMATE_MODE)")
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()
	out := cmd.OutOrStdout()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		fmt.Fprintln(out, "Config file doesn't exist, creating with defaults...")
		if err := writeDefaultConfig(out); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"vim", "nano", "vi"} {
			if _, err := execLookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set $EDITOR environment variable")
	}

	editorCmd := execCommand(editor, configFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	fmt.Fprintf(out, "Config file saved: %s\n", configFile)
	return nil
}

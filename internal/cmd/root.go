// Package cmd implements the agentteam command tree.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/agentteam/internal/cmd/config"
	appconfig "github.com/Iron-Ham/agentteam/internal/config"
)

// NewRootCmd builds the agentteam command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentteam",
		Short: "Coordinate a lead agent and its teammates",
		Long: `agentteam manages a team of AI agents working from one task board.

A team has one lead and any number of teammates. Tasks can depend on other
tasks and stay blocked until those complete. Team state is kept in a JSON
snapshot so other processes in the same directory can pick it up.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig()
			return nil
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/agentteam/config.yaml)")
	root.PersistentFlags().String("persist-dir", "", "directory holding team snapshots")
	root.PersistentFlags().Bool("json", false, "print JSON instead of tables")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("team.persist_dir", root.PersistentFlags().Lookup("persist-dir"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(
		newTeamCmd(),
		newTaskCmd(),
		newAgentCmd(),
		newMsgCmd(),
		newToolsCmd(),
	)
	config.Register(root)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("AGENTTEAM")
	// e.g., AGENTTEAM_TEAM_TEAMMATE_MODE for team.teammate_mode
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

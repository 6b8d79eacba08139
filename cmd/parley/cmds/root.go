// Package cmds holds the parley CLI: the interactive interview client plus
// admin commands for topics, questions and past sessions.
package cmds

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/api"
	"github.com/go-go-golems/parley/pkg/config"
	"github.com/go-go-golems/parley/pkg/logging"
)

var (
	cfgPath  string
	cfg      *config.Config
	logLevel string
	server   string
	userID   string
)

var rootCmd = &cobra.Command{
	Use:           "parley",
	Short:         "Terminal client for AI-driven interview practice",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if server != "" {
			cfg.Engine.BaseURL = server
		}
		if userID != "" {
			cfg.Engine.UserID = userID
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logging.Init(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "interview engine base URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user id sent with every engine call")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func newEngineClient() (*api.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Engine.BaseURL)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

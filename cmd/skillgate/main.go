package main

import (
	"os"

	"github.com/skillgate/skillgate/pkg/logger"
	"github.com/skillgate/skillgate/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLGATE")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillgate")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	viper.SetDefault("ai_enabled", true)
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("local_endpoint", "http://127.0.0.1:8787/analyze")
	viper.SetDefault("analysis_timeout", "200ms")
	viper.SetDefault("max_direct", 3)
	viper.SetDefault("cache.ttl", "1h")
	viper.SetDefault("session.retention", "168h")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "fmt")
}

var rootCmd = &cobra.Command{
	Use:   "skillgate",
	Short: "Skill selection pipeline for AI coding assistants",
	Long: `Skillgate decides which pre-written skill documents should be injected
into an AI coding assistant's context for each user prompt. It is designed
to run inline as a prompt-submit hook: fast, cached, and degrading
gracefully when the AI analysis path is unavailable.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		// stdout carries the activation banner only.
		logger.SetLogOutput(os.Stderr)
		presenter.SetQuiet(viper.GetBool("quiet"))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	rootCmd.PersistentFlags().Bool("debug", false, "Show confidence scores and injection provenance in the banner")
	rootCmd.PersistentFlags().String("provider", "", "Intent provider (anthropic, local, keyword)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress informational output")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}

// Package commands implements the CLI commands for doccrawl.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/doccrawl/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "doccrawl",
	Short: "Crawl documentation sites into size-bounded markdown files",
	Long: `Doccrawl follows a documentation site's "next page" links from a seed
URL, converts every page to markdown and appends it to numbered output
files (1.md, 2.md, ...) that roll over at a size threshold.

Examples:
  # Crawl a built-in site profile
  doccrawl crawl --site convex

  # Crawl an arbitrary Docusaurus site without a browser
  doccrawl crawl -u https://docs.example.com/intro \
      --next "a.pagination-nav__link--next" --loader static

  # Split the output back into per-page records
  doccrawl records texts --format jsonl`,
	SilenceUsage:      true,
	PersistentPreRunE: initLogger,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.doccrawl.yaml)")
	rootCmd.PersistentFlags().String("sites-file", "", "YAML file with additional site profiles")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json, pretty")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("sites_file", rootCmd.PersistentFlags().Lookup("sites-file"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".doccrawl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DOCCRAWL")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func initLogger(_ *cobra.Command, _ []string) error {
	format, err := logger.ParseFormat(viper.GetString("log_format"))
	if err != nil {
		return err
	}
	logger.Init(logger.Options{
		Debug:  viper.GetBool("debug"),
		Quiet:  viper.GetBool("quiet"),
		Format: format,
	})
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config file loaded", "path", used)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

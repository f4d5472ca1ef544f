package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docqa/src/log"
)

var cfgFile string

// rootCmd serves the document when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Answer questions about a single document",
	Long: `docqa loads one document, indexes it with embeddings from the configured
model provider and answers questions about it over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE:              runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")

	settingDefaultConfig(viper.GetViper())
}

// initConfig loads .env and the optional config file, then sets up logging.
func initConfig(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	return log.Setup(viper.GetString("log.level"), viper.GetBool("log.development"))
}

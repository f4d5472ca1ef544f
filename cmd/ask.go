package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docqa/src/provider"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Index the document and answer one question on stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadSettings(viper.GetViper(), true)
	if err != nil {
		return err
	}

	p, err := provider.New(ctx, s.Provider)
	if err != nil {
		return err
	}

	app, err := bootstrap(ctx, s, p, os.Stderr)
	if err != nil {
		return err
	}

	answer, err := app.answerer.Answer(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

// Package main implements the shopper CLI: recipe search and a persisted,
// deduplicated shopping list.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"meal-shopper/internal/app"
	"meal-shopper/internal/config"
	"meal-shopper/internal/logging"
)

// cli carries state shared by every subcommand.
type cli struct {
	list string
	cfg  *config.Config
	app  *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "shopper",
		Short:         "Recipe shopping list",
		Long:          "Search TheMealDB, import recipe pages, and keep a deduplicated shopping list of their ingredients.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return c.close()
		},
	}
	root.PersistentFlags().StringVarP(&c.list, "list", "l", "", "Named shopping list (default list when empty)")

	root.AddCommand(
		c.searchCmd(),
		c.showCmd(),
		c.randomCmd(),
		c.addCmd(),
		c.listCmd(),
		c.removeCmd(),
		c.removeRecipeCmd(),
		c.clearCmd(),
		c.importCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.app = a
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

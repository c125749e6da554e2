// monitoctl is the operator CLI: schema migration, price-list import, catalog
// and alias maintenance, and ad-hoc comparisons.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/monito/backend/config"
	"github.com/monito/backend/internal/app"
	"github.com/monito/backend/internal/infrastructure/store"
)

// cli carries state shared by every subcommand
type cli struct {
	cfg *config.Config
	app *app.App

	driver string
	dsn    string
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "monitoctl",
		Short:         "Monito price catalog operations",
		Long:          "Migrates the catalog store, imports supplier price lists, maintains products and aliases, and compares scanned prices.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return eris.Wrap(err, "load config")
			}
			if c.driver != "" {
				cfg.Store.Driver = c.driver
			}
			if c.dsn != "" {
				cfg.Store.DSN = c.dsn
			}
			c.cfg = cfg

			logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return eris.Wrap(err, "open store")
			}
			c.app = a

			// The embedded SQLite store is migrated on every run; Postgres only via "migrate".
			if cfg.Store.Driver == store.DriverSQLite && cmd.Name() != "migrate" {
				return a.Migrate(cmd.Context())
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.driver, "driver", "", "store driver: sqlite or postgres (default from config)")
	root.PersistentFlags().StringVar(&c.dsn, "dsn", "", "store DSN (default from config)")

	root.AddCommand(
		c.migrateCmd(),
		c.importCmd(),
		c.productCmd(),
		c.aliasCmd(),
		c.resolveCmd(),
		c.compareCmd(),
	)
	return root
}

// close releases the store. PersistentPostRunE is skipped when a command
// fails, so callers close after Execute instead.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// execute runs the command tree and always releases the store
func execute(ctx context.Context, root *cobra.Command, c *cli) error {
	err := root.ExecuteContext(ctx)
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	root := newRootCmd(c)
	if err := execute(ctx, root, c); err != nil {
		root.PrintErrln("error:", err)
		stop()
		os.Exit(1)
	}
}

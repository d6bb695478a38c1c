// Command qrctl renders QR codes and manages short links from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"qrlink/internal/engine/links"
	"qrlink/internal/pkg/logger"
	"qrlink/internal/platform/config"
)

type rootOptions struct {
	configPath  string
	storeDriver string
	storePath   string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "qrctl",
		Short: "Render QR codes and manage short links",
		Long: `qrctl renders styled QR codes to PNG or SVG and works directly on the
short-link store used by the server.

Examples:
  qrctl render "https://example.com" -o qr.png --size 512
  qrctl render "hello" --format svg -o -
  qrctl shorten https://example.com/menu.pdf
  qrctl resolve Ab3dE9
  qrctl list --store-driver sqlite --store-path data/links.db`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
			if opts.verbose {
				logger.SetLevel("debug")
			} else {
				logger.SetLevel("warn")
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "config file")
	flags.StringVar(&opts.storeDriver, "store-driver", "", "override store.driver (file, sqlite, pebble)")
	flags.StringVar(&opts.storePath, "store-path", "", "override store.path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newRenderCmd(opts),
		newShortenCmd(opts),
		newResolveCmd(opts),
		newListCmd(opts),
		newHashKeyCmd(),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.storeDriver != "" {
		cfg.Store.Driver = o.storeDriver
	}
	if o.storePath != "" {
		cfg.Store.Path = o.storePath
	}
	return cfg, nil
}

func (o *rootOptions) openLinks(ctx context.Context) (*links.Service, *config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	store, err := links.OpenStore(ctx, cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	return links.NewService(store, cfg.Store.CodeLength), cfg, nil
}

func main() {
	godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

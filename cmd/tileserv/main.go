// Command tileserv serves vector and raster map tiles from PostgreSQL,
// PMTiles, and MBTiles sources, following the CLI pattern of the
// teacher's cmd/geo/main.go (humacli + cobra).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tileserv/tileserv/internal/config"
	"github.com/tileserv/tileserv/internal/server"
)

// Options defines the CLI flags for the server. Flags: --config. §6's
// environment variables (DATABASE_URL, DEFAULT_SRID, PGSSLCERT,
// PGSSLKEY, PGSSLROOTCERT) are all read in internal/config.bindEnv.
type Options struct {
	Config string `doc:"Path to the YAML configuration file" short:"c"`
}

func newServer(ctx context.Context, opts *Options, logger *zap.SugaredLogger) (*server.Server, *config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, err
	}
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return srv, cfg, nil
}

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx := context.Background()
		srv, cfg, err := newServer(ctx, opts, logger)
		if err != nil {
			logger.Fatalw("failed to start server", "error", err)
		}

		hooks.OnStart(func() {
			logger.Infow("tileserv starting", "address", cfg.ListenAddresses)
			if err := http.ListenAndServe(cfg.ListenAddresses, srv); err != nil {
				logger.Fatalw("server error", "error", err)
			}
		})
		hooks.OnStop(func() {
			srv.Close()
		})
	})

	cli.Root().Use = "tileserv"
	cli.Root().Short = "Vector and raster map-tile server"
	cli.Root().Version = "0.1.0"

	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export the OpenAPI document (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, _, err := newServer(context.Background(), opts, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}

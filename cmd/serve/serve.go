package serve

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nutrilog/nutrilog/internal/api"
	"github.com/nutrilog/nutrilog/internal/buildinfo"
	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/datastore"
	"github.com/nutrilog/nutrilog/internal/diskmanager"
	"github.com/nutrilog/nutrilog/internal/ingest"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/observability"
	"github.com/nutrilog/nutrilog/internal/telemetry"
)

// Command creates the serve command which runs the HTTP upload server.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload server",
		Long:  "Serve the upload page and API, storing every uploaded CSV export in the configured database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(settings, build)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	return cmd
}

// Run opens the datastore and serves HTTP until SIGINT or SIGTERM.
func Run(settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("main")

	if err := telemetry.InitSentry(settings, build); err != nil {
		log.Warn("Failed to initialize Sentry, continuing without error reporting", logger.Error(err))
	}
	defer telemetry.Flush(telemetry.DefaultFlushTimeout)

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close datastore", logger.Error(err))
		}
	}()

	if _, err := diskmanager.AgeBasedCleanup(settings.Upload.Dir, settings.Upload.AllowedExtensions,
		diskmanager.DefaultMaxStagedAge, time.Now()); err != nil {
		log.Warn("Failed to clean up stale uploads", logger.Error(err))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	service := ingest.NewService(store, settings.Ingest, metrics.Ingest)
	server, err := api.New(settings, service,
		api.WithMetrics(metrics),
		api.WithBuildInfo(build))
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return server.StartWithGracefulShutdown()
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("port", "", "Port to listen on")
	cmd.Flags().String("upload-dir", "", "Directory for staging uploads")
	cmd.Flags().String("dashboard-url", "", "Target of the /grafana redirect")

	bindings := map[string]string{
		"webserver.port": "port",
		"upload.dir":     "upload-dir",
		"dashboard.url":  "dashboard-url",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

package file

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/datastore"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/ingest"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// Command creates the ingest command for loading a single CSV export
// without going through the HTTP server.
func Command(settings *conf.Settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ingest [file.csv]",
		Short: "Ingest a CSV export",
		Long:  "Parse a nutrition CSV export, derive macro calories and upsert the records into the configured database.",
		Args:  cobra.ExactArgs(1), // the command expects exactly one argument
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, settings, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	return cmd
}

// Run ingests path and prints the outcome to the command output.
func Run(cmd *cobra.Command, settings *conf.Settings, path string, asJSON bool) error {
	log := logger.Global().Module("main")

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close datastore", logger.Error(err))
		}
	}()

	service := ingest.NewService(store, settings.Ingest, nil)
	result, err := service.ProcessFile(cmd.Context(), path, filepath.Base(path))
	if err != nil {
		if errors.IsValidation(err) {
			return fmt.Errorf("validation error: %w", err)
		}
		return fmt.Errorf("error processing file: %w", err)
	}

	return printResult(cmd.OutOrStdout(), result, asJSON)
}

func printResult(w io.Writer, result *ingest.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if _, err := fmt.Fprintln(w, result.Message); err != nil {
		return err
	}
	if result.DegradedRows > 0 {
		_, err := fmt.Fprintf(w, "%d rows had unreadable nutrition data and were stored without nutrients.\n", result.DegradedRows)
		return err
	}
	return nil
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().Bool("header-row", false, "Skip the first CSV row")
	cmd.Flags().Bool("propagate-missing", false, "Leave derived values empty when an input is missing")

	bindings := map[string]string{
		"ingest.headerrow":        "header-row",
		"ingest.propagatemissing": "propagate-missing",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

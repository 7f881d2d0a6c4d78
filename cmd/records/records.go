package records

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/datastore"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/parser"
)

// Command creates the records command for inspecting stored data.
func Command(settings *conf.Settings) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "records [user-id]",
		Short: "Show stored records",
		Long: "Without arguments, print how many records are stored. With a user ID, list that user's " +
			"records by date, or only the record for --date.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := int64(-1)
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid user ID %q: must be an integer", args[0])
				}
				userID = id
			} else if date != "" {
				return fmt.Errorf("--date requires a user ID")
			}
			return Run(cmd, settings, userID, date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Only show the record for this day (YYYY-MM-DD)")

	return cmd
}

// Run prints the record count, or the records of userID when it is not negative.
func Run(cmd *cobra.Command, settings *conf.Settings, userID int64, date string) error {
	log := logger.Global().Module("main")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close datastore", logger.Error(err))
		}
	}()

	switch {
	case userID < 0:
		count, err := store.CountRecords(ctx)
		if err != nil {
			return fmt.Errorf("error counting records: %w", err)
		}
		_, err = fmt.Fprintf(out, "%d records stored\n", count)
		return err

	case date != "":
		day, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
		}
		rec, err := store.GetRecord(ctx, userID, day)
		if err != nil {
			return fmt.Errorf("error reading record: %w", err)
		}
		return printRecords(out, []parser.Record{*rec})

	default:
		recs, err := store.ListUserRecords(ctx, userID)
		if err != nil {
			return fmt.Errorf("error listing records: %w", err)
		}
		if len(recs) == 0 {
			_, err = fmt.Fprintf(out, "No records for user ID %d\n", userID)
			return err
		}
		return printRecords(out, recs)
	}
}

func printRecords(w io.Writer, recs []parser.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCALORIES\tCARBS\tFAT\tPROTEIN\tSODIUM\tSUGAR\tCARBS_KCAL\tFAT_KCAL\tPROTEIN_KCAL\tNET_KCAL")
	for i := range recs {
		r := &recs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Date.Format(time.DateOnly),
			formatValue(r.Calories), formatValue(r.Carbs), formatValue(r.Fat),
			formatValue(r.Protein), formatValue(r.Sodium), formatValue(r.Sugar),
			formatValue(r.CarbsCalories), formatValue(r.FatCalories),
			formatValue(r.ProteinCalories), formatValue(r.NetCalories))
	}
	return tw.Flush()
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

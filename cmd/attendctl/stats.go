package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/analytics"
	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard statistics",
	Long:  `Aggregates the attendance log the same way the dashboard endpoint does.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Int("days", 7, "Heatmap window in days (0 = whole history)")
	statsCmd.Flags().String("event", "", "Restrict to one event")
	statsCmd.Flags().Bool("json", false, "Print JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	event, _ := cmd.Flags().GetString("event")
	asJSON, _ := cmd.Flags().GetBool("json")
	if err := checkDays(days); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	start, end := cfg.Attendance.OnTimeWindow()
	stats, err := analytics.Compute(ctx, store, analytics.Params{
		WindowDays:  days,
		Event:       event,
		Now:         time.Now(),
		Location:    cfg.Attendance.Location(),
		OnTime:      analytics.Window{Start: start, End: end},
		LatestLimit: cfg.Attendance.LatestLogs,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	return printStats(cmd.OutOrStdout(), stats)
}

func checkDays(days int) error {
	if days < 0 || days > analytics.MaxWindowDays {
		return fmt.Errorf("--days must be between 0 and %d", analytics.MaxWindowDays)
	}
	return nil
}

func printStats(w io.Writer, s models.AttendanceStats) error {
	fmt.Fprintf(w, "Users:    %d\n", s.TotalIdentities)
	fmt.Fprintf(w, "On time:  %d\n", s.AttendedToday)
	fmt.Fprintf(w, "Late:     %d\n", s.LateToday)
	fmt.Fprintf(w, "Absent:   %d\n", s.AbsentToday)

	if len(s.DailySeries) > 0 {
		fmt.Fprintln(w, "\nDaily attendance:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, d := range s.DailySeries {
			fmt.Fprintf(tw, "  %s\t%d\n", d.Date, d.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.LatestLogs) > 0 {
		fmt.Fprintln(w, "\nLatest check-ins:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, l := range s.LatestLogs {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%.3f\n",
				l.OccurredAt.Format(time.RFC3339), l.IdentityID, l.Event, l.Venue, l.Confidence)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

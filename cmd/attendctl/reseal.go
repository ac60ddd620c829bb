package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/seal"
)

var resealCmd = &cobra.Command{
	Use:   "reseal",
	Short: "Reseal every template with a new key",
	Long: `Opens each stored template with the configured key and seals it again with
the key in --new-key. Templates that cannot be opened are reported and left
untouched. Point seal.key_file at the new key once this succeeds.`,
	Args: cobra.NoArgs,
	RunE: runReseal,
}

func init() {
	resealCmd.Flags().String("new-key", "", "Key file holding the new sealing key")
	resealCmd.Flags().Bool("dry-run", false, "Check every template without writing")
	_ = resealCmd.MarkFlagRequired("new-key")
	rootCmd.AddCommand(resealCmd)
}

func runReseal(cmd *cobra.Command, args []string) error {
	newKeyPath, _ := cmd.Flags().GetString("new-key")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	current, err := app.OpenTemplates(cfg.Seal)
	if err != nil {
		return err
	}
	newKey, err := seal.ReadKeyFile(newKeyPath)
	if err != nil {
		return err
	}
	newSealer, err := seal.NewAEADSealer(newKey)
	if err != nil {
		return err
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.CountIdentities(ctx)
	if err != nil {
		return fmt.Errorf("count identities: %w", err)
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Resealing templates"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	report, err := seal.Rotate(ctx, store, current, seal.NewTemplates(newSealer), dryRun, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "Resealed"
	if dryRun {
		verb = "Would reseal"
	}
	fmt.Fprintf(out, "\n%s %d of %d templates\n", verb, report.Resealed, report.Total)
	for _, id := range report.Corrupt {
		fmt.Fprintf(out, "  unreadable: %s\n", id)
	}
	if len(report.Corrupt) > 0 {
		return fmt.Errorf("%d templates could not be opened with the current key", len(report.Corrupt))
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/attendance/internal/seal"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Write a new random template sealing key",
	Args:  cobra.NoArgs,
	RunE:  runKeygen,
}

func init() {
	keygenCmd.Flags().String("out", "secret.key", "Key file to write")
	keygenCmd.Flags().Bool("force", false, "Overwrite an existing key file")
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")

	key, err := seal.GenerateKey()
	if err != nil {
		return err
	}
	if err := seal.WriteKeyFile(out, key, force); err != nil {
		return fmt.Errorf("%w (use --force to replace it)", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sealing key to %s\n", out)
	return nil
}

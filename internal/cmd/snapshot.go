package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/namelens/domainwatch/internal/core/store"
	errwrap "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/output"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or reset the stored snapshot",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show [domain]",
	Short: "Print the stored snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotShow,
}

var snapshotClearCmd = &cobra.Command{
	Use:   "clear [domain]",
	Short: "Delete the stored snapshot; the next check becomes a first run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotClear,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotClearCmd)

	snapshotShowCmd.Flags().String("output", "table", "Output format: table, json, yaml, markdown")
}

func openConfiguredStore(cmd *cobra.Command, args []string) (store.SnapshotStore, string, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, domainOverride(args))
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", errwrap.WrapConfigInvalid(ctx, err, "invalid configuration")
	}
	snapshots, err := store.OpenSnapshotStore(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	return snapshots, cfg.Domain, nil
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	outputFormat, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	snapshots, domain, err := openConfiguredStore(cmd, args)
	if err != nil {
		return err
	}
	defer snapshots.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	snap, err := store.Latest(cmd.Context(), snapshots)
	if errors.Is(err, store.ErrNoSnapshot) {
		return fmt.Errorf("no snapshot stored for %s in %s", domain, snapshots.Location())
	}
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatCheck(&output.CheckView{
		Domain:   domain,
		Source:   "store",
		Server:   snapshots.Location(),
		Snapshot: snap,
		Saved:    true,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func runSnapshotClear(cmd *cobra.Command, args []string) error {
	snapshots, domain, err := openConfiguredStore(cmd, args)
	if err != nil {
		return err
	}
	defer snapshots.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	if err := snapshots.Clear(cmd.Context()); err != nil {
		return errwrap.WrapStore(cmd.Context(), err, fmt.Sprintf("clear snapshot in %s", snapshots.Location()))
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared snapshot for %s (%s)\n", domain, snapshots.Location())
	return err
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core/diff"
	"github.com/namelens/domainwatch/internal/core/store"
	errwrap "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check [domain]",
	Short: "Look the domain up once and show its snapshot",
	Long: `Look the domain up once and print the normalized snapshot.

With --diff the result is compared with the stored snapshot. Nothing is
sent, and nothing is stored unless --save is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("output", "table", "Output format: table, json, yaml, markdown")
	checkCmd.Flags().Bool("diff", false, "Compare with the stored snapshot")
	checkCmd.Flags().Bool("save", false, "Store the result as the new snapshot")
}

func runCheck(cmd *cobra.Command, args []string) error {
	outputFormat, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	withDiff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}
	save, err := cmd.Flags().GetBool("save")
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, domainOverride(args))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "invalid configuration")
	}

	logger := observability.CLILogger
	record, err := buildLookup(cfg, logger).Lookup(ctx, cfg.Domain)
	if err != nil {
		return errwrap.WrapExternalService(ctx, err, fmt.Sprintf("lookup failed for %s", cfg.Domain))
	}
	current := newNormalizer(cfg).Normalize(record)

	view := &output.CheckView{
		Domain:   cfg.Domain,
		Source:   record.Source,
		Server:   record.Server,
		Snapshot: current,
	}

	if withDiff || save {
		snapshots, err := store.OpenSnapshotStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer snapshots.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		if withDiff {
			previous, ok, err := snapshots.Load(ctx)
			if err != nil {
				logger.Warn("Failed to load stored snapshot, comparing against nothing",
					zap.String("store", snapshots.Location()), zap.Error(err))
			}
			if !ok {
				previous = nil
			}
			view.Changes = diff.Detect(previous, current)
		}

		if save {
			if err := snapshots.Save(ctx, current); err != nil {
				return errwrap.WrapStore(ctx, err, fmt.Sprintf("save snapshot to %s", snapshots.Location()))
			}
			view.Saved = true
		}
	}

	rendered, err := output.NewFormatter(format).FormatCheck(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

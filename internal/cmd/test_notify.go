package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/diff"
	"github.com/namelens/domainwatch/internal/core/snapshot"
	"github.com/namelens/domainwatch/internal/notify"
	"github.com/namelens/domainwatch/internal/observability"
	"github.com/namelens/domainwatch/internal/output"
)

const testSubjectTemplate = "TEST - Domain change detected for %s"

var testNotifyCmd = &cobra.Command{
	Use:   "test-notify",
	Short: "Send a synthetic change notification through the configured channels",
	Long: `Send a synthetic change notification to verify channel credentials.

By default every enabled channel is used. --service (repeatable) enables
and tests only the named channels: email, pushover, telegram, discord, ntfy.
Exits non-zero when no channel is enabled or none delivers.`,
	Args: cobra.NoArgs,
	RunE: runTestNotify,
}

func init() {
	rootCmd.AddCommand(testNotifyCmd)

	testNotifyCmd.Flags().StringSliceP("service", "s", nil, "Channel(s) to test (default: all enabled)")
	testNotifyCmd.Flags().String("output", "table", "Output format: table, json, yaml, markdown")
}

func runTestNotify(cmd *cobra.Command, args []string) error {
	services, err := cmd.Flags().GetStringSlice("service")
	if err != nil {
		return err
	}
	outputFormat, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	overrides, err := enableServices(services)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return err
	}

	logger := observability.CLILogger
	logger.Info("Starting notification test")

	domain := cfg.Domain
	if domain == "" {
		domain = "example.com"
	}

	dispatcher := newDispatcher(cfg, logger)
	if dispatcher.Len() == 0 {
		logger.Error("No notification channel is enabled; enable one in the config or pass --service")
		return errors.New("no notification channel enabled")
	}

	if len(services) > 0 {
		logger.Info("Testing selected channels", zap.Strings("channels", services))
	}

	result := dispatcher.DispatchAll(ctx, testMessage(domain, time.Now()))

	rendered, err := output.NewFormatter(format).FormatDispatch(result)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
		return err
	}

	succeeded := result.Succeeded()
	if succeeded == 0 {
		logger.Error("Notification test failed: no channel delivered")
		return errors.New("notification test failed")
	}
	logger.Info("Notification test succeeded",
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(result)))
	return nil
}

// testSnapshots returns a synthetic before/after pair for a registrar
// transfer heading to deletion.
func testSnapshots(domain string, now time.Time) (previous, current *core.Snapshot) {
	checkTime := core.String(snapshot.FormatTime(now))

	previous = core.NewSnapshot()
	previous.Set(core.FieldRegistered, core.Bool(true))
	previous.Set(core.FieldDomainName, core.String(domain))
	previous.Set(core.FieldRegistrar, core.String("Old Registrar Inc."))
	previous.Set(core.FieldStatus, core.List([]string{"clientTransferProhibited"}))
	previous.Set(core.FieldNameServers, core.List([]string{"ns1.oldhost.com", "ns2.oldhost.com"}))
	previous.Set(core.FieldCreationDate, core.String("2020-01-01 00:00:00"))
	previous.Set(core.FieldExpirationDate, core.String("2023-01-01 00:00:00"))
	previous.Set(core.FieldUpdatedDate, core.String("2022-06-01 00:00:00"))
	previous.Set(core.FieldDNSSEC, core.String("unsigned"))
	previous.Set(core.FieldCheckTime, checkTime)

	current = core.NewSnapshot()
	current.Set(core.FieldRegistered, core.Bool(true))
	current.Set(core.FieldDomainName, core.String(domain))
	current.Set(core.FieldRegistrar, core.String("New Registrar LLC"))
	current.Set(core.FieldStatus, core.List([]string{"pendingDelete", "redemptionPeriod"}))
	current.Set(core.FieldNameServers, core.List([]string{"ns1.newhost.com", "ns2.newhost.com"}))
	current.Set(core.FieldCreationDate, core.String("2020-01-01 00:00:00"))
	current.Set(core.FieldExpirationDate, core.String("2023-01-01 00:00:00"))
	current.Set(core.FieldUpdatedDate, core.String("2023-04-21 12:30:00"))
	current.Set(core.FieldDNSSEC, core.String("unsigned"))
	current.Set(core.FieldCheckTime, checkTime)

	return previous, current
}

// testMessage builds the notification sent by test-notify.
func testMessage(domain string, now time.Time) notify.Message {
	previous, current := testSnapshots(domain, now)
	changes := diff.Detect(previous, current)

	body := fmt.Sprintf(`This is a TEST notification from the domain monitor.
If you received it, this notification channel works.

Simulated changes for %s:

Test date: %s

SIMULATED CHANGES:
- Registrar: Old Registrar Inc. -> New Registrar LLC
- Status: clientTransferProhibited -> pendingDelete, redemptionPeriod
- Name servers: ns1.oldhost.com, ns2.oldhost.com -> ns1.newhost.com, ns2.newhost.com
- Updated date: 2022-06-01 -> 2023-04-21

This message is only a TEST. No real change was detected on your domain.
`, domain, now.Format("2006-01-02 15:04:05"))

	return notify.Message{
		Domain:  domain,
		Subject: fmt.Sprintf(testSubjectTemplate, domain),
		Body:    body,
		Changes: changes,
		Current: current,
	}
}

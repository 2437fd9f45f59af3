// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/config"
	"github.com/vigilsec/triage-console/internal/observability"
	"github.com/vigilsec/triage-console/internal/report"
	"github.com/vigilsec/triage-console/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// storeProvider defines an interface for components that can create a data
// store (schemas.Store). This abstraction is crucial for testing, as it
// allows for the injection of a fake store instead of a live database
// connection.
type storeProvider interface {
	// Create initializes and returns a schemas.Store, a cleanup function to
	// release resources, and an error if the creation fails.
	Create(ctx context.Context, cfg *config.Config) (schemas.Store, func(), error)
}

// defaultStoreProvider is the concrete implementation of storeProvider used
// in production. It establishes a real connection to the document store.
type defaultStoreProvider struct{}

// NewStoreProvider is a factory function that creates a new defaultStoreProvider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to the document store using the provided configuration and
// returns it along with a cleanup function that disconnects the client.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (schemas.Store, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URI == "" {
		return nil, nil, fmt.Errorf("database URI is not configured (TRIAGE_DATABASE_URI)")
	}

	storeService, disconnect, err := store.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := disconnect(shutdownCtx); err != nil {
			logger.Warn("Failed to disconnect from database cleanly.", zap.Error(err))
		}
	}
	return storeService, cleanup, nil
}

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider) *cobra.Command {
	var kind string
	var cwe string
	var drilldown string
	var day string
	var minDate string
	var maxDate string
	var outputPath string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Run a findings report and print the renderer payload",
		Long: `Runs one of the aggregate reports (CWE breakdown, vulnerability types,
issues by date, single-day drilldown) against the finding collections and
emits the chart payload as JSON. Without --kind, lists the available reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			req := report.Request{Kind: kind, CWE: cwe, Drilldown: drilldown}
			if req.Day, err = parseDayFlag(day); err != nil {
				return err
			}
			if req.MinDate, err = parseDayFlag(minDate); err != nil {
				return err
			}
			if req.MaxDate, err = parseDayFlag(maxDate); err != nil {
				return err
			}

			return runReport(ctx, logger, cfg, req, outputPath, provider)
		},
	}

	reportCmd.Flags().StringVarP(&kind, "kind", "k", "", "Report kind: cwe, vulnType, issuesByDate, issuesOnDate")
	reportCmd.Flags().StringVar(&cwe, "cwe", "", "CWE number to drill into (cwe report only)")
	reportCmd.Flags().StringVar(&drilldown, "drilldown", "", "Drilldown axis: valid or false_positive (cwe report only)")
	reportCmd.Flags().StringVar(&day, "day", "", "Calendar day YYYY-MM-DD (issuesOnDate report)")
	reportCmd.Flags().StringVar(&minDate, "min-date", "", "Trend window lower bound YYYY-MM-DD, inclusive")
	reportCmd.Flags().StringVar(&maxDate, "max-date", "", "Trend window upper bound YYYY-MM-DD, exclusive")
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the payload is printed to stdout.")

	return reportCmd
}

// parseDayFlag converts an optional YYYY-MM-DD flag value to a UTC time.
func parseDayFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return &t, nil
}

// runReport contains the core, testable logic for running a report.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	req report.Request,
	outputPath string,
	provider storeProvider,
) error {
	logger.Info("Running report", zap.String("kind", req.Kind))

	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	queryCtx, cancel := context.WithTimeout(ctx, cfg.Database.QueryTimeout)
	defer cancel()

	engine := report.New(storeService, cfg, logger)
	payload, err := engine.Dispatch(queryCtx, req)
	if err != nil {
		logger.Error("Report failed", zap.Error(err), zap.String("kind", req.Kind))
		return fmt.Errorf("report %q failed, see log for details", req.Kind)
	}

	return writePayload(logger, payload, outputPath)
}

// writePayload serializes a report payload to the output path, or to stdout
// when no path is set.
func writePayload(logger *zap.Logger, payload interface{}, outputPath string) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize payload to JSON: %w", err)
	}

	if outputPath == "" {
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write payload file: %w", err)
	}
	logger.Info("Payload written to file", zap.String("path", outputPath))
	return nil
}

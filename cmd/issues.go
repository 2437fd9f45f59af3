// File: cmd/issues.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/internal/observability"
	"github.com/vigilsec/triage-console/internal/pipeline"
	"github.com/vigilsec/triage-console/internal/report"
)

// newIssuesCmd creates the `issues` command group: the deduplicated issue
// listing plus its supporting lookups.
func newIssuesCmd(provider storeProvider) *cobra.Command {
	issuesCmd := &cobra.Command{
		Use:   "issues",
		Short: "Query the deduplicated static issue listing",
	}

	issuesCmd.AddCommand(newIssuesListCmd(provider))
	issuesCmd.AddCommand(newIssuesSummaryCmd(provider))
	issuesCmd.AddCommand(newIssuesProjectsCmd(provider))
	issuesCmd.AddCommand(newIssuesShowCmd(provider))
	return issuesCmd
}

func newIssuesListCmd(provider storeProvider) *cobra.Command {
	var f pipeline.Filters
	var minDate string
	var maxDate string
	var outputPath string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List deduplicated issues matching the filter set",
		RunE: func(cmd *cobra.Command, args []string) error {
			min, err := parseDayFlag(minDate)
			if err != nil {
				return err
			}
			max, err := parseDayFlag(maxDate)
			if err != nil {
				return err
			}
			f.MinDate = min
			f.MaxDate = max

			return withEngine(cmd.Context(), provider, func(ctx context.Context, engine *report.Engine) (interface{}, error) {
				return engine.ListIssues(ctx, f)
			}, outputPath)
		},
	}

	listCmd.Flags().StringVarP(&f.Application, "app", "a", "All", "Application name, or All")
	listCmd.Flags().StringVarP(&f.Project, "project", "p", "All", "Project name, or All")
	listCmd.Flags().StringSliceVar(&f.Confidence, "confidence", []string{"Vulnerability", "Type 1", "Type 2"}, "Confidence ratings to include")
	listCmd.Flags().StringSliceVar(&f.Severity, "severity", []string{"High", "Medium", "Low", "Informational"}, "Severity ratings to include")
	listCmd.Flags().StringVar(&f.ReviewStatus, "review-status", "", "Review status filter: new, reviewed, all, valid, false_positive")
	listCmd.Flags().StringVar(&f.VulnType, "vuln-type", "", "Vulnerability type filter")
	listCmd.Flags().StringVar(&f.Method, "method", "", "Method name filter")
	listCmd.Flags().StringVar(&minDate, "min-date", "", "Earliest scan date YYYY-MM-DD, inclusive")
	listCmd.Flags().StringVar(&maxDate, "max-date", "", "Latest scan date YYYY-MM-DD, inclusive")
	listCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the listing is printed to stdout.")
	return listCmd
}

func newIssuesSummaryCmd(provider storeProvider) *cobra.Command {
	var outputPath string

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show unreviewed issue counts per application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), provider, func(ctx context.Context, engine *report.Engine) (interface{}, error) {
				return engine.ApplicationSummary(ctx)
			}, outputPath)
		},
	}

	summaryCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the summary is printed to stdout.")
	return summaryCmd
}

func newIssuesProjectsCmd(provider storeProvider) *cobra.Command {
	var application string
	var outputPath string

	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects scanned under an application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), provider, func(ctx context.Context, engine *report.Engine) (interface{}, error) {
				return engine.ProjectsForApplication(ctx, application)
			}, outputPath)
		},
	}

	projectsCmd.Flags().StringVarP(&application, "app", "a", "All", "Application name, or All")
	projectsCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the list is printed to stdout.")
	return projectsCmd
}

func newIssuesShowCmd(provider storeProvider) *cobra.Command {
	var outputPath string

	showCmd := &cobra.Command{
		Use:   "show <finding-id>",
		Short: "Show one finding with its taint trace and code detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), provider, func(ctx context.Context, engine *report.Engine) (interface{}, error) {
				return engine.FindingDetail(ctx, args[0])
			}, outputPath)
		},
	}

	showCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the finding is printed to stdout.")
	return showCmd
}

// withEngine handles the shared store/engine lifecycle around one query.
func withEngine(
	ctx context.Context,
	provider storeProvider,
	run func(context.Context, *report.Engine) (interface{}, error),
	outputPath string,
) error {
	logger := observability.GetLogger()

	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}

	storeService, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	queryCtx, cancel := context.WithTimeout(ctx, cfg.Database.QueryTimeout)
	defer cancel()

	payload, err := run(queryCtx, report.New(storeService, cfg, logger))
	if err != nil {
		logger.Error("Issue query failed", zap.Error(err))
		return fmt.Errorf("issue query failed, see log for details")
	}
	return writePayload(logger, payload, outputPath)
}

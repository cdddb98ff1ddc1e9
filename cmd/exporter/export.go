package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkordes/community-admin/backend/internal/bootstrap"
	"github.com/pkordes/community-admin/backend/internal/config"
	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/identity"
	"github.com/pkordes/community-admin/backend/internal/logging"
	"github.com/pkordes/community-admin/backend/internal/repo"
	"github.com/pkordes/community-admin/backend/internal/service"
)

// exportOptions are the export command's flags.
type exportOptions struct {
	project    string
	user       string
	users      []string
	categories []string
	format     string
	out        string
}

var exportFlags exportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one or more residents' data into a directory",
	Long: `Export resident data into --out.

With --user, exports that resident. Selecting "all" writes one combined
report; any other selection writes one file per category.
With --users, exports each listed resident with the same categories and
embeds the user id in every filename.

The batch summary is printed to stdout as JSON. The command fails when any
unit failed, after writing every file it could.

Examples:
  exporter export --project p1 --user u1
  exporter export --project p1 --user u1 --categories orders,bookings --format csv
  exporter export --project p1 --users u1,u2 --categories guestPasses --out ./exports`,
	Args: cobra.NoArgs,
	RunE: runExportCmd,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVar(&exportFlags.project, "project", "", "project id (required for project-scoped categories)")
	f.StringVar(&exportFlags.user, "user", "", "export this user's data")
	f.StringSliceVar(&exportFlags.users, "users", nil, "export several users (comma-separated)")
	f.StringSliceVar(&exportFlags.categories, "categories", []string{string(domain.CategoryAll)}, "categories to export (comma-separated), or all")
	f.StringVar(&exportFlags.format, "format", string(domain.FormatJSON), "output format: json, csv")
	f.StringVar(&exportFlags.out, "out", ".", "directory to write files into")
	exportCmd.MarkFlagsMutuallyExclusive("user", "users")
	exportCmd.MarkFlagsOneRequired("user", "users")
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	logger, closeLog := logging.New(logging.Options{Level: logLevel, Format: logFormat, Stdout: cmd.ErrOrStderr()})
	defer closeLog()

	storeCfg, err := config.LoadStore()
	if err != nil {
		return err
	}
	store, closeStore, err := bootstrap.OpenStore(cmd.Context(), storeCfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close document store", "error", err)
		}
	}()

	return runExport(cmd.Context(), exportFlags, store, cmd.OutOrStdout(), logger)
}

// runExport plans and runs the export against store, writing files into
// opts.out and the summary to w.
func runExport(ctx context.Context, opts exportOptions, store repo.DocumentStore, w io.Writer, log *slog.Logger) error {
	cats, err := domain.ParseCategories(opts.categories)
	if err != nil {
		return err
	}
	format, err := domain.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// The operator is trusted: --users runs as an administrator.
	who := identity.Static{UserID: opts.user, ProjectID: opts.project, Admin: len(opts.users) > 0}
	if who.Admin {
		who.UserID = "cli"
	}
	agg := service.NewAggregator(service.NewFetcher(store, log, nil))
	svc := service.NewExportService(who, who, agg, log, nil)
	sink := delivery.NewDirSink(opts.out)

	var summary domain.BatchSummary
	if len(opts.users) > 0 {
		summary, err = svc.ExportUsers(ctx, opts.users, cats, format, sink)
	} else {
		summary, err = svc.ExportOwn(ctx, cats, format, sink)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if failed := summary.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d export units failed", len(failed), len(summary.Outcomes))
	}
	return nil
}

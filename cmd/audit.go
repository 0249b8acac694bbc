package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpcoupling/core/audit"
	"github.com/kilianp07/chpcoupling/core/metrics"
	"github.com/kilianp07/chpcoupling/infra/logger"
	inframetrics "github.com/kilianp07/chpcoupling/infra/metrics"
	"github.com/kilianp07/chpcoupling/pkg/export"
)

// ErrUnsatisfiable is returned by audit --strict when a pair has violations.
var ErrUnsatisfiable = errors.New("coupling constraints not satisfiable")

func newAuditCmd(a *app) *cobra.Command {
	var strict, serve bool
	var format string
	c := &cobra.Command{
		Use:   "audit",
		Short: "Audit every configured pair for conflicting coupling parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if cmd.Flags().Changed("strict") {
				a.cfg.Audit.Strict = strict
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (text or json)", format)
			}
			return a.audit(ctx, cmd, serve, format == "json")
		},
	}
	c.Flags().BoolVar(&strict, "strict", false, "exit non-zero when a pair is not satisfiable")
	c.Flags().StringVar(&format, "format", "text", "report format: text or json")
	c.Flags().BoolVar(&serve, "serve", false, "keep serving /metrics on the prometheus sink address")
	return c
}

func (a *app) audit(ctx context.Context, cmd *cobra.Command, serve, asJSON bool) error {
	pairs, err := a.cfg.ModelPairs()
	if err != nil {
		return err
	}
	sink, err := a.sink()
	if err != nil {
		return err
	}
	auditor := audit.New(audit.WithTolerance(a.cfg.Audit.Tolerance), audit.WithLogger(logger.New("auditor")))
	reports, err := auditor.AuditAll(ctx, pairs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed []string
	for _, rep := range reports {
		if !asJSON {
			fmt.Fprint(out, rep.String())
		}
		if err := sink.RecordAudit(metrics.NewAuditEvent(rep)); err != nil {
			a.log.Errorf("record audit %s: %v", rep.Pair, err)
		}
		if !rep.IsSatisfiable() {
			failed = append(failed, rep.Pair)
		}
	}

	if asJSON {
		if err := export.WriteJSON(out, reports); err != nil {
			return err
		}
	}

	if serve {
		prom, ok := inframetrics.FindPromSink(sink)
		if !ok || prom.Addr == "" {
			return errors.New("--serve needs a prometheus sink with an addr")
		}
		if err := inframetrics.StartPromServer(ctx, prom.Addr, prom.Gatherer()); err != nil {
			return err
		}
	}
	if a.cfg.Audit.Strict && len(failed) > 0 {
		return fmt.Errorf("%w: %v", ErrUnsatisfiable, failed)
	}
	return nil
}

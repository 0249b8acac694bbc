package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpcoupling/config"
	"github.com/kilianp07/chpcoupling/core/metrics"
	"github.com/kilianp07/chpcoupling/core/monitoring"
	"github.com/kilianp07/chpcoupling/infra/logger"
	inframon "github.com/kilianp07/chpcoupling/infra/monitoring"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	cfgPath string
	cfg     *config.Config
	log     logger.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "chpcoupling",
		Short:             "CHP heat/power coupling constraints and feasibility audit",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "config.yaml", "configuration file")
	root.AddCommand(newAuditCmd(a), newEmitCmd(a), newSolveCmd(a), newProfileCmd(a))
	return root
}

// Execute runs the CLI and reports a failed command to the configured
// monitor.
func Execute() error {
	c, err := NewRootCmd().ExecuteC()
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"command": c.Name()})
	}
	monitoring.Flush(2 * time.Second)
	return err
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)
	a.cfg = cfg
	a.log = logger.New(cmd.Name() + "-command")
	return nil
}

func (a *app) sink() (metrics.AuditSink, error) {
	s, err := metrics.NewAuditSink(a.cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	return s, nil
}

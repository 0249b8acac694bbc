package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpcoupling/core/audit"
	"github.com/kilianp07/chpcoupling/core/coupling"
	"github.com/kilianp07/chpcoupling/core/metrics"
	"github.com/kilianp07/chpcoupling/core/network"
	"github.com/kilianp07/chpcoupling/infra/logger"
	"github.com/kilianp07/chpcoupling/infra/solver"
	"github.com/kilianp07/chpcoupling/pkg/export"
)

func newSolveCmd(a *app) *cobra.Command {
	var pairName string
	var asCSV bool
	c := &cobra.Command{
		Use:   "solve",
		Short: "Solve the demand scenario around one pair and explain infeasibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Scenario.HasProfile() {
				return errors.New("solve: scenario has no demand profile")
			}
			pair, err := a.cfg.FindPair(pairName)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			rep, err := audit.New(audit.WithTolerance(a.cfg.Audit.Tolerance), audit.WithLogger(logger.New("auditor"))).Audit(pair)
			if err != nil {
				return err
			}
			if !asCSV {
				fmt.Fprint(out, rep.String())
			}

			sink, err := a.sink()
			if err != nil {
				return err
			}
			plant, err := a.cfg.Scenario.Scenario().Build(pair, coupling.NewGenerator(logger.New("coupling")))
			if err != nil {
				return err
			}

			start := time.Now()
			sol, solveErr := solver.NewGonum(0, logger.New("solver")).Solve(cmd.Context(), plant.Model)
			ev := metrics.SolveEvent{ReportID: rep.ID, Pair: pair.Name, Feasible: solveErr == nil, Duration: time.Since(start), Time: start}
			if solveErr == nil {
				ev.Objective = sol.Objective
				ev.Fractional = len(sol.Fractional)
			}

			if solveErr == nil {
				steps := plant.Read(sol.X)
				for _, d := range steps {
					ev.Unserved += d.UnservedElectric + d.UnservedHeat
				}
				if asCSV {
					if err := export.WriteCSV(out, pair.Name, steps); err != nil {
						return err
					}
				} else {
					printDispatch(out, steps)
					fmt.Fprintf(out, "objective %.4f\n", sol.Objective)
				}
			}
			if rec, ok := sink.(metrics.SolveRecorder); ok {
				if err := rec.RecordSolve(ev); err != nil {
					a.log.Errorf("record solve: %v", err)
				}
			}
			if solveErr != nil {
				return audit.Explain(rep, solveErr)
			}
			if len(sol.Fractional) > 0 {
				a.log.Warnf("%d status variables are fractional in the relaxation", len(sol.Fractional))
			}
			a.log.Debugw("solved", map[string]any{"pair": pair.Name, "objective": sol.Objective, "unserved": ev.Unserved})
			return nil
		},
	}
	c.Flags().BoolVar(&asCSV, "csv", false, "print the dispatch as CSV instead of a table")
	c.Flags().StringVar(&pairName, "pair", "", "pair to solve (default: first configured)")
	return c
}

func printDispatch(out io.Writer, steps []network.Dispatch) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tP_EL\tQ_TH\tQ/P\tUNSERVED_EL\tUNSERVED_TH")
	for t, d := range steps {
		ratio := "-"
		if d.ElectricOutput > 0 {
			ratio = fmt.Sprintf("%.4f", d.HeatOutput/d.ElectricOutput)
		}
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%s\t%.4f\t%.4f\n", t, d.ElectricOutput, d.HeatOutput, ratio, d.UnservedElectric, d.UnservedHeat)
	}
	_ = w.Flush()
}

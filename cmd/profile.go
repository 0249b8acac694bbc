package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpcoupling/core/audit"
	"github.com/kilianp07/chpcoupling/infra/logger"
)

func newProfileCmd(a *app) *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "profile",
		Short: "Check the demand profile Q/P against each pair's ratio band",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.cfg.Scenario
			if !s.HasProfile() {
				return fmt.Errorf("profile: scenario has no demand profile")
			}
			pairs, err := a.cfg.ModelPairs()
			if err != nil {
				return err
			}
			auditor := audit.New(audit.WithTolerance(a.cfg.Audit.Tolerance), audit.WithLogger(logger.New("auditor")))
			out := cmd.OutOrStdout()
			for _, pair := range pairs {
				rep, err := auditor.CheckProfile(pair, s.ElectricDemand, s.HeatDemand)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pair %s: %d/%d steps with Q/P in [%.4f, %.4f]\n",
					rep.Pair, rep.Compatible, len(rep.Steps), rep.Low, rep.High)
				if !verbose {
					continue
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "STEP\tQ/P\tOK")
				for t, st := range rep.Steps {
					fmt.Fprintf(w, "%d\t%.4f\t%t\n", t, st.Ratio, st.Compatible)
				}
				_ = w.Flush()
			}
			return nil
		},
	}
	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every step")
	return c
}

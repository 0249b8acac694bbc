package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpcoupling/core/coupling"
	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/network"
	"github.com/kilianp07/chpcoupling/infra/logger"
)

func newEmitCmd(a *app) *cobra.Command {
	var horizon int
	var pairName string
	c := &cobra.Command{
		Use:   "emit",
		Short: "Print the coupling constraints of the configured pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if horizon <= 0 {
				horizon = a.cfg.Scenario.Horizon
			}
			pairs, err := a.cfg.ModelPairs()
			if err != nil {
				return err
			}
			gen := coupling.NewGenerator(logger.New("coupling"))
			m := lpmodel.New()
			out := cmd.OutOrStdout()
			for _, pair := range pairs {
				if pairName != "" && pair.Name != pairName {
					continue
				}
				vars, err := network.Declare(m, pair, horizon)
				if err != nil {
					return err
				}
				cs, err := gen.Emit(m, pair, vars)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "# %s (%s, %d constraints)\n", pair.Name, pair.Formulation(), len(cs))
				for _, con := range cs {
					fmt.Fprintln(out, m.Format(con))
				}
			}
			a.log.Debugw("model assembled", map[string]any{
				"variables":   m.NumVariables(),
				"constraints": len(m.Constraints()),
			})
			return nil
		},
	}
	c.Flags().IntVar(&horizon, "horizon", 0, "number of time steps (default: scenario horizon)")
	c.Flags().StringVar(&pairName, "pair", "", "only emit this pair")
	return c
}

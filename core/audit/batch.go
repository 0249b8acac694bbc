package audit

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/chpcoupling/core/model"
)

// AuditAll audits independent pairs concurrently. Reports keep the order of
// pairs; an invalid pair leaves a zero Report at its index and contributes
// its ParameterError to the joined error.
func (a *Auditor) AuditAll(ctx context.Context, pairs []model.Pair) ([]Report, error) {
	reports := make([]Report, len(pairs))
	errs := make([]error, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range pairs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i], errs[i] = a.Audit(pairs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, errors.Join(errs...)
}

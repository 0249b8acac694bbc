package audit

import (
	"fmt"
	"strings"
)

// SolverInfeasibleError ties a solver failure to the audit report that
// predicted it.
type SolverInfeasibleError struct {
	Report Report
	Err    error
}

func (e *SolverInfeasibleError) Error() string {
	parts := make([]string, 0, len(e.Report.Violations))
	for _, v := range e.Report.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("pair %s: %v; explained by %d audit violation(s) (report %s): %s",
		e.Report.Pair, e.Err, len(e.Report.Violations), e.Report.ID, strings.Join(parts, "; "))
}

func (e *SolverInfeasibleError) Unwrap() error { return e.Err }

// Explain cross-references a solver error with a prior report. When the
// report has violations the error is wrapped in *SolverInfeasibleError;
// otherwise it is returned with a note that the audit found nothing.
func Explain(rep Report, err error) error {
	if err == nil {
		return nil
	}
	if rep.IsSatisfiable() {
		return fmt.Errorf("pair %s: %w (audit report %s found no coupling violation)", rep.Pair, err, rep.ID)
	}
	return &SolverInfeasibleError{Report: rep, Err: err}
}

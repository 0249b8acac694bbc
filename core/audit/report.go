package audit

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chpcoupling/core/model"
)

// Kind names the invariant family a violation belongs to.
type Kind string

const (
	// ConflictingMinimumLoad: minimum-load fractions cannot be met together
	// with the ratio or band at a commitment boundary.
	ConflictingMinimumLoad Kind = "ConflictingMinimumLoad"
	// ParameterMismatch: two different constants govern sizing and dispatch,
	// or a requested option cannot take effect.
	ParameterMismatch Kind = "ParameterMismatch"
	// CapacityShortfall: the ratio asks more of a branch than its capacity.
	CapacityShortfall Kind = "CapacityShortfall"
)

// Point is the conceptual operating point at which a violation occurs.
type Point string

const (
	FullLoad    Point = "full_load"
	MinimumLoad Point = "minimum_load"
	Off         Point = "off"
)

// Violation is one failed invariant.
type Violation struct {
	Kind      Kind
	Point     Point
	Branch    string
	Invariant string
	// Gap is declared bound minus the value the coupling requires, in the
	// unit of the invariant (input power or ratio).
	Gap    float64
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s (%s): %s, gap %.4g", v.Kind, v.Point, v.Branch, v.Invariant, v.Gap)
}

// Report is the outcome of auditing one pair.
type Report struct {
	ID           uuid.UUID
	Pair         string
	Formulation  model.Formulation
	Synchronized bool
	CheckedAt    time.Time
	Violations   []Violation
}

// IsSatisfiable is true iff no violation was found.
func (r Report) IsSatisfiable() bool {
	return len(r.Violations) == 0
}

// Has reports whether the report contains a violation of the given kind.
func (r Report) Has(k Kind) bool {
	for _, v := range r.Violations {
		if v.Kind == k {
			return true
		}
	}
	return false
}

// Find returns the first violation of kind k at point p.
func (r Report) Find(k Kind, p Point) (Violation, bool) {
	for _, v := range r.Violations {
		if v.Kind == k && v.Point == p {
			return v, true
		}
	}
	return Violation{}, false
}

// String renders the report for an operator.
func (r Report) String() string {
	var sb strings.Builder
	status := "satisfiable"
	if !r.IsSatisfiable() {
		status = fmt.Sprintf("NOT satisfiable (%d violations)", len(r.Violations))
	}
	fmt.Fprintf(&sb, "pair %s [%s, synchronized=%t]: %s\n", r.Pair, r.Formulation, r.Synchronized, status)
	if r.IsSatisfiable() {
		return sb.String()
	}
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tPOINT\tBRANCH\tGAP\tINVARIANT")
	for _, v := range r.Violations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4g\t%s\n", v.Kind, v.Point, v.Branch, v.Gap, v.Invariant)
	}
	_ = w.Flush()
	for _, v := range r.Violations {
		if v.Detail != "" {
			fmt.Fprintf(&sb, "  - %s\n", v.Detail)
		}
	}
	return sb.String()
}

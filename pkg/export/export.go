package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/chpcoupling/core/audit"
	"github.com/kilianp07/chpcoupling/core/network"
)

// Violation is the JSON form of an audit violation.
type Violation struct {
	Kind      string  `json:"kind"`
	Point     string  `json:"point"`
	Branch    string  `json:"branch"`
	Invariant string  `json:"invariant"`
	Gap       float64 `json:"gap"`
	Detail    string  `json:"detail,omitempty"`
}

// Report is the JSON form of an audit report.
type Report struct {
	ID           string      `json:"id"`
	Pair         string      `json:"pair"`
	Formulation  string      `json:"formulation"`
	Synchronized bool        `json:"synchronized"`
	Satisfiable  bool        `json:"satisfiable"`
	CheckedAt    time.Time   `json:"checked_at"`
	Violations   []Violation `json:"violations"`
}

// NewReport converts an audit report.
func NewReport(r audit.Report) Report {
	out := Report{
		ID:           r.ID.String(),
		Pair:         r.Pair,
		Formulation:  r.Formulation.String(),
		Synchronized: r.Synchronized,
		Satisfiable:  r.IsSatisfiable(),
		CheckedAt:    r.CheckedAt,
		Violations:   make([]Violation, 0, len(r.Violations)),
	}
	for _, v := range r.Violations {
		out.Violations = append(out.Violations, Violation{
			Kind:      string(v.Kind),
			Point:     string(v.Point),
			Branch:    v.Branch,
			Invariant: v.Invariant,
			Gap:       v.Gap,
			Detail:    v.Detail,
		})
	}
	return out
}

// WriteJSON writes the audit reports to w as a JSON array.
func WriteJSON(w io.Writer, reports []audit.Report) error {
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, NewReport(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes a solved dispatch to w, one row per step.
func WriteCSV(w io.Writer, pair string, steps []network.Dispatch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pair", "step", "electric_input", "thermal_input", "electric_output", "heat_output", "unserved_electric", "unserved_heat"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for t, d := range steps {
		rec := []string{
			pair,
			strconv.Itoa(t),
			f(d.ElectricInput),
			f(d.ThermalInput),
			f(d.ElectricOutput),
			f(d.HeatOutput),
			f(d.UnservedElectric),
			f(d.UnservedHeat),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package config

import (
	"fmt"

	"github.com/kilianp07/chpcoupling/core/audit"
)

// AuditConfig controls the feasibility auditor.
type AuditConfig struct {
	// Tolerance is the relative tolerance of ratio and capacity checks.
	Tolerance float64 `json:"tolerance"`
	// Strict makes the audit command fail when a pair is not satisfiable.
	Strict bool `json:"strict"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Tolerance == 0 {
		c.Tolerance = audit.DefaultTolerance
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("audit: tolerance must be in (0, 1), got %g", c.Tolerance)
	}
	return nil
}

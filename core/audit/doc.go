package audit

// Package audit certifies CHP coupling parameters before a model is built.
// The Auditor evaluates the ratio formulation at full load, at the
// electrical minimum-commitment point and with both branches off, and
// returns a Report of violations instead of failing. Explain links a later
// solver failure back to that report.

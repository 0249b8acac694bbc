package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chpcoupling/core/audit"
)

const testConfig = `pairs:
  - name: banded
    heat_to_power_ratio: 1.2631578947
    coupling_band: 0.15
    thermal_bias: 0.2
    synchronize_commitment: true
    electrical: {efficiency: 0.38, nominal_capacity: 10, min_load_fraction: 0.4, committable: true}
    thermal: {efficiency: 0.48, nominal_capacity: 10, min_load_fraction: 0.1, committable: true}
  - name: exact
    heat_to_power_ratio: 1.2631578947
    synchronize_commitment: true
    electrical: {efficiency: 0.38, nominal_capacity: 10, min_load_fraction: 0.4, committable: true}
    thermal: {efficiency: 0.48, nominal_capacity: 10, committable: true}
  - name: undersized
    heat_to_power_ratio: 1.2631578947
    electrical: {efficiency: 0.38, nominal_capacity: 10, min_load_fraction: 0.4}
    thermal: {efficiency: 0.48, nominal_capacity: 2}
scenario:
  electric_demand: [3, 2]
  heat_demand: [3.8, 2.6]
  fuel_cost: 30
metrics:
  sinks:
    - type: nop
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", path}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestAuditCommand(t *testing.T) {
	out, err := run(t, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "pair banded [banded, synchronized=true]: NOT satisfiable")
	assert.Contains(t, out, "ConflictingMinimumLoad")
	assert.Contains(t, out, "pair exact [exact, synchronized=true]: satisfiable")
}

func TestAuditCommandStrict(t *testing.T) {
	_, err := run(t, "audit", "--strict")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsatisfiable))
	assert.Contains(t, err.Error(), "banded")
	assert.NotContains(t, err.Error(), "exact")
}

func TestAuditCommandServeNeedsPrometheus(t *testing.T) {
	_, err := run(t, "audit", "--serve")
	assert.ErrorContains(t, err, "prometheus sink")
}

func TestAuditCommandJSON(t *testing.T) {
	out, err := run(t, "audit", "--format", "json")
	require.NoError(t, err)

	var reports []struct {
		Pair        string `json:"pair"`
		Satisfiable bool   `json:"satisfiable"`
		Violations  []struct {
			Kind string `json:"kind"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)
	assert.Equal(t, "banded", reports[0].Pair)
	assert.False(t, reports[0].Satisfiable)
	assert.NotEmpty(t, reports[0].Violations)
	assert.True(t, reports[1].Satisfiable)

	_, err = run(t, "audit", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestEmitCommand(t *testing.T) {
	out, err := run(t, "emit", "--horizon", "2", "--pair", "exact")
	require.NoError(t, err)
	assert.Contains(t, out, "# exact (exact, 4 constraints)")
	assert.Contains(t, out, "exact/chp-fixed-power-ratio[1]")
	assert.Contains(t, out, "exact/chp-status-synchronisation[0]")
	assert.NotContains(t, out, "banded/")
}

func TestProfileCommand(t *testing.T) {
	out, err := run(t, "profile", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "pair banded: 2/2 steps")
	assert.Contains(t, out, "STEP")
}

func TestSolveCommand(t *testing.T) {
	out, err := run(t, "solve", "--pair", "exact")
	require.NoError(t, err)
	assert.Contains(t, out, "pair exact [exact, synchronized=true]: satisfiable")
	assert.Contains(t, out, "objective")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.GreaterOrEqual(t, len(lines), 4)
}

func TestSolveCommandCSV(t *testing.T) {
	out, err := run(t, "solve", "--pair", "exact", "--csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "pair,step,electric_input"))
	assert.True(t, strings.HasPrefix(lines[1], "exact,0,"))
	assert.True(t, strings.HasPrefix(lines[2], "exact,1,"))
}

func TestSolveCommandExplainsInfeasibility(t *testing.T) {
	_, err := run(t, "solve", "--pair", "undersized")
	require.Error(t, err)
	var sie *audit.SolverInfeasibleError
	require.True(t, errors.As(err, &sie), "got %v", err)
	assert.Equal(t, "undersized", sie.Report.Pair)
}

func TestMissingConfig(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "audit"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, root.Execute(), "load config")
}

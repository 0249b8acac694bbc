package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chpcoupling/core/audit"
	"github.com/kilianp07/chpcoupling/core/model"
	"github.com/kilianp07/chpcoupling/core/network"
)

func TestWriteJSON(t *testing.T) {
	id := uuid.MustParse("0b8a4a0e-1f7c-4c1e-8a55-7d5b8f4c9e21")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reports := []audit.Report{
		{ID: id, Pair: "bhkw", Formulation: model.FormulationBanded, Synchronized: true, CheckedAt: at,
			Violations: []audit.Violation{{Kind: audit.ConflictingMinimumLoad, Point: audit.MinimumLoad, Branch: "chp_boiler", Invariant: "inv", Gap: -2.4}}},
		{ID: id, Pair: "ok", Formulation: model.FormulationExact, CheckedAt: at},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, reports))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, id.String(), got[0]["id"])
	assert.Equal(t, "banded", got[0]["formulation"])
	assert.Equal(t, false, got[0]["satisfiable"])
	assert.Equal(t, "2024-03-01T12:00:00Z", got[0]["checked_at"])
	v := got[0]["violations"].([]any)[0].(map[string]any)
	assert.Equal(t, "ConflictingMinimumLoad", v["kind"])
	assert.Equal(t, -2.4, v["gap"])
	assert.NotContains(t, v, "detail")
	assert.Equal(t, true, got[1]["satisfiable"])
	assert.Equal(t, []any{}, got[1]["violations"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	steps := []network.Dispatch{{ElectricInput: 5, ThermalInput: 5, ElectricOutput: 1.9, HeatOutput: 2.4, UnservedHeat: 0.6}}
	require.NoError(t, WriteCSV(&buf, "bhkw", steps))
	assert.Equal(t,
		"pair,step,electric_input,thermal_input,electric_output,heat_output,unserved_electric,unserved_heat\n"+
			"bhkw,0,5,5,1.9,2.4,0,0.6\n",
		buf.String())
}

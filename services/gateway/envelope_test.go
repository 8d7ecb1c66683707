package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationFromName(t *testing.T) {
	req := Request{Query: "{ ranking { entries } }", OperationName: "assetRank"}
	assert.Equal(t, "assetRank", req.Operation())
}

func TestOperationFromDocument(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"shorthand", "{ ranking { entries { callsign } } }", "ranking"},
		{"named query", "query Leader { ranking(convoyId: $id) { entries } }", "ranking"},
		{"mutation", "mutation { recordEngagement(input: $in) { success } }", "recordEngagement"},
		{"subscription", "subscription { engagementEvents(convoyId: $id) { hit } }", "engagementEvents"},
		{"no braces", "health", "health"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Request{Query: tt.query}.Operation())
		})
	}
}

func TestCheckLimitsDepth(t *testing.T) {
	shallow := Request{Query: "{ a { b { c } } }"}
	require.NoError(t, shallow.CheckLimits(10, 1000))
	require.Error(t, shallow.CheckLimits(2, 1000))
}

func TestCheckLimitsComplexity(t *testing.T) {
	req := Request{Query: "{ a b c d e }"}
	require.NoError(t, req.CheckLimits(10, 5))
	require.Error(t, req.CheckLimits(10, 4))
}

func TestOperationKind(t *testing.T) {
	assert.Equal(t, "query", operationKind("{ ranking }"))
	assert.Equal(t, "query", operationKind("query { ranking }"))
	assert.Equal(t, "mutation", operationKind("  mutation { recordEngagement }"))
	assert.Equal(t, "subscription", operationKind("subscription { heartbeat }"))
}

func TestVars(t *testing.T) {
	raw := json.RawMessage(`{"convoyId": "abc", "pagination": {"limit": 5}, "input": {"hit": true}}`)
	vars := newVars(raw)

	assert.Equal(t, "abc", vars.Get("convoyId").String())
	assert.Equal(t, int64(5), vars.Get("pagination.limit").Int())
	assert.Equal(t, "abc", vars.First("assetId", "convoyId").String())

	var input struct {
		Hit bool `json:"hit"`
	}
	require.NoError(t, vars.Decode("input", &input))
	assert.True(t, input.Hit)

	require.Error(t, vars.Decode("missing", &input))
}

package ops

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccuracyPct(t *testing.T) {
	tests := []struct {
		name        string
		hits, total int
		want        float64
	}{
		{"no engagements", 0, 0, 0},
		{"all hits", 5, 5, 100},
		{"two of three", 2, 3, 66.67},
		{"one of three", 1, 3, 33.33},
		{"one of seven", 1, 7, 14.29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AccuracyPct(tt.hits, tt.total); got != tt.want {
				t.Errorf("AccuracyPct(%d, %d) = %v, want %v", tt.hits, tt.total, got, tt.want)
			}
		})
	}
}

func TestConvoyStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ConvoyStatus
		allowed  bool
	}{
		{ConvoyPlanning, ConvoyActive, true},
		{ConvoyPlanning, ConvoyAbort, true},
		{ConvoyPlanning, ConvoyComplete, false},
		{ConvoyActive, ConvoyRTB, true},
		{ConvoyActive, ConvoyAbort, true},
		{ConvoyActive, ConvoyComplete, false},
		{ConvoyRTB, ConvoyComplete, true},
		{ConvoyRTB, ConvoyAbort, true},
		{ConvoyRTB, ConvoyActive, false},
		{ConvoyComplete, ConvoyActive, false},
		{ConvoyAbort, ConvoyPlanning, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}

	assert.True(t, ConvoyComplete.Terminal())
	assert.True(t, ConvoyAbort.Terminal())
	assert.False(t, ConvoyRTB.Terminal())
}

func TestRankingEntryOrdering(t *testing.T) {
	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	entries := []RankingEntry{
		{DroneID: idB, AccuracyPct: 100, TotalEngagements: 1},
		{DroneID: idA, AccuracyPct: 100, TotalEngagements: 1},
		{DroneID: uuid.New(), AccuracyPct: 100, TotalEngagements: 4},
		{DroneID: uuid.New(), AccuracyPct: 50, TotalEngagements: 10},
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Less(entries[j]) })

	// Higher engagement count wins the 100% tie.
	assert.Equal(t, 4, entries[0].TotalEngagements)
	// Equal accuracy and engagements fall back to drone ID ascending.
	assert.Equal(t, idA, entries[1].DroneID)
	assert.Equal(t, idB, entries[2].DroneID)
	assert.Equal(t, 50.0, entries[3].AccuracyPct)
}

func TestTimeBucket(t *testing.T) {
	at := time.Date(2024, 7, 9, 14, 35, 2, 0, time.UTC)
	assert.Equal(t, "2024070914", TimeBucket(at))

	// Non-UTC instants normalize to UTC before bucketing.
	loc := time.FixedZone("plus5", 5*3600)
	assert.Equal(t, "2024070914", TimeBucket(time.Date(2024, 7, 9, 19, 5, 0, 0, loc)))
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityWarning))
	assert.True(t, SeverityWarning.AtLeast(SeverityWarning))
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
	assert.False(t, SeverityWarning.AtLeast(SeverityCritical))
	assert.True(t, SeverityInfo.AtLeast(SeverityInfo))
	assert.True(t, SeverityInfo.AtLeast(""))
}

func TestFuelCritical(t *testing.T) {
	assert.True(t, Drone{FuelRemainingPct: 19.9}.FuelCritical())
	assert.False(t, Drone{FuelRemainingPct: 20}.FuelCritical())
}

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{}.Normalize()
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Pagination{Limit: 500, Offset: -3}.Normalize()
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

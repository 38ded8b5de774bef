package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/godex/internal/common"
)

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)
	assert.Equal(t, AccountStats{}, st)
	assert.Zero(t, st.AvgIV)
}

func TestComputeStats_MixedAccount(t *testing.T) {
	captures := []Capture{
		{ID: 1, IV: 100, IsShiny: true},
		{ID: 2, IV: 100, IsShiny: false},
		{ID: 3, IV: 50, IsShiny: true},
	}

	st := ComputeStats(captures)

	assert.Equal(t, 3, st.CaptureCount)
	assert.Equal(t, 2, st.ShinyCount)
	assert.Equal(t, 2, st.HundoCount)
	assert.Equal(t, 1, st.ShundoCount)
	assert.InDelta(t, 83.33, st.AvgIV, 0.01)
}

func TestComputeStats_ZeroAverageIsRealData(t *testing.T) {
	st := ComputeStats([]Capture{{IV: 0}, {IV: 0}})
	assert.Equal(t, 2, st.CaptureCount)
	assert.Zero(t, st.AvgIV)
}

func TestGroupStatsByAccount(t *testing.T) {
	a, b := int64(10), int64(20)
	captures := []Capture{
		{ID: 1, AccountID: &a, IV: 100, IsShiny: true},
		{ID: 2, AccountID: &a, IV: 40},
		{ID: 3, AccountID: &b, IV: 90},
		{ID: 4, IV: 100, IsShiny: true},
		{ID: 5, AccountID: common.Ptr(a), IV: 10},
	}

	got := GroupStatsByAccount(captures)

	assert.Len(t, got, 2)
	assert.Equal(t, 3, got[a].CaptureCount)
	assert.Equal(t, 1, got[a].ShundoCount)
	assert.InDelta(t, 50.0, got[a].AvgIV, 1e-9)
	assert.Equal(t, AccountStats{CaptureCount: 1, AvgIV: 90}, got[b])
}

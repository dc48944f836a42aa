package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/pkg/model"
)

func horizon(t *testing.T, start string, weeks int) model.PlanningHorizon {
	t.Helper()
	h, err := model.NewPlanningHorizon(start, weeks)
	require.NoError(t, err)
	return h
}

func census() *model.Census {
	return &model.Census{
		BusinessLine: "Wisconsin Geriatrics",
		Rows: []model.CensusRow{
			{ProviderID: "P1", FacilityID: "F1", Monthly: map[string]float64{"2024-12": 40}},
			{ProviderID: "P1", FacilityID: "F2", Monthly: map[string]float64{"2024-12": 0, "2024-11": 9}},
			{ProviderID: "P1", FacilityID: "F3", Monthly: map[string]float64{"2024-12": 10}},
		},
	}
}

func TestBuild_Full(t *testing.T) {
	c := census()
	p, _ := c.Provider("P1")
	table, err := Build(Input{
		Census:   c,
		Provider: p,
		Horizon:  horizon(t, "2024-12-02", 4),
		Alpha:    0.05,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-12", table.Month)
	assert.Equal(t, 1.0, table.Overlap)
	require.Len(t, table.Targets, 2)
	assert.Equal(t, "F1", table.Targets[0].FacilityID)
	assert.Equal(t, 42, table.Targets[0].Target, "40 × 1.05")
	assert.Equal(t, 11, table.Targets[1].Target, "10 × 1.05 = 10.5 远离零舍入")
	assert.Equal(t, []string{"F2"}, table.Excluded, "零普查的机构排除")
	assert.Equal(t, 53, table.TotalTarget())
	assert.Equal(t, 50.0, table.TotalCensus())
	assert.Len(t, table.Demands(), 2)
	assert.Equal(t, 42, table.TargetMap()["F1"])
	assert.NotContains(t, table.TargetMap(), "F2")
}

func TestBuild_NoOverlap(t *testing.T) {
	c := census()
	p, _ := c.Provider("P1")
	table, err := Build(Input{
		Census:   c,
		Provider: p,
		Month:    "2024-10",
		Horizon:  horizon(t, "2024-12-02", 4),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, table.Overlap)
	assert.Empty(t, table.Targets)
	assert.Equal(t, 0, table.TotalTarget())
}

func TestBuild_BadMonth(t *testing.T) {
	c := census()
	p, _ := c.Provider("P1")
	_, err := Build(Input{Census: c, Provider: p, Month: "Dec 2024", Horizon: horizon(t, "2024-12-02", 4)})
	assert.Error(t, err)
}

func TestOverlapFraction(t *testing.T) {
	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		h     model.PlanningHorizon
		month time.Time
		p     Proration
		want  float64
	}{
		{"整月计", horizon(t, "2024-12-02", 4), dec, ProrationFull, 1},
		// 12 月共 22 个工作日，周期覆盖 20 个
		{"工作日折算", horizon(t, "2024-12-02", 4), dec, ProrationWorkdays, 20.0 / 22.0},
		// 5 周周期延伸到 1 月 3 日：1 月覆盖 3 个工作日，1 月共 23 个
		{"跨月", horizon(t, "2024-12-02", 5), jan, ProrationWorkdays, 3.0 / 23.0},
		{"无重叠", horizon(t, "2024-12-02", 4), jan, ProrationFull, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverlapFraction(tt.h, tt.month, tt.p), 1e-9)
		})
	}
}

func TestAdjustedTarget(t *testing.T) {
	assert.Equal(t, 0, AdjustedTarget(0, 1, 0.2))
	assert.Equal(t, 40, AdjustedTarget(40, 1, 0))
	assert.Equal(t, 0, AdjustedTarget(-5, 1, 0))
	assert.Equal(t, 18, AdjustedTarget(20, 0.85, 0.05), "17.85 -> 18")
}

func TestParseProration(t *testing.T) {
	p, err := ParseProration("")
	require.NoError(t, err)
	assert.Equal(t, ProrationFull, p)
	_, err = ParseProration("weekly")
	assert.Error(t, err)
}

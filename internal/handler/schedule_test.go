package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/pkg/distance"
	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/planner"
	"github.com/paiban/visitplan/pkg/report"
)

type fakeEngine struct {
	last *planner.Request
	err  error
}

func (f *fakeEngine) Optimize(_ context.Context, req *planner.Request) (*report.Report, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &report.Report{OptimizationMode: req.Mode, Status: model.StatusOptimal, TotalPatientsServed: 42}, nil
}

func (f *fakeEngine) Precheck(_ context.Context, req *planner.Request) (*report.CapacityCheck, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &report.CapacityCheck{TotalDemand: 100, TotalCapacity: 300, Sufficient: true}, nil
}

func post(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize", &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOptimize_Success(t *testing.T) {
	engine := &fakeEngine{}
	h := NewScheduleHandler(engine, testLines)

	rec := post(t, h.Optimize, OptimizeRequest{StartMonday: "2024-12-02", MaxPatientsPerDay: intPtr(10)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, float64(42), body["total_patients_served"])
	require.NotNil(t, engine.last)
	assert.Equal(t, 10, engine.last.DailyPatientLimit)
}

func TestOptimize_BadJSON(t *testing.T) {
	engine := &fakeEngine{}
	h := NewScheduleHandler(engine, testLines)

	rec := post(t, h.Optimize, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, string(errors.CodeInvalidInput), body["code"])
	assert.Nil(t, engine.last, "解析失败不应调用引擎")
}

func TestOptimize_ValidationFields(t *testing.T) {
	h := NewScheduleHandler(&fakeEngine{}, testLines)

	rec := post(t, h.Optimize, OptimizeRequest{StartMonday: "2024-12-04", BusinessLine: "Texas"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(errors.CodeInvalidHorizon), body["code"], "周期无效时使用周期错误码")
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "business_line")
	assert.Contains(t, fields, "start_monday")
}

func TestOptimize_EngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   errors.Code
	}{
		{"容量不足", errors.InsufficientCapacity(500, 300), http.StatusUnprocessableEntity, errors.CodeInsufficientCapacity},
		{"超时", errors.Timeout("P1", context.DeadlineExceeded), http.StatusGatewayTimeout, errors.CodeTimeout},
		{"未知错误", fmt.Errorf("boom"), http.StatusInternalServerError, errors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewScheduleHandler(&fakeEngine{err: tt.err}, testLines)
			rec := post(t, h.Optimize, OptimizeRequest{StartMonday: "2024-12-02"})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.code), decodeBody(t, rec)["code"])
		})
	}
}

func TestPrecheck(t *testing.T) {
	engine := &fakeEngine{}
	h := NewScheduleHandler(engine, testLines)

	rec := post(t, h.Precheck, OptimizeRequest{StartMonday: "2024-12-02", OptimizationMode: "single_provider", SelectedProvider: "P1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["sufficient"])
	assert.Equal(t, "P1", engine.last.ProviderID)
}

func TestBusinessLines(t *testing.T) {
	h := NewScheduleHandler(&fakeEngine{}, testLines)
	rec := httptest.NewRecorder()
	h.BusinessLines(rec, httptest.NewRequest(http.MethodGet, "/api/v1/business_lines", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BusinessLinesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testLines, resp.BusinessLines)
	assert.Equal(t, DefaultBusinessLine, resp.Default)
}

func TestConstraintLibrary(t *testing.T) {
	h := NewScheduleHandler(&fakeEngine{}, testLines)

	rec := httptest.NewRecorder()
	h.ConstraintLibrary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/constraints/library", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	lib, ok := decodeBody(t, rec)["library"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, lib)

	rec = httptest.NewRecorder()
	h.ConstraintLibrary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/constraints/library?name=anti_bunching", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anti_bunching", decodeBody(t, rec)["name"])

	rec = httptest.NewRecorder()
	h.ConstraintLibrary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/constraints/library?name=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type censusSource map[string]*model.Census

func (s censusSource) LoadCensus(_ context.Context, bl string) (*model.Census, error) {
	c, ok := s[bl]
	if !ok {
		return nil, errors.NotFound("census", bl)
	}
	return c, nil
}

func TestOptimize_WithPlanner(t *testing.T) {
	const bl = "Wisconsin Geriatrics"
	rows := []model.CensusRow{
		{BusinessLine: bl, ProviderID: "P1", FacilityID: "F1", Monthly: map[string]float64{"2024-12": 40}},
		{BusinessLine: bl, ProviderID: "P1", FacilityID: "F2", Monthly: map[string]float64{"2024-12": 20}},
	}
	matrix := &distance.Matrix{
		BusinessLine:       bl,
		HomeToFacility:     map[string]map[string]float64{"P1": {"F1": 0.5, "F2": 1.0}},
		FacilityToFacility: map[string]map[string]float64{"F1": {"F2": 0.75}, "F2": {"F1": 0.75}},
	}
	engine := planner.New(
		censusSource{bl: {BusinessLine: bl, Source: "test", Rows: rows}},
		distance.NewCache(distance.StaticSource{bl: matrix}),
		planner.DefaultOptions(),
	)
	h := NewScheduleHandler(engine, testLines)

	rec := post(t, h.Optimize, OptimizeRequest{
		StartMonday:      "2024-12-02",
		OptimizationMode: "single_provider",
		SelectedProvider: "P1",
		ProviderConstraints: &ProviderConstraintsInput{
			DateConstraints: []DateConstraint{{FacilityID: "F2", Date: "2024-12-04"}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, model.ModeSingleProvider, rep.OptimizationMode)
	assert.Equal(t, 63, rep.TotalPatientDemand, "round(60 × 1.05)")
	assert.Equal(t, 63, rep.TotalPatientsServed)

	rec = post(t, h.Optimize, OptimizeRequest{BusinessLine: "Florida Geriatrics", StartMonday: "2024-12-02"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "已配置但无普查数据")
}

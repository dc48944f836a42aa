// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/paiban/visitplan/internal/constraints"
	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/planner"
	"github.com/paiban/visitplan/pkg/report"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Engine 排程引擎
type Engine interface {
	Optimize(ctx context.Context, req *planner.Request) (*report.Report, error)
	Precheck(ctx context.Context, req *planner.Request) (*report.CapacityCheck, error)
}

// ScheduleHandler 排程处理器
type ScheduleHandler struct {
	engine        Engine
	businessLines []string
}

// NewScheduleHandler 创建排程处理器
func NewScheduleHandler(engine Engine, businessLines []string) *ScheduleHandler {
	return &ScheduleHandler{engine: engine, businessLines: businessLines}
}

// BusinessLinesResponse 业务线列表
type BusinessLinesResponse struct {
	BusinessLines []string `json:"business_lines"`
	Default       string   `json:"default"`
}

// Optimize 生成排程
// POST /api/v1/optimize
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	rep, err := h.engine.Optimize(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// Precheck 容量预检，不执行求解
// POST /api/v1/optimize/precheck
func (h *ScheduleHandler) Precheck(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	check, err := h.engine.Precheck(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, check)
}

// BusinessLines 已配置的业务线
// GET /api/v1/business_lines
func (h *ScheduleHandler) BusinessLines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, BusinessLinesResponse{
		BusinessLines: h.businessLines,
		Default:       DefaultBusinessLine,
	})
}

// ConstraintLibrary 约束库
// GET /api/v1/constraints/library
func (h *ScheduleHandler) ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		def, ok := constraints.FindByName(name)
		if !ok {
			respondError(w, errors.NotFound("constraint", name))
			return
		}
		respondJSON(w, http.StatusOK, def)
		return
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: constraints.GetLibrary()})
}

func (h *ScheduleHandler) decode(w http.ResponseWriter, r *http.Request) (*planner.Request, bool) {
	var body OptimizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return nil, false
	}
	req, err := body.ToPlannerRequest(h.businessLines)
	if err != nil {
		respondError(w, errors.As(err))
		return nil, false
	}
	return req, true
}

func (h *ScheduleHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.As(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("请求处理失败")
	}
	respondError(w, appErr)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	body := map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	}
	if len(err.Fields) > 0 {
		body["fields"] = err.Fields
	}
	respondJSON(w, err.HTTPStatus, body)
}

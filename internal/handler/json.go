package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeInvalidStatus       = "INVALID_STATUS"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeCapacityExceeded    = "CAPACITY_EXCEEDED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeExpansionInProgress = "EXPANSION_IN_PROGRESS"
	CodeInternalError       = "INTERNAL_ERROR"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Code:    code,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		h.errorResponse(w, r, http.StatusBadRequest, CodeValidationError, validationErrors[0].Translate(h.translator))
	case errors.Is(err, domain.ErrValidation):
		h.errorResponse(w, r, http.StatusBadRequest, CodeValidationError, err.Error())
	default:
		// json 解码错误等
		h.errorResponse(w, r, http.StatusBadRequest, CodeValidationError, "请求格式错误")
	}
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusUnauthorized, CodeUnauthorized, msg)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusForbidden, CodeForbidden, "权限不足")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusNotFound, CodeNotFound, msg)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorResponse(w, r, http.StatusInternalServerError, CodeInternalError, "服务器内部错误")
}

// schedulingError 把排期核心返回的错误转换为对应的状态码和错误码，未知错误一律视为内部错误
func (h *Handler) schedulingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.errorResponse(w, r, http.StatusBadRequest, CodeValidationError, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		h.errorResponse(w, r, http.StatusBadRequest, CodeInvalidStatus, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, r, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		h.errorResponse(w, r, http.StatusConflict, CodeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		h.errorResponse(w, r, http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrExpansionInProgress):
		h.errorResponse(w, r, http.StatusConflict, CodeExpansionInProgress, err.Error())
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

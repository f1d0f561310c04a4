package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kairoshq/kairos/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Quota   *quotaDetail      `json:"quota,omitempty"`
}

// quotaDetail carries the extra context of a quota denial so clients can
// render an upgrade prompt without a second request.
type quotaDetail struct {
	Action     string `json:"action"`
	Title      string `json:"title"`
	Used       int64  `json:"used"`
	Limit      int64  `json:"limit"`
	UpgradeURL string `json:"upgrade_url"`
}

// ErrorResponse writes a JSON error response for err, mapping domain error
// codes to HTTP status codes.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	// Field-level validation errors carry no *Error chain; map them to
	// EINVALID with the fields attached.
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		logError(logger, r, err, domain.EINVALID, http.StatusBadRequest)
		respondJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    domain.EINVALID,
			Message: "Validation failed",
			Fields:  ve.Fields,
		}})
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logError(logger, r, err, code, status)

	detail := errorDetail{
		Code:    code,
		Message: domain.ErrorMessage(err),
	}

	var qe *domain.QuotaError
	if errors.As(err, &qe) {
		detail.Quota = &quotaDetail{
			Action:     string(qe.Action),
			Title:      qe.Title,
			Used:       qe.Used,
			Limit:      qe.Limit,
			UpgradeURL: qe.UpgradeURL,
		}
	}

	respondJSON(w, status, errorBody{Error: detail})
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID, domain.ESSRF:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.EQUOTA, domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EPROVIDER:
		return http.StatusBadGateway // 502
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// NotFoundResponse is a convenience wrapper for 404 errors.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// logError logs the error at a level matching the status class. Client
// errors are expected traffic; server errors are not.
func logError(logger *slog.Logger, r *http.Request, err error, code string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= 500 {
		logger.Error("server error", attrs...)
	} else {
		logger.Info("client error", attrs...)
	}
}

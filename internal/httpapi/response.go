package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"dishdash-be/internal/apperr"
	"dishdash-be/internal/logger"
	"dishdash-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Profile photos arrive inline as data URLs.
const maxBodyBytes = 10 << 20

func init() {
	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func statusFor(code string) int {
	switch code {
	case "invalid_input":
		return http.StatusBadRequest
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "storage_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the HTTP error body. Unclassified errors are
// logged with their cause and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.Code(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request error",
			zap.String("layer", "http"),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	utils.WriteJSONError(w, status, code, apperr.Message(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is required")
		}
		return apperr.Invalid("invalid request body")
	}
	return nil
}

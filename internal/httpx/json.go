package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type responseEnvelope struct {
	Data  any    `json:"data,omitempty"`
	Time  string `json:"time"`
	Error any    `json:"error,omitempty"`
}

// Envelope is the decoding side of every response body written here.
type Envelope[T any] struct {
	Data  T                               `json:"data"`
	Time  string                          `json:"time"`
	Error *ErrorResponse[json.RawMessage] `json:"error,omitempty"`
}

var (
	ErrBodyNotJSON     = errors.New("content-type must be application/json")
	ErrBodyMalformed   = errors.New("invalid request body")
	ErrBodyTrailing    = errors.New("request body must contain a single JSON object")
	maxRequestBodySize = int64(1 << 20) // 1MB
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		Data: v,
		Time: time.Now().UTC().Format(time.RFC3339),
	})
}

func WriteError[T any](w http.ResponseWriter, status int, errBody ErrorResponse[T]) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		Time:  time.Now().UTC().Format(time.RFC3339),
		Error: errBody,
	})
}

// DecodeJSON reads exactly one JSON object into dst and validates it. When
// it returns an error the matching response has already been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		WriteError(w, http.StatusUnsupportedMediaType, ErrorResponse[any]{
			Code:    ErrUnsupportedMedia,
			Message: "Content-Type must be application/json",
		})
		return ErrBodyNotJSON
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, ErrorResponse[any]{
			Code:    ErrInvalidJSON,
			Message: "invalid request body",
		})
		return errors.Join(ErrBodyMalformed, err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF { // check if there's any trailing data
		WriteError(w, http.StatusBadRequest, ErrorResponse[any]{
			Code:    ErrInvalidJSON,
			Message: "request body must contain a single JSON object",
		})
		return ErrBodyTrailing
	}

	if err := v.Struct(dst); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, ErrorResponse[[]FieldError]{
			Code:    ErrValidationFailed,
			Message: "validation failed",
			Details: ValidationDetails(err),
		})
		return err
	}
	return nil
}

package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"graphexplorer/internal/store"
)

// maxBodyBytes bounds request bodies accepted by the write endpoints.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps a store error onto the HTTP status the service answers
// with, together with the message placed in the error body.
func statusFor(err error) (int, string) {
	var se *store.Error
	msg := err.Error()
	if errors.As(err, &se) && se.Cause == nil {
		msg = se.Message
	}

	switch {
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest, msg
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, msg
	default:
		return http.StatusInternalServerError, msg
	}
}

// decodeBody reads a JSON request body into v. Numbers are normalized to
// int64 or float64 so they reach the database as native values.
func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

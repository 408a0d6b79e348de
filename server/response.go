package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/teranos/smrt/errors"
)

// writeJSON encodes data before writing the header, so an unencodable value
// becomes a 500 instead of a 200 with an empty body
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		err = fmt.Errorf("failed to encode JSON: %w", err)
		body, _ = json.Marshal(errorBody{Error: err.Error(), Status: "error"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
	return err
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error  string   `json:"error"`
	Status string   `json:"status"`
	Hints  []string `json:"hints,omitempty"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string, hints ...string) {
	_ = writeJSON(w, status, errorBody{Error: message, Status: "error", Hints: hints})
}

// writeErr maps err onto an HTTP status and writes it with its hints
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error(), errors.GetAllHints(err)...)
}

func statusFor(err error) int {
	switch {
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrNotConfigured):
		return http.StatusConflict
	case errors.IsTimeoutError(err):
		return http.StatusGatewayTimeout
	case errors.IsServiceUnavailableError(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// readJSON reads and decodes a JSON request body
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return err
	}
	return nil
}

// queryInt reads a non-negative integer query parameter, 0 when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewInvalidRequestError("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}

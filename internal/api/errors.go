// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/payflowd/payflow/internal/fault"
	"github.com/payflowd/payflow/internal/store"
	"github.com/payflowd/payflow/internal/workflow"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFault maps a workflow error onto an HTTP status. Unknown errors never
// leak internals; the handler logged the cause already.
func writeFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
		return
	case errors.Is(err, workflow.ErrSessionTerminal):
		writeJSON(w, http.StatusConflict, errorBody{Error: "session_terminal", Reason: "session already reached a terminal state"})
		return
	case errors.Is(err, store.ErrJobNotCancelable):
		writeJSON(w, http.StatusConflict, errorBody{Error: "job_not_cancelable", Reason: "job already executed or was canceled"})
		return
	}

	class := fault.ClassOf(err)
	var code int
	switch class {
	case fault.ClassInvalidInput:
		code = http.StatusBadRequest
	case fault.ClassInvalidDraftEdit, fault.ClassUnprocessable, fault.ClassUnresolvableIntent:
		code = http.StatusUnprocessableEntity
	case fault.ClassRetryable:
		code = http.StatusServiceUnavailable
	case fault.ClassTerminal:
		code = http.StatusBadGateway
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}
	writeJSON(w, code, errorBody{Error: string(class), Reason: fault.ReasonOf(err)})
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Reason: reason})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
}

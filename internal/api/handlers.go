// SPDX-License-Identifier: MIT

package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/payflowd/payflow/internal/model"
	"github.com/payflowd/payflow/internal/workflow"
)

// createSessionRequest starts a session from exactly one of a free-text
// command or an uploaded document.
type createSessionRequest struct {
	Command  string           `json:"command,omitempty"`
	Document *documentPayload `json:"document,omitempty"`
}

type documentPayload struct {
	ContentBase64 string `json:"contentBase64"`
	MimeType      string `json:"mimeType"`
	Filename      string `json:"filename,omitempty"`
}

// decisionRequest resolves a session waiting at the confirmation gate.
type decisionRequest struct {
	Type           string              `json:"type"`
	CorrectedDraft *model.PaymentDraft `json:"correctedDraft,omitempty"`
	ScheduleFor    *time.Time          `json:"scheduleFor,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	start := workflow.StartRequest{Command: req.Command}
	if req.Document != nil {
		raw, err := base64.StdEncoding.DecodeString(req.Document.ContentBase64)
		if err != nil {
			writeBadRequest(w, "document content is not valid base64")
			return
		}
		start.Document = &model.Document{
			Bytes:    raw,
			MimeType: req.Document.MimeType,
			Filename: req.Document.Filename,
		}
	}

	rec, err := s.engine.Start(r.Context(), start)
	if err != nil && rec == nil {
		writeFault(w, err)
		return
	}
	// A session that ran to a terminal failure is still a created resource;
	// the record carries the state and reason the caller needs.
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	decision := model.Decision{
		Type:           model.DecisionType(req.Type),
		CorrectedDraft: req.CorrectedDraft,
		ScheduleFor:    req.ScheduleFor,
	}
	switch decision.Type {
	case model.DecisionConfirm, model.DecisionReject, model.DecisionEdit:
	default:
		writeBadRequest(w, "decision type must be confirm, reject or edit")
		return
	}

	rec, err := s.engine.Resume(r.Context(), chi.URLParam(r, "id"), decision)
	if err != nil {
		// Failed submissions are a workflow outcome, not a request error;
		// the session record reports the terminal state and reason. Invalid
		// edits fall through to writeFault and keep the session suspended.
		if rec != nil && rec.State == model.StateFailed {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.schedule.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := s.schedule.CancelJob(r.Context(), jobID); err != nil {
		writeFault(w, err)
		return
	}
	job, err := s.schedule.GetJob(r.Context(), jobID)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

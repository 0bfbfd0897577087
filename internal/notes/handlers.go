package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/clinscribe/emr/pkg/auth"
	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/types"
)

// Handlers handles HTTP requests for the notes service
type Handlers struct {
	service   *NotesService
	validator *auth.TokenValidator
	logger    *logger.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(service *NotesService, validator *auth.TokenValidator, log *logger.Logger) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
		logger:    log,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notes/generate", h.GenerateNote).Methods("POST")
	router.HandleFunc("/notes/{noteID}", h.GetNote).Methods("GET")
	router.HandleFunc("/notes/{noteID}", h.UpdateNote).Methods("PUT")
	router.HandleFunc("/notes/{noteID}", h.ArchiveNote).Methods("DELETE")
	router.HandleFunc("/notes/{noteID}/approve", h.ApproveNote).Methods("POST")
	router.HandleFunc("/notes/{noteID}/reject", h.RejectNote).Methods("POST")

	router.HandleFunc("/patients/{patientID}/notes", h.ListPatientNotes).Methods("GET")
	router.HandleFunc("/patients/{patientID}/notes/approved", h.ListApprovedPatientNotes).Methods("GET")
}

// GenerateNote handles the full generation pipeline request
func (h *Handlers) GenerateNote(w http.ResponseWriter, r *http.Request) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	var req types.GenerateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	// The acting clinician is the note author unless the payload
	// names one explicitly.
	if req.DoctorID == "" {
		req.DoctorID = actor.UserID
	}

	note, err := h.service.GenerateNote(r.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to generate note", "error", err, "patientID", req.PatientID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, note)
}

// GetNote handles note retrieval
func (h *Handlers) GetNote(w http.ResponseWriter, r *http.Request) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	vars := mux.Vars(r)
	noteID := vars["noteID"]

	note, err := h.service.GetNote(r.Context(), noteID)
	if err != nil {
		h.logger.Error("Failed to get note", "error", err, "noteID", noteID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, note)
}

// ListPatientNotes handles retrieval of all notes for a patient
func (h *Handlers) ListPatientNotes(w http.ResponseWriter, r *http.Request) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	vars := mux.Vars(r)
	patientID := vars["patientID"]

	notes, err := h.service.ListPatientNotes(r.Context(), patientID)
	if err != nil {
		h.logger.Error("Failed to list patient notes", "error", err, "patientID", patientID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notes": notes,
		"count": len(notes),
	})
}

// ListApprovedPatientNotes handles retrieval of approved notes only
func (h *Handlers) ListApprovedPatientNotes(w http.ResponseWriter, r *http.Request) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	vars := mux.Vars(r)
	patientID := vars["patientID"]

	notes, err := h.service.ListApprovedPatientNotes(r.Context(), patientID)
	if err != nil {
		h.logger.Error("Failed to list approved patient notes", "error", err, "patientID", patientID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"notes": notes,
		"count": len(notes),
	})
}

// ApproveNote handles note approval by a reviewing clinician
func (h *Handlers) ApproveNote(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.service.ApproveNote)
}

// RejectNote handles note rejection by a reviewing clinician
func (h *Handlers) RejectNote(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, h.service.RejectNote)
}

func (h *Handlers) handleReview(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, noteID string, actor *types.UserClaims) (*types.DoctorNote, error)) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	vars := mux.Vars(r)
	noteID := vars["noteID"]

	note, err := op(r.Context(), noteID, actor)
	if err != nil {
		h.logger.Error("Failed to transition note", "error", err, "noteID", noteID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles partial note updates
func (h *Handlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	vars := mux.Vars(r)
	noteID := vars["noteID"]

	var updates types.DoctorNoteUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	note, err := h.service.UpdateNote(r.Context(), noteID, &updates, actor)
	if err != nil {
		h.logger.Error("Failed to update note", "error", err, "noteID", noteID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, note)
}

// ArchiveNote handles soft deletion of a note
func (h *Handlers) ArchiveNote(w http.ResponseWriter, r *http.Request) {
	actor := h.validator.ActorFromRequest(r)
	if actor == nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "User identity not found in request")
		return
	}

	vars := mux.Vars(r)
	noteID := vars["noteID"]

	note, err := h.service.ArchiveNote(r.Context(), noteID, actor)
	if err != nil {
		h.logger.Error("Failed to archive note", "error", err, "noteID", noteID, "userID", actor.UserID)
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, note)
}

// writeServiceError maps a service error to an HTTP response. The
// generation-service-down conditions get 503 so callers can tell an
// upstream outage from a local fault.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	se, ok := types.AsServiceError(err)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch se.Type {
	case types.ErrorTypeValidation:
		status = http.StatusBadRequest
	case types.ErrorTypeNotFound:
		status = http.StatusNotFound
	case types.ErrorTypeConflict:
		status = http.StatusConflict
	case types.ErrorTypeAuthorization:
		if se.Code == types.ErrCodeUnauthorized {
			status = http.StatusUnauthorized
		} else {
			status = http.StatusForbidden
		}
	case types.ErrorTypeTimeout:
		status = http.StatusServiceUnavailable
	case types.ErrorTypeExternal:
		switch se.Code {
		case types.ErrCodeMalformedResponse, types.ErrCodeEmptyResult:
			status = http.StatusBadGateway
		default:
			status = http.StatusServiceUnavailable
		}
	}

	h.writeErrorWithDetails(w, status, se.Code, se.Message, se.Details)
}

// writeJSON writes JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes error response
func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeErrorWithDetails(w, status, code, message, nil)
}

// writeErrorWithDetails writes an error response carrying field-level
// detail when present
func (h *Handlers) writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	errBody := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errBody["details"] = details
	}

	errorResponse := map[string]interface{}{
		"error":     errBody,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, status, errorResponse)
}

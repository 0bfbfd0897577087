package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/monitoring"
	"github.com/clinscribe/emr/pkg/repository"
	"github.com/clinscribe/emr/pkg/types"
)

// minRawInputLength is the minimum trimmed length of the clinician's
// free-text observations
const minRawInputLength = 10

// NotesService orchestrates the note generation pipeline and the
// review lifecycle
type NotesService struct {
	notes      repository.DoctorNotesRepositoryInterface
	aggregator *ContextAggregator
	generator  GenerationClientInterface
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
}

// NewNotesService creates a new notes service
func NewNotesService(
	notes repository.DoctorNotesRepositoryInterface,
	aggregator *ContextAggregator,
	generator GenerationClientInterface,
	log *logger.Logger,
	metrics *monitoring.MetricsCollector,
) *NotesService {
	return &NotesService{
		notes:      notes,
		aggregator: aggregator,
		generator:  generator,
		logger:     log,
		metrics:    metrics,
	}
}

// GenerateNote runs the full pipeline: validate, aggregate context,
// format, call the generation service, persist with provenance.
// Validation happens before any I/O is issued.
func (s *NotesService) GenerateNote(ctx context.Context, req *types.GenerateNoteRequest) (*types.DoctorNote, error) {
	if err := validateGenerateRequest(req); err != nil {
		return nil, err
	}

	clinicalContext := s.aggregator.Aggregate(ctx, req.PatientID)

	genReq := &types.GenerationRequest{
		RawInput:                strings.TrimSpace(req.RawInput),
		FormattedMedicalHistory: FormatMedicalHistory(clinicalContext.MedicalHistory),
		FormattedLabReports:     FormatLabReports(clinicalContext.LabReports),
		CurrentSymptoms:         req.CurrentSymptoms,
		AdditionalNotes:         req.AdditionalNotes,
	}

	// The fallback summary applies only when the caller omitted
	// additional_notes entirely, regardless of current_symptoms.
	if genReq.AdditionalNotes == "" {
		genReq.AdditionalNotes = basicInfoSummary(clinicalContext.BasicInfo)
	}

	draft, err := s.generator.Generate(ctx, genReq)
	if err != nil {
		s.logger.Error("Note generation failed", "patientID", req.PatientID, "doctorID", req.DoctorID, "error", err)
		s.logger.Audit(req.DoctorID, "generate_note", "doctor_note", false, map[string]interface{}{
			"patient_id": req.PatientID,
		})
		return nil, err
	}

	note := &types.DoctorNote{
		PatientID:              req.PatientID,
		DoctorID:               req.DoctorID,
		RawInput:               strings.TrimSpace(req.RawInput),
		PresentingComplaints:   draft.PresentingComplaints,
		ClinicalInterpretation: draft.ClinicalInterpretation,
		RelevantMedicalHistory: draft.RelevantMedicalHistory,
		LabReportSummary:       draft.LabReportSummary,
		AssessmentImpression:   draft.AssessmentImpression,
		FullStructuredNote:     draft.FullStructuredNote,
		LabReportsUsed:         clinicalContext.LabReportIDs(),
		MedicalHistoryUsed:     clinicalContext.MedicalHistoryIDs(),
	}

	created, err := s.notes.Create(ctx, note)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to persist generated note", err)
	}

	s.logger.Audit(req.DoctorID, "generate_note", "doctor_note", true, map[string]interface{}{
		"note_id":    created.ID,
		"patient_id": created.PatientID,
	})
	if s.metrics != nil {
		s.metrics.RecordAuditEvent("generate_note", true)
	}

	return created, nil
}

// GetNote retrieves a single note by id
func (s *NotesService) GetNote(ctx context.Context, noteID string) (*types.DoctorNote, error) {
	return s.notes.GetByID(ctx, noteID)
}

// ListPatientNotes retrieves all notes for a patient, any status
func (s *NotesService) ListPatientNotes(ctx context.Context, patientID string) ([]*types.DoctorNote, error) {
	return s.notes.ListByPatient(ctx, patientID)
}

// ListApprovedPatientNotes retrieves only clinician-validated notes
func (s *NotesService) ListApprovedPatientNotes(ctx context.Context, patientID string) ([]*types.DoctorNote, error) {
	return s.notes.ListApprovedByPatient(ctx, patientID)
}

// ApproveNote moves a pending note to approved. Reviewing clinicians
// only.
func (s *NotesService) ApproveNote(ctx context.Context, noteID string, actor *types.UserClaims) (*types.DoctorNote, error) {
	return s.review(ctx, noteID, actor, types.StatusApproved, "approve_note")
}

// RejectNote moves a pending note to rejected. Reviewing clinicians
// only.
func (s *NotesService) RejectNote(ctx context.Context, noteID string, actor *types.UserClaims) (*types.DoctorNote, error) {
	return s.review(ctx, noteID, actor, types.StatusRejected, "reject_note")
}

func (s *NotesService) review(ctx context.Context, noteID string, actor *types.UserClaims, target types.NoteStatus, action string) (*types.DoctorNote, error) {
	if !CanReview(actor) {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden,
			fmt.Sprintf("role is not permitted to %s", strings.ReplaceAll(action, "_", " ")))
	}

	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(note.Status, target); err != nil {
		s.logger.Warn("Illegal note transition attempted", "noteID", noteID, "from", note.Status, "to", target, "userID", actor.UserID)
		return nil, err
	}

	updated, err := s.notes.SetStatus(ctx, noteID, target)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordNoteTransition(string(note.Status), string(target))
	}
	s.logger.Audit(actor.UserID, action, "doctor_note", true, map[string]interface{}{
		"note_id":     noteID,
		"from_status": string(note.Status),
		"to_status":   string(target),
	})

	return updated, nil
}

// UpdateNote applies a partial content update, optionally combined
// with a status change. A carried status must satisfy the transition
// table; this is the path that resubmits corrected rejected notes.
func (s *NotesService) UpdateNote(ctx context.Context, noteID string, updates *types.DoctorNoteUpdates, actor *types.UserClaims) (*types.DoctorNote, error) {
	if actor == nil {
		return nil, types.NewAuthorizationError(types.ErrCodeUnauthorized, "acting user is required")
	}

	if updates == nil || updates.IsEmpty() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "update carries no changes", nil)
	}

	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if updates.Status != nil {
		if err := ValidateTransition(note.Status, *updates.Status); err != nil {
			s.logger.Warn("Illegal note transition attempted", "noteID", noteID, "from", note.Status, "to", *updates.Status, "userID", actor.UserID)
			return nil, err
		}
	}

	updated, err := s.notes.Update(ctx, noteID, updates)
	if err != nil {
		return nil, err
	}

	if updates.Status != nil && s.metrics != nil {
		s.metrics.RecordNoteTransition(string(note.Status), string(*updates.Status))
	}
	s.logger.Audit(actor.UserID, "update_note", "doctor_note", true, map[string]interface{}{
		"note_id": noteID,
	})

	return updated, nil
}

// ArchiveNote moves a note to the terminal archived state. Notes are
// never hard-deleted: the tombstone preserves the clinical audit
// trail.
func (s *NotesService) ArchiveNote(ctx context.Context, noteID string, actor *types.UserClaims) (*types.DoctorNote, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if !CanArchive(actor, note) {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "only the note owner may archive a note")
	}

	if err := ValidateTransition(note.Status, types.StatusArchived); err != nil {
		return nil, err
	}

	updated, err := s.notes.SetStatus(ctx, noteID, types.StatusArchived)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordNoteTransition(string(note.Status), string(types.StatusArchived))
	}
	s.logger.Audit(actor.UserID, "archive_note", "doctor_note", true, map[string]interface{}{
		"note_id": noteID,
	})

	return updated, nil
}

// validateGenerateRequest rejects bad input before any context query
// or generation call is issued
func validateGenerateRequest(req *types.GenerateNoteRequest) error {
	details := map[string]interface{}{}

	if strings.TrimSpace(req.DoctorID) == "" {
		details["doctor_id"] = "doctor_id is required"
	}
	if strings.TrimSpace(req.PatientID) == "" {
		details["patient_id"] = "patient_id is required"
	}

	trimmed := strings.TrimSpace(req.RawInput)
	if trimmed == "" {
		details["raw_input"] = "raw_input is required"
	} else if len(trimmed) < minRawInputLength {
		details["raw_input"] = fmt.Sprintf("raw_input must be at least %d characters", minRawInputLength)
	}

	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "invalid note generation request", details)
	}

	return nil
}

// basicInfoSummary builds the additional-notes fallback from the
// patient's demographic row. Empty when basic info is absent.
func basicInfoSummary(info *types.PatientBasicInfo) string {
	if info == nil {
		return ""
	}

	var parts []string
	if info.BloodGroup != "" {
		parts = append(parts, fmt.Sprintf("Patient blood group: %s", info.BloodGroup))
	}
	if info.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", info.Age))
	}

	return strings.Join(parts, ". ")
}

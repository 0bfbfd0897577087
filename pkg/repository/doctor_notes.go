package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/types"
)

// DoctorNotesRepository handles persistence of generated doctor notes
type DoctorNotesRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewDoctorNotesRepository creates a new doctor notes repository
func NewDoctorNotesRepository(db *sql.DB, log *logger.Logger) *DoctorNotesRepository {
	return &DoctorNotesRepository{
		db:     db,
		logger: log,
	}
}

const doctorNoteColumns = `id, patient_id, doctor_id, note_type, raw_input,
	   presenting_complaints, clinical_interpretation, relevant_medical_history,
	   lab_report_summary, assessment_impression, full_structured_note,
	   status, lab_reports_used, medical_history_used, created_at, updated_at`

// Create persists a newly generated note. Status and note type are
// forced here: every new note enters the review queue as a structured
// note regardless of what the caller set on the struct.
func (r *DoctorNotesRepository) Create(ctx context.Context, note *types.DoctorNote) (*types.DoctorNote, error) {
	note.ID = uuid.New().String()
	note.NoteType = types.NoteTypeStructured
	note.Status = types.StatusPendingReview
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt

	if note.LabReportsUsed == nil {
		note.LabReportsUsed = []string{}
	}
	if note.MedicalHistoryUsed == nil {
		note.MedicalHistoryUsed = []string{}
	}

	query := `
		INSERT INTO doctor_notes (
			id, patient_id, doctor_id, note_type, raw_input,
			presenting_complaints, clinical_interpretation, relevant_medical_history,
			lab_report_summary, assessment_impression, full_structured_note,
			status, lab_reports_used, medical_history_used, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		note.ID,
		note.PatientID,
		note.DoctorID,
		note.NoteType,
		note.RawInput,
		note.PresentingComplaints,
		note.ClinicalInterpretation,
		note.RelevantMedicalHistory,
		note.LabReportSummary,
		note.AssessmentImpression,
		note.FullStructuredNote,
		note.Status,
		pq.Array(note.LabReportsUsed),
		pq.Array(note.MedicalHistoryUsed),
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create doctor note: %w", err)
	}

	r.logger.Info("Created doctor note", "noteID", note.ID, "patientID", note.PatientID, "doctorID", note.DoctorID)
	return note, nil
}

// GetByID retrieves a doctor note by ID
func (r *DoctorNotesRepository) GetByID(ctx context.Context, noteID string) (*types.DoctorNote, error) {
	query := `
		SELECT ` + doctorNoteColumns + `
		FROM doctor_notes
		WHERE id = $1`

	note, err := r.scanNote(r.db.QueryRowContext(ctx, query, noteID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor note not found: %s", noteID))
		}
		return nil, fmt.Errorf("failed to get doctor note: %w", err)
	}

	return note, nil
}

// ListByPatient retrieves all notes for a patient, newest first
func (r *DoctorNotesRepository) ListByPatient(ctx context.Context, patientID string) ([]*types.DoctorNote, error) {
	query := `
		SELECT ` + doctorNoteColumns + `
		FROM doctor_notes
		WHERE patient_id = $1
		ORDER BY created_at DESC`

	return r.listNotes(ctx, query, patientID)
}

// ListApprovedByPatient retrieves only approved notes for a patient,
// newest first. This is the view exposed to patients and external
// record consumers.
func (r *DoctorNotesRepository) ListApprovedByPatient(ctx context.Context, patientID string) ([]*types.DoctorNote, error) {
	query := `
		SELECT ` + doctorNoteColumns + `
		FROM doctor_notes
		WHERE patient_id = $1 AND status = $2
		ORDER BY created_at DESC`

	return r.listNotes(ctx, query, patientID, types.StatusApproved)
}

// Update applies a partial update to a note. Nil fields keep the
// stored value. raw_input and the provenance arrays are never touched
// here, they are written once at creation.
func (r *DoctorNotesRepository) Update(ctx context.Context, noteID string, updates *types.DoctorNoteUpdates) (*types.DoctorNote, error) {
	query := `
		UPDATE doctor_notes SET
			presenting_complaints    = COALESCE($2, presenting_complaints),
			clinical_interpretation  = COALESCE($3, clinical_interpretation),
			relevant_medical_history = COALESCE($4, relevant_medical_history),
			lab_report_summary       = COALESCE($5, lab_report_summary),
			assessment_impression    = COALESCE($6, assessment_impression),
			full_structured_note     = COALESCE($7, full_structured_note),
			status                   = COALESCE($8, status),
			updated_at               = $9
		WHERE id = $1
		RETURNING ` + doctorNoteColumns

	var status interface{}
	if updates.Status != nil {
		status = string(*updates.Status)
	}

	note, err := r.scanNote(r.db.QueryRowContext(ctx, query,
		noteID,
		updates.PresentingComplaints,
		updates.ClinicalInterpretation,
		updates.RelevantMedicalHistory,
		updates.LabReportSummary,
		updates.AssessmentImpression,
		updates.FullStructuredNote,
		status,
		time.Now(),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor note not found: %s", noteID))
		}
		return nil, fmt.Errorf("failed to update doctor note: %w", err)
	}

	r.logger.Info("Updated doctor note", "noteID", noteID)
	return note, nil
}

// SetStatus moves a note to the given lifecycle status
func (r *DoctorNotesRepository) SetStatus(ctx context.Context, noteID string, status types.NoteStatus) (*types.DoctorNote, error) {
	query := `
		UPDATE doctor_notes
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + doctorNoteColumns

	note, err := r.scanNote(r.db.QueryRowContext(ctx, query, noteID, status, time.Now()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("doctor note not found: %s", noteID))
		}
		return nil, fmt.Errorf("failed to set doctor note status: %w", err)
	}

	r.logger.Info("Set doctor note status", "noteID", noteID, "status", status)
	return note, nil
}

// rowScanner matches both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *DoctorNotesRepository) scanNote(row rowScanner) (*types.DoctorNote, error) {
	var note types.DoctorNote
	err := row.Scan(
		&note.ID,
		&note.PatientID,
		&note.DoctorID,
		&note.NoteType,
		&note.RawInput,
		&note.PresentingComplaints,
		&note.ClinicalInterpretation,
		&note.RelevantMedicalHistory,
		&note.LabReportSummary,
		&note.AssessmentImpression,
		&note.FullStructuredNote,
		&note.Status,
		pq.Array(&note.LabReportsUsed),
		pq.Array(&note.MedicalHistoryUsed),
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *DoctorNotesRepository) listNotes(ctx context.Context, query string, args ...interface{}) ([]*types.DoctorNote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor notes: %w", err)
	}
	defer rows.Close()

	var notes []*types.DoctorNote
	for rows.Next() {
		note, err := r.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor note row: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating doctor note rows: %w", err)
	}

	return notes, nil
}

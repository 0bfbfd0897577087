package repository

import (
	"context"

	"github.com/clinscribe/emr/pkg/types"
)

// DoctorNotesRepositoryInterface defines the interface for doctor note operations
type DoctorNotesRepositoryInterface interface {
	Create(ctx context.Context, note *types.DoctorNote) (*types.DoctorNote, error)
	GetByID(ctx context.Context, noteID string) (*types.DoctorNote, error)
	ListByPatient(ctx context.Context, patientID string) ([]*types.DoctorNote, error)
	ListApprovedByPatient(ctx context.Context, patientID string) ([]*types.DoctorNote, error)
	Update(ctx context.Context, noteID string, updates *types.DoctorNoteUpdates) (*types.DoctorNote, error)
	SetStatus(ctx context.Context, noteID string, status types.NoteStatus) (*types.DoctorNote, error)
}

// ClinicalContextRepositoryInterface defines the read-only queries the
// context aggregator fans out over
type ClinicalContextRepositoryInterface interface {
	GetBasicInfo(ctx context.Context, patientID string) (*types.PatientBasicInfo, error)
	GetLatestMedicalHistory(ctx context.Context, patientID string) (*types.MedicalHistoryRecord, error)
	ListDocumentsByCategory(ctx context.Context, patientID string, category types.DocumentCategory) ([]types.DocumentRecord, error)
}

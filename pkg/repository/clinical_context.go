package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/types"
)

// ClinicalContextRepository reads the patient background tables the
// portal's CRUD side owns. All queries here are read-only.
type ClinicalContextRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewClinicalContextRepository creates a new clinical context repository
func NewClinicalContextRepository(db *sql.DB, log *logger.Logger) *ClinicalContextRepository {
	return &ClinicalContextRepository{
		db:     db,
		logger: log,
	}
}

// GetBasicInfo retrieves the demographic summary row for a patient
func (r *ClinicalContextRepository) GetBasicInfo(ctx context.Context, patientID string) (*types.PatientBasicInfo, error) {
	query := `
		SELECT patient_id, blood_group, age, gender, updated_at
		FROM patient_basic_info
		WHERE patient_id = $1`

	var info types.PatientBasicInfo
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&info.PatientID,
		&info.BloodGroup,
		&info.Age,
		&info.Gender,
		&info.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("basic info not found for patient: %s", patientID))
		}
		return nil, fmt.Errorf("failed to get patient basic info: %w", err)
	}

	return &info, nil
}

// GetLatestMedicalHistory retrieves the most recent medical history
// record for a patient
func (r *ClinicalContextRepository) GetLatestMedicalHistory(ctx context.Context, patientID string) (*types.MedicalHistoryRecord, error) {
	query := `
		SELECT id, patient_id, chronic_conditions, past_surgeries, past_illnesses,
			   current_medications, blood_pressure, fasting_blood_sugar,
			   post_prandial_blood_sugar, blood_group, family_history_father,
			   family_history_mother, nutritional_deficiency, smoking,
			   alcohol_consumption, created_at
		FROM medical_history
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var rec types.MedicalHistoryRecord
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.ChronicConditions,
		&rec.PastSurgeries,
		&rec.PastIllnesses,
		&rec.CurrentMedications,
		&rec.BloodPressure,
		&rec.FastingBloodSugar,
		&rec.PostPrandialBloodSugar,
		&rec.BloodGroup,
		&rec.FamilyHistoryFather,
		&rec.FamilyHistoryMother,
		&rec.NutritionalDeficiency,
		&rec.Smoking,
		&rec.AlcoholConsumption,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("medical history not found for patient: %s", patientID))
		}
		return nil, fmt.Errorf("failed to get medical history: %w", err)
	}

	return &rec, nil
}

// ListDocumentsByCategory retrieves all documents of one category for
// a patient, newest first
func (r *ClinicalContextRepository) ListDocumentsByCategory(ctx context.Context, patientID string, category types.DocumentCategory) ([]types.DocumentRecord, error) {
	query := `
		SELECT id, patient_id, category, name, doc_type, file_path, metadata, uploaded_at
		FROM patient_documents
		WHERE patient_id = $1 AND category = $2
		ORDER BY uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, patientID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient documents: %w", err)
	}
	defer rows.Close()

	var docs []types.DocumentRecord
	for rows.Next() {
		var doc types.DocumentRecord
		var metadataJSON []byte

		err := rows.Scan(
			&doc.ID,
			&doc.PatientID,
			&doc.Category,
			&doc.Name,
			&doc.DocType,
			&doc.FilePath,
			&metadataJSON,
			&doc.UploadedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient document row: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				r.logger.Warn("Skipping unparseable document metadata", "documentID", doc.ID)
				doc.Metadata = nil
			}
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient document rows: %w", err)
	}

	return docs, nil
}

package database

import (
	"context"
	"fmt"
)

// EnsureSchema creates the tables and indexes the notes service needs.
// The clinical-context tables are owned by the portal's CRUD side;
// they are created here too so a fresh environment is queryable.
func (db *DB) EnsureSchema(ctx context.Context) error {
	db.logger.Info("Ensuring database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createDoctorNotesTable,
		createPatientBasicInfoTable,
		createMedicalHistoryTable,
		createPatientDocumentsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createDoctorNotesIndexes,
		createMedicalHistoryIndexes,
		createPatientDocumentsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema ensured successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createDoctorNotesTable = `
		CREATE TABLE IF NOT EXISTS doctor_notes (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id VARCHAR(64) NOT NULL,
			doctor_id VARCHAR(64) NOT NULL,
			note_type VARCHAR(30) NOT NULL DEFAULT 'structured_note'
				CHECK (note_type IN ('raw_note', 'structured_note')),
			raw_input TEXT NOT NULL,
			presenting_complaints TEXT NOT NULL DEFAULT '',
			clinical_interpretation TEXT NOT NULL DEFAULT '',
			relevant_medical_history TEXT NOT NULL DEFAULT '',
			lab_report_summary TEXT NOT NULL DEFAULT '',
			assessment_impression TEXT NOT NULL DEFAULT '',
			full_structured_note TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending_review'
				CHECK (status IN ('draft', 'pending_review', 'approved', 'rejected', 'archived')),
			lab_reports_used TEXT[] NOT NULL DEFAULT '{}',
			medical_history_used TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPatientBasicInfoTable = `
		CREATE TABLE IF NOT EXISTS patient_basic_info (
			patient_id VARCHAR(64) PRIMARY KEY,
			blood_group VARCHAR(10) NOT NULL DEFAULT '',
			age INTEGER NOT NULL DEFAULT 0,
			gender VARCHAR(20) NOT NULL DEFAULT '',
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createMedicalHistoryTable = `
		CREATE TABLE IF NOT EXISTS medical_history (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id VARCHAR(64) NOT NULL,
			chronic_conditions TEXT NOT NULL DEFAULT '',
			past_surgeries TEXT NOT NULL DEFAULT '',
			past_illnesses TEXT NOT NULL DEFAULT '',
			current_medications TEXT NOT NULL DEFAULT '',
			blood_pressure TEXT NOT NULL DEFAULT '',
			fasting_blood_sugar TEXT NOT NULL DEFAULT '',
			post_prandial_blood_sugar TEXT NOT NULL DEFAULT '',
			blood_group TEXT NOT NULL DEFAULT '',
			family_history_father TEXT NOT NULL DEFAULT '',
			family_history_mother TEXT NOT NULL DEFAULT '',
			nutritional_deficiency TEXT NOT NULL DEFAULT '',
			smoking TEXT NOT NULL DEFAULT '',
			alcohol_consumption TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createPatientDocumentsTable = `
		CREATE TABLE IF NOT EXISTS patient_documents (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id VARCHAR(64) NOT NULL,
			category VARCHAR(30) NOT NULL
				CHECK (category IN ('lab_report', 'prescription', 'vaccination')),
			name VARCHAR(255) NOT NULL,
			doc_type VARCHAR(100) NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			uploaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createDoctorNotesIndexes = `
		CREATE INDEX IF NOT EXISTS idx_doctor_notes_patient_id ON doctor_notes(patient_id);
		CREATE INDEX IF NOT EXISTS idx_doctor_notes_doctor_id ON doctor_notes(doctor_id);
		CREATE INDEX IF NOT EXISTS idx_doctor_notes_status ON doctor_notes(status);
		CREATE INDEX IF NOT EXISTS idx_doctor_notes_patient_status ON doctor_notes(patient_id, status);`

	createMedicalHistoryIndexes = `
		CREATE INDEX IF NOT EXISTS idx_medical_history_patient_id ON medical_history(patient_id);
		CREATE INDEX IF NOT EXISTS idx_medical_history_created_at ON medical_history(created_at DESC);`

	createPatientDocumentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_patient_documents_patient_id ON patient_documents(patient_id);
		CREATE INDEX IF NOT EXISTS idx_patient_documents_category ON patient_documents(patient_id, category);`
)

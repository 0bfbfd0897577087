package types

import "time"

// NoteStatus represents the review lifecycle state of a doctor note
type NoteStatus string

const (
	StatusDraft         NoteStatus = "draft"
	StatusPendingReview NoteStatus = "pending_review"
	StatusApproved      NoteStatus = "approved"
	StatusRejected      NoteStatus = "rejected"
	StatusArchived      NoteStatus = "archived"
)

// IsValid reports whether s is one of the known lifecycle states
func (s NoteStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// NoteType distinguishes manually authored notes from generated ones
type NoteType string

const (
	NoteTypeRaw        NoteType = "raw_note"
	NoteTypeStructured NoteType = "structured_note"
)

// DoctorNote represents a persisted clinical note with provenance
type DoctorNote struct {
	ID                     string     `json:"id" db:"id"`
	PatientID              string     `json:"patient_id" db:"patient_id"`
	DoctorID               string     `json:"doctor_id" db:"doctor_id"`
	NoteType               NoteType   `json:"note_type" db:"note_type"`
	RawInput               string     `json:"raw_input" db:"raw_input"`
	PresentingComplaints   string     `json:"presenting_complaints" db:"presenting_complaints"`
	ClinicalInterpretation string     `json:"clinical_interpretation" db:"clinical_interpretation"`
	RelevantMedicalHistory string     `json:"relevant_medical_history" db:"relevant_medical_history"`
	LabReportSummary       string     `json:"lab_report_summary" db:"lab_report_summary"`
	AssessmentImpression   string     `json:"assessment_impression" db:"assessment_impression"`
	FullStructuredNote     string     `json:"full_structured_note" db:"full_structured_note"`
	Status                 NoteStatus `json:"status" db:"status"`
	LabReportsUsed         []string   `json:"lab_reports_used" db:"lab_reports_used"`
	MedicalHistoryUsed     []string   `json:"medical_history_used" db:"medical_history_used"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// DoctorNoteUpdates represents a partial update to a doctor note.
// Nil fields keep their stored value. RawInput and the provenance id
// arrays are immutable after creation and are deliberately absent.
type DoctorNoteUpdates struct {
	PresentingComplaints   *string     `json:"presenting_complaints,omitempty"`
	ClinicalInterpretation *string     `json:"clinical_interpretation,omitempty"`
	RelevantMedicalHistory *string     `json:"relevant_medical_history,omitempty"`
	LabReportSummary       *string     `json:"lab_report_summary,omitempty"`
	AssessmentImpression   *string     `json:"assessment_impression,omitempty"`
	FullStructuredNote     *string     `json:"full_structured_note,omitempty"`
	Status                 *NoteStatus `json:"status,omitempty"`
}

// IsEmpty reports whether the update carries no changes at all
func (u *DoctorNoteUpdates) IsEmpty() bool {
	return u.PresentingComplaints == nil &&
		u.ClinicalInterpretation == nil &&
		u.RelevantMedicalHistory == nil &&
		u.LabReportSummary == nil &&
		u.AssessmentImpression == nil &&
		u.FullStructuredNote == nil &&
		u.Status == nil
}

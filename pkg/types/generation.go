package types

// GenerationRequest is the assembled input for one note-generation
// call. The formatted fields are the plain-text context blocks the
// generation service consumes; CurrentSymptoms is nil when the
// clinician supplied none.
type GenerationRequest struct {
	RawInput                string
	FormattedMedicalHistory string
	FormattedLabReports     string
	CurrentSymptoms         *string
	AdditionalNotes         string
}

// GeneratedNoteDraft is the validated structured output of the
// generation service. FullStructuredNote is the only field guaranteed
// non-empty after validation.
type GeneratedNoteDraft struct {
	PresentingComplaints   string `json:"presenting_complaints"`
	ClinicalInterpretation string `json:"clinical_interpretation"`
	RelevantMedicalHistory string `json:"relevant_medical_history"`
	LabReportSummary       string `json:"lab_report_summary"`
	AssessmentImpression   string `json:"assessment_impression"`
	FullStructuredNote     string `json:"full_structured_note"`
}

// GenerateNoteRequest is the inbound API payload for note generation
type GenerateNoteRequest struct {
	DoctorID        string  `json:"doctor_id"`
	PatientID       string  `json:"patient_id"`
	RawInput        string  `json:"raw_input"`
	CurrentSymptoms *string `json:"current_symptoms,omitempty"`
	AdditionalNotes string  `json:"additional_notes,omitempty"`
}

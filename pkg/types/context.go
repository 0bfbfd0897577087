package types

import "time"

// PatientBasicInfo holds the demographic summary row for a patient
type PatientBasicInfo struct {
	PatientID  string    `json:"patient_id" db:"patient_id"`
	BloodGroup string    `json:"blood_group" db:"blood_group"`
	Age        int       `json:"age" db:"age"`
	Gender     string    `json:"gender" db:"gender"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// MedicalHistoryRecord holds one structured medical-history entry.
// All narrative fields are optional free text entered by clinic staff.
type MedicalHistoryRecord struct {
	ID                     string    `json:"id" db:"id"`
	PatientID              string    `json:"patient_id" db:"patient_id"`
	ChronicConditions      string    `json:"chronic_conditions" db:"chronic_conditions"`
	PastSurgeries          string    `json:"past_surgeries" db:"past_surgeries"`
	PastIllnesses          string    `json:"past_illnesses" db:"past_illnesses"`
	CurrentMedications     string    `json:"current_medications" db:"current_medications"`
	BloodPressure          string    `json:"blood_pressure" db:"blood_pressure"`
	FastingBloodSugar      string    `json:"fasting_blood_sugar" db:"fasting_blood_sugar"`
	PostPrandialBloodSugar string    `json:"post_prandial_blood_sugar" db:"post_prandial_blood_sugar"`
	BloodGroup             string    `json:"blood_group" db:"blood_group"`
	FamilyHistoryFather    string    `json:"family_history_father" db:"family_history_father"`
	FamilyHistoryMother    string    `json:"family_history_mother" db:"family_history_mother"`
	NutritionalDeficiency  string    `json:"nutritional_deficiency" db:"nutritional_deficiency"`
	Smoking                string    `json:"smoking" db:"smoking"`
	AlcoholConsumption     string    `json:"alcohol_consumption" db:"alcohol_consumption"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}

// DocumentCategory identifies the kind of uploaded patient document
type DocumentCategory string

const (
	CategoryLabReport    DocumentCategory = "lab_report"
	CategoryPrescription DocumentCategory = "prescription"
	CategoryVaccination  DocumentCategory = "vaccination"
)

// DocumentRecord holds metadata for one uploaded patient document
type DocumentRecord struct {
	ID         string            `json:"id" db:"id"`
	PatientID  string            `json:"patient_id" db:"patient_id"`
	Category   DocumentCategory  `json:"category" db:"category"`
	Name       string            `json:"name" db:"name"`
	DocType    string            `json:"doc_type" db:"doc_type"`
	FilePath   string            `json:"file_path" db:"file_path"`
	Metadata   map[string]string `json:"metadata" db:"metadata"`
	UploadedAt time.Time         `json:"uploaded_at" db:"uploaded_at"`
}

// ClinicalContext is the per-request aggregate of a patient's medical
// background. Every field defaults to empty/absent; a failed source
// query never surfaces here as an error.
type ClinicalContext struct {
	BasicInfo      *PatientBasicInfo     `json:"basic_info"`
	MedicalHistory *MedicalHistoryRecord `json:"medical_history"`
	LabReports     []DocumentRecord      `json:"lab_reports"`
	Prescriptions  []DocumentRecord      `json:"prescriptions"`
	Vaccinations   []DocumentRecord      `json:"vaccinations"`
}

// LabReportIDs returns the ids of the lab reports in the context,
// preserving order. Used to record note provenance at creation time.
func (c *ClinicalContext) LabReportIDs() []string {
	ids := make([]string, 0, len(c.LabReports))
	for _, r := range c.LabReports {
		ids = append(ids, r.ID)
	}
	return ids
}

// MedicalHistoryIDs returns the ids of the history records consulted
func (c *ClinicalContext) MedicalHistoryIDs() []string {
	if c.MedicalHistory == nil {
		return []string{}
	}
	return []string{c.MedicalHistory.ID}
}

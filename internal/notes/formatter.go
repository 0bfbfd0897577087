package notes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clinscribe/emr/pkg/types"
)

// Sentinel strings keep formatter output non-empty so the generation
// prompt never carries a blank context block. Absent and
// present-but-empty history are distinct conditions.
const (
	SentinelNoMedicalHistory    = "No medical history available"
	SentinelEmptyMedicalHistory = "Medical history present but no details recorded"
	SentinelNoLabReports        = "No lab reports available"
	SentinelNoPrescriptions     = "No recent prescriptions available"
)

// maxPrescriptionEntries caps the prescription block so the prompt
// stays information-dense for patients with long medication histories
const maxPrescriptionEntries = 5

// FormatMedicalHistory renders one line per populated field of the
// fixed allow-list, skipping empty fields
func FormatMedicalHistory(rec *types.MedicalHistoryRecord) string {
	if rec == nil {
		return SentinelNoMedicalHistory
	}

	fields := []struct {
		label string
		value string
	}{
		{"Chronic Conditions", rec.ChronicConditions},
		{"Past Surgeries", rec.PastSurgeries},
		{"Past Illnesses", rec.PastIllnesses},
		{"Current Medications", rec.CurrentMedications},
		{"Blood Pressure", rec.BloodPressure},
		{"Fasting Blood Sugar", rec.FastingBloodSugar},
		{"Post-Prandial Blood Sugar", rec.PostPrandialBloodSugar},
		{"Blood Group", rec.BloodGroup},
		{"Family History (Father)", rec.FamilyHistoryFather},
		{"Family History (Mother)", rec.FamilyHistoryMother},
		{"Nutritional Deficiency", rec.NutritionalDeficiency},
		{"Smoking", rec.Smoking},
		{"Alcohol Consumption", rec.AlcoholConsumption},
	}

	var lines []string
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", f.label, v))
		}
	}

	if len(lines) == 0 {
		return SentinelEmptyMedicalHistory
	}

	return strings.Join(lines, "\n")
}

// FormatLabReports renders each report on one line, most recent first
func FormatLabReports(reports []types.DocumentRecord) string {
	if len(reports) == 0 {
		return SentinelNoLabReports
	}

	lines := make([]string, 0, len(reports))
	for i, report := range reports {
		lines = append(lines, fmt.Sprintf("Report %d: %s (%s) - %s - Details: %s",
			i+1, report.Name, report.DocType,
			report.UploadedAt.Format(time.RFC3339),
			formatMetadata(report.Metadata)))
	}

	return strings.Join(lines, "\n")
}

// FormatPrescriptions renders the same line shape as lab reports but
// keeps only the most recent entries. Input is already sorted newest
// first, so the cap preserves recency order.
func FormatPrescriptions(prescriptions []types.DocumentRecord) string {
	if len(prescriptions) == 0 {
		return SentinelNoPrescriptions
	}

	if len(prescriptions) > maxPrescriptionEntries {
		prescriptions = prescriptions[:maxPrescriptionEntries]
	}

	lines := make([]string, 0, len(prescriptions))
	for i, p := range prescriptions {
		lines = append(lines, fmt.Sprintf("Prescription %d: %s (%s) - %s - Details: %s",
			i+1, p.Name, p.DocType,
			p.UploadedAt.Format(time.RFC3339),
			formatMetadata(p.Metadata)))
	}

	return strings.Join(lines, "\n")
}

func formatMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "N/A"
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "N/A"
	}

	return string(encoded)
}

package notes

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinscribe/emr/pkg/types"
)

func TestFormatMedicalHistory(t *testing.T) {
	t.Run("nil record returns absent sentinel", func(t *testing.T) {
		result := FormatMedicalHistory(nil)

		assert.Equal(t, SentinelNoMedicalHistory, result)
	})

	t.Run("record with only empty fields returns empty sentinel", func(t *testing.T) {
		rec := &types.MedicalHistoryRecord{
			ID:        "mh-1",
			PatientID: "patient-123",
			Smoking:   "   ",
		}

		result := FormatMedicalHistory(rec)

		assert.Equal(t, SentinelEmptyMedicalHistory, result)
		assert.NotEqual(t, SentinelNoMedicalHistory, result)
	})

	t.Run("populated fields render one labeled line each", func(t *testing.T) {
		rec := &types.MedicalHistoryRecord{
			ID:                 "mh-1",
			PatientID:          "patient-123",
			ChronicConditions:  "Type 2 diabetes",
			CurrentMedications: "Metformin 500mg",
			Smoking:            "Never",
		}

		result := FormatMedicalHistory(rec)

		lines := strings.Split(result, "\n")
		assert.Len(t, lines, 3)
		assert.Equal(t, "Chronic Conditions: Type 2 diabetes", lines[0])
		assert.Equal(t, "Current Medications: Metformin 500mg", lines[1])
		assert.Equal(t, "Smoking: Never", lines[2])
	})

	t.Run("empty fields are skipped without blank lines", func(t *testing.T) {
		rec := &types.MedicalHistoryRecord{
			ChronicConditions:  "Hypertension",
			AlcoholConsumption: "Occasional",
		}

		result := FormatMedicalHistory(rec)

		assert.NotContains(t, result, "\n\n")
		assert.NotContains(t, result, "Past Surgeries")
		assert.Contains(t, result, "Alcohol Consumption: Occasional")
	})

	t.Run("field values are trimmed", func(t *testing.T) {
		rec := &types.MedicalHistoryRecord{
			BloodGroup: "  O+  ",
		}

		result := FormatMedicalHistory(rec)

		assert.Equal(t, "Blood Group: O+", result)
	})
}

func TestFormatLabReports(t *testing.T) {
	t.Run("no reports returns sentinel", func(t *testing.T) {
		result := FormatLabReports(nil)

		assert.Equal(t, SentinelNoLabReports, result)

		result = FormatLabReports([]types.DocumentRecord{})

		assert.Equal(t, SentinelNoLabReports, result)
	})

	t.Run("each report renders on one numbered line", func(t *testing.T) {
		uploaded := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
		reports := []types.DocumentRecord{
			{
				ID:         "doc-1",
				Name:       "CBC Panel",
				DocType:    "pdf",
				UploadedAt: uploaded,
				Metadata:   map[string]string{"lab": "central"},
			},
			{
				ID:         "doc-2",
				Name:       "Lipid Profile",
				DocType:    "pdf",
				UploadedAt: uploaded.Add(-24 * time.Hour),
			},
		}

		result := FormatLabReports(reports)

		lines := strings.Split(result, "\n")
		assert.Len(t, lines, 2)
		assert.Equal(t, `Report 1: CBC Panel (pdf) - 2026-03-15T09:30:00Z - Details: {"lab":"central"}`, lines[0])
		assert.Equal(t, "Report 2: Lipid Profile (pdf) - 2026-03-14T09:30:00Z - Details: N/A", lines[1])
	})
}

func TestFormatPrescriptions(t *testing.T) {
	t.Run("no prescriptions returns sentinel", func(t *testing.T) {
		result := FormatPrescriptions(nil)

		assert.Equal(t, SentinelNoPrescriptions, result)
	})

	t.Run("caps output at five most recent entries", func(t *testing.T) {
		uploaded := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		prescriptions := make([]types.DocumentRecord, 8)
		for i := range prescriptions {
			prescriptions[i] = types.DocumentRecord{
				ID:         fmt.Sprintf("rx-%d", i),
				Name:       fmt.Sprintf("Prescription %d", i),
				DocType:    "image",
				UploadedAt: uploaded.Add(-time.Duration(i) * time.Hour),
			}
		}

		result := FormatPrescriptions(prescriptions)

		lines := strings.Split(result, "\n")
		assert.Len(t, lines, maxPrescriptionEntries)
		// Newest-first order of the input is preserved by the cap
		assert.Contains(t, lines[0], "Prescription 1: Prescription 0")
		assert.Contains(t, lines[4], "Prescription 5: Prescription 4")
		assert.NotContains(t, result, "Prescription 7")
	})

	t.Run("fewer than five entries render unchanged", func(t *testing.T) {
		prescriptions := []types.DocumentRecord{
			{Name: "Amoxicillin", DocType: "pdf", UploadedAt: time.Now()},
		}

		result := FormatPrescriptions(prescriptions)

		lines := strings.Split(result, "\n")
		assert.Len(t, lines, 1)
		assert.Contains(t, lines[0], "Prescription 1: Amoxicillin")
	})
}

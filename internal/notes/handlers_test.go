package notes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clinscribe/emr/pkg/auth"
	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/types"
)

func setupTestHandlers() (*mux.Router, *MockDoctorNotesRepository, *MockClinicalContextRepository, *MockGenerationClient) {
	service, mockNotes, mockContext, mockGenerator := setupTestNotesService()
	validator := auth.NewTokenValidator("test-secret")
	handlers := NewHandlers(service, validator, logger.New("debug"))

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	return router, mockNotes, mockContext, mockGenerator
}

func asClinicianRequest(method, path string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-User-ID", "doctor-1")
	req.Header.Set("X-User-Role", string(types.RoleConsultingDoctor))
	return req
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var payload struct {
		Error struct {
			Code    string                 `json:"code"`
			Message string                 `json:"message"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Timestamp)
	return payload.Error.Code
}

func TestHandlers_Authentication(t *testing.T) {
	router, _, _, _ := setupTestHandlers()

	t.Run("request without identity is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notes/note-1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeErrorCode(t, rec))
	})

	t.Run("gateway identity headers are accepted", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		note := &types.DoctorNote{ID: "note-1", PatientID: "patient-123", Status: types.StatusPendingReview}
		mockNotes.On("GetByID", mock.Anything, "note-1").Return(note, nil)

		req := asClinicianRequest(http.MethodGet, "/notes/note-1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got types.DoctorNote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "note-1", got.ID)
	})
}

func TestHandlers_GenerateNote(t *testing.T) {
	t.Run("successful generation returns 201", func(t *testing.T) {
		router, mockNotes, mockContext, mockGenerator := setupTestHandlers()

		stubEmptyContext(mockContext, "patient-123")
		mockGenerator.On("Generate", mock.Anything, mock.Anything).Return(testDraft(), nil)

		created := &types.DoctorNote{
			ID:        "note-1",
			PatientID: "patient-123",
			DoctorID:  "doctor-1",
			Status:    types.StatusPendingReview,
			NoteType:  types.NoteTypeStructured,
		}
		// The acting clinician becomes the author when the payload
		// omits doctor_id.
		mockNotes.On("Create", mock.Anything, mock.MatchedBy(func(n *types.DoctorNote) bool {
			return n.DoctorID == "doctor-1"
		})).Return(created, nil)

		body, _ := json.Marshal(map[string]string{
			"patient_id": "patient-123",
			"raw_input":  "persistent cough and low grade fever",
		})
		req := asClinicianRequest(http.MethodPost, "/notes/generate", body)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var got types.DoctorNote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, types.StatusPendingReview, got.Status)
		mockNotes.AssertExpectations(t)
	})

	t.Run("invalid JSON returns 400", func(t *testing.T) {
		router, _, _, _ := setupTestHandlers()

		req := asClinicianRequest(http.MethodPost, "/notes/generate", []byte("{not json"))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("short raw input returns 400 with field details", func(t *testing.T) {
		router, _, _, _ := setupTestHandlers()

		body, _ := json.Marshal(map[string]string{
			"patient_id": "patient-123",
			"raw_input":  "cough",
		})
		req := asClinicianRequest(http.MethodPost, "/notes/generate", body)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, types.ErrCodeInvalidInput, decodeErrorCode(t, rec))
		assert.Contains(t, rec.Body.String(), "raw_input")
	})

	t.Run("generation timeout returns 503 with timeout code", func(t *testing.T) {
		router, _, mockContext, mockGenerator := setupTestHandlers()

		stubEmptyContext(mockContext, "patient-123")
		mockGenerator.On("Generate", mock.Anything, mock.Anything).
			Return(nil, types.NewTimeoutError(types.ErrCodeTimeout, "generation request exceeded 3m0s timeout", nil))

		body, _ := json.Marshal(map[string]string{
			"patient_id": "patient-123",
			"raw_input":  "persistent cough and low grade fever",
		})
		req := asClinicianRequest(http.MethodPost, "/notes/generate", body)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, types.ErrCodeTimeout, decodeErrorCode(t, rec))
	})

	t.Run("generation outage returns 503 with unavailable code", func(t *testing.T) {
		router, _, mockContext, mockGenerator := setupTestHandlers()

		stubEmptyContext(mockContext, "patient-123")
		mockGenerator.On("Generate", mock.Anything, mock.Anything).
			Return(nil, types.NewExternalError(types.ErrCodeServiceUnavailable, "generation service is unreachable", nil))

		body, _ := json.Marshal(map[string]string{
			"patient_id": "patient-123",
			"raw_input":  "persistent cough and low grade fever",
		})
		req := asClinicianRequest(http.MethodPost, "/notes/generate", body)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		// Same status as the timeout case but a distinct code
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, types.ErrCodeServiceUnavailable, decodeErrorCode(t, rec))
	})

	t.Run("malformed upstream response returns 502", func(t *testing.T) {
		router, _, mockContext, mockGenerator := setupTestHandlers()

		stubEmptyContext(mockContext, "patient-123")
		mockGenerator.On("Generate", mock.Anything, mock.Anything).
			Return(nil, types.NewExternalError(types.ErrCodeMalformedResponse, "generation response is not valid JSON", nil))

		body, _ := json.Marshal(map[string]string{
			"patient_id": "patient-123",
			"raw_input":  "persistent cough and low grade fever",
		})
		req := asClinicianRequest(http.MethodPost, "/notes/generate", body)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, types.ErrCodeMalformedResponse, decodeErrorCode(t, rec))
	})
}

func TestHandlers_ReviewEndpoints(t *testing.T) {
	t.Run("approve returns the updated note", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		pending := &types.DoctorNote{ID: "note-1", Status: types.StatusPendingReview}
		approved := &types.DoctorNote{ID: "note-1", Status: types.StatusApproved}
		mockNotes.On("GetByID", mock.Anything, "note-1").Return(pending, nil)
		mockNotes.On("SetStatus", mock.Anything, "note-1", types.StatusApproved).Return(approved, nil)

		req := asClinicianRequest(http.MethodPost, "/notes/note-1/approve", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got types.DoctorNote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, types.StatusApproved, got.Status)
	})

	t.Run("reject by a patient role is forbidden", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		req := httptest.NewRequest(http.MethodPost, "/notes/note-1/reject", nil)
		req.Header.Set("X-User-ID", "patient-9")
		req.Header.Set("X-User-Role", string(types.RolePatient))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, types.ErrCodeForbidden, decodeErrorCode(t, rec))
		mockNotes.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("illegal transition returns 409", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		archived := &types.DoctorNote{ID: "note-1", Status: types.StatusArchived}
		mockNotes.On("GetByID", mock.Anything, "note-1").Return(archived, nil)

		req := asClinicianRequest(http.MethodPost, "/notes/note-1/approve", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, types.ErrCodeIllegalTransition, decodeErrorCode(t, rec))
	})

	t.Run("unknown note returns 404", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		mockNotes.On("GetByID", mock.Anything, "missing").
			Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "doctor note not found"))

		req := asClinicianRequest(http.MethodPost, "/notes/missing/approve", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, types.ErrCodeNotFound, decodeErrorCode(t, rec))
	})
}

func TestHandlers_PatientListings(t *testing.T) {
	t.Run("list returns notes with count", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		notes := []*types.DoctorNote{
			{ID: "note-1", PatientID: "patient-123", Status: types.StatusApproved},
			{ID: "note-2", PatientID: "patient-123", Status: types.StatusPendingReview},
		}
		mockNotes.On("ListByPatient", mock.Anything, "patient-123").Return(notes, nil)

		req := asClinicianRequest(http.MethodGet, "/patients/patient-123/notes", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Notes []*types.DoctorNote `json:"notes"`
			Count int                 `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, 2, payload.Count)
		assert.Len(t, payload.Notes, 2)
	})

	t.Run("approved listing hits the filtered query", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		approved := []*types.DoctorNote{
			{ID: "note-1", PatientID: "patient-123", Status: types.StatusApproved},
		}
		mockNotes.On("ListApprovedByPatient", mock.Anything, "patient-123").Return(approved, nil)

		req := asClinicianRequest(http.MethodGet, "/patients/patient-123/notes/approved", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockNotes.AssertNotCalled(t, "ListByPatient", mock.Anything, mock.Anything)
	})
}

func TestHandlers_UpdateAndArchive(t *testing.T) {
	t.Run("empty update body returns 400", func(t *testing.T) {
		router, _, _, _ := setupTestHandlers()

		req := asClinicianRequest(http.MethodPut, "/notes/note-1", []byte("{}"))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("archive by non-owner returns 403", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		note := &types.DoctorNote{ID: "note-1", DoctorID: "doctor-2", Status: types.StatusApproved}
		mockNotes.On("GetByID", mock.Anything, "note-1").Return(note, nil)

		req := asClinicianRequest(http.MethodDelete, "/notes/note-1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("archive by owner returns the tombstoned note", func(t *testing.T) {
		router, mockNotes, _, _ := setupTestHandlers()

		note := &types.DoctorNote{ID: "note-1", DoctorID: "doctor-1", Status: types.StatusApproved}
		mockNotes.On("GetByID", mock.Anything, "note-1").Return(note, nil)
		mockNotes.On("SetStatus", mock.Anything, "note-1", types.StatusArchived).
			Return(&types.DoctorNote{ID: "note-1", DoctorID: "doctor-1", Status: types.StatusArchived}, nil)

		req := asClinicianRequest(http.MethodDelete, "/notes/note-1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got types.DoctorNote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, types.StatusArchived, got.Status)
	})
}

package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinscribe/emr/pkg/config"
	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/types"
)

var testGenerationConfig = config.GenerationConfig{
	BaseURL:        "http://generation.internal:9180/",
	GeneratePath:   "/v1/notes/generate",
	TimeoutMinutes: 3,
}

func newTestGenerationClient(endpoint string, timeout time.Duration) *GenerationClient {
	return &GenerationClient{
		endpoint: endpoint,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.New("debug"),
	}
}

func testGenerationRequest() *types.GenerationRequest {
	return &types.GenerationRequest{
		RawInput:                "persistent cough, low grade fever for three days",
		FormattedMedicalHistory: "Chronic Conditions: Asthma",
		FormattedLabReports:     SentinelNoLabReports,
		AdditionalNotes:         "Patient blood group: A+",
	}
}

func TestGenerationClient_Generate(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		var received generationWireRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"structured_output": map[string]string{
					"presenting_complaints": "Cough and fever",
					"assessment_impression": "Likely viral bronchitis",
					"full_structured_note":  "Chief complaint: persistent cough...",
				},
			})
		}))
		defer server.Close()

		client := newTestGenerationClient(server.URL, 5*time.Second)

		// Execute test
		draft, err := client.Generate(context.Background(), testGenerationRequest())

		// Assertions
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, "Cough and fever", draft.PresentingComplaints)
		assert.Equal(t, "Chief complaint: persistent cough...", draft.FullStructuredNote)

		assert.Equal(t, "persistent cough, low grade fever for three days", received.DoctorKeywords)
		require.NotNil(t, received.MedicalHistory)
		assert.Equal(t, "Chronic Conditions: Asthma", *received.MedicalHistory)
		assert.Nil(t, received.CurrentSymptoms)
		assert.Equal(t, "Patient blood group: A+", received.AdditionalNotes)
	})

	t.Run("missing structured_output envelope is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
		}))
		defer server.Close()

		client := newTestGenerationClient(server.URL, 5*time.Second)

		draft, err := client.Generate(context.Background(), testGenerationRequest())

		assert.Nil(t, draft)
		se, ok := types.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeMalformedResponse, se.Code)
	})

	t.Run("non-JSON body is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>gateway error</html>"))
		}))
		defer server.Close()

		client := newTestGenerationClient(server.URL, 5*time.Second)

		draft, err := client.Generate(context.Background(), testGenerationRequest())

		assert.Nil(t, draft)
		se, ok := types.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeMalformedResponse, se.Code)
	})

	t.Run("whitespace-only full note is an empty result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"structured_output": map[string]string{
					"full_structured_note": "   \n\t ",
				},
			})
		}))
		defer server.Close()

		client := newTestGenerationClient(server.URL, 5*time.Second)

		draft, err := client.Generate(context.Background(), testGenerationRequest())

		assert.Nil(t, draft)
		se, ok := types.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeEmptyResult, se.Code)
	})

	t.Run("non-200 status is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestGenerationClient(server.URL, 5*time.Second)

		draft, err := client.Generate(context.Background(), testGenerationRequest())

		assert.Nil(t, draft)
		se, ok := types.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeServiceUnavailable, se.Code)
		assert.Equal(t, types.ErrorTypeExternal, se.Type)
	})

	t.Run("refused connection is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := server.URL
		server.Close()

		client := newTestGenerationClient(endpoint, 2*time.Second)

		draft, err := client.Generate(context.Background(), testGenerationRequest())

		assert.Nil(t, draft)
		se, ok := types.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeServiceUnavailable, se.Code)
		assert.Equal(t, types.ErrorTypeExternal, se.Type)
	})

	t.Run("slow upstream times out with a distinct code", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			server.Close()
		}()

		client := newTestGenerationClient(server.URL, 100*time.Millisecond)

		draft, err := client.Generate(context.Background(), testGenerationRequest())

		assert.Nil(t, draft)
		se, ok := types.AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeTimeout, se.Code)
		assert.Equal(t, types.ErrorTypeTimeout, se.Type)
		// The timeout code must stay distinguishable from plain
		// unavailability even though both map to the same HTTP status.
		assert.NotEqual(t, types.ErrCodeServiceUnavailable, se.Code)
	})
}

func TestNewGenerationClient(t *testing.T) {
	t.Run("endpoint joins base URL and path", func(t *testing.T) {
		client := NewGenerationClient(&testGenerationConfig, logger.New("debug"))

		assert.Equal(t, "http://generation.internal:9180/v1/notes/generate", client.endpoint)
		assert.Equal(t, 3*time.Minute, client.timeout)
	})
}

package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/clinscribe/emr/pkg/config"
	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/types"
)

// GenerationClientInterface defines the note generation call
type GenerationClientInterface interface {
	Generate(ctx context.Context, request *types.GenerationRequest) (*types.GeneratedNoteDraft, error)
}

// GenerationClient calls the external note-generation service. One
// synchronous POST per note, bounded by a timeout measured in minutes
// because drafting is a heavyweight remote computation. No automatic
// retries: failures are usually operational, and a user-initiated
// fresh request is the only retry path.
type GenerationClient struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logger.Logger
}

// generationWireRequest is the request body of the generation endpoint
type generationWireRequest struct {
	DoctorKeywords  string  `json:"doctor_keywords"`
	MedicalHistory  *string `json:"medical_history"`
	LabReports      *string `json:"lab_reports"`
	CurrentSymptoms *string `json:"current_symptoms"`
	AdditionalNotes string  `json:"additional_notes"`
}

// generationWireResponse is the success shape of the generation
// endpoint. Anything without the structured_output envelope is
// malformed.
type generationWireResponse struct {
	StructuredOutput *types.GeneratedNoteDraft `json:"structured_output"`
}

// NewGenerationClient creates a client from the generation config
// section. The config is injected so tests can point the client at a
// stub endpoint with a short timeout.
func NewGenerationClient(cfg *config.GenerationConfig, log *logger.Logger) *GenerationClient {
	timeout := time.Duration(cfg.TimeoutMinutes) * time.Minute

	return &GenerationClient{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + cfg.GeneratePath,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// Generate issues one generation call and validates the response
// shape. Fails with one of the service error codes
// GENERATION_SERVICE_UNAVAILABLE, GENERATION_TIMEOUT,
// GENERATION_MALFORMED_RESPONSE or GENERATION_EMPTY_RESULT.
func (c *GenerationClient) Generate(ctx context.Context, request *types.GenerationRequest) (*types.GeneratedNoteDraft, error) {
	start := time.Now()

	wireReq := generationWireRequest{
		DoctorKeywords:  request.RawInput,
		MedicalHistory:  nullableString(request.FormattedMedicalHistory),
		LabReports:      nullableString(request.FormattedLabReports),
		CurrentSymptoms: request.CurrentSymptoms,
		AdditionalNotes: request.AdditionalNotes,
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to marshal generation request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to build generation request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("Calling generation service", "endpoint", c.endpoint, "timeout", c.timeout.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		durationMS := time.Since(start).Milliseconds()
		c.logger.GenerationCall(ctx, c.endpoint, false, durationMS, map[string]interface{}{"error": err.Error()})
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		durationMS := time.Since(start).Milliseconds()
		c.logger.GenerationCall(ctx, c.endpoint, false, durationMS, map[string]interface{}{"status_code": resp.StatusCode})
		return nil, types.NewExternalError(types.ErrCodeServiceUnavailable,
			fmt.Sprintf("generation service returned status %d", resp.StatusCode), nil)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewExternalError(types.ErrCodeMalformedResponse, "failed to read generation response body", err)
	}

	var wireResp generationWireResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, types.NewExternalError(types.ErrCodeMalformedResponse, "generation response is not valid JSON", err)
	}

	if wireResp.StructuredOutput == nil {
		return nil, types.NewExternalError(types.ErrCodeMalformedResponse, "generation response lacks structured_output envelope", nil)
	}

	draft := wireResp.StructuredOutput
	if strings.TrimSpace(draft.FullStructuredNote) == "" {
		return nil, types.NewExternalError(types.ErrCodeEmptyResult, "generation service produced no usable note content", nil)
	}

	durationMS := time.Since(start).Milliseconds()
	c.logger.GenerationCall(ctx, c.endpoint, true, durationMS, nil)

	return draft, nil
}

// classifyTransportError splits "service is down" from "service is
// slow". Both map to the same HTTP status for callers but must stay
// distinguishable in logs and error codes.
func (c *GenerationClient) classifyTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return types.NewTimeoutError(types.ErrCodeTimeout,
				fmt.Sprintf("generation request exceeded %s timeout", c.timeout), err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewTimeoutError(types.ErrCodeTimeout,
			fmt.Sprintf("generation request exceeded %s timeout", c.timeout), err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return types.NewExternalError(types.ErrCodeServiceUnavailable,
			"generation service refused the connection", err)
	}

	return types.NewExternalError(types.ErrCodeServiceUnavailable,
		"generation service is unreachable", err)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

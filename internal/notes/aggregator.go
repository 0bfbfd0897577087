package notes

import (
	"context"
	"sync"

	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/monitoring"
	"github.com/clinscribe/emr/pkg/repository"
	"github.com/clinscribe/emr/pkg/types"
)

// ContextAggregator assembles a patient's clinical background from
// the read-only context tables. Every source query runs concurrently
// and a failed or empty source resolves to that category's empty
// default, so aggregation itself never fails. A missing lab history
// degrades note quality, it does not block note generation.
type ContextAggregator struct {
	repo    repository.ClinicalContextRepositoryInterface
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewContextAggregator creates a new context aggregator
func NewContextAggregator(repo repository.ClinicalContextRepositoryInterface, log *logger.Logger, metrics *monitoring.MetricsCollector) *ContextAggregator {
	return &ContextAggregator{
		repo:    repo,
		logger:  log,
		metrics: metrics,
	}
}

// Aggregate fetches all context categories for a patient. It waits
// for every source to settle rather than cancelling on first error.
func (a *ContextAggregator) Aggregate(ctx context.Context, patientID string) *types.ClinicalContext {
	result := &types.ClinicalContext{
		LabReports:    []types.DocumentRecord{},
		Prescriptions: []types.DocumentRecord{},
		Vaccinations:  []types.DocumentRecord{},
	}

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		info, err := a.repo.GetBasicInfo(ctx, patientID)
		if err != nil {
			a.recordFailure(ctx, "basic_info", patientID, err)
			return
		}
		result.BasicInfo = info
	}()

	go func() {
		defer wg.Done()
		history, err := a.repo.GetLatestMedicalHistory(ctx, patientID)
		if err != nil {
			a.recordFailure(ctx, "medical_history", patientID, err)
			return
		}
		result.MedicalHistory = history
	}()

	go func() {
		defer wg.Done()
		reports, err := a.repo.ListDocumentsByCategory(ctx, patientID, types.CategoryLabReport)
		if err != nil {
			a.recordFailure(ctx, "lab_reports", patientID, err)
			return
		}
		if reports != nil {
			result.LabReports = reports
		}
	}()

	go func() {
		defer wg.Done()
		prescriptions, err := a.repo.ListDocumentsByCategory(ctx, patientID, types.CategoryPrescription)
		if err != nil {
			a.recordFailure(ctx, "prescriptions", patientID, err)
			return
		}
		if prescriptions != nil {
			result.Prescriptions = prescriptions
		}
	}()

	go func() {
		defer wg.Done()
		vaccinations, err := a.repo.ListDocumentsByCategory(ctx, patientID, types.CategoryVaccination)
		if err != nil {
			a.recordFailure(ctx, "vaccinations", patientID, err)
			return
		}
		if vaccinations != nil {
			result.Vaccinations = vaccinations
		}
	}()

	wg.Wait()
	return result
}

// recordFailure logs a source failure and counts it. Not-found is the
// common empty-category case and is not worth a warning.
func (a *ContextAggregator) recordFailure(ctx context.Context, source, patientID string, err error) {
	if se, ok := types.AsServiceError(err); ok && se.Type == types.ErrorTypeNotFound {
		a.logger.Debug("Context source empty", "source", source, "patientID", patientID)
		return
	}

	a.logger.Warn("Context source query failed", "source", source, "patientID", patientID, "error", err)
	if a.metrics != nil {
		a.metrics.RecordContextSourceFailure(source)
	}
}

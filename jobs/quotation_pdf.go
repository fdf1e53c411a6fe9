package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
	"github.com/quotedesk/quotedesk/internal/quotations"
)

// PDFStore renders and attaches approved quotations; *quotations.Service
// implements it.
type PDFStore interface {
	StoreApprovedPDF(ctx context.Context, id int64) (quotations.Media, error)
}

// QuotationPDFJob pre-renders the PDF of an approved quotation.
type QuotationPDFJob struct {
	Store   PDFStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskQuotationPDF tasks.
func (j *QuotationPDFJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("quotation pdf: handler not configured")
	}
	var payload QuotationPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.QuotationID <= 0 {
		return fmt.Errorf("quotation pdf: bad payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskQuotationPDF)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskQuotationPDF).With(slog.Int64("quotation_id", payload.QuotationID))
	media, err := j.Store.StoreApprovedPDF(ctx, payload.QuotationID)
	switch {
	case errors.Is(err, quotations.ErrNotFound), errors.Is(err, quotations.ErrInvalidStatus):
		logger.Warn("skip quotation pdf", slog.Any("error", err))
		return fmt.Errorf("quotation pdf: %v: %w", err, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("quotation pdf: %w", err)
	}
	logger.Info("quotation pdf stored", slog.Int64("media_id", media.ID), slog.Int64("size", media.SizeBytes))
	return nil
}

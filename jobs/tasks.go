package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries decision follow-ups ahead of housekeeping.
	QueueCritical = "critical"

	// TaskTypeSendEmail notifies a quotation creator about a decision.
	TaskTypeSendEmail = "mail:send"
	// TaskQuotationPDF renders an approved quotation and stores it as media.
	TaskQuotationPDF = "quotation:pdf"
	// TaskIdempotencyCleanup deletes stale form submission keys.
	TaskIdempotencyCleanup = "housekeeping:idempotency"
	// TaskReportsWarmup pre-builds the current month's sales report.
	TaskReportsWarmup = "reports:warmup"
)

// SendEmailPayload identifies the decided quotation to notify about.
type SendEmailPayload struct {
	QuotationID int64 `json:"quotation_id"`
}

// QuotationPDFPayload identifies the approved quotation to render.
type QuotationPDFPayload struct {
	QuotationID int64 `json:"quotation_id"`
}

// IdempotencyCleanupPayload sets how long keys are kept.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSendEmailTask constructs a decision mail task.
func NewSendEmailTask(quotationID int64) (*asynq.Task, error) {
	if quotationID <= 0 {
		return nil, fmt.Errorf("jobs: quotation id required")
	}
	return newTask(TaskTypeSendEmail, SendEmailPayload{QuotationID: quotationID})
}

// NewQuotationPDFTask constructs a PDF render task.
func NewQuotationPDFTask(quotationID int64) (*asynq.Task, error) {
	if quotationID <= 0 {
		return nil, fmt.Errorf("jobs: quotation id required")
	}
	return newTask(TaskQuotationPDF, QuotationPDFPayload{QuotationID: quotationID})
}

// NewIdempotencyCleanupTask constructs the housekeeping task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		retentionHours = 24
	}
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{RetentionHours: retentionHours})
}

// NewReportsWarmupTask constructs the report warmup task.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil)
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, data), nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
	"github.com/quotedesk/quotedesk/internal/quotations"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (e *recordingEnqueuer) Close() error { return nil }

func TestClientEnqueuesDecisionTasks(t *testing.T) {
	enq := &recordingEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.EnqueueDecisionMail(context.Background(), 7))
	require.NoError(t, client.EnqueueQuotationPDF(context.Background(), 7))
	require.Len(t, enq.tasks, 2)

	assert.Equal(t, TaskTypeSendEmail, enq.tasks[0].Type())
	var mail SendEmailPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &mail))
	assert.Equal(t, int64(7), mail.QuotationID)
	assert.Equal(t, TaskQuotationPDF, enq.tasks[1].Type())

	assert.Error(t, client.EnqueueDecisionMail(context.Background(), 0))
}

func TestClientIgnoresDuplicatePDFTask(t *testing.T) {
	client := NewClientWith(&recordingEnqueuer{err: asynq.ErrDuplicateTask})
	assert.NoError(t, client.EnqueueQuotationPDF(context.Background(), 3))
	assert.ErrorIs(t, client.EnqueueDecisionMail(context.Background(), 3), asynq.ErrDuplicateTask)
}

type stubDecisions map[int64]quotations.Quotation

func (s stubDecisions) Decision(_ context.Context, id int64) (quotations.Quotation, error) {
	q, ok := s[id]
	if !ok {
		return quotations.Quotation{}, quotations.ErrNotFound
	}
	if !q.Status.Decided() {
		return quotations.Quotation{}, quotations.ErrInvalidStatus
	}
	return q, nil
}

type captureMailer struct {
	sent []Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func decided(status quotations.Status) quotations.Quotation {
	at := time.Date(2025, time.October, 3, 10, 0, 0, 0, time.UTC)
	return quotations.Quotation{
		ID:            5,
		Reference:     "QT-202510-0005",
		Title:         "Office fit-out",
		CustomerName:  "Acme Ltd",
		Status:        status,
		Currency:      "USD",
		GrandTotal:    decimal.RequireFromString("1234.5"),
		CreatedByName: "Sam Sales",
		CreatorEmail:  "sam@example.com",
		DecidedByName: "Max Manager",
		DecidedAt:     &at,
		DecisionNote:  "Budget exceeded",
	}
}

func mailTask(t *testing.T, id int64) *asynq.Task {
	t.Helper()
	task, err := NewSendEmailTask(id)
	require.NoError(t, err)
	return task
}

func TestSendMailJobDeliversDecision(t *testing.T) {
	mailer := &captureMailer{}
	job := &SendMailJob{
		Quotations: stubDecisions{5: decided(quotations.StatusRejected)},
		Mailer:     mailer,
		BaseURL:    "https://quotes.example.com/",
		Metrics:    jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}

	require.NoError(t, job.Handle(context.Background(), mailTask(t, 5)))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "sam@example.com", msg.To)
	assert.Equal(t, "Quotation QT-202510-0005 rejected", msg.Subject)
	assert.Contains(t, msg.Body, "was rejected by Max Manager")
	assert.Contains(t, msg.Body, "USD 1,234.50")
	assert.Contains(t, msg.Body, "Note: Budget exceeded")
	assert.Contains(t, msg.Body, "https://quotes.example.com/quotations/5")
}

func TestSendMailJobSkipsUndecidedAndMissing(t *testing.T) {
	mailer := &captureMailer{}
	job := &SendMailJob{Quotations: stubDecisions{6: decided(quotations.StatusPending)}, Mailer: mailer}

	assert.NoError(t, job.Handle(context.Background(), mailTask(t, 6)))
	assert.NoError(t, job.Handle(context.Background(), mailTask(t, 99)))
	assert.Empty(t, mailer.sent)
}

func TestSendMailJobRetriesDeliveryFailure(t *testing.T) {
	job := &SendMailJob{
		Quotations: stubDecisions{5: decided(quotations.StatusApproved)},
		Mailer:     &captureMailer{err: errors.New("connection refused")},
	}
	err := job.Handle(context.Background(), mailTask(t, 5))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestSendMailJobLogsWhenSMTPDisabled(t *testing.T) {
	job := &SendMailJob{
		Quotations: stubDecisions{5: decided(quotations.StatusApproved)},
		Mailer:     NewSMTPMailer("", 0, "no-reply@quotedesk.local"),
	}
	assert.NoError(t, job.Handle(context.Background(), mailTask(t, 5)))
}

func TestSendMailJobRejectsBadPayload(t *testing.T) {
	job := &SendMailJob{Quotations: stubDecisions{}}
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubPDFStore struct {
	calls []int64
	err   error
}

func (s *stubPDFStore) StoreApprovedPDF(_ context.Context, id int64) (quotations.Media, error) {
	s.calls = append(s.calls, id)
	if s.err != nil {
		return quotations.Media{}, s.err
	}
	return quotations.Media{ID: 1, QuotationID: id, SizeBytes: 2048}, nil
}

func TestQuotationPDFJob(t *testing.T) {
	store := &stubPDFStore{}
	job := &QuotationPDFJob{Store: store}
	task, err := NewQuotationPDFTask(8)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{8}, store.calls)

	store.err = quotations.ErrInvalidStatus
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	store.err = errors.New("gotenberg down")
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

type stubCleaner struct {
	olderThan time.Duration
	deleted   int64
}

func (s *stubCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return s.deleted, nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &stubCleaner{deleted: 3}
	job := &IdempotencyCleanupJob{Keys: cleaner}

	task, err := NewIdempotencyCleanupTask(48)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, cleaner.olderThan)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, 24*time.Hour, cleaner.olderThan)
}

type stubWarmer struct {
	deadline bool
	err      error
}

func (s *stubWarmer) Warmup(ctx context.Context) error {
	_, s.deadline = ctx.Deadline()
	return s.err
}

func TestReportsWarmupJob(t *testing.T) {
	warmer := &stubWarmer{}
	job := &ReportsWarmupJob{Reports: warmer}
	require.NoError(t, job.Handle(context.Background(), NewReportsWarmupTask()))
	assert.True(t, warmer.deadline)

	warmer.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), NewReportsWarmupTask()))
}

type stubInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthHandler(t *testing.T) {
	inspector := stubInspector{infos: map[string]*asynq.QueueInfo{
		QueueCritical: {Queue: QueueCritical, Pending: 2, Active: 1},
	}}
	r := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Queues []queueHealth `json:"queues"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Queues, 2)
	assert.Equal(t, 2, body.Queues[0].Pending)
	assert.True(t, body.Queues[1].Available)

	r = chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

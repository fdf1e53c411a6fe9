package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quotedesk/quotedesk/internal/jobs"
	"github.com/quotedesk/quotedesk/internal/quotations"
	"github.com/quotedesk/quotedesk/internal/view"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an unauthenticated SMTP relay such as Mailpit.
type SMTPMailer struct {
	Addr string
	From string
}

// NewSMTPMailer returns a mailer for host:port. An empty host disables
// delivery and Send returns ErrMailDisabled.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	if host == "" {
		return &SMTPMailer{From: from}
	}
	return &SMTPMailer{Addr: net.JoinHostPort(host, strconv.Itoa(port)), From: from}
}

// ErrMailDisabled reports that no SMTP relay is configured.
var ErrMailDisabled = errors.New("mail: smtp not configured")

// Send writes the message to the relay.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.Addr == "" {
		return ErrMailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return smtp.SendMail(m.Addr, nil, m.From, []string{msg.To}, buf.Bytes())
}

// DecisionSource loads decided quotations; *quotations.Service implements it.
type DecisionSource interface {
	Decision(ctx context.Context, id int64) (quotations.Quotation, error)
}

// SendMailJob notifies the quotation creator about an approval decision.
type SendMailJob struct {
	Quotations DecisionSource
	Mailer     Mailer
	BaseURL    string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendMailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Quotations == nil {
		return errors.New("send mail: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.QuotationID <= 0 {
		return fmt.Errorf("send mail: bad payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskTypeSendEmail)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskTypeSendEmail).With(slog.Int64("quotation_id", payload.QuotationID))
	q, err := j.Quotations.Decision(ctx, payload.QuotationID)
	if err != nil {
		if errors.Is(err, quotations.ErrNotFound) || errors.Is(err, quotations.ErrInvalidStatus) {
			logger.Warn("skip decision mail", slog.Any("error", err))
			return nil
		}
		return err
	}
	if q.CreatorEmail == "" {
		logger.Warn("quotation creator has no email")
		return nil
	}
	msg := DecisionMessage(q, j.BaseURL)
	logger = logger.With(slog.String("to", msg.To), slog.String("subject", msg.Subject))

	if j.Mailer == nil {
		logger.Info("decision mail logged")
		j.Metrics.MailSent("logged")
		return nil
	}
	if err := j.Mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, ErrMailDisabled) {
			logger.Info("decision mail logged")
			j.Metrics.MailSent("logged")
			return nil
		}
		j.Metrics.MailSent("failed")
		return fmt.Errorf("send mail: %w", err)
	}
	logger.Info("decision mail sent")
	j.Metrics.MailSent("sent")
	return nil
}

// DecisionMessage composes the notification for a decided quotation.
func DecisionMessage(q quotations.Quotation, baseURL string) Message {
	verdict := "approved"
	if q.Status == quotations.StatusRejected {
		verdict = "rejected"
	}
	var b strings.Builder
	name := q.CreatedByName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Quotation %s (%s) for %s was %s", q.Reference, q.Title, q.CustomerName, verdict)
	if q.DecidedByName != "" {
		fmt.Fprintf(&b, " by %s", q.DecidedByName)
	}
	if q.DecidedAt != nil {
		fmt.Fprintf(&b, " on %s", q.DecidedAt.UTC().Format(time.RFC1123))
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Grand total: %s %s\n", q.Currency, view.FormatMoney(q.GrandTotal))
	if q.DecisionNote != "" {
		fmt.Fprintf(&b, "Note: %s\n", q.DecisionNote)
	}
	if baseURL != "" {
		fmt.Fprintf(&b, "\n%s/quotations/%d\n", strings.TrimRight(baseURL, "/"), q.ID)
	}
	return Message{
		To:      q.CreatorEmail,
		Subject: fmt.Sprintf("Quotation %s %s", q.Reference, verdict),
		Body:    b.String(),
	}
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

package quotations

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

var (
	salesUser   = &shared.CurrentUser{ID: 10, Name: "Sam Sales", Role: "sales", Permissions: []string{shared.PermQuotationsView, shared.PermQuotationsCreate, shared.PermQuotationsEdit, shared.PermQuotationsSubmit}}
	otherSales  = &shared.CurrentUser{ID: 11, Name: "Olive Sales", Role: "sales", Permissions: salesUser.Permissions}
	managerUser = &shared.CurrentUser{ID: 20, Name: "Max Manager", Role: "manager", Permissions: []string{shared.PermQuotationsView, shared.PermQuotationsViewAll, shared.PermQuotationsApprove}}
)

type WorkflowSuite struct {
	suite.Suite
	repo     *memoryRepo
	files    *memoryFiles
	notifier *recordingNotifier
	cache    *countingCache
	idem     *memoryIdempotency
	pdf      *stubPDF
	svc      *Service
	ctx      context.Context
}

func (s *WorkflowSuite) SetupTest() {
	s.repo = newMemoryRepo()
	s.files = newMemoryFiles()
	s.notifier = &recordingNotifier{}
	s.cache = &countingCache{}
	s.idem = &memoryIdempotency{keys: map[string]bool{}}
	s.pdf = &stubPDF{}
	s.svc = NewService(s.repo, Config{ReferencePrefix: "QT", DefaultCurrency: "USD", ValidityDays: 14, UploadMaxBytes: 1 << 20}, Deps{
		Customers:   knownCustomers{1: true},
		Notifier:    s.notifier,
		Cache:       s.cache,
		Idempotency: s.idem,
		Files:       s.files,
		PDF:         s.pdf,
	})
	s.svc.clock = func() time.Time { return time.Date(2025, time.October, 3, 9, 30, 0, 0, time.UTC) }
	s.ctx = context.Background()
}

func validForm() QuotationForm {
	return QuotationForm{
		CustomerID:    1,
		Title:         "Office fit-out",
		QuoteDate:     "2025-10-03",
		ValidUntil:    "2025-10-31",
		Currency:      "usd",
		DiscountType:  DiscountPercent,
		DiscountValue: "10",
		Items: []ItemForm{
			{Description: "Desk", Quantity: "2", UnitPrice: "100", TaxRate: "10"},
			{},
			{Description: "Chair", Quantity: "1", UnitPrice: "50", DiscountPercent: "20"},
		},
	}
}

func (s *WorkflowSuite) create(user *shared.CurrentUser) Quotation {
	q, err := s.svc.Create(s.ctx, user, validForm())
	s.Require().NoError(err)
	return q
}

func (s *WorkflowSuite) TestCreateComputesTotalsAndReference() {
	q := s.create(salesUser)

	s.Equal("QT-202510-0001", q.Reference)
	s.Equal(StatusDraft, q.Status)
	s.True(q.Editable)
	s.Equal(1, q.Version)
	s.Equal("USD", q.Currency)
	s.Equal(salesUser.ID, q.CreatedBy)
	s.True(d("240").Equal(q.Subtotal))
	s.True(d("24").Equal(q.DiscountTotal))
	s.True(d("18").Equal(q.TaxTotal))
	s.True(d("234").Equal(q.GrandTotal))

	items, err := s.repo.Items(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Len(items, 2, "blank rows are dropped")
	s.Equal(1, s.cache.bumps)

	second := s.create(salesUser)
	s.Equal("QT-202510-0002", second.Reference)
}

func (s *WorkflowSuite) TestCreateValidation() {
	form := validForm()
	form.Title = ""
	form.ValidUntil = "2025-09-01"
	form.Items[0].Quantity = "abc"
	form.Items[2].TaxRate = "150"

	_, err := s.svc.Create(s.ctx, salesUser, form)
	var errs shared.FormErrors
	s.Require().True(errors.As(err, &errs))
	s.Equal("is required", errs["title"])
	s.Equal("must not be before the quote date", errs["valid_until"])
	s.Equal("must be a number", errs["items[0].quantity"])
	s.Equal("must be 100 or less", errs["items[1].tax_rate"])
	s.ErrorIs(err, httpx.ErrValidation)
	s.Empty(s.repo.state.quotes)
}

func (s *WorkflowSuite) TestCreateUnknownCustomer() {
	form := validForm()
	form.CustomerID = 99
	_, err := s.svc.Create(s.ctx, salesUser, form)
	var errs shared.FormErrors
	s.Require().True(errors.As(err, &errs))
	s.Equal("does not exist", errs["customer_id"])
}

func (s *WorkflowSuite) TestCreateRollsBackOnItemFailure() {
	s.repo.failItems = true
	form := validForm()
	form.IdempotencyKey = "tok-1"

	_, err := s.svc.Create(s.ctx, salesUser, form)
	s.Require().Error(err)
	s.Empty(s.repo.state.quotes)
	s.Empty(s.repo.state.sequences)
	s.False(s.idem.keys["tok-1"], "token released for retry")
}

func (s *WorkflowSuite) TestReplayedTokenIsIgnored() {
	form := validForm()
	form.IdempotencyKey = "tok-2"
	_, err := s.svc.Create(s.ctx, salesUser, form)
	s.Require().NoError(err)

	_, err = s.svc.Create(s.ctx, salesUser, form)
	s.ErrorIs(err, ErrDuplicateSubmission)
	s.Len(s.repo.state.quotes, 1)
}

func (s *WorkflowSuite) TestSubmitApproveLocksQuotation() {
	q := s.create(salesUser)

	submitted, err := s.svc.Submit(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, submitted.Status)
	s.False(submitted.Editable)
	s.NotNil(submitted.SubmittedAt)

	_, err = s.svc.Submit(s.ctx, salesUser, q.ID)
	s.ErrorIs(err, ErrInvalidStatus)

	approved, err := s.svc.Approve(s.ctx, managerUser, q.ID, DecisionForm{Note: " looks good "})
	s.Require().NoError(err)
	s.Equal(StatusApproved, approved.Status)
	s.Equal(managerUser.ID, *approved.DecidedBy)
	s.Equal("looks good", approved.DecisionNote)
	s.Equal([]int64{q.ID}, s.notifier.mails)
	s.Equal([]int64{q.ID}, s.notifier.pdfs)

	_, err = s.svc.Update(s.ctx, salesUser, q.ID, validForm())
	s.ErrorIs(err, ErrNotEditable)
	s.ErrorIs(s.svc.Delete(s.ctx, salesUser, q.ID), ErrNotEditable)
	_, err = s.svc.Reject(s.ctx, managerUser, q.ID, DecisionForm{Note: "late"})
	s.ErrorIs(err, ErrInvalidStatus)

	approvals, err := s.repo.Approvals(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Require().Len(approvals, 2)
	s.Equal(shared.ApprovalSubmit, approvals[0].Action)
	s.Equal(shared.ApprovalApprove, approvals[1].Action)
}

func (s *WorkflowSuite) TestRejectRequiresNote() {
	q := s.create(salesUser)
	_, err := s.svc.Submit(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)

	_, err = s.svc.Reject(s.ctx, managerUser, q.ID, DecisionForm{Note: "  "})
	var errs shared.FormErrors
	s.Require().True(errors.As(err, &errs))
	s.Equal("is required", errs["decision_note"])

	rejected, err := s.svc.Reject(s.ctx, managerUser, q.ID, DecisionForm{Note: "Too expensive"})
	s.Require().NoError(err)
	s.Equal(StatusRejected, rejected.Status)
	s.Equal([]int64{q.ID}, s.notifier.mails)
	s.Empty(s.notifier.pdfs)
}

func (s *WorkflowSuite) TestSubmitWithoutItems() {
	form := validForm()
	form.Items = nil
	q, err := s.svc.Create(s.ctx, salesUser, form)
	s.Require().NoError(err)

	_, err = s.svc.Submit(s.ctx, salesUser, q.ID)
	s.ErrorIs(err, ErrNoItems)
	s.Equal(StatusDraft, s.repo.state.quotes[q.ID].Status)
}

func (s *WorkflowSuite) TestReviseCreatesNextVersion() {
	q := s.create(salesUser)
	_, err := s.svc.Upload(s.ctx, salesUser, q.ID, "notes.txt", []byte("site survey notes"))
	s.Require().NoError(err)
	_, err = s.svc.Submit(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)

	_, err = s.svc.Revise(s.ctx, salesUser, q.ID)
	s.ErrorIs(err, ErrInvalidStatus, "pending quotations cannot be revised")

	_, err = s.svc.Reject(s.ctx, managerUser, q.ID, DecisionForm{Note: "Adjust pricing"})
	s.Require().NoError(err)

	rev, err := s.svc.Revise(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)
	s.Equal(2, rev.Version)
	s.Equal(q.ID, *rev.ParentID)
	s.Equal("QT-202510-0001-R2", rev.Reference)
	s.Equal(StatusDraft, rev.Status)
	s.True(rev.Editable)
	s.Nil(rev.DecidedBy)
	s.Empty(rev.DecisionNote)

	items, _ := s.repo.Items(s.ctx, rev.ID)
	s.Len(items, 2)
	media, _ := s.repo.Media(s.ctx, rev.ID)
	s.Require().Len(media, 1)

	_, err = s.svc.Submit(s.ctx, salesUser, rev.ID)
	s.Require().NoError(err)
	_, err = s.svc.Reject(s.ctx, managerUser, rev.ID, DecisionForm{Note: "Again"})
	s.Require().NoError(err)
	third, err := s.svc.Revise(s.ctx, salesUser, rev.ID)
	s.Require().NoError(err)
	s.Equal(3, third.Version)
	s.Equal(q.ID, *third.ParentID)
	s.Equal("QT-202510-0001-R3", third.Reference)

	s.Require().NoError(s.svc.DeleteMedia(s.ctx, salesUser, third.ID, mediaIDOf(s, third.ID)))
	_, stillThere := s.files.files[media[0].StoragePath]
	s.True(stillThere, "file shared with earlier versions is kept")

	detail, err := s.svc.Detail(s.ctx, salesUser, rev.ID)
	s.Require().NoError(err)
	s.Len(detail.Versions, 3)
}

func mediaIDOf(s *WorkflowSuite, quotationID int64) int64 {
	media, err := s.repo.Media(s.ctx, quotationID)
	s.Require().NoError(err)
	s.Require().NotEmpty(media)
	return media[0].ID
}

func (s *WorkflowSuite) TestDuplicateStartsNewFamily() {
	q := s.create(salesUser)
	dup, err := s.svc.Duplicate(s.ctx, otherSales, q.ID)
	s.ErrorIs(err, ErrForbidden)

	dup, err = s.svc.Duplicate(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)
	s.Equal("QT-202510-0002", dup.Reference)
	s.Equal(1, dup.Version)
	s.Nil(dup.ParentID)
	s.Equal("2025-10-17", dup.ValidUntil.Format(dateLayout))
	s.True(q.GrandTotal.Equal(dup.GrandTotal))
}

func (s *WorkflowSuite) TestSalesOnlySeeOwnQuotations() {
	mine := s.create(salesUser)
	s.create(otherSales)

	list, page, err := s.svc.List(s.ctx, salesUser, shared.ListFilters{Page: 1})
	s.Require().NoError(err)
	s.Len(list, 1)
	s.Equal(1, page.Total)
	s.Equal(mine.ID, list[0].ID)

	all, _, err := s.svc.List(s.ctx, managerUser, shared.ListFilters{Page: 1})
	s.Require().NoError(err)
	s.Len(all, 2)

	_, err = s.svc.Detail(s.ctx, otherSales, mine.ID)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.svc.Update(s.ctx, otherSales, mine.ID, validForm())
	s.ErrorIs(err, ErrForbidden)
}

func (s *WorkflowSuite) TestUpdateReplacesItems() {
	q := s.create(salesUser)
	form := validForm()
	form.DiscountType = DiscountAmount
	form.DiscountValue = "40"
	form.Items = form.Items[:1]

	updated, err := s.svc.Update(s.ctx, salesUser, q.ID, form)
	s.Require().NoError(err)
	s.True(d("200").Equal(updated.Subtotal))
	s.True(d("40").Equal(updated.DiscountTotal))
	s.True(d("16").Equal(updated.TaxTotal))
	s.True(d("176").Equal(updated.GrandTotal))
	s.Equal(q.Reference, s.repo.state.quotes[q.ID].Reference)
	items, _ := s.repo.Items(s.ctx, q.ID)
	s.Len(items, 1)
}

func (s *WorkflowSuite) TestDeleteDraftRemovesFiles() {
	q := s.create(salesUser)
	m, err := s.svc.Upload(s.ctx, salesUser, q.ID, "brief.txt", []byte("brief"))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, salesUser, q.ID))
	s.NotContains(s.files.files, m.StoragePath)
	s.Empty(s.repo.state.quotes)
}

func (s *WorkflowSuite) TestUploadRules() {
	q := s.create(salesUser)

	_, err := s.svc.Upload(s.ctx, salesUser, q.ID, "virus.exe", []byte("MZ..."))
	var errs shared.FormErrors
	s.Require().True(errors.As(err, &errs))
	s.Contains(errs["file"], "must be a PDF")

	_, err = s.svc.Upload(s.ctx, salesUser, q.ID, "fake.png", []byte("just text"))
	s.Require().True(errors.As(err, &errs))

	_, err = s.svc.Upload(s.ctx, salesUser, q.ID, "big.txt", bytes.Repeat([]byte("a"), 2<<20))
	s.Require().True(errors.As(err, &errs))
	s.Equal("must be at most 1 MB", errs["file"])

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, img))
	m, err := s.svc.Upload(s.ctx, salesUser, q.ID, "../../plan.PNG", buf.Bytes())
	s.Require().NoError(err)
	s.Equal("plan.PNG", m.FileName)
	s.Equal("image/png", m.MimeType)
	s.Regexp(`^quotations/1/[0-9a-f-]{36}\.png$`, m.StoragePath)
	s.NotEmpty(m.ThumbnailPath)
	s.Contains(s.files.files, m.ThumbnailPath)
}

func (s *WorkflowSuite) TestUploadRemovesFileWhenInsertFails() {
	q := s.create(salesUser)
	_, err := s.svc.Upload(s.ctx, salesUser, q.ID, "fail-db.txt", []byte("hello"))
	s.Require().Error(err)
	s.Empty(s.files.files)
}

func (s *WorkflowSuite) TestStoreApprovedPDF() {
	q := s.create(salesUser)
	_, err := s.svc.StoreApprovedPDF(s.ctx, q.ID)
	s.ErrorIs(err, ErrInvalidStatus)

	_, err = s.svc.Submit(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)
	_, err = s.svc.Approve(s.ctx, managerUser, q.ID, DecisionForm{})
	s.Require().NoError(err)

	m, err := s.svc.StoreApprovedPDF(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal("QT-202510-0001.pdf", m.FileName)
	s.Equal("application/pdf", m.MimeType)
	s.Equal(managerUser.ID, m.UploadedBy)
	s.Require().Len(s.pdf.docs, 1)
	s.Len(s.pdf.docs[0].Rows, 2)
}

type brokenAudit struct{}

func (brokenAudit) Record(context.Context, shared.AuditLog) error {
	return errors.New("audit insert failed")
}

func (s *WorkflowSuite) TestAuditFailureIsLoggedNotReturned() {
	var logs bytes.Buffer
	s.svc.deps.Audit = brokenAudit{}
	s.svc.deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	q := s.create(salesUser)
	_, err := s.svc.Submit(s.ctx, salesUser, q.ID)
	s.Require().NoError(err)

	s.Contains(logs.String(), "level=WARN")
	s.Contains(logs.String(), "entity=quotation")
	s.Contains(logs.String(), "audit insert failed")
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func TestDetectUploadType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
		ok   bool
	}{
		{"doc.pdf", []byte("%PDF-1.7\n"), "application/pdf", true},
		{"notes.TXT", []byte("hello world"), "text/plain; charset=utf-8", true},
		{"sheet.xlsx", []byte("PK\x03\x04rest"), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
		{"doc.pdf", []byte("hello"), "", false},
		{"script.sh", []byte("#!/bin/sh"), "", false},
	}
	for _, tc := range cases {
		got, ok := DetectUploadType(tc.name, tc.data)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestNewFormDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo(), Config{ValidityDays: 30, DefaultCurrency: "EUR"}, Deps{})
	svc.clock = func() time.Time { return time.Date(2025, time.January, 15, 23, 0, 0, 0, time.UTC) }
	form := svc.NewForm()
	assert.Equal(t, "2025-01-15", form.QuoteDate)
	assert.Equal(t, "2025-02-14", form.ValidUntil)
	assert.Equal(t, "EUR", form.Currency)
	assert.NotEmpty(t, form.IdempotencyKey)
	require.Len(t, form.Items, 1)
}

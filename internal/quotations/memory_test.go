package quotations

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/report"
)

// memoryRepo is an in-memory Repository. WithTx works on a copy that is
// swapped in only when fn succeeds.
type memoryRepo struct {
	mu        *sync.Mutex
	state     *memoryState
	failItems bool
}

type memoryState struct {
	quotes    map[int64]Quotation
	items     map[int64][]Item
	media     map[int64][]Media
	approvals []shared.ApprovalLog
	sequences map[string]int64
	nextID    int64
	nextMedia int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{mu: &sync.Mutex{}, state: &memoryState{
		quotes:    map[int64]Quotation{},
		items:     map[int64][]Item{},
		media:     map[int64][]Media{},
		sequences: map[string]int64{},
	}}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		quotes:    map[int64]Quotation{},
		items:     map[int64][]Item{},
		media:     map[int64][]Media{},
		approvals: append([]shared.ApprovalLog(nil), s.approvals...),
		sequences: map[string]int64{},
		nextID:    s.nextID,
		nextMedia: s.nextMedia,
	}
	for k, v := range s.quotes {
		c.quotes[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]Item(nil), v...)
	}
	for k, v := range s.media {
		c.media[k] = append([]Media(nil), v...)
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.mu.Lock()
	tx := &memoryRepo{mu: &sync.Mutex{}, state: m.state.clone(), failItems: m.failItems}
	m.mu.Unlock()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()
	return nil
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range m.state.quotes {
		if filters.OwnerID != nil && q.CreatedBy != *filters.OwnerID {
			continue
		}
		if filters.Status != "" && string(q.Status) != filters.Status {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	q, ok := m.state.quotes[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Quotation, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) Items(ctx context.Context, id int64) ([]Item, error) {
	return append([]Item(nil), m.state.items[id]...), nil
}

func (m *memoryRepo) Versions(ctx context.Context, rootID int64) ([]shared.QuoteSummary, error) {
	var out []shared.QuoteSummary
	for _, q := range m.state.quotes {
		if q.ID == rootID || (q.ParentID != nil && *q.ParentID == rootID) {
			out = append(out, q.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *memoryRepo) NextSequence(ctx context.Context, prefix, period string) (int64, error) {
	m.state.sequences[prefix+period]++
	return m.state.sequences[prefix+period], nil
}

func (m *memoryRepo) MaxVersion(ctx context.Context, rootID int64) (int, error) {
	max := 0
	for _, q := range m.state.quotes {
		if (q.ID == rootID || (q.ParentID != nil && *q.ParentID == rootID)) && q.Version > max {
			max = q.Version
		}
	}
	return max, nil
}

func (m *memoryRepo) Create(ctx context.Context, q Quotation) (Quotation, error) {
	for _, existing := range m.state.quotes {
		if existing.Reference == q.Reference {
			return Quotation{}, errors.New("duplicate reference")
		}
	}
	m.state.nextID++
	q.ID = m.state.nextID
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.state.quotes[q.ID] = q
	return q, nil
}

func (m *memoryRepo) Update(ctx context.Context, q Quotation) error {
	current, ok := m.state.quotes[q.ID]
	if !ok || !current.Editable {
		return ErrNotEditable
	}
	q.Reference, q.Status, q.Editable, q.Version = current.Reference, current.Status, current.Editable, current.Version
	q.ParentID, q.CreatedBy = current.ParentID, current.CreatedBy
	m.state.quotes[q.ID] = q
	return nil
}

func (m *memoryRepo) ReplaceItems(ctx context.Context, quotationID int64, items []Item) error {
	if m.failItems {
		return errors.New("insert item: connection reset")
	}
	out := make([]Item, len(items))
	for i, it := range items {
		it.ID = int64(i + 1)
		it.QuotationID = quotationID
		out[i] = it
	}
	m.state.items[quotationID] = out
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	q, ok := m.state.quotes[id]
	if !ok || !q.Editable {
		return ErrNotEditable
	}
	delete(m.state.quotes, id)
	delete(m.state.items, id)
	delete(m.state.media, id)
	return nil
}

func (m *memoryRepo) SetStatus(ctx context.Context, q Quotation) error {
	m.state.quotes[q.ID] = q
	return nil
}

func (m *memoryRepo) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = approvalModule
	m.state.approvals = append(m.state.approvals, log)
	return nil
}

func (m *memoryRepo) Approvals(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, a := range m.state.approvals {
		if a.RefID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryRepo) Media(ctx context.Context, quotationID int64) ([]Media, error) {
	return append([]Media(nil), m.state.media[quotationID]...), nil
}

func (m *memoryRepo) GetMedia(ctx context.Context, quotationID, mediaID int64) (Media, error) {
	for _, md := range m.state.media[quotationID] {
		if md.ID == mediaID {
			return md, nil
		}
	}
	return Media{}, ErrNotFound
}

func (m *memoryRepo) InsertMedia(ctx context.Context, md Media) (Media, error) {
	if md.FileName == "fail-db.txt" {
		return Media{}, errors.New("insert media: connection reset")
	}
	m.state.nextMedia++
	md.ID = m.state.nextMedia
	m.state.media[md.QuotationID] = append(m.state.media[md.QuotationID], md)
	return md, nil
}

func (m *memoryRepo) DeleteMedia(ctx context.Context, quotationID, mediaID int64) error {
	list := m.state.media[quotationID]
	for i, md := range list {
		if md.ID == mediaID {
			m.state.media[quotationID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryRepo) CopyMedia(ctx context.Context, fromID, toID int64) error {
	for _, md := range m.state.media[fromID] {
		md.QuotationID = toID
		m.state.nextMedia++
		md.ID = m.state.nextMedia
		m.state.media[toID] = append(m.state.media[toID], md)
	}
	return nil
}

func (m *memoryRepo) MediaPathInUse(ctx context.Context, storagePath string) (bool, error) {
	for _, list := range m.state.media {
		for _, md := range list {
			if md.StoragePath == storagePath {
				return true, nil
			}
		}
	}
	return false, nil
}

type memoryFiles struct {
	files map[string][]byte
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: map[string][]byte{}}
}

func (f *memoryFiles) Put(key string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.files[key] = data
	return int64(len(data)), nil
}

func (f *memoryFiles) PutThumbnail(key string, data []byte) error {
	f.files[key] = []byte("thumb")
	return nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

func (f *memoryFiles) Open(key string) (io.ReadSeekCloser, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing file")
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

func (f *memoryFiles) Delete(key string) error {
	delete(f.files, key)
	return nil
}

type recordingNotifier struct {
	mails []int64
	pdfs  []int64
}

func (n *recordingNotifier) EnqueueDecisionMail(ctx context.Context, id int64) error {
	n.mails = append(n.mails, id)
	return nil
}

func (n *recordingNotifier) EnqueueQuotationPDF(ctx context.Context, id int64) error {
	n.pdfs = append(n.pdfs, id)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

type memoryIdempotency struct{ keys map[string]bool }

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type knownCustomers map[int64]bool

func (k knownCustomers) Exists(ctx context.Context, id int64) (bool, error) { return k[id], nil }

type stubPDF struct{ docs []report.Document }

func (s *stubPDF) Render(ctx context.Context, doc report.Document) ([]byte, error) {
	s.docs = append(s.docs, doc)
	return []byte("%PDF-1.4 " + doc.Reference), nil
}

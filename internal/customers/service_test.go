package customers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type memoryRepo struct {
	items  map[int64]Customer
	quotes map[int64]int
	seq    int64
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Customer{}, quotes: map[int64]int{}, seq: 122}
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Options(ctx context.Context) ([]Customer, error) {
	out, _, err := m.List(ctx, shared.ListFilters{})
	return out, err
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.items[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) CodeTaken(ctx context.Context, code string, exceptID int64) (bool, error) {
	for id, c := range m.items {
		if id != exceptID && strings.EqualFold(c.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) NextCode(ctx context.Context) (string, error) {
	m.seq++
	return FormatCode(m.seq), nil
}

func (m *memoryRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	if taken, _ := m.CodeTaken(ctx, c.Code, 0); taken {
		return Customer{}, ErrDuplicateCode
	}
	m.nextID++
	c.ID = m.nextID
	m.items[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Customer) error {
	m.items[c.ID] = c
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memoryRepo) CountQuotations(ctx context.Context, id int64) (int, error) {
	return m.quotes[id], nil
}

func (m *memoryRepo) Quotations(ctx context.Context, id int64, ownerID *int64, limit int) ([]shared.QuoteSummary, error) {
	return nil, nil
}

type knownAccounts map[int64]bool

func (k knownAccounts) Exists(ctx context.Context, id int64) (bool, error) { return k[id], nil }

type noContacts struct{}

func (noContacts) List(ctx context.Context, ownerID int64) ([]contacts.Contact, error) {
	return nil, nil
}

func (noContacts) Insert(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	return c, nil
}

func (noContacts) Delete(ctx context.Context, ownerID, id int64) (bool, error) {
	return false, nil
}

func (noContacts) SetPrimary(ctx context.Context, ownerID, id int64) error {
	return nil
}

func (noContacts) PromoteOldest(ctx context.Context, ownerID int64) error {
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, knownAccounts{7: true}, contacts.NewService(noContacts{}), nil, nil), repo
}

func TestCreateCustomerGeneratesCode(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Wayne Enterprises", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "CUST-000123", c.Code)
	assert.Equal(t, int64(1), c.CreatedBy)
}

func TestCreateCustomerCodeUnique(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), 1, CustomerForm{Code: "acme", Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, CustomerForm{Code: "ACME", Name: "Acme 2"})
	var errs shared.FormErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "has already been taken", errs["code"])
}

func TestCreateCustomerSkipsHandEnteredCodes(t *testing.T) {
	svc, repo := newTestService()
	repo.items[50] = Customer{ID: 50, Code: FormatCode(123), Name: "Typed by hand"}
	repo.items[51] = Customer{ID: 51, Code: FormatCode(124), Name: "Also by hand"}
	repo.nextID = 51

	c, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Stark Industries", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "CUST-000125", c.Code)
}

func TestCreateCustomerGivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, repo := newTestService()
	for i := int64(1); i <= generatedCodeAttempts; i++ {
		repo.items[100+i] = Customer{ID: 100 + i, Code: FormatCode(122 + i)}
	}
	repo.nextID = 200

	_, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Unlucky"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
	var errs shared.FormErrors
	assert.False(t, errors.As(err, &errs))
}

func TestCreateCustomerValidatesAccountLink(t *testing.T) {
	svc, _ := newTestService()
	missing := int64(99)
	linked := int64(7)

	_, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Stark", AccountID: &missing})
	var errs shared.FormErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "does not exist", errs["account_id"])

	c, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Stark", AccountID: &linked})
	require.NoError(t, err)
	assert.Equal(t, &linked, c.AccountID)
}

func TestUpdateCustomerKeepsCodeWhenBlank(t *testing.T) {
	svc, repo := newTestService()
	c, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Oscorp"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 1, c.ID, CustomerForm{Name: "Oscorp Industries"})
	require.NoError(t, err)
	assert.Equal(t, c.Code, repo.items[c.ID].Code)
	assert.Equal(t, "Oscorp Industries", repo.items[c.ID].Name)
}

func TestDeleteCustomerWithQuotationsRejected(t *testing.T) {
	svc, repo := newTestService()
	c, err := svc.Create(context.Background(), 1, CustomerForm{Name: "Cyberdyne"})
	require.NoError(t, err)
	repo.quotes[c.ID] = 3

	assert.ErrorIs(t, svc.Delete(context.Background(), 1, c.ID), httpx.ErrConflict)
	repo.quotes[c.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), 1, c.ID))
	assert.Empty(t, repo.items)
}

package contacts

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

type memoryStore struct {
	contacts map[int64]Contact
	nextID   int64
}

func (m *memoryStore) List(ctx context.Context, ownerID int64) ([]Contact, error) {
	var out []Contact
	for _, c := range m.contacts {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) Insert(ctx context.Context, c Contact) (Contact, error) {
	m.nextID++
	c.ID = m.nextID
	m.contacts[c.ID] = c
	return c, nil
}

func (m *memoryStore) Delete(ctx context.Context, ownerID, id int64) (bool, error) {
	c, ok := m.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return false, ErrNotFound
	}
	delete(m.contacts, id)
	return c.IsPrimary, nil
}

func (m *memoryStore) SetPrimary(ctx context.Context, ownerID, id int64) error {
	target, ok := m.contacts[id]
	if !ok || target.OwnerID != ownerID {
		return ErrNotFound
	}
	for cid, c := range m.contacts {
		if c.OwnerID == ownerID {
			c.IsPrimary = cid == id
			m.contacts[cid] = c
		}
	}
	return nil
}

func (m *memoryStore) PromoteOldest(ctx context.Context, ownerID int64) error {
	list, _ := m.List(ctx, ownerID)
	if len(list) == 0 {
		return nil
	}
	oldest := list[0]
	for _, c := range list {
		if c.ID < oldest.ID {
			oldest = c
		}
	}
	oldest.IsPrimary = true
	m.contacts[oldest.ID] = oldest
	return nil
}

func primaries(t *testing.T, svc *Service, owner int64) []int64 {
	t.Helper()
	list, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	var ids []int64
	for _, c := range list {
		if c.IsPrimary {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func TestFirstContactBecomesPrimary(t *testing.T) {
	svc := NewService(&memoryStore{contacts: map[int64]Contact{}})
	ctx := context.Background()

	first, err := svc.Add(ctx, 1, Form{Name: "Ana"})
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)

	second, err := svc.Add(ctx, 1, Form{Name: "Ben", Email: "BEN@example.com"})
	require.NoError(t, err)
	assert.False(t, second.IsPrimary)
	assert.Equal(t, "ben@example.com", second.Email)
	assert.Equal(t, []int64{first.ID}, primaries(t, svc, 1))
}

func TestSinglePrimaryPerOwner(t *testing.T) {
	svc := NewService(&memoryStore{contacts: map[int64]Contact{}})
	ctx := context.Background()
	a, _ := svc.Add(ctx, 1, Form{Name: "Ana"})
	b, _ := svc.Add(ctx, 1, Form{Name: "Ben"})
	other, _ := svc.Add(ctx, 2, Form{Name: "Cid"})

	require.NoError(t, svc.MakePrimary(ctx, 1, b.ID))
	assert.Equal(t, []int64{b.ID}, primaries(t, svc, 1))
	assert.Equal(t, []int64{other.ID}, primaries(t, svc, 2))

	assert.ErrorIs(t, svc.MakePrimary(ctx, 2, a.ID), ErrNotFound)
}

func TestRemovePrimaryPromotesOldest(t *testing.T) {
	svc := NewService(&memoryStore{contacts: map[int64]Contact{}})
	ctx := context.Background()
	a, _ := svc.Add(ctx, 1, Form{Name: "Ana"})
	b, _ := svc.Add(ctx, 1, Form{Name: "Ben"})
	c, _ := svc.Add(ctx, 1, Form{Name: "Cid", IsPrimary: true})

	require.NoError(t, svc.Remove(ctx, 1, c.ID))
	assert.Equal(t, []int64{a.ID}, primaries(t, svc, 1))
	require.NoError(t, svc.Remove(ctx, 1, b.ID))
	assert.Equal(t, []int64{a.ID}, primaries(t, svc, 1))
}

func TestAddContactValidation(t *testing.T) {
	svc := NewService(&memoryStore{contacts: map[int64]Contact{}})
	_, err := svc.Add(context.Background(), 1, Form{Name: " ", Email: "bad"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

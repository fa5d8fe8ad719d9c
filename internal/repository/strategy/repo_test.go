package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/strata/internal/db"
	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
)

// --- Mocks ---

// mockStore is an in-memory hash+kv store.
type mockStore struct {
	hashes map[string]map[string]string
	kv     map[string][]byte

	hsetErr error
	getErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes: make(map[string]map[string]string),
		kv:     make(map[string][]byte),
	}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	m.hashes[key] = cp
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.hashes, key)
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func makeStrategy(t *testing.T, name string) domstrat.Strategy {
	t.Helper()
	s, err := domstrat.New(name, "test strategy", retrieval.DefaultConfig())
	if err != nil {
		t.Fatalf("strategy.New: %v", err)
	}
	return s
}

// --- Tests ---

func TestCreateGet_RoundTrip(t *testing.T) {
	repo := New(newMockStore())
	s := makeStrategy(t, "precision")

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.Get(context.Background(), s.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name() != "precision" {
		t.Errorf("expected name 'precision', got %q", got.Name())
	}
	if got.Config().TopK != retrieval.DefaultConfig().TopK {
		t.Errorf("configuration round-trip lost top_k: %d", got.Config().TopK)
	}
	if got.Config().Fallback == nil || len(got.Config().Fallback.RelaxationSteps) != 2 {
		t.Errorf("configuration round-trip lost the ladder: %+v", got.Config().Fallback)
	}
	if got.IsDefault() {
		t.Error("strategy should not be default without the pointer set")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo := New(newMockStore())
	s := makeStrategy(t, "dup")

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Create(context.Background(), s); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(newMockStore())
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_SortedByCreatedAt(t *testing.T) {
	repo := New(newMockStore())

	a := domstrat.Reconstruct("a", "older", "", retrieval.DefaultConfig(), false, 100, 100)
	b := domstrat.Reconstruct("b", "newer", "", retrieval.DefaultConfig(), false, 200, 200)
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 strategies, got %d", len(list))
	}
	if list[0].ID() != "a" || list[1].ID() != "b" {
		t.Errorf("expected [a b] by created_at, got [%s %s]", list[0].ID(), list[1].ID())
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := New(newMockStore())
	s := makeStrategy(t, "ghost")
	if err := repo.Update(context.Background(), s); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := New(newMockStore())
	s := makeStrategy(t, "gone")

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), s.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Get(context.Background(), s.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetDefault_Flip(t *testing.T) {
	repo := New(newMockStore())
	first := makeStrategy(t, "first")
	second := makeStrategy(t, "second")
	for _, s := range []domstrat.Strategy{first, second} {
		if err := repo.Create(context.Background(), s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := repo.SetDefault(context.Background(), first.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := repo.GetDefault(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID() != first.ID() || !got.IsDefault() {
		t.Errorf("expected first as default, got %s (default=%v)", got.ID(), got.IsDefault())
	}

	// Flipping is atomic: exactly one default at any time.
	if err := repo.SetDefault(context.Background(), second.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defaults := 0
	for i := range list {
		if list[i].IsDefault() {
			defaults++
			if list[i].ID() != second.ID() {
				t.Errorf("wrong strategy carries the default flag: %s", list[i].ID())
			}
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly one default, got %d", defaults)
	}
}

func TestSetDefault_MissingStrategy(t *testing.T) {
	repo := New(newMockStore())
	if err := repo.SetDefault(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDefault_Unset(t *testing.T) {
	repo := New(newMockStore())
	if _, err := repo.GetDefault(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no default pointer, got %v", err)
	}
}

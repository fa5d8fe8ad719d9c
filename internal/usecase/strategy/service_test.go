package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
)

// --- Mocks ---

type mockRepo struct {
	strategies map[string]domstrat.Strategy
	defaultID  string
}

func newMockRepo() *mockRepo {
	return &mockRepo{strategies: map[string]domstrat.Strategy{}}
}

func (m *mockRepo) Create(_ context.Context, s domstrat.Strategy) error {
	if _, ok := m.strategies[s.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	m.strategies[s.ID()] = s
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domstrat.Strategy, error) {
	s, ok := m.strategies[id]
	if !ok {
		return domstrat.Strategy{}, domain.ErrNotFound
	}
	return s.WithDefault(id == m.defaultID), nil
}

func (m *mockRepo) List(_ context.Context) ([]domstrat.Strategy, error) {
	out := make([]domstrat.Strategy, 0, len(m.strategies))
	for id, s := range m.strategies {
		out = append(out, s.WithDefault(id == m.defaultID))
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, s domstrat.Strategy) error {
	if _, ok := m.strategies[s.ID()]; !ok {
		return domain.ErrNotFound
	}
	m.strategies[s.ID()] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.strategies[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.strategies, id)
	return nil
}

func (m *mockRepo) GetDefault(ctx context.Context) (domstrat.Strategy, error) {
	if m.defaultID == "" {
		return domstrat.Strategy{}, domain.ErrNotFound
	}
	return m.Get(ctx, m.defaultID)
}

func (m *mockRepo) SetDefault(_ context.Context, id string) error {
	if _, ok := m.strategies[id]; !ok {
		return domain.ErrNotFound
	}
	m.defaultID = id
	return nil
}

func newService(repo Repository) *Service {
	return New(repo, retrieval.DefaultPolicy())
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

// --- Tests ---

func TestCreate_OverlaysDefaults(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, err := svc.Create(context.Background(), "precise", "high precision", retrieval.ConfigPatch{
		MinScore: floatPtr(0.9),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cfg := strat.Config()
	if cfg.MinScore != 0.9 {
		t.Errorf("expected patched min_score 0.9, got %v", cfg.MinScore)
	}
	if cfg.TopK != retrieval.DefaultConfig().TopK {
		t.Errorf("unpatched fields must come from defaults, got top_k=%d", cfg.TopK)
	}
	if cfg.Fallback == nil || len(cfg.Fallback.RelaxationSteps) != 2 {
		t.Error("expected default relaxation ladder on unpatched fallback")
	}
	if strat.IsDefault() {
		t.Error("new strategies must not be default implicitly")
	}
}

func TestCreate_InvalidConfigRejected(t *testing.T) {
	svc := newService(newMockRepo())

	_, err := svc.Create(context.Background(), "bad", "", retrieval.ConfigPatch{
		TopK: intPtr(0),
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	var verr *retrieval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "top_k" {
		t.Errorf("unexpected field errors: %+v", verr.Fields)
	}
}

func TestCreate_EmptyNameRejected(t *testing.T) {
	svc := newService(newMockRepo())

	_, err := svc.Create(context.Background(), "", "", retrieval.ConfigPatch{})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestUpdate_MergesOntoStoredConfig(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, err := svc.Create(context.Background(), "tuned", "", retrieval.ConfigPatch{
		TopK:     intPtr(25),
		MinScore: floatPtr(0.8),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), strat.ID(), nil, nil, retrieval.ConfigPatch{
		MinScore: floatPtr(0.6),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	cfg := updated.Config()
	if cfg.MinScore != 0.6 {
		t.Errorf("expected updated min_score 0.6, got %v", cfg.MinScore)
	}
	if cfg.TopK != 25 {
		t.Errorf("update must merge onto stored config, got top_k=%d", cfg.TopK)
	}
}

func TestUpdate_RenameOnly(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, err := svc.Create(context.Background(), "old-name", "", retrieval.ConfigPatch{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), strat.ID(), strPtr("new-name"), nil, retrieval.ConfigPatch{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name() != "new-name" {
		t.Errorf("expected renamed strategy, got %q", updated.Name())
	}
	if updated.Config().TopK != strat.Config().TopK {
		t.Error("config must be untouched by a rename")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newService(newMockRepo())

	_, err := svc.Update(context.Background(), "missing", nil, nil, retrieval.ConfigPatch{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_DefaultRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, err := svc.Create(context.Background(), "main", "", retrieval.ConfigPatch{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.SetDefault(context.Background(), strat.ID()); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	err = svc.Delete(context.Background(), strat.ID())
	if !errors.Is(err, domain.ErrDefaultStrategy) {
		t.Fatalf("expected ErrDefaultStrategy, got %v", err)
	}
}

func TestDelete_NonDefault(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, err := svc.Create(context.Background(), "disposable", "", retrieval.ConfigPatch{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), strat.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), strat.ID()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetDefault_FlipsAtomically(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	a, _ := svc.Create(context.Background(), "a", "", retrieval.ConfigPatch{})
	b, _ := svc.Create(context.Background(), "b", "", retrieval.ConfigPatch{})

	if _, err := svc.SetDefault(context.Background(), a.ID()); err != nil {
		t.Fatalf("SetDefault a: %v", err)
	}
	flipped, err := svc.SetDefault(context.Background(), b.ID())
	if err != nil {
		t.Fatalf("SetDefault b: %v", err)
	}
	if !flipped.IsDefault() {
		t.Error("expected b to be default after flip")
	}

	all, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	defaults := 0
	for i := range all {
		if all[i].IsDefault() {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly one default after flip, got %d", defaults)
	}
}

func TestSetDefault_MissingStrategy(t *testing.T) {
	svc := newService(newMockRepo())

	_, err := svc.SetDefault(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDefault_FallsBackToBuiltin(t *testing.T) {
	svc := newService(newMockRepo())

	strat, err := svc.GetDefault(context.Background())
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if strat.ID() != BuiltinDefaultID {
		t.Errorf("expected built-in default, got %q", strat.ID())
	}
	if !strat.IsDefault() {
		t.Error("built-in default must carry the default flag")
	}
	if errs := retrieval.Validate(strat.Config(), retrieval.DefaultPolicy()); len(errs) != 0 {
		t.Errorf("built-in default config must validate, got %+v", errs)
	}
}

func TestGetDefault_ReturnsStoredDefault(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, _ := svc.Create(context.Background(), "chosen", "", retrieval.ConfigPatch{})
	if _, err := svc.SetDefault(context.Background(), strat.ID()); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}

	got, err := svc.GetDefault(context.Background())
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if got.ID() != strat.ID() {
		t.Errorf("expected stored default %q, got %q", strat.ID(), got.ID())
	}
}

func TestResolveConfig(t *testing.T) {
	repo := newMockRepo()
	svc := newService(repo)

	strat, _ := svc.Create(context.Background(), "wide", "", retrieval.ConfigPatch{
		TopK: intPtr(50),
	})

	cfg, err := svc.ResolveConfig(context.Background(), strat.ID())
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if cfg.TopK != 50 {
		t.Errorf("expected named strategy config, got top_k=%d", cfg.TopK)
	}

	cfg, err = svc.ResolveConfig(context.Background(), "")
	if err != nil {
		t.Fatalf("ResolveConfig default: %v", err)
	}
	if cfg.TopK != retrieval.DefaultConfig().TopK {
		t.Errorf("expected built-in default config, got top_k=%d", cfg.TopK)
	}

	if _, err := svc.ResolveConfig(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

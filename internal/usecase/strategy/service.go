package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
)

// BuiltinDefaultID identifies the synthetic strategy served when no stored
// strategy carries the default flag.
const BuiltinDefaultID = "default"

// Service handles the retrieval strategy lifecycle.
type Service struct {
	repo   Repository
	policy retrieval.Policy
}

// New creates a strategy service.
func New(repo Repository, policy retrieval.Policy) *Service {
	return &Service{repo: repo, policy: policy}
}

// Create builds a strategy by overlaying the patch on the built-in default
// configuration, validates the merged result, and persists it.
func (s *Service) Create(
	ctx context.Context, name, description string, patch retrieval.ConfigPatch,
) (domstrat.Strategy, error) {
	cfg := retrieval.Merge(retrieval.DefaultConfig(), patch)
	if err := retrieval.ValidateStrict(cfg, s.policy); err != nil {
		return domstrat.Strategy{}, err
	}

	strat, err := domstrat.New(name, description, cfg)
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	if err := s.repo.Create(ctx, strat); err != nil {
		return domstrat.Strategy{}, fmt.Errorf("create strategy: %w", err)
	}
	return strat, nil
}

// Get returns a strategy by id.
func (s *Service) Get(ctx context.Context, id string) (domstrat.Strategy, error) {
	strat, err := s.repo.Get(ctx, id)
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("get strategy: %w", err)
	}
	return strat, nil
}

// List returns all stored strategies.
func (s *Service) List(ctx context.Context) ([]domstrat.Strategy, error) {
	strats, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	return strats, nil
}

// Update overlays the patch on the STORED configuration (not the built-in
// default), validates the merged result, and persists it.
func (s *Service) Update(
	ctx context.Context, id string, name, description *string, patch retrieval.ConfigPatch,
) (domstrat.Strategy, error) {
	stored, err := s.repo.Get(ctx, id)
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("get strategy: %w", err)
	}

	var cfgPtr *retrieval.Config
	if !patch.IsEmpty() {
		cfg := retrieval.Merge(stored.Config(), patch)
		if err := retrieval.ValidateStrict(cfg, s.policy); err != nil {
			return domstrat.Strategy{}, err
		}
		cfgPtr = &cfg
	}

	updated, err := stored.WithUpdates(name, description, cfgPtr)
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return domstrat.Strategy{}, fmt.Errorf("update strategy: %w", err)
	}
	return updated, nil
}

// Delete removes a strategy. The current default cannot be deleted; callers
// must point the default elsewhere first.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.repo.GetDefault(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get default strategy: %w", err)
	}
	if err == nil && current.ID() == id {
		return fmt.Errorf("strategy %s is the default: %w", id, domain.ErrDefaultStrategy)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	return nil
}

// SetDefault marks the given strategy as the deployment default. The flip is
// atomic: the previous default loses the flag in the same operation.
func (s *Service) SetDefault(ctx context.Context, id string) (domstrat.Strategy, error) {
	if err := s.repo.SetDefault(ctx, id); err != nil {
		return domstrat.Strategy{}, fmt.Errorf("set default strategy: %w", err)
	}

	strat, err := s.repo.Get(ctx, id)
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("get strategy: %w", err)
	}
	return strat, nil
}

// GetDefault returns the deployment default strategy. When no stored strategy
// carries the flag, a synthetic strategy wrapping the built-in default
// configuration is returned so callers always have something to run with.
func (s *Service) GetDefault(ctx context.Context) (domstrat.Strategy, error) {
	strat, err := s.repo.GetDefault(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return builtinDefault(), nil
		}
		return domstrat.Strategy{}, fmt.Errorf("get default strategy: %w", err)
	}
	return strat, nil
}

// ResolveConfig returns the configuration to run a search with: the named
// strategy's when id is set, otherwise the default strategy's.
func (s *Service) ResolveConfig(ctx context.Context, id string) (retrieval.Config, error) {
	if id == "" {
		strat, err := s.GetDefault(ctx)
		if err != nil {
			return retrieval.Config{}, err
		}
		return strat.Config(), nil
	}

	strat, err := s.repo.Get(ctx, id)
	if err != nil {
		return retrieval.Config{}, fmt.Errorf("get strategy: %w", err)
	}
	return strat.Config(), nil
}

func builtinDefault() domstrat.Strategy {
	now := time.Now().UnixMilli()
	return domstrat.Reconstruct(
		BuiltinDefaultID,
		"default",
		"Built-in default retrieval strategy",
		retrieval.DefaultConfig(),
		true,
		now, now,
	)
}

// Package strategy persists retrieval strategies as Redis hashes.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/strata/internal/db"
	"github.com/kailas-cloud/strata/internal/domain"
	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
)

// store is the consumer interface for strategies (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/strategy.Repository.
type Repo struct {
	store store
}

// New creates a strategy repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new strategy. Fails with ErrAlreadyExists on id collision.
func (r *Repo) Create(ctx context.Context, s domstrat.Strategy) error {
	key := metaKey(s.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	hashData, err := strategyToHash(s)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, key, hashData); err != nil {
		return fmt.Errorf("hset strategy %s: %w", s.ID(), err)
	}
	return nil
}

// Get retrieves a strategy by id.
func (r *Repo) Get(ctx context.Context, id string) (domstrat.Strategy, error) {
	m, err := r.store.HGetAll(ctx, metaKey(id))
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("hgetall strategy %s: %w", id, err)
	}
	if len(m) == 0 {
		return domstrat.Strategy{}, domain.ErrNotFound
	}

	defaultID, err := r.defaultID(ctx)
	if err != nil {
		return domstrat.Strategy{}, err
	}
	return strategyFromHash(m, defaultID)
}

// List returns all strategies sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domstrat.Strategy, error) {
	keys, err := r.store.Scan(ctx, metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan strategies: %w", err)
	}
	if len(keys) == 0 {
		return []domstrat.Strategy{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi strategies: %w", err)
	}

	defaultID, err := r.defaultID(ctx)
	if err != nil {
		return nil, err
	}

	strategies := make([]domstrat.Strategy, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		s, err := strategyFromHash(m, defaultID)
		if err != nil {
			return nil, fmt.Errorf("parse strategy %s: %w", keys[i], err)
		}
		strategies = append(strategies, s)
	}

	sort.Slice(strategies, func(i, j int) bool {
		return strategies[i].CreatedAt() < strategies[j].CreatedAt()
	})

	return strategies, nil
}

// Update replaces a stored strategy.
func (r *Repo) Update(ctx context.Context, s domstrat.Strategy) error {
	key := metaKey(s.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	hashData, err := strategyToHash(s)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, key, hashData); err != nil {
		return fmt.Errorf("hset strategy %s: %w", s.ID(), err)
	}
	return nil
}

// Delete removes a strategy by id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := metaKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del strategy %s: %w", id, err)
	}
	return nil
}

// GetDefault returns the strategy the default pointer names.
// Returns ErrNotFound when no default is set.
func (r *Repo) GetDefault(ctx context.Context) (domstrat.Strategy, error) {
	id, err := r.defaultID(ctx)
	if err != nil {
		return domstrat.Strategy{}, err
	}
	if id == "" {
		return domstrat.Strategy{}, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

// SetDefault flips the default pointer to the given strategy id.
// The single pointer key makes the flip atomic: there is never a state with
// two defaults, and the previous default loses the flag implicitly.
func (r *Repo) SetDefault(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, metaKey(id))
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Set(ctx, defaultKey(), []byte(id)); err != nil {
		return fmt.Errorf("set default pointer: %w", err)
	}
	return nil
}

// defaultID reads the default pointer; empty when unset.
func (r *Repo) defaultID(ctx context.Context) (string, error) {
	data, err := r.store.Get(ctx, defaultKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get default pointer: %w", err)
	}
	return string(data), nil
}

// Redis key patterns: strata:strategy:{id}, strata:default_strategy.
// The default pointer lives outside the strategy:* prefix so Scan never
// picks it up as a strategy hash.

func metaKey(id string) string {
	return fmt.Sprintf("%sstrategy:%s", domain.KeyPrefix, id)
}

func defaultKey() string {
	return domain.KeyPrefix + "default_strategy"
}

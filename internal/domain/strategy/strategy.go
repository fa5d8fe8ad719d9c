// Package strategy defines the named, persisted retrieval strategy aggregate.
package strategy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/strata/internal/domain/retrieval"
)

// MaxNameLength bounds the strategy name.
const MaxNameLength = 128

// MaxDescriptionLength bounds the strategy description.
const MaxDescriptionLength = 1024

// Strategy is a named retrieval configuration (immutable value object).
// Exactly one strategy per deployment may carry the default flag; flipping
// it is the store's responsibility so the transition is atomic.
type Strategy struct {
	id          string
	name        string
	description string
	config      retrieval.Config
	isDefault   bool
	createdAt   int64
	updatedAt   int64
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("strategy name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("strategy name too long (max %d)", MaxNameLength)
	}
	return nil
}

// New validates and creates a Strategy with a fresh id and timestamps.
// The configuration is assumed already validated by the caller.
func New(name, description string, cfg retrieval.Config) (Strategy, error) {
	if err := validateName(name); err != nil {
		return Strategy{}, err
	}
	if len(description) > MaxDescriptionLength {
		return Strategy{}, fmt.Errorf("strategy description too long (max %d)", MaxDescriptionLength)
	}

	now := time.Now().UnixMilli()
	return Strategy{
		id:          uuid.NewString(),
		name:        name,
		description: description,
		config:      cfg.Clone(),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a Strategy from storage without validation.
func Reconstruct(
	id, name, description string,
	cfg retrieval.Config,
	isDefault bool,
	createdAt, updatedAt int64,
) Strategy {
	return Strategy{
		id:          id,
		name:        name,
		description: description,
		config:      cfg,
		isDefault:   isDefault,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// WithUpdates returns a copy with the given fields replaced and updatedAt
// refreshed. Nil arguments keep the stored value.
func (s Strategy) WithUpdates(name, description *string, cfg *retrieval.Config) (Strategy, error) {
	out := s
	if name != nil {
		if err := validateName(*name); err != nil {
			return Strategy{}, err
		}
		out.name = *name
	}
	if description != nil {
		if len(*description) > MaxDescriptionLength {
			return Strategy{}, fmt.Errorf("strategy description too long (max %d)", MaxDescriptionLength)
		}
		out.description = *description
	}
	if cfg != nil {
		out.config = cfg.Clone()
	}
	out.updatedAt = time.Now().UnixMilli()
	return out, nil
}

// WithDefault returns a copy with the default flag set.
func (s Strategy) WithDefault(isDefault bool) Strategy {
	out := s
	out.isDefault = isDefault
	return out
}

// ID returns the strategy identifier.
func (s *Strategy) ID() string { return s.id }

// Name returns the strategy name.
func (s *Strategy) Name() string { return s.name }

// Description returns the strategy description.
func (s *Strategy) Description() string { return s.description }

// Config returns the retrieval configuration.
func (s *Strategy) Config() retrieval.Config { return s.config }

// IsDefault reports whether this strategy is the deployment default.
func (s *Strategy) IsDefault() bool { return s.isDefault }

// CreatedAt returns the creation time in Unix milliseconds.
func (s *Strategy) CreatedAt() int64 { return s.createdAt }

// UpdatedAt returns the last update time in Unix milliseconds.
func (s *Strategy) UpdatedAt() int64 { return s.updatedAt }

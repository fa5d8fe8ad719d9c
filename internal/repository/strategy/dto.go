package strategy

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	domstrat "github.com/kailas-cloud/strata/internal/domain/strategy"
)

// strategyToHash converts a domain Strategy to a map for HSET.
// The configuration is stored as a single JSON column; its shape is the
// same wire shape the transport exposes.
func strategyToHash(s domstrat.Strategy) (map[string]string, error) {
	cfgJSON, err := json.Marshal(s.Config())
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}
	return map[string]string{
		"id":            s.ID(),
		"name":          s.Name(),
		"description":   s.Description(),
		"configuration": string(cfgJSON),
		"created_at":    strconv.FormatInt(s.CreatedAt(), 10),
		"updated_at":    strconv.FormatInt(s.UpdatedAt(), 10),
	}, nil
}

// strategyFromHash hydrates a domain Strategy from an HGETALL result map.
// The default flag is derived from the default pointer, not stored per row.
func strategyFromHash(m map[string]string, defaultID string) (domstrat.Strategy, error) {
	id := m["id"]

	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domstrat.Strategy{}, fmt.Errorf("invalid created_at: %w", err)
	}

	updatedAt := createdAt
	if s, ok := m["updated_at"]; ok && s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			updatedAt = parsed
		}
	}

	var cfg retrieval.Config
	if cfgJSON := m["configuration"]; cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
			return domstrat.Strategy{}, fmt.Errorf("unmarshal configuration: %w", err)
		}
	} else {
		cfg = retrieval.DefaultConfig()
	}

	return domstrat.Reconstruct(
		id, m["name"], m["description"], cfg,
		id != "" && id == defaultID,
		createdAt, updatedAt,
	), nil
}

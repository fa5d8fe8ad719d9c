package strata

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const strategiesPath = "/api/v1/retrieval-strategies"

// builtinDefaultID is the id the service reports for the built-in default
// strategy when no stored strategy has been promoted.
const builtinDefaultID = "default"

// Strategy is a named retrieval configuration.
type Strategy struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Configuration Config    `json:"configuration"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StrategyList is a page of strategies.
type StrategyList struct {
	Items []Strategy `json:"items"`
	Total int        `json:"total"`
}

// CreateStrategyRequest creates a strategy. Configuration is a partial
// override merged onto the built-in defaults by the service.
type CreateStrategyRequest struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Configuration ConfigPatch `json:"configuration"`
}

// UpdateStrategyRequest updates a strategy. Nil fields stay untouched;
// Configuration is merged onto the stored configuration.
type UpdateStrategyRequest struct {
	Name          *string     `json:"name"`
	Description   *string     `json:"description"`
	Configuration ConfigPatch `json:"configuration"`
}

// CreateStrategy creates a new retrieval strategy.
func (c *Client) CreateStrategy(ctx context.Context, req CreateStrategyRequest) (Strategy, error) {
	var s Strategy
	err := c.do(ctx, http.MethodPost, strategiesPath, req, &s)
	return s, err
}

// ListStrategies returns all stored strategies.
func (c *Client) ListStrategies(ctx context.Context) (StrategyList, error) {
	var list StrategyList
	err := c.do(ctx, http.MethodGet, strategiesPath, nil, &list)
	return list, err
}

// GetStrategy returns the strategy with the given id.
func (c *Client) GetStrategy(ctx context.Context, id string) (Strategy, error) {
	var s Strategy
	err := c.do(ctx, http.MethodGet, strategiesPath+"/"+url.PathEscape(id), nil, &s)
	return s, err
}

// GetDefaultStrategy returns the current default strategy. When the service
// cannot be reached or returns an error, it degrades to the built-in default
// instead of failing, so callers always have a usable configuration.
func (c *Client) GetDefaultStrategy(ctx context.Context) (Strategy, error) {
	var s Strategy
	if err := c.do(ctx, http.MethodGet, strategiesPath+"/default", nil, &s); err != nil {
		c.warn("default strategy fetch failed, using built-in default", "error", err)
		return builtinDefaultStrategy(), nil
	}
	return s, nil
}

// UpdateStrategy applies a partial update to the strategy with the given id.
func (c *Client) UpdateStrategy(ctx context.Context, id string, req UpdateStrategyRequest) (Strategy, error) {
	var s Strategy
	err := c.do(ctx, http.MethodPatch, strategiesPath+"/"+url.PathEscape(id), req, &s)
	return s, err
}

// DeleteStrategy removes the strategy with the given id. Deleting the
// current default fails with ErrDefaultStrategy.
func (c *Client) DeleteStrategy(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, strategiesPath+"/"+url.PathEscape(id), nil, nil)
}

// SetDefaultStrategy promotes the strategy with the given id to default.
// The previous default is demoted in the same operation.
func (c *Client) SetDefaultStrategy(ctx context.Context, id string) (Strategy, error) {
	var s Strategy
	err := c.do(ctx, http.MethodPost, strategiesPath+"/"+url.PathEscape(id)+"/set-default", nil, &s)
	return s, err
}

func builtinDefaultStrategy() Strategy {
	now := time.Now().UTC()
	return Strategy{
		ID:            builtinDefaultID,
		Name:          "default",
		Description:   "Built-in default retrieval strategy",
		Configuration: DefaultConfig(),
		IsDefault:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

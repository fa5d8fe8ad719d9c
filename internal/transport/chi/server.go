package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/strata/internal/domain"
	"github.com/kailas-cloud/strata/internal/domain/retrieval"
	healthuc "github.com/kailas-cloud/strata/internal/usecase/health"
	searchuc "github.com/kailas-cloud/strata/internal/usecase/search"
	strategyuc "github.com/kailas-cloud/strata/internal/usecase/strategy"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the retrieval strategy resource and search execution over HTTP.
type Server struct {
	strategies    *strategyuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	policy        retrieval.Policy
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	strategies *strategyuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	policy retrieval.Policy,
	logger *zap.Logger,
) *Server {
	s := &Server{
		strategies: strategies,
		search:     search,
		health:     health,
		policy:     policy,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		validationFailureHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeStrategyNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeStrategyAlreadyExists),
		sentinelHandler(domain.ErrDefaultStrategy, http.StatusConflict, codeDefaultStrategyConflict),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrExpansionProviderError, http.StatusBadGateway, codeExpansionProviderError),
		sentinelHandler(domain.ErrKeywordSearchNotSupported,
			http.StatusNotImplemented, codeKeywordSearchNotSupported),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/retrieval-strategies", func(r chi.Router) {
			r.Post("/", s.CreateStrategy)
			r.Get("/", s.ListStrategies)
			r.Get("/default", s.GetDefaultStrategy)
			r.Get("/{id}", s.GetStrategy)
			r.Patch("/{id}", s.UpdateStrategy)
			r.Delete("/{id}", s.DeleteStrategy)
			r.Post("/{id}/set-default", s.SetDefaultStrategy)
		})
		r.Post("/search", s.Search)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// CreateStrategy handles POST /retrieval-strategies. The partial
// configuration is merged onto the built-in defaults before validation.
func (s *Server) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	strat, err := s.strategies.Create(r.Context(), req.Name, req.Description, req.Configuration)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/retrieval-strategies/"+strat.ID())
	writeJSON(w, http.StatusCreated, strategyToResponse(&strat))
}

// ListStrategies handles GET /retrieval-strategies.
func (s *Server) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strats, err := s.strategies.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]StrategyResponse, len(strats))
	for i := range strats {
		items[i] = strategyToResponse(&strats[i])
	}

	writeJSON(w, http.StatusOK, StrategyListResponse{Items: items, Total: len(items)})
}

// GetStrategy handles GET /retrieval-strategies/{id}.
func (s *Server) GetStrategy(w http.ResponseWriter, r *http.Request) {
	strat, err := s.strategies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, strategyToResponse(&strat))
}

// GetDefaultStrategy handles GET /retrieval-strategies/default. Always
// returns a usable strategy: the built-in default when none is stored.
func (s *Server) GetDefaultStrategy(w http.ResponseWriter, r *http.Request) {
	strat, err := s.strategies.GetDefault(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, strategyToResponse(&strat))
}

// UpdateStrategy handles PATCH /retrieval-strategies/{id}. The partial
// configuration is merged onto the STORED configuration, not onto defaults.
func (s *Server) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	var req UpdateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	strat, err := s.strategies.Update(
		r.Context(), chi.URLParam(r, "id"), req.Name, req.Description, req.Configuration,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, strategyToResponse(&strat))
}

// DeleteStrategy handles DELETE /retrieval-strategies/{id}.
func (s *Server) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	if err := s.strategies.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultStrategy handles POST /retrieval-strategies/{id}/set-default.
func (s *Server) SetDefaultStrategy(w http.ResponseWriter, r *http.Request) {
	strat, err := s.strategies.SetDefault(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, strategyToResponse(&strat))
}

// Search handles POST /search: resolves the strategy configuration, applies
// the per-request override, and executes the ladder walk.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	cfg, err := s.strategies.ResolveConfig(r.Context(), req.StrategyID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if req.Configuration != nil && !req.Configuration.IsEmpty() {
		cfg = retrieval.Merge(cfg, *req.Configuration)
		if err := retrieval.ValidateStrict(cfg, s.policy); err != nil {
			s.handleDomainError(w, err)
			return
		}
	}

	resp, err := s.search.Search(r.Context(), req.Query, cfg)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = resultToItem(&resp.Results[i])
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items: items,
		Total: len(items),
		Trace: resp.Trace,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidConfig,
		domain.ErrDefaultStrategy,
		domain.ErrEmbeddingProviderError,
		domain.ErrExpansionProviderError,
		domain.ErrKeywordSearchNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationFailureHandler renders ErrInvalidConfig as 400 with the full
// per-field error list, so every offending input surfaces at once.
func validationFailureHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidConfig) {
		return false
	}
	var verr *retrieval.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    codeValidationFailed,
			Message: msg,
			Errors:  verr.Fields,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

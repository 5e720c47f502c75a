package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"docchat-service/internal/ai"
	"docchat-service/internal/logger"
	"docchat-service/internal/telemetry"
	"docchat-service/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errRegistryClosed = errors.New("registry closed")

// ChunkSource produces the chunks of a tenant's documents.
type ChunkSource interface {
	Load(ctx context.Context, tenantID string) ([]models.Chunk, error)
}

// RegistryDeps are the collaborators shared by every tenant pipeline.
type RegistryDeps struct {
	Loader   ChunkSource
	Embedder ai.Embedder
	Model    ai.LanguageModel
	Store    IndexStore
	Metrics  *telemetry.Metrics
}

// RegistryOptions tune session behaviour.
type RegistryOptions struct {
	// MaxHistoryTurns keeps only the latest turns of a session. Zero keeps all.
	MaxHistoryTurns int
}

// pipeline is the per-tenant chain run by Chat.
type pipeline struct {
	tenantID  string
	rewriter  *QueryRewriter
	retriever *Retriever
	composer  *AnswerComposer
}

// Session is the conversation state of one loaded tenant.
type Session struct {
	pipeline *pipeline
	requests atomic.Int64

	mu    sync.RWMutex
	turns []models.Turn
}

func (s *Session) history() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]models.Turn, len(s.turns))
	copy(turns, s.turns)
	return turns
}

func (s *Session) appendTurn(turn models.Turn, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	if max > 0 && len(s.turns) > max {
		s.turns = append([]models.Turn(nil), s.turns[len(s.turns)-max:]...)
	}
}

// tenantSlot serialises Load and Chat for one tenant.
type tenantSlot struct {
	mu      sync.Mutex
	session atomic.Pointer[Session]
}

// Registry maps tenants to their loaded sessions.
type Registry struct {
	loader    ChunkSource
	builder   *IndexBuilder
	rewriter  *QueryRewriter
	retriever *Retriever
	composer  *AnswerComposer
	store     IndexStore
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	maxTurns  int

	mu     sync.Mutex
	slots  map[string]*tenantSlot
	closed bool
}

// NewRegistry creates an empty registry.
func NewRegistry(deps RegistryDeps, opts RegistryOptions) *Registry {
	return &Registry{
		loader:    deps.Loader,
		builder:   NewIndexBuilder(deps.Embedder, deps.Store, deps.Metrics),
		rewriter:  NewQueryRewriter(deps.Model),
		retriever: NewRetriever(deps.Embedder, deps.Store),
		composer:  NewAnswerComposer(deps.Model),
		store:     deps.Store,
		metrics:   deps.Metrics,
		tracer:    otel.Tracer("docchat-service/services"),
		maxTurns:  opts.MaxHistoryTurns,
		slots:     make(map[string]*tenantSlot),
	}
}

// slot returns the tenant's slot, creating it when create is set.
func (r *Registry) slot(tenantID string, create bool) (*tenantSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRegistryClosed
	}
	s, ok := r.slots[tenantID]
	if !ok && create {
		s = &tenantSlot{}
		r.slots[tenantID] = s
	}
	return s, nil
}

// session returns the tenant's current session or nil.
func (r *Registry) session(tenantID string) (*Session, error) {
	s, err := r.slot(tenantID, false)
	if err != nil || s == nil {
		return nil, err
	}
	return s.session.Load(), nil
}

// Load indexes the tenant's documents if needed and starts a fresh
// session. A failed load leaves the previous session in place.
func (r *Registry) Load(ctx context.Context, tenantID string) (result *models.LoadResult, err error) {
	ctx, span := r.tracer.Start(ctx, "registry.Load", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer func() { endSpan(span, err) }()

	if err := models.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	s, err := r.slot(tenantID, true)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := r.loader.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	built, err := r.builder.EnsureIndex(ctx, tenantID, chunks)
	if err != nil {
		return nil, err
	}

	s.session.Store(&Session{
		pipeline: &pipeline{
			tenantID:  tenantID,
			rewriter:  r.rewriter,
			retriever: r.retriever,
			composer:  r.composer,
		},
	})

	logger.Info("Tenant loaded", "tenant_id", tenantID, "chunks", len(chunks), "index_built", built)
	return &models.LoadResult{TenantID: tenantID, Chunks: len(chunks), IndexBuilt: built}, nil
}

// Chat answers message against the tenant's documents and records the turn.
func (r *Registry) Chat(ctx context.Context, tenantID, message string) (result *models.ChatResult, err error) {
	ctx, span := r.tracer.Start(ctx, "registry.Chat", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer func() {
		endSpan(span, err)
		r.metrics.RecordChat(ctx, tenantID, chatOutcome(err))
	}()

	if err := models.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	s, err := r.slot(tenantID, false)
	if err != nil {
		return nil, err
	}
	if s == nil || s.session.Load() == nil {
		return nil, fmt.Errorf("%w: tenant %s", models.ErrNotLoaded, tenantID)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is empty", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session.Load()
	session.requests.Add(1)
	p := session.pipeline
	history := session.history()

	query, err := p.rewriter.Rewrite(ctx, history, message)
	if err != nil {
		return nil, fmt.Errorf("rewriting query: %w", err)
	}

	chunks, err := p.retriever.Retrieve(ctx, p.tenantID, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	answer, err := p.composer.Answer(ctx, query, chunks, history)
	if err != nil {
		return nil, fmt.Errorf("composing answer: %w", err)
	}

	session.appendTurn(models.Turn{Message: message, Answer: answer}, r.maxTurns)

	return &models.ChatResult{Answer: answer, StandaloneQuery: query, Sources: chunks}, nil
}

// Analytics returns the number of chat requests since the last load.
func (r *Registry) Analytics(tenantID string) (int64, error) {
	session, err := r.session(tenantID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, fmt.Errorf("%w: tenant %s", models.ErrNotFound, tenantID)
	}
	return session.requests.Load(), nil
}

// History returns a copy of the tenant's turns, oldest first.
func (r *Registry) History(tenantID string) ([]models.Turn, error) {
	session, err := r.session(tenantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: tenant %s", models.ErrNotFound, tenantID)
	}
	return session.history(), nil
}

// Close drops every session and releases the index store.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.slots = nil
	r.mu.Unlock()

	return r.store.Close()
}

func chatOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrNotLoaded):
		return "not_loaded"
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid"
	case models.IsUpstream(err):
		return "upstream_error"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

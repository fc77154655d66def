package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/conversation"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
)

// DefaultK is the number of fragments retrieved when a request names none.
const DefaultK = 5

// Request is one question to the assistant.
type Request struct {
	Session    string // conversation key; empty means no history
	Question   string
	Department string // defaults to DefaultDepartment
	K          int    // defaults to the pipeline's k
	Strategy   string // stuff (default) or refine

	// ApprovedOnly restricts sources to approved documents.
	ApprovedOnly bool

	// Raw answers without department framing or conversation history.
	Raw bool
}

// Response is a buffered answer.
type Response struct {
	Answer     string
	Department string
	Sources    []*core.SearchResult
	Elapsed    time.Duration // zero when no index exists
	Degraded   bool          // answer is a canned rate-limit fallback
}

// Pipeline answers questions from the indexed documents.
type Pipeline struct {
	retriever     Retriever
	generator     ai.Generator
	transcriber   ai.Transcriber
	synthesizer   ai.Synthesizer
	conversations *conversation.Store
	engines       *EngineCache
	institution   string
	defaultK      int
	monitor       Monitor
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithInstitution names the college answers are restricted to.
func WithInstitution(name string) Option {
	return func(p *Pipeline) error {
		if strings.TrimSpace(name) != "" {
			p.institution = name
		}
		return nil
	}
}

// WithDefaultK sets the number of fragments retrieved by default.
func WithDefaultK(k int) Option {
	return func(p *Pipeline) error {
		if k < 1 {
			return fmt.Errorf("%w: %d", search.ErrInvalidK, k)
		}
		p.defaultK = k
		return nil
	}
}

// WithMonitor sets the answer monitor.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an answer pipeline.
func NewPipeline(provider ai.AIProvider, retriever Retriever, conversations *conversation.Store, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if conversations == nil {
		return nil, ErrConversationRequired
	}

	p := &Pipeline{
		retriever:     retriever,
		generator:     provider.Generator(),
		transcriber:   provider.Transcriber(),
		synthesizer:   provider.Synthesizer(),
		conversations: conversations,
		institution:   DefaultInstitution,
		defaultK:      DefaultK,
		monitor:       noopMonitor{},
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.engines = NewEngineCache(retriever, p.generator)
	p.logger = p.logger.With("component", "answer")

	return p, nil
}

// Engines returns the query engine cache.
func (p *Pipeline) Engines() *EngineCache {
	return p.engines
}

// Conversations returns the conversation store.
func (p *Pipeline) Conversations() *conversation.Store {
	return p.conversations
}

// prepared is a validated request bound to its engine.
type prepared struct {
	Request
	engine *QueryEngine
}

func (p *Pipeline) prepare(req Request) (*prepared, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, ErrEmptyQuestion
	}
	if strings.TrimSpace(req.Department) == "" {
		req.Department = DefaultDepartment
	}
	if req.K < 1 {
		req.K = p.defaultK
	}
	engine, err := p.engines.GetOrCreate(req.K, req.Strategy)
	if err != nil {
		return nil, err
	}
	return &prepared{Request: req, engine: engine}, nil
}

func (p *Pipeline) systemPrompt(req *prepared) string {
	if req.Raw {
		return queryPrompt
	}
	return systemPrompt(p.institution, req.Department, p.transcript(req))
}

// transcript renders the session history followed by the question being
// answered, which is only stored once an answer exists.
func (p *Pipeline) transcript(req *prepared) string {
	if !p.conversational(req) {
		return ""
	}
	current := fmt.Sprintf("%s: %s", core.RoleStudent.Label(), req.Question)
	history := p.conversations.Render(req.Session)
	if history == "" {
		return current
	}
	return history + "\n" + current
}

func (p *Pipeline) conversational(req *prepared) bool {
	return !req.Raw && req.Session != ""
}

func (p *Pipeline) remember(req *prepared, reply string) {
	if p.conversational(req) {
		p.conversations.AppendExchange(req.Session, req.Question, reply)
	}
}

// Answer retrieves, generates and returns a complete answer.
func (p *Pipeline) Answer(ctx context.Context, request Request) (*Response, error) {
	req, err := p.prepare(request)
	if err != nil {
		return nil, err
	}

	ready, err := p.retriever.Ready(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return p.guidance(req), nil
	}

	start := time.Now()

	results, err := req.engine.Retrieve(ctx, req.Question, search.RetrieveOptions{ApprovedOnly: req.ApprovedOnly})
	if errors.Is(err, core.ErrIndexUnavailable) {
		return p.guidance(req), nil
	}
	if err != nil {
		p.monitor.Failed(err)
		return nil, err
	}

	text, err := req.engine.Generate(ctx, p.systemPrompt(req), req.Question, results, nil)
	response := &Response{Department: req.Department}
	switch {
	case err == nil:
		response.Answer = text
		response.Sources = results
	case ai.IsRateLimit(err):
		response.Answer = fallbackAnswer(req.Question, req.Department)
		response.Degraded = true
		p.logger.Warn("generation degraded", "err", fmt.Errorf("%w: %w", core.ErrGenerationDegraded, err))
	default:
		err = fmt.Errorf("%w: %w", core.ErrGenerationFailure, err)
		p.logger.Error("generation failed", "err", err)
		p.monitor.Failed(err)
		return nil, err
	}

	p.remember(req, response.Answer)
	response.Elapsed = time.Since(start)
	p.monitor.Answered(string(req.engine.Strategy()), len(response.Sources), response.Degraded, response.Elapsed)
	return response, nil
}

func (p *Pipeline) guidance(req *prepared) *Response {
	p.logger.Info("no index available, returning guidance")
	return &Response{
		Answer:     noIndexGuidance(req.Question, req.Department),
		Department: req.Department,
		Sources:    []*core.SearchResult{},
	}
}

// Stream answers incrementally. Validation errors are returned directly;
// everything after that is reported through the events, which always end
// with EventDone unless ctx is cancelled first.
func (p *Pipeline) Stream(ctx context.Context, request Request) (<-chan Event, error) {
	req, err := p.prepare(request)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		p.produce(ctx, req, func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return events, nil
}

func (p *Pipeline) produce(ctx context.Context, req *prepared, emit func(Event) bool) {
	fail := func(err error) {
		p.monitor.Failed(err)
		if emit(Event{Type: EventError, Message: err.Error()}) {
			emit(Event{Type: EventDone})
		}
	}

	if !emit(Event{Type: EventStatus, Message: StatusSearching}) {
		return
	}

	ready, err := p.retriever.Ready(ctx)
	if err != nil {
		fail(err)
		return
	}
	if !ready {
		if emit(Event{Type: EventToken, Text: p.guidance(req).Answer}) {
			emit(Event{Type: EventDone})
		}
		return
	}

	start := time.Now()

	results, err := req.engine.Retrieve(ctx, req.Question, search.RetrieveOptions{ApprovedOnly: req.ApprovedOnly})
	if err != nil {
		fail(err)
		return
	}
	for _, r := range results {
		if !emit(Event{Type: EventDoc, Source: r.Fragment.Source, Preview: search.Snippet(r.Fragment.Text, previewLength)}) {
			return
		}
	}
	if !emit(Event{Type: EventStatus, Message: StatusGenerating}) {
		return
	}

	errCancelled := errors.New("stream cancelled")
	text, err := req.engine.Generate(ctx, p.systemPrompt(req), req.Question, results, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if !emit(Event{Type: EventToken, Text: chunk}) {
			return errCancelled
		}
		return nil
	})
	degraded := false
	switch {
	case err == nil:
	case errors.Is(err, errCancelled) || ctx.Err() != nil:
		p.logger.Debug("stream cancelled by caller", "session", req.Session)
		return
	case ai.IsRateLimit(err):
		degraded = true
		text = fallbackAnswer(req.Question, req.Department)
		p.logger.Warn("generation degraded", "err", fmt.Errorf("%w: %w", core.ErrGenerationDegraded, err))
		if !emit(Event{Type: EventToken, Text: text}) {
			return
		}
	default:
		err = fmt.Errorf("%w: %w", core.ErrGenerationFailure, err)
		p.logger.Error("generation failed", "err", err)
		fail(err)
		return
	}

	p.remember(req, text)
	sources := len(results)
	if degraded {
		sources = 0
	}
	p.monitor.Answered(string(req.engine.Strategy()), sources, degraded, time.Since(start))
	emit(Event{Type: EventDone})
}

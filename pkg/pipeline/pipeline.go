// Package pipeline sequences skill selection for one user prompt: cache
// lookup, intent analysis on a miss, confidence classification, session
// filtration, promotion, affinity expansion, and state persistence. Every
// failure along the way degrades rather than terminates; the user always
// gets a selection result.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/skillgate/skillgate/pkg/affinity"
	"github.com/skillgate/skillgate/pkg/banner"
	"github.com/skillgate/skillgate/pkg/catalog"
	"github.com/skillgate/skillgate/pkg/classify"
	"github.com/skillgate/skillgate/pkg/intent"
	"github.com/skillgate/skillgate/pkg/intent/cache"
	"github.com/skillgate/skillgate/pkg/logger"
	"github.com/skillgate/skillgate/pkg/session"
)

const (
	// DefaultAnalysisTimeout bounds the one network call in the pipeline.
	DefaultAnalysisTimeout = 200 * time.Millisecond
	// DefaultMaxDirect is the per-turn budget for direct injections
	// (required plus promoted). Affinity additions are free.
	DefaultMaxDirect = 3
)

// CacheStore is the cache dependency; satisfied by cache.Store and by
// in-memory fakes in tests.
type CacheStore interface {
	Get(ctx context.Context, key string) *intent.Result
	Put(key string, result *intent.Result) error
}

// SessionStore is the session state dependency; satisfied by session.Store.
type SessionStore interface {
	Acknowledged(ctx context.Context, sessionID string) (map[string]bool, error)
	Record(ctx context.Context, sessionID, skillID string, injectionType session.InjectionType, confidence *float64) error
}

// Config tunes one orchestrator instance.
type Config struct {
	AnalysisTimeout time.Duration
	MaxDirect       int
}

// Orchestrator owns one pipeline configuration: the loaded catalog and the
// injected store and provider handles, living for the process lifetime.
type Orchestrator struct {
	catalog  *catalog.Catalog
	provider intent.Provider // nil when AI analysis is disabled
	fallback intent.Provider
	cache    CacheStore
	sessions SessionStore
	expander *affinity.Expander
	cfg      Config
}

// New wires an orchestrator. provider may be nil to disable AI analysis
// entirely, in which case the keyword scorer is used directly.
func New(cat *catalog.Catalog, provider intent.Provider, cacheStore CacheStore, sessions SessionStore, cfg Config) *Orchestrator {
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if cfg.MaxDirect <= 0 {
		cfg.MaxDirect = DefaultMaxDirect
	}
	return &Orchestrator{
		catalog:  cat,
		provider: provider,
		fallback: intent.NewKeywordProvider(),
		cache:    cacheStore,
		sessions: sessions,
		expander: affinity.NewExpander(),
		cfg:      cfg,
	}
}

// InjectedSkill is one skill selected for injection, with provenance.
type InjectedSkill struct {
	ID            string
	InjectionType session.InjectionType
	Confidence    *float64
}

// Result is the pipeline's final answer for one prompt.
type Result struct {
	Injected      []InjectedSkill
	AlreadyLoaded []string
	Suggested     []InjectedSkill
	Method        banner.Method
	PrimaryIntent string
	CacheHit      bool
}

// Selection converts the result into the formatter's input.
func (r *Result) Selection() banner.Selection {
	sel := banner.Selection{
		AlreadyLoaded: r.AlreadyLoaded,
		Method:        r.Method,
	}
	for _, s := range r.Injected {
		sel.Injected = append(sel.Injected, toItem(s))
	}
	for _, s := range r.Suggested {
		sel.Suggested = append(sel.Suggested, toItem(s))
	}
	return sel
}

func toItem(s InjectedSkill) banner.Item {
	item := banner.Item{ID: s.ID, InjectionType: string(s.InjectionType)}
	if s.Confidence != nil {
		item.Confidence = *s.Confidence
		item.HasConfidence = true
	}
	return item
}

// Run executes the pipeline for one prompt. It never fails: provider
// errors fall back to keyword scoring, cache errors degrade to
// always-compute, session read errors degrade to "nothing acknowledged
// yet", and session write errors affect only future-turn deduplication.
func (o *Orchestrator) Run(ctx context.Context, sessionID, prompt string) *Result {
	log := logger.G(ctx).WithField("session_id", sessionID)

	analysis, method, cacheHit := o.analyze(ctx, prompt)

	required, suggested := classify.Classify(analysis)

	acked, err := o.sessions.Acknowledged(ctx, sessionID)
	if err != nil {
		// Over-injection is safe; silent under-injection is not.
		log.WithError(err).Warn("failed to read session state, assuming nothing acknowledged")
		acked = map[string]bool{}
	}

	var alreadyLoaded []string
	required, suggested, alreadyLoaded = filterAcknowledged(required, suggested, acked)

	promoted, remaining := classify.Promote(required, suggested, analysis.Scores, o.cfg.MaxDirect)

	directSet := append(append([]string{}, required...), promoted...)
	expanded := o.expander.Expand(directSet, acked, o.catalog)

	// A skill pulled in through affinity is injected, not suggested.
	remaining = subtract(remaining, expanded)

	result := &Result{
		AlreadyLoaded: alreadyLoaded,
		Method:        method,
		PrimaryIntent: analysis.PrimaryIntent,
		CacheHit:      cacheHit,
	}
	for _, id := range required {
		result.Injected = append(result.Injected, InjectedSkill{
			ID:            id,
			InjectionType: session.InjectionDirect,
			Confidence:    scoreOf(analysis, id),
		})
	}
	for _, id := range promoted {
		result.Injected = append(result.Injected, InjectedSkill{
			ID:            id,
			InjectionType: session.InjectionPromoted,
			Confidence:    scoreOf(analysis, id),
		})
	}
	for _, id := range expanded {
		result.Injected = append(result.Injected, InjectedSkill{
			ID:            id,
			InjectionType: session.InjectionAffinity,
			Confidence:    scoreOf(analysis, id),
		})
	}
	for _, id := range remaining {
		result.Suggested = append(result.Suggested, InjectedSkill{
			ID:         id,
			Confidence: scoreOf(analysis, id),
		})
	}

	// Persist before the banner is handed off, so a crash between here and
	// display cannot re-record skills on retry.
	for _, s := range result.Injected {
		if err := o.sessions.Record(ctx, sessionID, s.ID, s.InjectionType, s.Confidence); err != nil {
			log.WithError(err).WithField("skill", s.ID).Warn("failed to persist acknowledged skill")
		}
	}

	return result
}

// analyze resolves the intent analysis: cache first, then the configured
// provider under the bounded timeout, then the keyword fallback.
func (o *Orchestrator) analyze(ctx context.Context, prompt string) (*intent.Result, banner.Method, bool) {
	log := logger.G(ctx)

	// With AI disabled the keyword scorer always runs: cached AI results
	// must not leak through a toggle meant to bypass them.
	if o.provider == nil {
		result, _ := o.fallback.Analyze(ctx, prompt, o.catalog)
		return result, banner.MethodKeyword, false
	}

	key := cache.Key(prompt, o.catalog.Hash())
	if cached := o.cache.Get(ctx, key); cached != nil {
		return cached, banner.MethodCached, true
	}

	analysisCtx, cancel := context.WithTimeout(ctx, o.cfg.AnalysisTimeout)
	defer cancel()

	result, err := o.provider.Analyze(analysisCtx, prompt, o.catalog)
	if err != nil {
		log.WithError(err).WithField("provider", o.provider.Name()).
			Warn("intent analysis failed, falling back to keyword matching")
		fallbackResult, _ := o.fallback.Analyze(ctx, prompt, o.catalog)
		return fallbackResult, banner.MethodFallback, false
	}

	// Only complete successful analyses are cached; fallback results are
	// recomputable and must not mask a recovered provider.
	if err := o.cache.Put(key, result); err != nil {
		log.WithError(err).Debug("failed to write intent cache entry")
	}

	return result, banner.MethodAI, false
}

// filterAcknowledged removes acknowledged skills from both sets and
// reports them separately.
func filterAcknowledged(required, suggested []string, acked map[string]bool) (req, sug, already []string) {
	for _, id := range required {
		if acked[id] {
			already = append(already, id)
		} else {
			req = append(req, id)
		}
	}
	for _, id := range suggested {
		if acked[id] {
			already = append(already, id)
		} else {
			sug = append(sug, id)
		}
	}
	sort.Strings(already)
	return req, sug, already
}

func subtract(ids, remove []string) []string {
	if len(remove) == 0 {
		return ids
	}
	removeSet := make(map[string]bool, len(remove))
	for _, id := range remove {
		removeSet[id] = true
	}
	var out []string
	for _, id := range ids {
		if !removeSet[id] {
			out = append(out, id)
		}
	}
	return out
}

func scoreOf(analysis *intent.Result, id string) *float64 {
	if score, ok := analysis.Scores[id]; ok {
		s := score
		return &s
	}
	return nil
}

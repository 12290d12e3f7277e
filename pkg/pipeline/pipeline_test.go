package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/skillgate/skillgate/pkg/banner"
	"github.com/skillgate/skillgate/pkg/catalog"
	"github.com/skillgate/skillgate/pkg/intent"
	"github.com/skillgate/skillgate/pkg/intent/cache"
	"github.com/skillgate/skillgate/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	result     *intent.Result
	err        error
	calls      int
	waitForCtx bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Analyze(ctx context.Context, _ string, _ *catalog.Catalog) (*intent.Result, error) {
	p.calls++
	if p.waitForCtx {
		<-ctx.Done()
		return nil, intent.NewProviderError(intent.ErrTimeout, ctx.Err())
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type memCache struct {
	entries map[string]*intent.Result
	putErr  error
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*intent.Result)}
}

func (c *memCache) Get(_ context.Context, key string) *intent.Result {
	return c.entries[key]
}

func (c *memCache) Put(key string, result *intent.Result) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.puts++
	c.entries[key] = result
	return nil
}

type memSessions struct {
	records   map[string]map[string]session.InjectionType
	ackErr    error
	recordErr error
}

func newMemSessions() *memSessions {
	return &memSessions{records: make(map[string]map[string]session.InjectionType)}
}

func (s *memSessions) Acknowledged(_ context.Context, sessionID string) (map[string]bool, error) {
	if s.ackErr != nil {
		return nil, s.ackErr
	}
	acked := make(map[string]bool)
	for id := range s.records[sessionID] {
		acked[id] = true
	}
	return acked, nil
}

func (s *memSessions) Record(_ context.Context, sessionID, skillID string, injectionType session.InjectionType, _ *float64) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	if s.records[sessionID] == nil {
		s.records[sessionID] = make(map[string]session.InjectionType)
	}
	if _, exists := s.records[sessionID][skillID]; !exists {
		s.records[sessionID][skillID] = injectionType
	}
	return nil
}

func testCatalog() *catalog.Catalog {
	return catalog.New("1.0", map[string]*catalog.Skill{
		"python-style": {
			Description: "Python style guidance",
			Keywords:    []string{"python"},
			AutoInject:  true,
		},
		"frontend": {
			Description: "Frontend guidance",
			Keywords:    []string{"frontend"},
			Affinity:    []string{"backend"},
			AutoInject:  true,
		},
		"backend": {
			Description: "Backend guidance",
			Keywords:    []string{"backend"},
			AutoInject:  true,
		},
		"docs-style": {
			Description: "Documentation guidance",
			Keywords:    []string{"docs"},
			AutoInject:  true,
		},
	})
}

func injectedIDs(result *Result) map[string]session.InjectionType {
	out := make(map[string]session.InjectionType)
	for _, s := range result.Injected {
		out[s.ID] = s.InjectionType
	}
	return out
}

func TestRun_AIPath(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		PrimaryIntent: "python work",
		Scores:        map[string]float64{"python-style": 0.9, "docs-style": 0.55},
	}}
	cacheStore := newMemCache()
	sessions := newMemSessions()
	o := New(testCatalog(), provider, cacheStore, sessions, Config{MaxDirect: 1})

	result := o.Run(context.Background(), "s1", "help me write a Python function")

	assert.Equal(t, banner.MethodAI, result.Method)
	assert.False(t, result.CacheHit)
	assert.Equal(t, map[string]session.InjectionType{"python-style": session.InjectionDirect}, injectedIDs(result))
	require.Len(t, result.Suggested, 1)
	assert.Equal(t, "docs-style", result.Suggested[0].ID)
	assert.Equal(t, 1, cacheStore.puts, "successful analysis is cached")
	assert.Equal(t, session.InjectionDirect, sessions.records["s1"]["python-style"])
}

func TestRun_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		PrimaryIntent: "python work",
		Scores:        map[string]float64{"python-style": 0.9},
	}}
	cacheStore := newMemCache()
	o := New(testCatalog(), provider, cacheStore, newMemSessions(), Config{})

	prompt := "help me write a Python function"
	first := o.Run(context.Background(), "s1", prompt)
	require.Equal(t, 1, provider.calls)
	assert.Equal(t, banner.MethodAI, first.Method)

	second := o.Run(context.Background(), "s2", prompt)
	assert.Equal(t, 1, provider.calls, "second identical call must not invoke the provider")
	assert.True(t, second.CacheHit)
	assert.Equal(t, banner.MethodCached, second.Method)
	assert.Equal(t, injectedIDs(first), injectedIDs(second))
}

func TestRun_ProviderTimeoutFallsBack(t *testing.T) {
	provider := &fakeProvider{waitForCtx: true}
	cacheStore := newMemCache()
	o := New(testCatalog(), provider, cacheStore, newMemSessions(), Config{AnalysisTimeout: 30 * time.Millisecond})

	start := time.Now()
	result := o.Run(context.Background(), "s1", "build the backend API")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "fallback must not block past the timeout bound")
	assert.Equal(t, banner.MethodFallback, result.Method)
	assert.Equal(t, map[string]session.InjectionType{"backend": session.InjectionDirect}, injectedIDs(result))
	assert.Zero(t, cacheStore.puts, "fallback results are never cached")
}

func TestRun_ProviderErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{err: intent.NewProviderError(intent.ErrServiceUnavailable, assert.AnError)}
	o := New(testCatalog(), provider, newMemCache(), newMemSessions(), Config{})

	result := o.Run(context.Background(), "s1", "python please")

	assert.Equal(t, banner.MethodFallback, result.Method)
	assert.Contains(t, injectedIDs(result), "python-style")
}

func TestRun_AIDisabledUsesKeyword(t *testing.T) {
	o := New(testCatalog(), nil, newMemCache(), newMemSessions(), Config{})

	result := o.Run(context.Background(), "s1", "python please")

	assert.Equal(t, banner.MethodKeyword, result.Method)
	assert.Contains(t, injectedIDs(result), "python-style")
}

func TestRun_AIDisabledIgnoresCachedAIResult(t *testing.T) {
	cat := testCatalog()
	cacheStore := newMemCache()
	prompt := "python please"
	cacheStore.entries[cache.Key(prompt, cat.Hash())] = &intent.Result{
		PrimaryIntent: "stale AI analysis",
		Scores:        map[string]float64{"docs-style": 0.9},
	}

	o := New(cat, nil, cacheStore, newMemSessions(), Config{})
	result := o.Run(context.Background(), "s1", prompt)

	assert.Equal(t, banner.MethodKeyword, result.Method)
	assert.False(t, result.CacheHit)
	assert.Contains(t, injectedIDs(result), "python-style")
	assert.NotContains(t, injectedIDs(result), "docs-style")
}

func TestRun_SessionFiltration(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"python-style": 0.9, "docs-style": 0.8},
	}}
	sessions := newMemSessions()
	require.NoError(t, sessions.Record(context.Background(), "s1", "python-style", session.InjectionDirect, nil))

	o := New(testCatalog(), provider, newMemCache(), sessions, Config{})
	result := o.Run(context.Background(), "s1", "python and docs")

	assert.Equal(t, []string{"python-style"}, result.AlreadyLoaded)
	assert.Equal(t, map[string]session.InjectionType{"docs-style": session.InjectionDirect}, injectedIDs(result))
}

func TestRun_AffinityFreeBonus(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"frontend": 0.9},
	}}
	sessions := newMemSessions()
	// MaxDirect 1 is already consumed by frontend; backend still rides along.
	o := New(testCatalog(), provider, newMemCache(), sessions, Config{MaxDirect: 1})

	result := o.Run(context.Background(), "s1", "frontend work")

	assert.Equal(t, map[string]session.InjectionType{
		"frontend": session.InjectionDirect,
		"backend":  session.InjectionAffinity,
	}, injectedIDs(result))
	assert.Equal(t, session.InjectionAffinity, sessions.records["s1"]["backend"])
}

func TestRun_AffinityAbsorbsSuggested(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"frontend": 0.9, "backend": 0.55},
	}}
	// backend stays suggested with MaxDirect 1, but frontend's affinity
	// edge injects it anyway.
	o := New(testCatalog(), provider, newMemCache(), newMemSessions(), Config{MaxDirect: 1})

	result := o.Run(context.Background(), "s1", "frontend work")

	assert.Equal(t, map[string]session.InjectionType{
		"frontend": session.InjectionDirect,
		"backend":  session.InjectionAffinity,
	}, injectedIDs(result))
	assert.Empty(t, result.Suggested)
}

func TestRun_Promotion(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"python-style": 0.9, "docs-style": 0.6},
	}}
	sessions := newMemSessions()
	o := New(testCatalog(), provider, newMemCache(), sessions, Config{MaxDirect: 2})

	result := o.Run(context.Background(), "s1", "python with docs")

	assert.Equal(t, map[string]session.InjectionType{
		"python-style": session.InjectionDirect,
		"docs-style":   session.InjectionPromoted,
	}, injectedIDs(result))
	assert.Empty(t, result.Suggested)
	assert.Equal(t, session.InjectionPromoted, sessions.records["s1"]["docs-style"])
}

func TestRun_SessionReadErrorDegradesToEmpty(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"python-style": 0.9},
	}}
	sessions := newMemSessions()
	sessions.ackErr = assert.AnError

	o := New(testCatalog(), provider, newMemCache(), sessions, Config{})
	result := o.Run(context.Background(), "s1", "python")

	// Over-injection beats silent under-injection.
	assert.Contains(t, injectedIDs(result), "python-style")
	assert.Empty(t, result.AlreadyLoaded)
}

func TestRun_SessionWriteErrorStillReturnsResult(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"python-style": 0.9},
	}}
	sessions := newMemSessions()
	sessions.recordErr = assert.AnError

	o := New(testCatalog(), provider, newMemCache(), sessions, Config{})
	result := o.Run(context.Background(), "s1", "python")

	assert.Contains(t, injectedIDs(result), "python-style")
}

func TestRun_CacheWriteErrorIsNonFatal(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		Scores: map[string]float64{"python-style": 0.9},
	}}
	cacheStore := newMemCache()
	cacheStore.putErr = assert.AnError

	o := New(testCatalog(), provider, cacheStore, newMemSessions(), Config{})
	result := o.Run(context.Background(), "s1", "python")

	assert.Equal(t, banner.MethodAI, result.Method)
	assert.Contains(t, injectedIDs(result), "python-style")
}

func TestRun_WithRealFileCache(t *testing.T) {
	provider := &fakeProvider{result: &intent.Result{
		PrimaryIntent: "python work",
		Scores:        map[string]float64{"python-style": 0.9},
	}}
	cacheStore := cache.NewStore(t.TempDir(), time.Hour)
	o := New(testCatalog(), provider, cacheStore, newMemSessions(), Config{})

	prompt := "help me write a Python function"
	o.Run(context.Background(), "s1", prompt)
	second := o.Run(context.Background(), "s2", prompt)

	assert.Equal(t, 1, provider.calls)
	assert.True(t, second.CacheHit)
}

func TestSelection_Conversion(t *testing.T) {
	conf := 0.82
	result := &Result{
		Injected: []InjectedSkill{
			{ID: "frontend", InjectionType: session.InjectionDirect, Confidence: &conf},
			{ID: "backend", InjectionType: session.InjectionAffinity},
		},
		AlreadyLoaded: []string{"python-style"},
		Suggested:     []InjectedSkill{{ID: "docs-style", Confidence: &conf}},
		Method:        banner.MethodAI,
	}

	sel := result.Selection()
	require.Len(t, sel.Injected, 2)
	assert.Equal(t, "frontend", sel.Injected[0].ID)
	assert.True(t, sel.Injected[0].HasConfidence)
	assert.Equal(t, 0.82, sel.Injected[0].Confidence)
	assert.Equal(t, "affinity", sel.Injected[1].InjectionType)
	assert.False(t, sel.Injected[1].HasConfidence)
	assert.Equal(t, []string{"python-style"}, sel.AlreadyLoaded)
	assert.Equal(t, banner.MethodAI, sel.Method)
}

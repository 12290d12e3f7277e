package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(skills map[string]*Skill) *Catalog {
	return New("1.0", skills)
}

func TestMatchesPrompt_KeywordCaseInsensitive(t *testing.T) {
	cat := testCatalog(map[string]*Skill{
		"backend-dev": {
			Keywords:   []string{"backend", "API"},
			AutoInject: true,
		},
	})

	s := cat.Get("backend-dev")
	require.NotNil(t, s)

	assert.True(t, s.MatchesPrompt("create a backend service"))
	assert.True(t, s.MatchesPrompt("BUILD AN API ENDPOINT"))
	assert.True(t, s.MatchesPrompt("Add Backend logic"))
	assert.False(t, s.MatchesPrompt("frontend component"))
}

func TestMatchesPrompt_IntentPatterns(t *testing.T) {
	cat := testCatalog(map[string]*Skill{
		"routing": {
			IntentPatterns: []string{`(?i)create.*controller`, `(?i)add.*route`},
			AutoInject:     true,
		},
	})

	s := cat.Get("routing")
	assert.True(t, s.MatchesPrompt("create a new controller"))
	assert.True(t, s.MatchesPrompt("CREATE USER CONTROLLER"))
	assert.True(t, s.MatchesPrompt("add a new route for users"))
	assert.False(t, s.MatchesPrompt("delete a component"))
}

func TestCompileTriggers_SkipsInvalidPatterns(t *testing.T) {
	cat := testCatalog(map[string]*Skill{
		"x": {
			IntentPatterns: []string{`(?i)valid.*pattern`, `[invalid(`, `(?i)another.*valid`},
		},
	})

	s := cat.Get("x")
	assert.Len(t, s.intentRegexps, 2)
	assert.True(t, s.MatchesPrompt("a valid test pattern"))
}

func TestHash_StableAcrossIdenticalCatalogs(t *testing.T) {
	build := func() *Catalog {
		return testCatalog(map[string]*Skill{
			"a": {Description: "first", Keywords: []string{"one"}, AutoInject: true},
			"b": {Description: "second", Affinity: []string{"a"}, AutoInject: true},
		})
	}

	assert.Equal(t, build().Hash(), build().Hash())
}

func TestHash_ChangesOnAnyEdit(t *testing.T) {
	base := testCatalog(map[string]*Skill{
		"a": {Description: "first", Keywords: []string{"one"}, AutoInject: true},
	})

	edited := testCatalog(map[string]*Skill{
		"a": {Description: "first updated", Keywords: []string{"one"}, AutoInject: true},
	})
	assert.NotEqual(t, base.Hash(), edited.Hash())

	flagFlipped := testCatalog(map[string]*Skill{
		"a": {Description: "first", Keywords: []string{"one"}, AutoInject: false},
	})
	assert.NotEqual(t, base.Hash(), flagFlipped.Hash())

	extraSkill := testCatalog(map[string]*Skill{
		"a": {Description: "first", Keywords: []string{"one"}, AutoInject: true},
		"b": {Description: "second", AutoInject: true},
	})
	assert.NotEqual(t, base.Hash(), extraSkill.Hash())
}

func TestIDs_Sorted(t *testing.T) {
	cat := testCatalog(map[string]*Skill{
		"zeta": {}, "alpha": {}, "mid": {},
	})
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, cat.IDs())
}

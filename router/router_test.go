package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRouter() *Router {
	return New([]Assistant{
		{NamespaceID: "kamiq", TriggerKeywords: []string{"kamiq"}},
		{NamespaceID: "fabia", TriggerKeywords: []string{"fabia"}},
		{NamespaceID: "scala", TriggerKeywords: []string{"scala"}},
	}, zap.NewNop())
}

func TestRouteKeywordSelectsNamespace(t *testing.T) {
	r := newTestRouter()

	d := r.Route("u1", "does the kamiq have a sunroof")
	assert.True(t, d.Selected)
	assert.True(t, d.Pinned)
	assert.Equal(t, "kamiq", d.NamespaceID)
}

func TestRouteStickyWithoutKeyword(t *testing.T) {
	r := newTestRouter()

	r.Route("u1", "tell me about the fabia")

	d := r.Route("u1", "what colors are available")
	assert.True(t, d.Selected)
	assert.False(t, d.Pinned)
	assert.Equal(t, "fabia", d.NamespaceID)
}

func TestRouteLastExplicitMentionWins(t *testing.T) {
	r := newTestRouter()

	r.Route("u1", "tell me about the fabia")
	d := r.Route("u1", "and the scala?")
	assert.Equal(t, "scala", d.NamespaceID)
	assert.True(t, d.Pinned)

	d = r.Route("u1", "how much is it")
	assert.Equal(t, "scala", d.NamespaceID)
	assert.False(t, d.Pinned)
}

func TestRouteNoSelection(t *testing.T) {
	r := newTestRouter()

	d := r.Route("u1", "hello there")
	assert.False(t, d.Selected)
	assert.Empty(t, d.NamespaceID)
}

func TestRouteFirstMatchInDeclarationOrder(t *testing.T) {
	r := newTestRouter()

	// Both kamiq and scala appear: the table order decides, every time.
	for i := 0; i < 20; i++ {
		d := r.Route("u2", "compare scala and kamiq")
		assert.Equal(t, "kamiq", d.NamespaceID)
	}
}

func TestRouteUsersAreIndependent(t *testing.T) {
	r := newTestRouter()

	r.Route("u1", "kamiq please")
	d := r.Route("u2", "anything")
	assert.False(t, d.Selected)
}

func TestReassign(t *testing.T) {
	r := newTestRouter()

	r.Route("u1", "kamiq please")
	r.Reassign("u1", "scala")

	d := r.Route("u1", "what about the engine")
	assert.Equal(t, "scala", d.NamespaceID)
}

func TestNamespaceForKeyword(t *testing.T) {
	r := newTestRouter()

	ns, ok := r.NamespaceForKeyword("Scala")
	assert.True(t, ok)
	assert.Equal(t, "scala", ns)

	_, ok = r.NamespaceForKeyword("unknown")
	assert.False(t, ok)
}

func TestNotePendingResolvesOnNextKeywordlessQuery(t *testing.T) {
	r := newTestRouter()

	r.Route("u1", "tell me about the kamiq")
	r.NotePending("u1", []string{"fabia", "scala"})

	// The next keyword-less query resolves to the first candidate and
	// consumes them all.
	d := r.Route("u1", "what about the boot capacity")
	assert.True(t, d.Selected)
	assert.False(t, d.Pinned)
	assert.Equal(t, "fabia", d.NamespaceID)

	d = r.Route("u1", "and the fuel economy")
	assert.Equal(t, "fabia", d.NamespaceID)
}

func TestNotePendingDiscardedByKeyword(t *testing.T) {
	r := newTestRouter()

	r.Route("u1", "tell me about the kamiq")
	r.NotePending("u1", []string{"fabia", "scala"})

	d := r.Route("u1", "actually, the scala please")
	assert.Equal(t, "scala", d.NamespaceID)
	assert.True(t, d.Pinned)

	d = r.Route("u1", "how much is it")
	assert.Equal(t, "scala", d.NamespaceID)
}

func TestRouteConcurrent(t *testing.T) {
	r := newTestRouter()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Route("u1", "kamiq sunroof")
				r.Route("u1", "followup question")
			}
		}()
	}
	wg.Wait()

	d := r.Route("u1", "last one")
	assert.Equal(t, "kamiq", d.NamespaceID)
}

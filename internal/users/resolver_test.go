package users

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/itsmig/internal/store"
	"github.com/lherron/itsmig/internal/target"
	"github.com/lherron/itsmig/internal/testutil"
)

const surrogateName = "Migration Surrogate"

func seededStore(t *testing.T, users ...store.User) *store.Store {
	t.Helper()
	return testutil.TempStore(t, &store.Catalog{
		Users: append([]store.User{{UserName: "svc-migration", DisplayName: surrogateName}}, users...),
	})
}

func warnings(hook *test.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

func TestResolveExactMatch(t *testing.T) {
	s := seededStore(t, store.User{UserName: "jsmith", DisplayName: "Smith, John"})
	logger, hook := test.NewNullLogger()
	r := NewResolver(s, logger)

	res := r.Resolve(context.Background(), "Smith, John", surrogateName, "IR42", "AffectedUser")

	assert.Equal(t, Matched, res.Outcome)
	assert.True(t, res.OK())
	assert.Equal(t, "jsmith", res.User.ID)
	assert.Empty(t, hook.AllEntries())
}

func TestResolveMissingUsesSurrogate(t *testing.T) {
	s := seededStore(t, store.User{UserName: "jsmyth", DisplayName: "Smith, Johnny"})
	logger, hook := test.NewNullLogger()
	r := NewResolver(s, logger)

	res := r.Resolve(context.Background(), "Smith, John", surrogateName, "IR42", "AffectedUser")

	assert.Equal(t, Surrogate, res.Outcome)
	assert.Equal(t, "svc-migration", res.User.ID)
	assert.Empty(t, warnings(hook))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Smith, John", entry.Data["user"])
	assert.Equal(t, "Smith, Johnny", entry.Data["similar"])
}

func TestResolveEmptyNameUsesSurrogate(t *testing.T) {
	s := seededStore(t)
	logger, hook := test.NewNullLogger()
	r := NewResolver(s, logger)

	res := r.Resolve(context.Background(), "  ", surrogateName, "IR42", "AssignedTo")

	assert.Equal(t, Surrogate, res.Outcome)
	assert.Empty(t, hook.AllEntries())
}

func TestResolveAmbiguousAssignsNobody(t *testing.T) {
	s := seededStore(t,
		store.User{UserName: "jsmith", Domain: "EU", DisplayName: "Smith, John"},
		store.User{UserName: "jsmith", Domain: "US", DisplayName: "Smith, John"},
	)
	logger, hook := test.NewNullLogger()
	r := NewResolver(s, logger)

	res := r.Resolve(context.Background(), "Smith, John", surrogateName, "IR42", "AffectedUser")

	assert.Equal(t, Ambiguous, res.Outcome)
	assert.False(t, res.OK())

	warns := warnings(hook)
	require.Len(t, warns, 1)
	assert.Equal(t, "IR42", warns[0].Data["entity"])
	assert.Equal(t, "AffectedUser", warns[0].Data["role"])
	assert.Equal(t, 2, warns[0].Data["matches"])
}

func TestResolveUnresolvableSurrogate(t *testing.T) {
	s := seededStore(t)
	logger, hook := test.NewNullLogger()
	r := NewResolver(s, logger)

	res := r.Resolve(context.Background(), "Nobody", "No Such Surrogate", "SR7", "AssignedTo")

	assert.Equal(t, Unresolved, res.Outcome)
	assert.False(t, res.OK())
	require.Len(t, warnings(hook), 1)

	_, ok := r.Check(context.Background(), "No Such Surrogate")
	assert.False(t, ok)
	ref, ok := r.Check(context.Background(), surrogateName)
	assert.True(t, ok)
	assert.Equal(t, "svc-migration", ref.ID)
}

// flakySystem fails lookups for one name and delegates the rest.
type flakySystem struct {
	target.System
	failing string
	calls   map[string]int
}

func (f *flakySystem) FindUsers(ctx context.Context, name string) ([]target.ObjectRef, error) {
	f.calls[name]++
	if name == f.failing {
		return nil, errors.New("directory unavailable")
	}
	return f.System.FindUsers(ctx, name)
}

func TestResolveLookupErrorUsesSurrogateAndCaches(t *testing.T) {
	sys := &flakySystem{System: seededStore(t), failing: "Smith, John", calls: map[string]int{}}
	logger, _ := test.NewNullLogger()
	r := NewResolver(sys, logger)

	for i := 0; i < 3; i++ {
		res := r.Resolve(context.Background(), "Smith, John", surrogateName, "IR42", "AffectedUser")
		assert.Equal(t, Surrogate, res.Outcome)
	}

	assert.Equal(t, 3, sys.calls["Smith, John"], "errors are not cached")
	assert.Equal(t, 1, sys.calls[surrogateName], "successful lookups are cached")
}

// Package users resolves legacy user display names to target users,
// falling back to a surrogate user when a name cannot be found.
package users

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/lherron/itsmig/internal/target"
)

// Outcome classifies how a name was resolved.
type Outcome int

const (
	// Matched means exactly one user had the name.
	Matched Outcome = iota
	// Surrogate means the name was empty, missing or failed to look up and
	// the surrogate user was used instead.
	Surrogate
	// Ambiguous means several users share the name; no user is assigned.
	Ambiguous
	// Unresolved means the surrogate itself did not resolve to one user.
	Unresolved
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Surrogate:
		return "surrogate"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unresolved"
	}
}

// Resolution is the result of resolving one name.
type Resolution struct {
	User    target.ObjectRef
	Outcome Outcome
}

// OK reports whether a user should be related.
func (r Resolution) OK() bool {
	return r.Outcome == Matched || r.Outcome == Surrogate
}

// Resolver looks users up by display name. Lookups are cached for the
// lifetime of the Resolver, which is one phase.
type Resolver struct {
	sys   target.System
	log   logrus.FieldLogger
	cache map[string]lookup
	names []string
}

type lookup struct {
	users []target.ObjectRef
	err   error
}

// NewResolver creates a Resolver over sys.
func NewResolver(sys target.System, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		sys:   sys,
		log:   log,
		cache: map[string]lookup{},
	}
}

// Resolve finds the user for name. Zero matches or a lookup error fall back
// to surrogate. More than one match assigns nobody and logs a warning naming
// entity and role (e.g. "IR42", "AffectedUser").
func (r *Resolver) Resolve(ctx context.Context, name, surrogate, entity, role string) Resolution {
	log := r.log.WithFields(logrus.Fields{
		"entity": entity,
		"role":   role,
	})

	name = strings.TrimSpace(name)
	if name != "" {
		found := r.find(ctx, name)
		switch {
		case found.err == nil && len(found.users) == 1:
			return Resolution{User: found.users[0], Outcome: Matched}
		case found.err == nil && len(found.users) > 1:
			log.WithFields(logrus.Fields{
				"user":    name,
				"matches": len(found.users),
			}).Warn("ambiguous user name, leaving relationship unset")
			return Resolution{Outcome: Ambiguous}
		}

		entry := log.WithField("user", name)
		if found.err != nil {
			entry = entry.WithError(found.err)
		}
		if similar := r.suggest(ctx, name); len(similar) > 0 {
			entry = entry.WithField("similar", strings.Join(similar, "; "))
		}
		entry.WithField("surrogate", surrogate).Info("user not found, using surrogate")
	}

	sur := r.find(ctx, strings.TrimSpace(surrogate))
	if sur.err != nil || len(sur.users) != 1 {
		entry := log.WithFields(logrus.Fields{
			"surrogate": surrogate,
			"matches":   len(sur.users),
		})
		if sur.err != nil {
			entry = entry.WithError(sur.err)
		}
		entry.Warn("surrogate user does not resolve to exactly one user, leaving relationship unset")
		return Resolution{Outcome: Unresolved}
	}
	return Resolution{User: sur.users[0], Outcome: Surrogate}
}

// Check verifies that surrogate resolves to exactly one user.
func (r *Resolver) Check(ctx context.Context, surrogate string) (target.ObjectRef, bool) {
	found := r.find(ctx, strings.TrimSpace(surrogate))
	if found.err != nil || len(found.users) != 1 {
		return target.ObjectRef{}, false
	}
	return found.users[0], true
}

func (r *Resolver) find(ctx context.Context, name string) lookup {
	if name == "" {
		return lookup{}
	}
	if cached, ok := r.cache[name]; ok {
		return cached
	}
	users, err := r.sys.FindUsers(ctx, name)
	result := lookup{users: users, err: err}
	// Errors are not cached so a transient failure can recover.
	if err == nil {
		r.cache[name] = result
	}
	return result
}

// suggest returns up to three display names close to name.
func (r *Resolver) suggest(ctx context.Context, name string) []string {
	if r.names == nil {
		names, err := r.sys.UserDisplayNames(ctx)
		if err != nil {
			return nil
		}
		if names == nil {
			names = []string{}
		}
		r.names = names
	}

	ranks := fuzzy.RankFindNormalizedFold(name, r.names)
	sort.Sort(ranks)

	var out []string
	for _, rank := range ranks {
		if len(out) == 3 {
			break
		}
		out = append(out, rank.Target)
	}
	return out
}

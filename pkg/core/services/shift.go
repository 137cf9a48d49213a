package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/tail-temps/pkg/core/night"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// Shift carries who is acting, where, and which night resolver applies.
// Every service call takes one; the CLI builds it once per process.
type Shift struct {
	Station  string
	Resolver *night.Resolver
	Actor    string
	Guard    *Authorizer
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Now returns the current time in the station's zone
func (s Shift) Now() time.Time {
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}
	return s.Resolver.Local(now)
}

// Night returns the operational night the current moment belongs to
func (s Shift) Night() db.Night {
	return db.Night{Station: s.Station, NightDate: s.Resolver.NightDate(s.Now())}
}

func (s Shift) authorize(op string) error {
	if s.Guard == nil || s.Guard.CanMutate(s.Actor) {
		return nil
	}
	return fmt.Errorf("%s by %q: %w", op, s.Actor, db.ErrNotAuthorized)
}

// Authorizer is the allow-list of actors that may mutate records.
// An empty list allows everyone.
type Authorizer struct {
	allowed map[string]struct{}
}

// NewAuthorizer builds an Authorizer from configured user identities
func NewAuthorizer(users []string) *Authorizer {
	a := &Authorizer{allowed: make(map[string]struct{}, len(users))}
	for _, u := range users {
		u = strings.ToLower(strings.TrimSpace(u))
		if u != "" {
			a.allowed[u] = struct{}{}
		}
	}
	return a
}

// CanMutate reports whether actor may change records. Reads are never guarded.
func (a *Authorizer) CanMutate(actor string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[strings.ToLower(strings.TrimSpace(actor))]
	return ok
}

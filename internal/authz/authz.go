// Package authz implements JWS-token scope extraction and capability
// checks: read/write authorization on raw scopes, and on any entity that
// exposes a scope and a read-only flag (parameters and their descriptors).
package authz

import (
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/stepherg/catenago/internal/scopes"
	"github.com/stepherg/catenago/internal/status"
)

// Scoped is satisfied by any entity with a scope string — a parameter or a
// parameter descriptor. Defined narrowly here rather than importing the
// device package, so authz has no dependency on the external data model.
type Scoped interface {
	Scope() string
}

// ReadOnly is satisfied by entities that can report whether they accept
// writes.
type ReadOnly interface {
	IsReadOnly() bool
}

// Authorizer owns a set of granted scope strings (each optionally carrying
// the ":w" write suffix) and an expiry, extracted once from a JWS token's
// claims at construction time. Signature verification is assumed to have
// happened upstream — only the claims are read here.
type Authorizer struct {
	clientScopes map[string]struct{}
	exp          uint32
}

// Disabled is the process-wide sentinel that approves every read and every
// non-read-only write. Handlers must compare against it by pointer identity,
// never by inspecting its scope set — its granted-scope set is a meaningless
// placeholder, not a real grant.
var Disabled = &Authorizer{clientScopes: map[string]struct{}{"": {}}}

// New constructs an Authorizer by extracting the "scope" (space-separated)
// and "exp" (unix seconds) claims from a JWS token. The token's signature is
// not verified here — that is assumed to have happened upstream. A parse
// failure surfaces UNAUTHENTICATED with message "Invalid JWS Token".
func New(jwsToken string) (*Authorizer, error) {
	tok, err := jwt.Parse([]byte(jwsToken), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, status.New("Invalid JWS Token", status.UNAUTHENTICATED)
	}

	a := &Authorizer{clientScopes: map[string]struct{}{}}

	if raw, ok := tok.Get("scope"); ok {
		if s, ok := raw.(string); ok {
			for _, tag := range strings.Fields(s) {
				a.clientScopes[tag] = struct{}{}
			}
		}
	}

	if expTime := tok.Expiration(); !expTime.IsZero() {
		a.exp = uint32(expTime.Unix())
	} else if raw, ok := tok.Get("exp"); ok {
		switch v := raw.(type) {
		case float64:
			a.exp = uint32(v)
		case string:
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				a.exp = uint32(n)
			}
		}
	}

	return a, nil
}

// IsDisabled reports whether a is the process-wide disabled sentinel,
// compared by pointer identity per the spec's explicit design note.
func (a *Authorizer) IsDisabled() bool { return a == Disabled }

// IsExpired reports whether the token's exp claim is set and has passed.
func (a *Authorizer) IsExpired() bool {
	if a.exp == 0 {
		return false
	}
	return int64(a.exp) <= time.Now().Unix()
}

// ReadAuthzScope holds for an authorizer granted any scope whose read form
// equals scope — i.e. a write grant implies the corresponding read.
func (a *Authorizer) ReadAuthzScope(scope string) bool {
	if a.IsDisabled() {
		return true
	}
	for granted := range a.clientScopes {
		if scopes.StripWrite(granted) == scope {
			return true
		}
	}
	return false
}

// WriteAuthzScope holds iff the authorizer is the disabled sentinel or is
// granted exactly scope+":w".
func (a *Authorizer) WriteAuthzScope(scope string) bool {
	if a.IsDisabled() {
		return true
	}
	want := scope + ":w"
	for granted := range a.clientScopes {
		if granted == want {
			return true
		}
	}
	return false
}

// ReadAuthz applies ReadAuthzScope to the entity's scope (or defaultScope if
// the entity's own scope is empty).
func (a *Authorizer) ReadAuthz(e Scoped, defaultScope string) bool {
	if a.IsDisabled() {
		return true
	}
	sc := e.Scope()
	if sc == "" {
		sc = defaultScope
	}
	return a.ReadAuthzScope(sc)
}

// WriteAuthz is false if the entity is read-only; otherwise it applies
// WriteAuthzScope to the entity's scope (or defaultScope if empty).
func (a *Authorizer) WriteAuthz(e interface {
	Scoped
	ReadOnly
}, defaultScope string) bool {
	if e.IsReadOnly() {
		return false
	}
	if a.IsDisabled() {
		return true
	}
	sc := e.Scope()
	if sc == "" {
		sc = defaultScope
	}
	return a.WriteAuthzScope(sc)
}

// Package scopes implements the bidirectional mapping between the four
// scope roles (monitor/operate/config/admin) and their string form, plus
// the ":w" write-suffix grammar.
package scopes

import "strings"

// Role is one of the four scope roles in ascending privilege order.
type Role int

const (
	Monitor Role = iota
	Operate
	Config
	Admin
)

var roleToTag = map[Role]string{
	Monitor: "mon",
	Operate: "op",
	Config:  "cfg",
	Admin:   "adm",
}

var tagToRole = map[string]Role{
	"mon": Monitor,
	"op":  Operate,
	"cfg": Config,
	"adm": Admin,
}

func (r Role) String() string {
	if t, ok := roleToTag[r]; ok {
		return t
	}
	return "unknown"
}

// ParseRole converts a role tag ("mon", "op", "cfg", "adm") back to a Role.
func ParseRole(tag string) (Role, bool) {
	r, ok := tagToRole[tag]
	return r, ok
}

// Scope is a fully qualified scope string of the form "ns:role[:w]".
type Scope struct {
	Namespace string
	Role      Role
	Write     bool
}

// String renders the scope back to its wire form.
func (s Scope) String() string {
	base := s.Namespace + ":" + s.Role.String()
	if s.Write {
		return base + ":w"
	}
	return base
}

// ReadForm returns the read-only (no ":w") form of the scope, used when
// comparing a write grant's implied read access.
func (s Scope) ReadForm() string {
	return s.Namespace + ":" + s.Role.String()
}

// Parse decodes a scope string of the form "ns:role[:w]".
func Parse(s string) (Scope, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Scope{}, false
	}
	role, ok := ParseRole(parts[1])
	if !ok {
		return Scope{}, false
	}
	write := false
	if len(parts) == 3 {
		if parts[2] != "w" {
			return Scope{}, false
		}
		write = true
	}
	return Scope{Namespace: parts[0], Role: role, Write: write}, true
}

// IsWriteGrant reports whether a raw granted-scope string carries the ":w"
// suffix.
func IsWriteGrant(raw string) bool {
	return strings.HasSuffix(raw, ":w")
}

// StripWrite removes a trailing ":w" suffix, if present.
func StripWrite(raw string) string {
	return strings.TrimSuffix(raw, ":w")
}

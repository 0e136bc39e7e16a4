// Package subscription implements the per-device subscription manager: a
// set of literal OIDs plus a set of wildcard roots, materialised on demand
// by walking the parameter tree with paramvisitor and bounded by the
// device's declared subscription cap.
package subscription

import (
	"strings"
	"sync"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/paramvisitor"
	"github.com/stepherg/catenago/internal/status"
)

// patternKind classifies a subscription pattern by its final segment.
type patternKind int

const (
	patternLiteral patternKind = iota
	patternSubtreeWildcard
	patternWholeTree
	patternInvalid
)

// classify inspects oid's final segment: "/*" alone is whole-tree, a
// trailing "/*" preceded by at least one other segment is a subtree
// wildcard rooted at the prefix, a bare literal OID is patternLiteral, and
// a '*' anywhere but the last segment is invalid.
func classify(oid string) (patternKind, string) {
	if strings.Count(oid, "*") == 0 {
		return patternLiteral, oid
	}
	if !strings.HasSuffix(oid, "/*") {
		return patternInvalid, ""
	}
	root := strings.TrimSuffix(oid, "/*")
	if strings.Contains(root, "*") {
		return patternInvalid, ""
	}
	if root == "" {
		return patternWholeTree, ""
	}
	return patternSubtreeWildcard, root
}

// Manager is the reference SubscriptionManager (C4): one instance per
// device, guarding its literal and root sets with a single mutex.
type Manager struct {
	mu       sync.Mutex
	literals map[string]struct{}
	roots    map[string]struct{}
	cap      uint32
}

// New constructs a Manager bounded at maxSubscriptions, read once at
// construction time per the specified lifecycle.
func New(maxSubscriptions uint32) *Manager {
	return &Manager{
		literals: map[string]struct{}{},
		roots:    map[string]struct{}{},
		cap:      maxSubscriptions,
	}
}

func (m *Manager) GetMaxSubscriptions() uint32 { return m.cap }

// expandRoot walks dev's parameter tree beneath root (or the whole device
// if root is ""), collecting every OID the authorizer may read.
func expandRoot(root string, dev device.IDevice, a *authz.Authorizer) ([]string, error) {
	var oids []string
	visit := func(p device.IParam, oid string) {
		if a.ReadAuthz(p, dev.DefaultScope()) {
			oids = append(oids, oid)
		}
	}
	c := &readGatedCollector{visit: visit}

	if root == "" {
		for _, p := range dev.TopLevelParams() {
			paramvisitor.TraverseParams(p, p.Oid(), dev, c, a)
		}
		return oids, nil
	}

	p, err := dev.GetParam(root)
	if err != nil {
		if _, ok := asNotFound(err); ok {
			return nil, nil
		}
		return nil, err
	}
	paramvisitor.TraverseParams(p, root, dev, c, a)
	return oids, nil
}

func asNotFound(err error) (*status.ExceptionWithStatus, bool) {
	var ews *status.ExceptionWithStatus
	if status.As(err, &ews) && ews.Status == status.INVALID_ARGUMENT {
		return ews, true
	}
	return nil, false
}

type readGatedCollector struct {
	visit func(p device.IParam, oid string)
}

func (c *readGatedCollector) Visit(p device.IParam, oid string)               { c.visit(p, oid) }
func (c *readGatedCollector) VisitArray(_ device.IParam, _ string, _ uint32) {}

// AddSubscription implements addSubscription: wildcard roots and the
// whole-tree pattern are validated against the cap using their would-be
// expansion size; literals are validated against the already-materialised
// set size. Either path rejects a duplicate with ALREADY_EXISTS before
// rejecting on capacity.
func (m *Manager) AddSubscription(oid string, dev device.IDevice, a *authz.Authorizer) error {
	kind, root := classify(oid)
	if kind == patternInvalid {
		return status.New("invalid subscription pattern: "+oid, status.INVALID_ARGUMENT)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == patternSubtreeWildcard || kind == patternWholeTree {
		if _, exists := m.roots[oid]; exists {
			return status.New(oid+" is already subscribed", status.ALREADY_EXISTS)
		}
		expansion, err := expandRoot(root, dev, a)
		if err != nil {
			return err
		}
		if uint32(len(m.literals)+len(expansion)) > m.cap {
			return status.New("subscription cap exceeded", status.RESOURCE_EXHAUSTED)
		}
		m.roots[oid] = struct{}{}
		return nil
	}

	if m.isCoveredLocked(oid, dev, a) {
		return status.New(oid+" is already subscribed", status.ALREADY_EXISTS)
	}
	if uint32(len(m.materialisedLocked(dev, a))+1) > m.cap {
		return status.New("subscription cap exceeded", status.RESOURCE_EXHAUSTED)
	}
	m.literals[oid] = struct{}{}
	return nil
}

// RemoveSubscription removes the exact literal or root matching oid.
// A literal only implied by an active root (never explicitly added) is
// NOT_FOUND, matching the spec's explicit-membership requirement.
func (m *Manager) RemoveSubscription(oid string) error {
	kind, _ := classify(oid)
	if kind == patternInvalid {
		return status.New("invalid subscription pattern: "+oid, status.NOT_FOUND)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == patternSubtreeWildcard || kind == patternWholeTree {
		if _, exists := m.roots[oid]; !exists {
			return status.New(oid+" is not subscribed", status.NOT_FOUND)
		}
		delete(m.roots, oid)
		return nil
	}

	if _, exists := m.literals[oid]; !exists {
		return status.New(oid+" is not subscribed", status.NOT_FOUND)
	}
	delete(m.literals, oid)
	return nil
}

// IsSubscribed reports whether oid is covered by an explicit literal or by
// an active root whose expansion (under the current authorizer) reaches it.
func (m *Manager) IsSubscribed(oid string, dev device.IDevice, a *authz.Authorizer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isCoveredLocked(oid, dev, a)
}

func (m *Manager) isCoveredLocked(oid string, dev device.IDevice, a *authz.Authorizer) bool {
	if _, ok := m.literals[oid]; ok {
		return true
	}
	for root := range m.roots {
		prefix := strings.TrimSuffix(root, "/*")
		if prefix == "" || oid == prefix || strings.HasPrefix(oid, prefix+"/") {
			expansion, err := expandRoot(prefix, dev, a)
			if err != nil {
				continue
			}
			for _, e := range expansion {
				if e == oid {
					return true
				}
			}
		}
	}
	return false
}

// GetAllSubscribedOids returns a snapshot of literals ∪ expand(roots, dev):
// the full materialised subscription set under the current authorizer.
func (m *Manager) GetAllSubscribedOids(dev device.IDevice, a *authz.Authorizer) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.materialisedLocked(dev, a)
}

func (m *Manager) materialisedLocked(dev device.IDevice, a *authz.Authorizer) []string {
	seen := map[string]struct{}{}
	var out []string
	for oid := range m.literals {
		if _, ok := seen[oid]; !ok {
			seen[oid] = struct{}{}
			out = append(out, oid)
		}
	}
	for root := range m.roots {
		prefix := strings.TrimSuffix(root, "/*")
		expansion, err := expandRoot(prefix, dev, a)
		if err != nil {
			continue
		}
		for _, oid := range expansion {
			if _, ok := seen[oid]; !ok {
				seen[oid] = struct{}{}
				out = append(out, oid)
			}
		}
	}
	return out
}

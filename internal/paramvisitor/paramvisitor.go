// Package paramvisitor implements the depth-first walk over a device's
// parameter tree shared by subscription expansion and ParamInfoRequest:
// visit a parameter, then its array elements or named sub-parameters,
// recursively.
package paramvisitor

import (
	"strconv"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/device"
)

// Param and Device alias the device package's external interfaces: the
// walk only ever calls the handful of methods declared on them, but
// aliasing (rather than re-declaring a mirror interface) avoids an
// interface-to-interface conversion at every GetParam call.
type Param = device.IParam
type Device = device.IDevice

// Visitor receives each node traverseParams visits. VisitArray additionally
// reports an array parameter's length before its elements are visited.
type Visitor interface {
	Visit(p Param, oid string)
	VisitArray(p Param, oid string, length uint32)
}

// TraverseParams walks p (already resolved at oid) and everything beneath
// it: for an array, its length then each element in order; for a scalar or
// struct, each name in its descriptor's sub-parameter list, resolved via
// device.GetParam. A child that fails to resolve (for instance, one removed
// concurrently) is skipped rather than aborting the walk.
func TraverseParams(p Param, oid string, dev Device, v Visitor, a *authz.Authorizer) {
	v.Visit(p, oid)

	if p.IsArrayType() {
		n := p.Size()
		v.VisitArray(p, oid, uint32(n))
		for i := 0; i < n; i++ {
			childOid := oid + "/" + strconv.Itoa(i)
			child, err := dev.GetParam(childOid)
			if err != nil {
				continue
			}
			TraverseParams(child, childOid, dev, v, a)
		}
		return
	}

	for _, name := range p.Descriptor().AllSubParams() {
		childOid := oid + "/" + name
		child, err := dev.GetParam(childOid)
		if err != nil {
			continue
		}
		TraverseParams(child, childOid, dev, v, a)
	}
}

// CollectOids is the common visitor used by subscription expansion: it
// gathers every OID traverseParams visits into a flat, ordered slice.
type CollectOids struct {
	Oids []string
}

func (c *CollectOids) Visit(_ Param, oid string)                   { c.Oids = append(c.Oids, oid) }
func (c *CollectOids) VisitArray(_ Param, _ string, _ uint32) {}

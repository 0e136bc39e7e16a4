package device

import (
	"strconv"
	"strings"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/pkg/wire"
)

// componentSerializer walks a precomputed list of (oid, param) pairs,
// converting each to a DeviceComponent on demand. Building the full list
// up front keeps GetNext simple and matches the depth-first visit order
// paramvisitor uses elsewhere.
type componentSerializer struct {
	a      *authz.Authorizer
	items  []namedParam
	pos    int
}

type namedParam struct {
	oid   string
	param *Param
}

func (s *componentSerializer) HasMore() bool { return s.pos < len(s.items) }

func (s *componentSerializer) GetNext() (*wire.DeviceComponent, error) {
	for s.HasMore() {
		item := s.items[s.pos]
		s.pos++
		if !s.a.ReadAuthz(item.param, "") {
			continue
		}
		proto, err := item.param.ToProto(s.a)
		if err != nil {
			continue
		}
		kind := wire.ComponentParam
		if item.param.typ == wire.ParamCommand {
			kind = wire.ComponentCommand
		}
		return &wire.DeviceComponent{
			Kind:  kind,
			Param: &wire.NamedParam{Oid: item.oid, Param: proto},
		}, nil
	}
	return nil, nil
}

// GetComponentSerializer builds the component stream for DeviceRequest:
// every top-level parameter and command (and, unless
// shallow, their descendants) matching the detail-level filter and, when
// non-empty, prefixed by one of oids.
func (d *Device) GetComponentSerializer(a *authz.Authorizer, oids []string, dl wire.DetailLevel, shallow bool) (ComponentSerializer, error) {
	var items []namedParam
	visit := func(name string, p *Param) {
		walkParam("/"+name, p, dl, shallow, oids, &items)
	}
	for name, p := range d.topLevel {
		visit(name, p)
	}
	for name, p := range d.commands {
		visit(name, p)
	}
	return &componentSerializer{a: a, items: items}, nil
}

func includesParam(dl wire.DetailLevel, p *Param) bool {
	switch dl {
	case wire.DetailNone:
		return false
	case wire.DetailMinimal:
		return p.descriptor.MinimalSet()
	case wire.DetailCommands:
		return p.typ == wire.ParamCommand
	case wire.DetailSubscriptions:
		return p.descriptor.MinimalSet() || p.typ == wire.ParamCommand
	case wire.DetailFull, wire.DetailUnset:
		return true
	default:
		return true
	}
}

func matchesPrefix(oid string, oids []string) bool {
	if len(oids) == 0 {
		return true
	}
	for _, prefix := range oids {
		if oid == prefix || strings.HasPrefix(oid, prefix+"/") {
			return true
		}
	}
	return false
}

func walkParam(oid string, p *Param, dl wire.DetailLevel, shallow bool, oids []string, out *[]namedParam) {
	if includesParam(dl, p) && matchesPrefix(oid, oids) {
		*out = append(*out, namedParam{oid: oid, param: p})
	}
	if shallow {
		return
	}
	for name, child := range p.children {
		walkParam(oid+"/"+name, child, dl, shallow, oids, out)
	}
	for i, el := range p.elements {
		walkParam(oid+"/"+strconv.Itoa(i), el, dl, shallow, oids, out)
	}
}

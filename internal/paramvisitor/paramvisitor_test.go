package paramvisitor_test

import (
	"reflect"
	"testing"

	"github.com/stepherg/catenago/internal/authz"
	"github.com/stepherg/catenago/internal/device"
	"github.com/stepherg/catenago/internal/paramvisitor"
	"github.com/stepherg/catenago/pkg/wire"
)

func TestVisitSingleParam(t *testing.T) {
	d := device.New("preset", 10, true)
	p := device.NewScalar("/test/param", device.NewDescriptor("preset", false, false, false), wire.Int32Val(1))

	c := &paramvisitor.CollectOids{}
	paramvisitor.TraverseParams(p, "/test/param", d, c, authz.Disabled)

	if !reflect.DeepEqual(c.Oids, []string{"/test/param"}) {
		t.Errorf("unexpected oids: %v", c.Oids)
	}
}

func TestVisitArrayParam(t *testing.T) {
	d := device.New("preset", 10, true)
	desc := device.NewDescriptor("preset", false, false, false)
	elems := []*device.Param{
		device.NewScalar("", desc, wire.Int32Val(0)),
		device.NewScalar("", desc, wire.Int32Val(1)),
		device.NewScalar("", desc, wire.Int32Val(2)),
	}
	arr := device.NewArray("/test/array", desc, elems)
	d.AddParam("test", device.NewStruct("/test", desc, map[string]*device.Param{"array": arr}))

	c := &countingVisitor{collect: &paramvisitor.CollectOids{}}
	paramvisitor.TraverseParams(arr, "/test/array", d, c, authz.Disabled)

	want := []string{"/test/array", "/test/array/0", "/test/array/1", "/test/array/2"}
	if !reflect.DeepEqual(c.collect.Oids, want) {
		t.Errorf("unexpected oids: %v", c.collect.Oids)
	}
	if !reflect.DeepEqual(c.lengths, []uint32{3}) {
		t.Errorf("unexpected array lengths: %v", c.lengths)
	}
}

func TestVisitNestedParams(t *testing.T) {
	d := device.New("preset", 10, true)
	grandchild := device.NewScalar("/parent/child/grandchild", device.NewDescriptor("preset", false, false, false), wire.Int32Val(1))
	child := device.NewScalar("/parent/child", device.NewDescriptor("preset", false, false, false, "grandchild"), wire.Int32Val(1)).
		WithChild("grandchild", grandchild)
	parent := device.NewScalar("/parent", device.NewDescriptor("preset", false, false, false, "child"), wire.Int32Val(1)).
		WithChild("child", child)
	d.AddParam("parent", parent)

	c := &paramvisitor.CollectOids{}
	paramvisitor.TraverseParams(parent, "/parent", d, c, authz.Disabled)

	want := []string{"/parent", "/parent/child", "/parent/child/grandchild"}
	if !reflect.DeepEqual(c.Oids, want) {
		t.Errorf("unexpected oids: %v", c.Oids)
	}
}

// countingVisitor wraps CollectOids to also record VisitArray calls.
type countingVisitor struct {
	collect *paramvisitor.CollectOids
	lengths []uint32
}

func (c *countingVisitor) Visit(p paramvisitor.Param, oid string) { c.collect.Visit(p, oid) }
func (c *countingVisitor) VisitArray(p paramvisitor.Param, oid string, length uint32) {
	c.lengths = append(c.lengths, length)
}

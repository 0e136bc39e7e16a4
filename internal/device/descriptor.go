package device

// Descriptor is the reference IParamDescriptor implementation: a plain
// struct carrying the scope, read-only, minimal-set, and command flags the
// rest of the core reasons about.
type Descriptor struct {
	scope      string
	readOnly   bool
	minimalSet bool
	isCommand  bool
	subParams  []string
}

// NewDescriptor constructs a Descriptor. subParams names the children a
// traverseParams walk should look up by name under the owning parameter.
func NewDescriptor(scope string, readOnly, minimalSet, isCommand bool, subParams ...string) *Descriptor {
	return &Descriptor{scope: scope, readOnly: readOnly, minimalSet: minimalSet, isCommand: isCommand, subParams: subParams}
}

func (d *Descriptor) Scope() string        { return d.scope }
func (d *Descriptor) IsReadOnly() bool     { return d.readOnly }
func (d *Descriptor) MinimalSet() bool     { return d.minimalSet }
func (d *Descriptor) IsCommand() bool      { return d.isCommand }
func (d *Descriptor) AllSubParams() []string {
	out := make([]string, len(d.subParams))
	copy(out, d.subParams)
	return out
}

package attribute

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrStaticAttribute is returned when a rule-management operation is
	// invoked on a static attribute.
	ErrStaticAttribute = errors.New("operation requires a dynamic attribute")
	// ErrUnknownRuleKind is returned for rule kinds outside {Once, OnGet, OnSet}.
	ErrUnknownRuleKind = errors.New("unknown update rule kind")
	// ErrUnsupportedType is returned by the wire codec for value types it
	// cannot represent as a cty value.
	ErrUnsupportedType = errors.New("unsupported attribute value type")
)

// Kind selects when an update rule fires.
type Kind int

const (
	// Once rules run at the first access (get or set) and are then retired.
	Once Kind = iota
	// OnGet rules run on every get, before the value is returned.
	OnGet
	// OnSet rules run on every set, after the value is stored.
	OnSet
)

// Map is the name-keyed attribute registry owned by a component.
type Map map[string]Base

// Base is the type-erased view of an attribute. It is what schedulers and
// the external interface work with when the value type does not matter.
type Base interface {
	fmt.Stringer

	// IsStatic reports whether the attribute is the static variant.
	IsStatic() bool

	// Dependencies returns the union of all update rules' source
	// attributes. Static attributes have none.
	Dependencies() []Base

	// PackValue detaches a snapshot of the current value as a cty value
	// for the wire boundary.
	PackValue() (cty.Value, error)

	// UnpackValue applies a wire value to the attribute, going through the
	// regular set path so on-set rules still fire.
	UnpackValue(v cty.Value) error
}

// Attribute is the typed view over Base shared by both variants.
type Attribute[T any] interface {
	Base

	Get() T
	Set(v T)

	// SetReference makes this attribute mirror ref. Static attributes do
	// not support it.
	SetReference(ref Attribute[T]) error

	// AddRule registers an update rule. Static attributes do not support it.
	AddRule(kind Kind, rule Rule[T]) error

	// ClearRules removes all rules of the given kind. Static attributes do
	// not support it.
	ClearRules(kind Kind) error

	// ptr exposes the backing storage for aliasing; implementations live
	// in this package only.
	ptr() *T
}

// Rule bundles an update function with the source attributes it reads.
// Apply receives a pointer to the dependent attribute's backing value.
type Rule[T any] struct {
	Apply func(dep *T)
	Deps  []Base
}

// register inserts an attribute into its owner map. Duplicate names are a
// programming error, not a runtime condition, so they panic.
func register(name string, attrs Map, attr Base) {
	if attrs == nil {
		return
	}
	if _, ok := attrs[name]; ok {
		panic(fmt.Sprintf("attribute: duplicate registration of %q", name))
	}
	attrs[name] = attr
}

// Static is the plain-value attribute variant.
type Static[T any] struct {
	name string
	data *T
}

// New creates a static attribute and registers it into attrs under name.
// A nil map skips registration.
func New[T any](name string, attrs Map, initial T) *Static[T] {
	a := &Static[T]{name: name, data: &initial}
	register(name, attrs, a)
	return a
}

func (s *Static[T]) Get() T  { return *s.data }
func (s *Static[T]) Set(v T) { *s.data = v }

func (s *Static[T]) IsStatic() bool       { return true }
func (s *Static[T]) Dependencies() []Base { return nil }

func (s *Static[T]) SetReference(Attribute[T]) error {
	return fmt.Errorf("%w: SetReference on static attribute %q", ErrStaticAttribute, s.name)
}

func (s *Static[T]) AddRule(Kind, Rule[T]) error {
	return fmt.Errorf("%w: AddRule on static attribute %q", ErrStaticAttribute, s.name)
}

func (s *Static[T]) ClearRules(Kind) error {
	return fmt.Errorf("%w: ClearRules on static attribute %q", ErrStaticAttribute, s.name)
}

func (s *Static[T]) String() string { return fmt.Sprint(s.Get()) }

func (s *Static[T]) PackValue() (cty.Value, error) { return packValue(s.Get()) }

func (s *Static[T]) UnpackValue(v cty.Value) error {
	var tmp T
	if err := unpackValue(v, &tmp); err != nil {
		return err
	}
	s.Set(tmp)
	return nil
}

func (s *Static[T]) ptr() *T { return s.data }

// Dynamic is the attribute variant that recomputes its value through
// update rules.
type Dynamic[T any] struct {
	name string
	data *T

	rulesOnce []Rule[T]
	rulesGet  []Rule[T]
	rulesSet  []Rule[T]

	// onceApplied marks the pending once-rules as executed. Adding a new
	// once-rule re-arms the list.
	onceApplied bool
}

// NewDynamic creates a dynamic attribute with no rules attached and
// registers it into attrs under name. A nil map skips registration.
func NewDynamic[T any](name string, attrs Map) *Dynamic[T] {
	d := newDynamic[T](name)
	register(name, attrs, d)
	return d
}

func newDynamic[T any](name string) *Dynamic[T] {
	var zero T
	return &Dynamic[T]{name: name, data: &zero}
}

// runOnce executes pending once-rules. It runs before any read or write so
// that an installed alias takes effect ahead of the first regular access.
func (d *Dynamic[T]) runOnce() {
	if d.onceApplied || len(d.rulesOnce) == 0 {
		d.onceApplied = true
		return
	}
	d.onceApplied = true
	for _, r := range d.rulesOnce {
		r.Apply(d.data)
	}
}

func (d *Dynamic[T]) Get() T {
	d.runOnce()
	for _, r := range d.rulesGet {
		r.Apply(d.data)
	}
	return *d.data
}

func (d *Dynamic[T]) Set(v T) {
	d.runOnce()
	*d.data = v
	for _, r := range d.rulesSet {
		r.Apply(d.data)
	}
}

func (d *Dynamic[T]) IsStatic() bool { return false }

func (d *Dynamic[T]) Dependencies() []Base {
	// Union over once- and on-get rules; on-set rules write outward and do
	// not contribute read dependencies.
	var deps []Base
	seen := make(map[Base]struct{})
	for _, rules := range [][]Rule[T]{d.rulesOnce, d.rulesGet} {
		for _, r := range rules {
			for _, dep := range r.Deps {
				if _, ok := seen[dep]; ok {
					continue
				}
				seen[dep] = struct{}{}
				deps = append(deps, dep)
			}
		}
	}
	return deps
}

func (d *Dynamic[T]) AddRule(kind Kind, rule Rule[T]) error {
	switch kind {
	case Once:
		d.rulesOnce = append(d.rulesOnce, rule)
		d.onceApplied = false
	case OnGet:
		d.rulesGet = append(d.rulesGet, rule)
	case OnSet:
		d.rulesSet = append(d.rulesSet, rule)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRuleKind, kind)
	}
	return nil
}

func (d *Dynamic[T]) ClearRules(kind Kind) error {
	switch kind {
	case Once:
		d.rulesOnce = nil
	case OnGet:
		d.rulesGet = nil
	case OnSet:
		d.rulesSet = nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRuleKind, kind)
	}
	return nil
}

func (d *Dynamic[T]) clearAllRules() {
	d.rulesOnce = nil
	d.rulesGet = nil
	d.rulesSet = nil
	d.onceApplied = false
}

// SetReference makes this attribute mirror ref. A static reference is
// aliased at first access by rebinding the backing storage, so writes flow
// through to the referenced cell. A dynamic reference is re-read on every
// get so its own rules keep running.
func (d *Dynamic[T]) SetReference(ref Attribute[T]) error {
	d.clearAllRules()
	if ref.IsStatic() {
		return d.AddRule(Once, Rule[T]{
			Apply: func(*T) { d.data = ref.ptr() },
			Deps:  []Base{ref},
		})
	}
	return d.AddRule(OnGet, Rule[T]{
		Apply: func(dep *T) { *dep = ref.Get() },
		Deps:  []Base{ref},
	})
}

func (d *Dynamic[T]) String() string { return fmt.Sprint(d.Get()) }

func (d *Dynamic[T]) PackValue() (cty.Value, error) { return packValue(d.Get()) }

func (d *Dynamic[T]) UnpackValue(v cty.Value) error {
	var tmp T
	if err := unpackValue(v, &tmp); err != nil {
		return err
	}
	d.Set(tmp)
	return nil
}

func (d *Dynamic[T]) ptr() *T { return d.data }

package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestStaticGetSet(t *testing.T) {
	attrs := make(Map)
	a := New("voltage", attrs, 0.0)

	require.True(t, a.IsStatic())
	assert.Empty(t, a.Dependencies())

	for _, v := range []float64{0, 1.5, -230.0, 1e9} {
		a.Set(v)
		assert.Equal(t, v, a.Get())
	}

	registered, ok := attrs["voltage"]
	require.True(t, ok)
	assert.Same(t, a, registered)
}

func TestStaticRejectsDynamicOperations(t *testing.T) {
	a := New("current", nil, 0.0)
	b := New("other", nil, 0.0)

	err := a.SetReference(b)
	assert.ErrorIs(t, err, ErrStaticAttribute)

	err = a.AddRule(OnGet, Rule[float64]{Apply: func(*float64) {}})
	assert.ErrorIs(t, err, ErrStaticAttribute)

	err = a.ClearRules(OnSet)
	assert.ErrorIs(t, err, ErrStaticAttribute)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	attrs := make(Map)
	New("v", attrs, 0.0)

	require.Panics(t, func() {
		New("v", attrs, 1.0)
	})
	require.Panics(t, func() {
		NewDynamic[float64]("v", attrs)
	})
}

func TestDynamicOnGetRules(t *testing.T) {
	src := New("src", nil, 3.0)
	d := NewDynamic[float64]("doubled", nil)

	require.NoError(t, d.AddRule(OnGet, Rule[float64]{
		Apply: func(dep *float64) { *dep = 2 * src.Get() },
		Deps:  []Base{src},
	}))

	assert.Equal(t, 6.0, d.Get())
	src.Set(5)
	assert.Equal(t, 10.0, d.Get(), "value is recomputed on every get")
}

func TestDynamicOnSetRules(t *testing.T) {
	var observed []float64
	d := NewDynamic[float64]("watched", nil)
	require.NoError(t, d.AddRule(OnSet, Rule[float64]{
		Apply: func(dep *float64) { observed = append(observed, *dep) },
	}))

	d.Set(1)
	d.Set(2)
	assert.Equal(t, []float64{1, 2}, observed)
	assert.Equal(t, 2.0, d.Get())
}

func TestRuleOrderIsRegistrationOrder(t *testing.T) {
	d := NewDynamic[float64]("ordered", nil)
	require.NoError(t, d.AddRule(OnGet, Rule[float64]{Apply: func(dep *float64) { *dep = 1 }}))
	require.NoError(t, d.AddRule(OnGet, Rule[float64]{Apply: func(dep *float64) { *dep += 10 }}))

	// Later rules see earlier rules' writes.
	assert.Equal(t, 11.0, d.Get())
}

func TestSetReferenceStaticAliases(t *testing.T) {
	src := New("src", nil, 42.0)
	d := NewDynamic[float64]("mirror", nil)

	require.NoError(t, d.SetReference(src))
	assert.Equal(t, 42.0, d.Get())

	// Writes to the source show through the mirror.
	src.Set(7)
	assert.Equal(t, 7.0, d.Get())

	// Writes to the mirror land in the source: the backing storage is shared.
	d.Set(13)
	assert.Equal(t, 13.0, src.Get())
}

func TestSetReferenceDynamicReReads(t *testing.T) {
	calls := 0
	src := NewDynamic[float64]("src", nil)
	require.NoError(t, src.AddRule(OnGet, Rule[float64]{
		Apply: func(dep *float64) { calls++; *dep = float64(calls) },
	}))

	d := NewDynamic[float64]("mirror", nil)
	require.NoError(t, d.SetReference(src))

	assert.Equal(t, 1.0, d.Get())
	assert.Equal(t, 2.0, d.Get(), "the source's own rules run on every access")
}

func TestSetReferenceReplacesRules(t *testing.T) {
	d := NewDynamic[float64]("d", nil)
	require.NoError(t, d.AddRule(OnGet, Rule[float64]{Apply: func(dep *float64) { *dep = -1 }}))

	src := New("src", nil, 9.0)
	require.NoError(t, d.SetReference(src))
	assert.Equal(t, 9.0, d.Get())
}

func TestDependenciesUnion(t *testing.T) {
	a := New("a", nil, 0.0)
	b := New("b", nil, 0.0)

	d := NewDynamic[float64]("d", nil)
	require.NoError(t, d.AddRule(OnGet, Rule[float64]{Apply: func(*float64) {}, Deps: []Base{a}}))
	require.NoError(t, d.AddRule(OnGet, Rule[float64]{Apply: func(*float64) {}, Deps: []Base{a, b}}))
	// On-set rules write outward and must not add read dependencies.
	require.NoError(t, d.AddRule(OnSet, Rule[float64]{Apply: func(*float64) {}, Deps: []Base{d}}))

	deps := d.Dependencies()
	assert.Equal(t, []Base{a, b}, deps)
}

func TestUnknownRuleKind(t *testing.T) {
	d := NewDynamic[float64]("d", nil)
	err := d.AddRule(Kind(99), Rule[float64]{Apply: func(*float64) {}})
	assert.ErrorIs(t, err, ErrUnknownRuleKind)
	err = d.ClearRules(Kind(99))
	assert.ErrorIs(t, err, ErrUnknownRuleKind)
}

func TestUnpackRunsOnSetRules(t *testing.T) {
	src := New("src", nil, 0.0)
	d := NewDynamic[float64]("d", nil)
	require.NoError(t, d.AddRule(OnSet, Rule[float64]{
		Apply: func(dep *float64) { src.Set(*dep) },
		Deps:  []Base{src},
	}))

	require.NoError(t, d.UnpackValue(cty.NumberFloatVal(2.5)))
	assert.Equal(t, 2.5, src.Get(), "applying a wire value goes through the set path")
}

func TestUnpackTypeMismatch(t *testing.T) {
	a := New("v", nil, 0.0)
	err := a.UnpackValue(cty.BoolVal(true))
	require.Error(t, err)
	assert.Equal(t, 0.0, a.Get(), "a failed apply leaves the value untouched")
}

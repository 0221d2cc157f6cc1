package convert

import (
	"errors"
	"math"
	"testing"

	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

// testRegistry mirrors a small hand-written unit table: a base metre, a
// derived unit that is two metres, a square metre, a litre built on a
// prefixed unit, and the prefixes d (10^2) and c (10^-2).
func testRegistry() *Registry {
	reg := NewRegistry()
	reg.DefineBase("m")
	reg.DefineDerived("two_m", 2, types.Dimensions{"m": 1})
	reg.DefineDerived("square_m", 1, types.Dimensions{"m": 2})
	reg.DefineDerived("L", 1, types.Dimensions{"dm": 3})
	reg.DefinePrefix("d", 10, 2)
	reg.DefinePrefix("c", 10, -2)
	return reg
}

// forceRegistry adds SI-style mass, time and force units.
func forceRegistry() *Registry {
	reg := NewRegistry()
	reg.DefineBase("m")
	reg.DefineBase("g")
	reg.DefineBase("s")
	reg.DefineDerived("N", 1000, types.Dimensions{"kg": 1, "m": 1, "s": -2})
	reg.DefineDerived("Pa", 1, types.Dimensions{"N": 1, "m": -2})
	reg.DefinePrefix("k", 10, 3)
	reg.DefinePrefix("c", 10, -2)
	reg.DefinePrefix("m", 10, -3)
	return reg
}

func newTestEngine(t *testing.T, reg *Registry) *Engine {
	t.Helper()
	e, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func named(sym string) types.Unit { return types.NewUnit(sym) }

func dims(d types.Dimensions) types.Unit { return types.Unit{Dims: d} }

func TestConvert(t *testing.T) {
	e := newTestEngine(t, testRegistry())

	tests := []struct {
		name     string
		src, dst types.Unit
		want     float64
	}{
		// identical units
		{"m to m", named("m"), named("m"), 1},
		{"cm to cm", named("cm"), named("cm"), 1},
		{"two_m to two_m", named("two_m"), named("two_m"), 1},
		{"square_m to square_m", named("square_m"), named("square_m"), 1},
		{"dimensionless", types.Dimensionless(), types.Dimensionless(), 1},

		// directly compatible
		{"m to two_m", named("m"), named("two_m"), 0.5},
		{"two_m to m", named("two_m"), named("m"), 2},
		{"m^2 to square_m", dims(types.Dimensions{"m": 2}), named("square_m"), 1},
		{"square_m to m^2", named("square_m"), dims(types.Dimensions{"m": 2}), 1},
		{"two_m^2 to square_m", dims(types.Dimensions{"two_m": 2}), named("square_m"), 4},
		{"square_m to two_m^2", named("square_m"), dims(types.Dimensions{"two_m": 2}), 0.25},

		// prefixes
		{"m to cm", named("m"), named("cm"), 100},
		{"cm to m", named("cm"), named("m"), 0.01},
		{"m/cm to dimensionless", dims(types.Dimensions{"m": 1, "cm": -1}), types.Dimensionless(), 100},

		// dependent units
		{"m/square_m to 1/m", dims(types.Dimensions{"m": 1, "square_m": -1}), dims(types.Dimensions{"m": -1}), 1},
		{"square_m/m to m", dims(types.Dimensions{"m": -1, "square_m": 1}), named("m"), 1},
		{"m/square_m to 1/cm", dims(types.Dimensions{"m": 1, "square_m": -1}), dims(types.Dimensions{"cm": -1}), 0.01},
		{"square_m/m to cm", dims(types.Dimensions{"m": -1, "square_m": 1}), named("cm"), 100},

		// derived unit defined on a prefixed unit
		{"dm/L to 1/dm^2", dims(types.Dimensions{"dm": 1, "L": -1}), dims(types.Dimensions{"dm": -2}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Convert(tt.src, tt.dst)
			if err != nil {
				t.Fatalf("Convert(%s, %s): %v", tt.src, tt.dst, err)
			}
			if !approxEqual(got, tt.want) {
				t.Errorf("Convert(%s, %s) = %v, want %v", tt.src, tt.dst, got, tt.want)
			}
		})
	}
}

func TestConvertErrors(t *testing.T) {
	e := newTestEngine(t, testRegistry())

	tests := []struct {
		name     string
		src, dst types.Unit
	}{
		{"incompatible", named("m"), named("square_m")},
		{"to dimensionless", named("m"), types.Dimensionless()},
		{"unknown unit", named("furlong"), named("m")},
		{"unknown prefix", named("km"), named("m")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Convert(tt.src, tt.dst)
			if !errors.Is(err, types.ErrUnit) {
				t.Errorf("Convert(%s, %s) error = %v, want UnitError", tt.src, tt.dst, err)
			}
		})
	}
}

func TestConvertProperties(t *testing.T) {
	e := newTestEngine(t, forceRegistry())

	units := []types.Unit{
		named("m"), named("cm"), named("km"), named("g"), named("kg"), named("N"), named("kN"),
		named("Pa"), named("kPa"), dims(types.Dimensions{"kg": 1, "m": 1, "s": -2}),
		dims(types.Dimensions{"N": 1, "mm": -2}),
	}

	for _, u := range units {
		got, err := e.Convert(u, u)
		if err != nil || !approxEqual(got, 1) {
			t.Errorf("Convert(%s, %s) = %v, %v; want 1", u, u, got, err)
		}
	}

	for _, u := range units {
		for _, v := range units {
			there, err := e.Convert(u, v)
			if err != nil {
				continue
			}
			back, err := e.Convert(v, u)
			if err != nil {
				t.Errorf("Convert(%s, %s) succeeded but the inverse failed: %v", u, v, err)
				continue
			}
			if !approxEqual(there*back, 1) {
				t.Errorf("Convert(%s, %s) * Convert(%s, %s) = %v, want 1", u, v, v, u, there*back)
			}
		}
	}
}

func TestConvertDerivedWithScale(t *testing.T) {
	e := newTestEngine(t, forceRegistry())

	tests := []struct {
		name     string
		src, dst types.Unit
		want     float64
	}{
		{"kg m/s^2 to N", dims(types.Dimensions{"kg": 1, "m": 1, "s": -2}), named("N"), 0.001},
		{"N to kN", named("N"), named("kN"), 0.001},
		{"N/mm^2 to kPa", dims(types.Dimensions{"N": 1, "mm": -2}), named("kPa"), 1000},
		{"km to cm", named("km"), named("cm"), 1e5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Convert(tt.src, tt.dst)
			if err != nil {
				t.Fatal(err)
			}
			if !approxEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripPrefix(t *testing.T) {
	reg := testRegistry()
	reg.DefineBase("min")
	e := newTestEngine(t, reg)

	tests := []struct {
		in           string
		prefix, base string
		wantErr      bool
	}{
		{"m", "", "m", false},
		{"cm", "c", "m", false},
		{"min", "", "min", false},
		{"cmin", "c", "min", false},
		{"dL", "d", "L", false},
		{"xm", "", "", true},
		{"q", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			prefix, base, err := e.StripPrefix(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("StripPrefix(%q) = %q, %q; want error", tt.in, prefix, base)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if prefix != tt.prefix || base != tt.base {
				t.Errorf("StripPrefix(%q) = %q, %q; want %q, %q", tt.in, prefix, base, tt.prefix, tt.base)
			}
		})
	}
}

func TestPrefixScale(t *testing.T) {
	e := newTestEngine(t, forceRegistry())
	got, err := e.PrefixScale("k")
	if err != nil || got != 1000 {
		t.Errorf("PrefixScale(k) = %v, %v", got, err)
	}
	if _, err := e.PrefixScale("Q"); !errors.Is(err, types.ErrUnit) {
		t.Errorf("PrefixScale(Q) error = %v, want UnitError", err)
	}
}

func TestDefinitions(t *testing.T) {
	e := newTestEngine(t, forceRegistry())

	tests := []struct {
		sym  string
		want string
	}{
		{"km", "1 km = prefix: 'k', unit: 'm' = 1000 m"},
		{"N", "1 N = 1000 kg m s^(-2)"},
		{"m", "1 m = 1 m"},
	}
	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			got, err := e.UnitDefinition(tt.sym)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("UnitDefinition(%q) = %q, want %q", tt.sym, got, tt.want)
			}
		})
	}

	got, err := e.PrefixDefinition("k")
	if err != nil || got != "k = (10)^(3) = 1000" {
		t.Errorf("PrefixDefinition(k) = %q, %v", got, err)
	}
	if _, err := e.UnitDefinition("zz"); err == nil {
		t.Error("UnitDefinition of an unknown unit should fail")
	}
}

func TestNewRejectsInvalidRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.DefineDerived("A", 1, types.Dimensions{"B": 1})
	reg.DefineDerived("B", 1, types.Dimensions{"A": 1})

	_, err := New(reg)
	var domainErr *types.Error
	if !errors.As(err, &domainErr) || domainErr.Kind != types.KindRegistry {
		t.Fatalf("New error = %v, want RegistryError", err)
	}
	if len(domainErr.Cycle) == 0 {
		t.Errorf("cycle error should name the cycle, got %v", err)
	}
}

func TestEngineOwnsItsRegistry(t *testing.T) {
	reg := testRegistry()
	e := newTestEngine(t, reg)
	reg.DefineBase("s")
	if e.HasUnit("s") {
		t.Error("mutating the source registry should not affect the engine")
	}
	snap := e.Registry()
	delete(snap.Units, "m")
	if !e.HasUnit("m") {
		t.Error("mutating a snapshot should not affect the engine")
	}
}

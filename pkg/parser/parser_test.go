package parser

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
)

func sampleRegistry() *convert.Registry {
	reg := convert.NewRegistry()
	reg.DefineBase("m")
	reg.DefineBase("s")
	reg.DefineBase("g")
	reg.DefineDerived("N", 1000, types.Dimensions{"kg": 1, "m": 1, "s": -2})
	reg.DefineDerived("Hz", 1, types.Dimensions{"s": -1})
	reg.DefinePrefix("k", 10, 3)
	reg.DefinePrefix("c", 10, -2)
	reg.DefinePrefix("Ki", 2, 10)
	return reg
}

func assertRegistriesEqual(t *testing.T, got, want *convert.Registry) {
	t.Helper()
	if !slices.Equal(got.UnitSymbols(), want.UnitSymbols()) {
		t.Fatalf("units = %v, want %v", got.UnitSymbols(), want.UnitSymbols())
	}
	for _, sym := range want.UnitSymbols() {
		if !got.Units[sym].Dims.Equal(want.Units[sym].Dims) {
			t.Errorf("unit %s expansion = %v, want %v", sym, got.Units[sym].Dims, want.Units[sym].Dims)
		}
		if got.Scale(sym) != want.Scale(sym) {
			t.Errorf("unit %s scale = %v, want %v", sym, got.Scale(sym), want.Scale(sym))
		}
	}
	if !slices.Equal(got.PrefixSymbols(), want.PrefixSymbols()) {
		t.Fatalf("prefixes = %v, want %v", got.PrefixSymbols(), want.PrefixSymbols())
	}
	for _, sym := range want.PrefixSymbols() {
		if got.Prefixes[sym] != want.Prefixes[sym] {
			t.Errorf("prefix %s = %+v, want %+v", sym, got.Prefixes[sym], want.Prefixes[sym])
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"delimiters", "A:1;B:2,H 1,He 2; ", []string{"A", ":", "1", ";", "B", ":", "2", ",", "H", "1", ",", "He", "2", ";"}},
		{"comments", "m; # the metre\n# whole line\nN: 1000, kg 1;#trailing", []string{"m", ";", "N", ":", "1000", ",", "kg", "1", ";"}},
		{"crlf", "m;\r\ns;\r\n", []string{"m", ";", "s", ";"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.src)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	reg, err := Decode([]byte("H: 12.4, A 1, B 2;\nA;\nB;\n10: k 3, M 6;"), FormatText)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	h, ok := reg.Units["H"]
	if !ok {
		t.Fatal("H not defined")
	}
	if !h.Dims.Equal(types.Dimensions{"A": 1, "B": 2}) {
		t.Errorf("H expansion = %v", h.Dims)
	}
	if reg.Scale("H") != 12.4 {
		t.Errorf("H scale = %v, want 12.4", reg.Scale("H"))
	}
	if !reg.Units["A"].IsBase() {
		t.Error("A should be a base unit")
	}
	if p := reg.Prefixes["M"]; p.Base != 10 || p.Exponent != 6 {
		t.Errorf("M = %+v", p)
	}
}

func TestDecodeTextErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"no dependencies", "H: 12.4;", "expected ','"},
		{"missing terminator", "m", "none received"},
		{"bad scale", "m: x, a 1;", "expected float"},
		{"bad exponent", "N: 2, kg x;", "expected integer"},
		{"fractional exponent", "N: 2, kg 1.5;", "expected integer"},
		{"duplicate unit", "m;\nm;", "duplicate definition of unit 'm'"},
		{"duplicate prefix", "10: k 3, k 6;", "duplicate definition of prefix 'k'"},
		{"prefix without colon", "10 k 3;", "expected ':'"},
		{"unit without delimiter", "m 5;", "expected delimiter"},
		{"prefix symbol", "10: 3 k;", "expected alphabetical symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), FormatText)
			if !errors.Is(err, types.ErrFileFormat) {
				t.Fatalf("Decode(%q) error = %v, want FileFormatError", tt.src, err)
			}
			if types.KindOf(err) != types.KindFileFormat {
				t.Errorf("KindOf = %s", types.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestDecodeTextReportsLine(t *testing.T) {
	_, err := Decode([]byte("m;\ns;\nN: 1000, kg one;\n"), FormatText)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Location != "line 3" {
		t.Errorf("location = %q, want line 3", pe.Location)
	}
}

func TestMergeOverwrite(t *testing.T) {
	base := sampleRegistry()

	if _, err := Merge(base, []byte("m: 2, s 1;"), FormatText, false); !errors.Is(err, types.ErrFileFormat) {
		t.Errorf("merge without overwrite error = %v, want FileFormatError", err)
	}

	merged, err := Merge(base, []byte("N: 1, kg 1, m 1, s -2;\nft: 0.3048, m 1;"), FormatText, true)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Scale("N") != 1 || !merged.Units["ft"].IsDerived() {
		t.Errorf("merged registry not updated: N scale %v", merged.Scale("N"))
	}
	if base.Scale("N") != 1000 {
		t.Error("Merge must not modify its base registry")
	}
	if _, ok := base.Units["ft"]; ok {
		t.Error("Merge must not add units to its base registry")
	}
}

func TestWriteText(t *testing.T) {
	var b strings.Builder
	if err := WriteText(&b, sampleRegistry()); err != nil {
		t.Fatal(err)
	}
	want := "2: Ki 10;\n" +
		"10: c -2, k 3;\n" +
		"Hz: 1, s -1;\n" +
		"N: 1000, kg 1, m 1, s -2;\n" +
		"g;\n" +
		"m;\n" +
		"s;\n"
	if got := b.String(); got != want {
		t.Errorf("WriteText =\n%s\nwant\n%s", got, want)
	}
}

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		src    string
	}{
		{"yaml", FormatYAML, `
prefixes:
  10: {k: 3, c: -2}
  2:
    Ki: 10
units:
  m: ~
  s:
  g: {}
  N:
    scale: 1000
    units: {kg: 1, m: 1, s: -2}
  Hz: {units: {s: -1}}
`},
		{"json", FormatJSON, `{
  "prefixes": {"10": {"k": 3, "c": -2}, "2": {"Ki": 10}},
  "units": {
    "m": null, "s": null, "g": null,
    "N": {"scale": 1000, "units": {"kg": 1, "m": 1, "s": -2}},
    "Hz": {"scale": 1, "units": {"s": -1}}
  }
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Decode([]byte(tt.src), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			assertRegistriesEqual(t, reg, sampleRegistry())
		})
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not a mapping", "- m\n- s\n"},
		{"unknown key", "constants: {}\n"},
		{"bad base", "prefixes:\n  ten: {k: 3}\n"},
		{"bad exponent", "prefixes:\n  10: {k: three}\n"},
		{"non-integer dependency exponent", "units:\n  N: {scale: 1, units: {m: 0.5}}\n"},
		{"derived without units", "units:\n  N: {scale: 1000}\n"},
		{"invalid symbol", "units:\n  m2: ~\n"},
		{"unknown unit key", "units:\n  N: {factor: 2, units: {m: 1}}\n"},
		{"invalid yaml", "units: [m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), FormatYAML)
			if !errors.Is(err, types.ErrFileFormat) {
				t.Errorf("Decode error = %v, want FileFormatError", err)
			}
		})
	}
}

func TestEmptyDocument(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatText} {
		reg, err := Decode(nil, format)
		if err != nil {
			t.Fatalf("Decode(empty, %s): %v", format, err)
		}
		if len(reg.Units) != 0 || len(reg.Prefixes) != 0 {
			t.Errorf("empty %s document defined %v %v", format, reg.UnitSymbols(), reg.PrefixSymbols())
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON, FormatText} {
		t.Run(format.String(), func(t *testing.T) {
			data, err := Encode(sampleRegistry(), format)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			reg, err := Decode(data, format)
			if err != nil {
				t.Fatalf("Decode of encoded registry: %v\n%s", err, data)
			}
			assertRegistriesEqual(t, reg, sampleRegistry())
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"units.yaml", FormatYAML, false},
		{"units.YML", FormatYAML, false},
		{"dir/units.json", FormatJSON, false},
		{"standard.csv", FormatText, false},
		{"my.units", FormatText, false},
		{"units", 0, true},
		{"units.toml", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("FormatFromPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"reg.yaml", "reg.json", "reg.units"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveFile(path, sampleRegistry()); err != nil {
				t.Fatalf("SaveFile: %v", err)
			}
			reg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			assertRegistriesEqual(t, reg, sampleRegistry())
		})
	}
}

func TestLoadFileValidates(t *testing.T) {
	dir := t.TempDir()

	cyclic := filepath.Join(dir, "cyclic.units")
	if err := os.WriteFile(cyclic, []byte("A: 1, B 1;\nB: 1, A 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(cyclic); !errors.Is(err, types.ErrRegistry) {
		t.Errorf("LoadFile(cyclic) error = %v, want RegistryError", err)
	}

	dangling := filepath.Join(dir, "dangling.yaml")
	if err := os.WriteFile(dangling, []byte("units:\n  N: {scale: 1, units: {kg: 1}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(dangling); !errors.Is(err, types.ErrRegistry) {
		t.Errorf("LoadFile(dangling) error = %v, want RegistryError", err)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile of a missing file should fail")
	}
}

package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/lemonberrylabs/unitcalc/pkg/convert"
	"github.com/lemonberrylabs/unitcalc/pkg/types"
	"gopkg.in/yaml.v3"
)

// document is the YAML/JSON shape of a registry:
//
//	prefixes:
//	  10: {k: 3, M: 6}
//	  2: {Ki: 10}
//	units:
//	  m: ~
//	  N: {scale: 1000, units: {kg: 1, m: 1, s: -2}}
type document struct {
	Prefixes map[string]map[string]float64 `yaml:"prefixes,omitempty" json:"prefixes,omitempty"`
	Units    map[string]*unitDocument      `yaml:"units" json:"units"`
}

// unitDocument is a derived unit. Base units are encoded as null.
type unitDocument struct {
	Scale float64        `yaml:"scale" json:"scale"`
	Units map[string]int `yaml:"units" json:"units"`
}

// decodeDocument walks a YAML (or JSON) document into reg.
func decodeDocument(reg *convert.Registry, data []byte, overwrite bool) error {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	// An empty document defines nothing.
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil
	}

	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return &ParseError{Message: "registry document must be a mapping", Location: lineOf(root)}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]

		switch key {
		case "prefixes":
			if err := decodePrefixes(reg, val, overwrite); err != nil {
				return err
			}
		case "units":
			if err := decodeUnits(reg, val, overwrite); err != nil {
				return err
			}
		default:
			return &ParseError{
				Message:  fmt.Sprintf("unknown key '%s' in registry document", key),
				Location: lineOf(root.Content[i]),
			}
		}
	}
	return nil
}

// decodePrefixes parses a mapping of base to {prefix: exponent}.
func decodePrefixes(reg *convert.Registry, node *yaml.Node, overwrite bool) error {
	if isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return &ParseError{Message: "prefixes must be a mapping", Location: "prefixes " + lineOf(node)}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		baseNode, group := node.Content[i], node.Content[i+1]
		loc := fmt.Sprintf("prefixes.%s %s", baseNode.Value, lineOf(baseNode))

		base, err := strconv.ParseFloat(baseNode.Value, 64)
		if err != nil {
			return &ParseError{Message: fmt.Sprintf("expected numeric prefix base; received '%s'", baseNode.Value), Location: loc}
		}
		if group.Kind != yaml.MappingNode {
			return &ParseError{Message: "prefix group must be a mapping of prefix to exponent", Location: loc}
		}

		for j := 0; j+1 < len(group.Content); j += 2 {
			sym := group.Content[j].Value
			symLoc := fmt.Sprintf("prefixes.%s.%s %s", baseNode.Value, sym, lineOf(group.Content[j]))
			if !types.IsValidSymbol(sym) {
				return &ParseError{Message: fmt.Sprintf("expected alphabetical symbol; received '%s'", sym), Location: symLoc}
			}
			if _, dup := reg.Prefixes[sym]; dup && !overwrite {
				return &ParseError{Message: fmt.Sprintf("duplicate definition of prefix '%s'", sym), Location: symLoc}
			}
			var exp float64
			if err := group.Content[j+1].Decode(&exp); err != nil {
				return &ParseError{Message: fmt.Sprintf("expected numeric exponent; received '%s'", group.Content[j+1].Value), Location: symLoc}
			}
			reg.DefinePrefix(sym, base, exp)
		}
	}
	return nil
}

// decodeUnits parses a mapping of symbol to null (base unit) or
// {scale, units} (derived unit).
func decodeUnits(reg *convert.Registry, node *yaml.Node, overwrite bool) error {
	if isNull(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return &ParseError{Message: "units must be a mapping", Location: "units " + lineOf(node)}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		sym := node.Content[i].Value
		body := node.Content[i+1]
		loc := fmt.Sprintf("units.%s %s", sym, lineOf(node.Content[i]))

		if !types.IsValidSymbol(sym) {
			return &ParseError{Message: fmt.Sprintf("expected alphabetical symbol; received '%s'", sym), Location: loc}
		}
		if _, dup := reg.Units[sym]; dup && !overwrite {
			return &ParseError{Message: fmt.Sprintf("duplicate definition of unit '%s'", sym), Location: loc}
		}

		if isNull(body) || (body.Kind == yaml.MappingNode && len(body.Content) == 0) {
			reg.DefineBase(sym)
			continue
		}
		if body.Kind != yaml.MappingNode {
			return &ParseError{Message: "unit must be null or a mapping with 'scale' and 'units'", Location: loc}
		}

		scale := 1.0
		expansion := make(types.Dimensions)
		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j].Value
			val := body.Content[j+1]
			switch key {
			case "scale":
				if err := val.Decode(&scale); err != nil {
					return &ParseError{Message: fmt.Sprintf("expected float; received '%s'", val.Value), Location: loc}
				}
			case "units":
				if err := decodeExpansion(expansion, val, loc); err != nil {
					return err
				}
			default:
				return &ParseError{Message: fmt.Sprintf("unknown key '%s' in unit definition", key), Location: loc}
			}
		}
		if len(expansion) == 0 {
			return &ParseError{Message: "derived unit must depend on at least one unit", Location: loc}
		}
		reg.DefineDerived(sym, scale, expansion)
	}
	return nil
}

func decodeExpansion(into types.Dimensions, node *yaml.Node, loc string) error {
	if node.Kind != yaml.MappingNode {
		return &ParseError{Message: "units must be a mapping of symbol to integer exponent", Location: loc}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		dep := node.Content[i].Value
		if !types.IsValidSymbol(dep) {
			return &ParseError{Message: fmt.Sprintf("expected alphabetical symbol; received '%s'", dep), Location: loc}
		}
		// Decoding straight into an int would truncate "0.5" silently.
		var exp float64
		if err := node.Content[i+1].Decode(&exp); err != nil || exp != math.Trunc(exp) || math.Abs(exp) > math.MaxInt32 {
			return &ParseError{Message: fmt.Sprintf("expected integer; received '%s'", node.Content[i+1].Value), Location: loc}
		}
		into[dep] += int(exp)
	}
	return nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func lineOf(node *yaml.Node) string {
	return fmt.Sprintf("(line %d)", node.Line)
}

// toDocument converts reg into its document shape.
func toDocument(reg *convert.Registry) document {
	doc := document{Units: make(map[string]*unitDocument, len(reg.Units))}
	for sym, p := range reg.Prefixes {
		if doc.Prefixes == nil {
			doc.Prefixes = make(map[string]map[string]float64)
		}
		base := types.FormatValue(p.Base)
		if doc.Prefixes[base] == nil {
			doc.Prefixes[base] = make(map[string]float64)
		}
		doc.Prefixes[base][sym] = p.Exponent
	}
	for sym, u := range reg.Units {
		if u.IsBase() {
			doc.Units[sym] = nil
			continue
		}
		doc.Units[sym] = &unitDocument{Scale: reg.Scale(sym), Units: u.Dims.Reduce()}
	}
	return doc
}

func encodeYAML(reg *convert.Registry) ([]byte, error) {
	out, err := yaml.Marshal(toDocument(reg))
	if err != nil {
		return nil, fmt.Errorf("encoding registry: %w", err)
	}
	return out, nil
}

func encodeJSON(reg *convert.Registry) ([]byte, error) {
	out, err := json.MarshalIndent(toDocument(reg), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding registry: %w", err)
	}
	return append(out, '\n'), nil
}

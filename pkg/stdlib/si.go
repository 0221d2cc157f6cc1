package stdlib

import "github.com/lemonberrylabs/unitcalc/pkg/types"

// registerSIPrefixes registers the decimal prefixes from yocto to yotta.
// Micro is spelled "u".
func (l *library) registerSIPrefixes() {
	for sym, exp := range map[string]float64{
		"Y": 24, "Z": 21, "E": 18, "P": 15, "T": 12, "G": 9, "M": 6,
		"k": 3, "h": 2, "da": 1,
		"d": -1, "c": -2, "m": -3, "u": -6, "n": -9, "p": -12,
		"f": -15, "a": -18, "z": -21, "y": -24,
	} {
		l.prefix(sym, 10, exp)
	}
}

// registerBinaryPrefixes registers the IEC prefixes kibi to exbi.
func (l *library) registerBinaryPrefixes() {
	for sym, exp := range map[string]float64{
		"Ki": 10, "Mi": 20, "Gi": 30, "Ti": 40, "Pi": 50, "Ei": 60,
	} {
		l.prefix(sym, 2, exp)
	}
}

// registerSIBase registers the seven SI base units, with the gram standing
// in for the kilogram so that "kg" is an ordinary prefixed unit.
func (l *library) registerSIBase() {
	for _, sym := range []string{"m", "g", "s", "A", "K", "mol", "cd"} {
		l.base(sym)
	}
}

func (l *library) registerSIDerived() {
	l.derived("Hz", 1, types.Dimensions{"s": -1})
	l.derived("N", 1, types.Dimensions{"kg": 1, "m": 1, "s": -2})
	l.derived("Pa", 1, types.Dimensions{"N": 1, "m": -2})
	l.derived("J", 1, types.Dimensions{"N": 1, "m": 1})
	l.derived("W", 1, types.Dimensions{"J": 1, "s": -1})
	l.derived("C", 1, types.Dimensions{"A": 1, "s": 1})
	l.derived("V", 1, types.Dimensions{"W": 1, "A": -1})
	l.derived("ohm", 1, types.Dimensions{"V": 1, "A": -1})
	l.derived("F", 1, types.Dimensions{"C": 1, "V": -1})
	l.derived("L", 1, types.Dimensions{"dm": 3})
	l.derived("t", 1000, types.Dimensions{"kg": 1})
}

func (l *library) registerTime() {
	l.derived("min", 60, types.Dimensions{"s": 1})
	l.derived("h", 60, types.Dimensions{"min": 1})
	l.derived("day", 24, types.Dimensions{"h": 1})
}

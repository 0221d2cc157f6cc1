package stdlib

import "github.com/lemonberrylabs/unitcalc/pkg/types"

func (l *library) registerImperial() {
	// length
	l.derived("in", 2.54, types.Dimensions{"cm": 1})
	l.derived("ft", 12, types.Dimensions{"in": 1})
	l.derived("yd", 3, types.Dimensions{"ft": 1})
	l.derived("mi", 5280, types.Dimensions{"ft": 1})

	// mass and force
	l.derived("lb", 453.59237, types.Dimensions{"g": 1})
	l.derived("oz", 0.0625, types.Dimensions{"lb": 1})
	l.derived("lbf", 4.4482216152605, types.Dimensions{"N": 1})

	// derived
	l.derived("psi", 1, types.Dimensions{"lbf": 1, "in": -2})
	l.derived("mph", 1, types.Dimensions{"mi": 1, "h": -1})
}

func (l *library) registerData() {
	l.base("bit")
	l.derived("B", 8, types.Dimensions{"bit": 1})
}

// registerMisc registers energy and pressure units outside SI, and the
// body-mass index.
func (l *library) registerMisc() {
	l.derived("Wh", 3600, types.Dimensions{"J": 1})
	l.derived("cal", 4.184, types.Dimensions{"J": 1})
	l.derived("eV", 1.602176634e-19, types.Dimensions{"J": 1})
	l.derived("atm", 101325, types.Dimensions{"Pa": 1})
	l.derived("bar", 100000, types.Dimensions{"Pa": 1})
	l.derived("BMI", 1, types.Dimensions{"kg": 1, "m": -2})
}

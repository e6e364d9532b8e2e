// Package measure computes shape and intensity measurements for detected
// regions.
package measure

// Measurement is a single named value attached to a detection.
type Measurement struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Compartment selects which part of a composite cell object intensity
// measurements are taken from.
type Compartment int

const (
	CompartmentCell Compartment = iota
	CompartmentNucleus
	CompartmentCytoplasm
)

func (c Compartment) String() string {
	switch c {
	case CompartmentCell:
		return "Cell"
	case CompartmentNucleus:
		return "Nucleus"
	case CompartmentCytoplasm:
		return "Cytoplasm"
	default:
		return "Unknown"
	}
}

// AllCompartments lists every compartment, the default selection.
func AllCompartments() []Compartment {
	return []Compartment{CompartmentCell, CompartmentNucleus, CompartmentCytoplasm}
}

// Stat selects an intensity statistic.
type Stat int

const (
	StatMean Stat = iota
	StatMedian
	StatMin
	StatMax
	StatStdDev
)

func (s Stat) String() string {
	switch s {
	case StatMean:
		return "Mean"
	case StatMedian:
		return "Median"
	case StatMin:
		return "Min"
	case StatMax:
		return "Max"
	case StatStdDev:
		return "Std.Dev"
	default:
		return "Unknown"
	}
}

// DefaultStats is the standard intensity panel.
func DefaultStats() []Stat {
	return []Stat{StatMean, StatMedian, StatMin, StatMax, StatStdDev}
}

func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ": " + name
}

package world

import "fmt"

// Throttle is an engine's discrete throttle setting. Negative values drive backwards.
type Throttle int

const (
	RevHi  Throttle = -3
	RevMed Throttle = -2
	RevLo  Throttle = -1
	Zero   Throttle = 0
	FwdLo  Throttle = 1
	FwdMed Throttle = 2
	FwdHi  Throttle = 3
)

var throttleNames = map[Throttle]string{
	RevHi:  "Rev_Hi",
	RevMed: "Rev_Med",
	RevLo:  "Rev_Lo",
	Zero:   "Zero",
	FwdLo:  "Fwd_Lo",
	FwdMed: "Fwd_Med",
	FwdHi:  "Fwd_Hi",
}

func (t Throttle) String() string {
	if s, ok := throttleNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Throttle(%d)", int(t))
}

// ParseThrottle parses the String form of a Throttle.
func ParseThrottle(s string) (Throttle, error) {
	for t, name := range throttleNames {
		if name == s {
			return t, nil
		}
	}
	return Zero, fmt.Errorf("unknown throttle %q", s)
}

func (t Throttle) MarshalText() ([]byte, error) {
	if _, ok := throttleNames[t]; !ok {
		return nil, fmt.Errorf("invalid throttle %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Throttle) UnmarshalText(text []byte) error {
	v, err := ParseThrottle(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Fraction is the share of an engine's maximum speed this throttle drives towards.
func (t Throttle) Fraction() float64 {
	switch t {
	case RevHi:
		return -1
	case RevMed:
		return -0.5
	case RevLo:
		return -0.2
	case FwdLo:
		return 0.2
	case FwdMed:
		return 0.5
	case FwdHi:
		return 1
	default:
		return 0
	}
}

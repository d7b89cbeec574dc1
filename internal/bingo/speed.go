package bingo

import "strings"

// Speed is the pause between draws, measured in pace units (seconds by default).
type Speed int

const (
	SpeedFast   Speed = 3
	SpeedNormal Speed = 5
	SpeedSlow   Speed = 7
)

func (s Speed) Valid() bool {
	switch s {
	case SpeedFast, SpeedNormal, SpeedSlow:
		return true
	default:
		return false
	}
}

// Normalize - anything that is not a known speed becomes SpeedNormal.
func (s Speed) Normalize() Speed {
	if !s.Valid() {
		return SpeedNormal
	}
	return s
}

func (s Speed) String() string {
	switch s {
	case SpeedFast:
		return "fast"
	case SpeedNormal:
		return "normal"
	case SpeedSlow:
		return "slow"
	default:
		return "unknown"
	}
}

// ParseSpeed - accepts "fast", "normal", "slow"; anything else is SpeedNormal.
func ParseSpeed(name string) Speed {
	switch strings.ToLower(name) {
	case "fast":
		return SpeedFast
	case "slow":
		return SpeedSlow
	default:
		return SpeedNormal
	}
}

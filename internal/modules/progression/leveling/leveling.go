// Package leveling maps experience totals onto levels.
//
// The cost to advance from level L is A + B(L-1) + C(L-1)^2 up to the cap level
// and stays flat at the cap cost afterwards.
package leveling

import "github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"

type Curve struct {
	a, b, c  int64
	capLevel int
}

func NewCurve(cfg rules.Leveling) Curve {
	return Curve{a: cfg.A, b: cfg.B, c: cfg.C, capLevel: cfg.CapLevel}
}

// Default is the production curve.
func Default() Curve { return NewCurve(rules.Default().Leveling) }

// Progress is a level plus the XP accumulated toward the next one.
type Progress struct {
	Level          int   `json:"level"`
	Remainder      int64 `json:"remainder"`
	XPForNextLevel int64 `json:"xp_for_next_level"`
}

// XPForNextLevel is the cost of advancing from level to level+1.
func (c Curve) XPForNextLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	if level > c.capLevel {
		level = c.capLevel
	}
	n := int64(level - 1)
	return c.a + c.b*n + c.c*n*n
}

// TotalXPForLevel is the cumulative XP needed to reach level from zero.
func (c Curve) TotalXPForLevel(level int) int64 {
	var total int64
	for i := 1; i < level; i++ {
		total += c.XPForNextLevel(i)
	}
	return total
}

// LevelFromXP inverts the curve. Negative totals sit at level 1 with no remainder.
func (c Curve) LevelFromXP(xp int64) Progress {
	level := 1
	remaining := xp
	if remaining < 0 {
		remaining = 0
	}
	for level < c.capLevel {
		cost := c.XPForNextLevel(level)
		if remaining < cost {
			return Progress{Level: level, Remainder: remaining, XPForNextLevel: cost}
		}
		remaining -= cost
		level++
	}
	flat := c.XPForNextLevel(c.capLevel)
	extra := remaining / flat
	return Progress{
		Level:          level + int(extra),
		Remainder:      remaining - extra*flat,
		XPForNextLevel: flat,
	}
}

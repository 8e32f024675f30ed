package leveling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
)

func TestXPForNextLevel(t *testing.T) {
	c := Default()
	cases := []struct {
		level int
		want  int64
	}{
		{1, 150},
		{2, 181},
		{3, 214},
		{10, 150 + 30*9 + 81},
		{200, 150 + 30*199 + 199*199},
		{201, 150 + 30*199 + 199*199},
		{5000, 150 + 30*199 + 199*199},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.XPForNextLevel(tc.level), "level %d", tc.level)
	}
}

func TestTotalXPForLevel(t *testing.T) {
	c := Default()
	assert.EqualValues(t, 0, c.TotalXPForLevel(1))
	assert.EqualValues(t, 150, c.TotalXPForLevel(2))
	assert.EqualValues(t, 331, c.TotalXPForLevel(3))
}

func TestLevelFromXP(t *testing.T) {
	c := Default()
	cases := []struct {
		xp   int64
		want Progress
	}{
		{0, Progress{Level: 1, Remainder: 0, XPForNextLevel: 150}},
		{-50, Progress{Level: 1, Remainder: 0, XPForNextLevel: 150}},
		{149, Progress{Level: 1, Remainder: 149, XPForNextLevel: 150}},
		{150, Progress{Level: 2, Remainder: 0, XPForNextLevel: 181}},
		{330, Progress{Level: 2, Remainder: 180, XPForNextLevel: 181}},
		{331, Progress{Level: 3, Remainder: 0, XPForNextLevel: 214}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.LevelFromXP(tc.xp), "xp %d", tc.xp)
	}
}

func TestLevelFromXPRoundTripsTotals(t *testing.T) {
	c := Default()
	for _, level := range []int{1, 2, 7, 50, 199, 200, 201, 260} {
		total := c.TotalXPForLevel(level)
		p := c.LevelFromXP(total)
		assert.Equal(t, level, p.Level, "level %d", level)
		assert.EqualValues(t, 0, p.Remainder, "level %d", level)

		p = c.LevelFromXP(total - 1)
		if level > 1 {
			assert.Equal(t, level-1, p.Level, "just under level %d", level)
		}
	}
}

func TestCustomCurve(t *testing.T) {
	c := NewCurve(rules.Leveling{A: 100, B: 0, C: 0, CapLevel: 3})
	assert.Equal(t, Progress{Level: 5, Remainder: 50, XPForNextLevel: 100}, c.LevelFromXP(450))
}

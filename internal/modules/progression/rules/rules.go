// Package rules holds the tunable constants of the progression engine.
package rules

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DayMs = int64(24 * time.Hour / time.Millisecond)

type Leveling struct {
	A        int64 `yaml:"a"`
	B        int64 `yaml:"b"`
	C        int64 `yaml:"c"`
	CapLevel int   `yaml:"cap_level"`
}

type Experience struct {
	XPPerHour        int64         `yaml:"xp_per_hour"`
	DailyBudget      time.Duration `yaml:"daily_budget"`
	ManualEntryMaxXP int64         `yaml:"manual_entry_max_xp"`
	StreakBonusMax   float64       `yaml:"streak_bonus_max"`
	StreakBonusDays  int           `yaml:"streak_bonus_days"`
}

type Streak struct {
	VacationCostXP  int64 `yaml:"vacation_cost_xp"`
	VacationCap     int   `yaml:"vacation_cap"`
	NudgeBatchLimit int   `yaml:"nudge_batch_limit"`
}

type Sessionizer struct {
	GapThreshold      time.Duration `yaml:"gap_threshold"`
	MinMeaningful     time.Duration `yaml:"min_meaningful"`
	LabelRetryDelay   time.Duration `yaml:"label_retry_delay"`
	MaxFutureSkew     time.Duration `yaml:"max_future_skew"`
	StaleSweepLimit   int           `yaml:"stale_sweep_limit"`
	DefaultBatchLimit int           `yaml:"default_batch_limit"`
	// MaxGroupEvents caps the pings read for one group per batch; the rest wait
	// for the next run.
	MaxGroupEvents int `yaml:"max_group_events"`
}

// Rules is the full tuning set. The zero value is not usable; start from Default.
type Rules struct {
	Leveling    Leveling    `yaml:"leveling"`
	Experience  Experience  `yaml:"experience"`
	Streak      Streak      `yaml:"streak"`
	Sessionizer Sessionizer `yaml:"sessionizer"`
}

func Default() Rules {
	return Rules{
		Leveling: Leveling{A: 150, B: 30, C: 1, CapLevel: 200},
		Experience: Experience{
			XPPerHour:        100,
			DailyBudget:      16 * time.Hour,
			ManualEntryMaxXP: 300,
			StreakBonusMax:   2.0,
			StreakBonusDays:  21,
		},
		Streak: Streak{
			VacationCostXP:  1500,
			VacationCap:     7,
			NudgeBatchLimit: 500,
		},
		Sessionizer: Sessionizer{
			GapThreshold:      2 * time.Minute,
			MinMeaningful:     30 * time.Second,
			LabelRetryDelay:   time.Minute,
			MaxFutureSkew:     5 * time.Minute,
			StaleSweepLimit:   200,
			DefaultBatchLimit: 500,
			MaxGroupEvents:    2000,
		},
	}
}

func (r Rules) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(r.Leveling.A > 0, "leveling.a must be > 0")
	check(r.Leveling.B >= 0, "leveling.b must be >= 0")
	check(r.Leveling.C >= 0, "leveling.c must be >= 0")
	check(r.Leveling.CapLevel > 0, "leveling.cap_level must be > 0")
	check(r.Experience.XPPerHour > 0, "experience.xp_per_hour must be > 0")
	check(r.Experience.DailyBudget > 0, "experience.daily_budget must be > 0")
	check(r.Experience.ManualEntryMaxXP > 0, "experience.manual_entry_max_xp must be > 0")
	check(r.Experience.StreakBonusMax >= 1, "experience.streak_bonus_max must be >= 1")
	check(r.Experience.StreakBonusDays > 0, "experience.streak_bonus_days must be > 0")
	check(r.Streak.VacationCostXP > 0, "streak.vacation_cost_xp must be > 0")
	check(r.Streak.VacationCap >= 0, "streak.vacation_cap must be >= 0")
	check(r.Streak.NudgeBatchLimit > 0, "streak.nudge_batch_limit must be > 0")
	check(r.Sessionizer.GapThreshold > 0, "sessionizer.gap_threshold must be > 0")
	check(r.Sessionizer.MinMeaningful >= 0, "sessionizer.min_meaningful must be >= 0")
	check(r.Sessionizer.LabelRetryDelay >= 0, "sessionizer.label_retry_delay must be >= 0")
	check(r.Sessionizer.StaleSweepLimit > 0, "sessionizer.stale_sweep_limit must be > 0")
	check(r.Sessionizer.DefaultBatchLimit > 0, "sessionizer.default_batch_limit must be > 0")
	check(r.Sessionizer.MaxGroupEvents > 0, "sessionizer.max_group_events must be > 0")
	if len(problems) > 0 {
		return fmt.Errorf("invalid progression rules: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads a YAML overlay on top of Default. An empty path returns Default.
func Load(path string) (Rules, error) {
	r := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return r, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	if err := Parse(raw, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return r, r.Validate()
}

// Parse overlays YAML onto r; keys absent from raw keep their current value.
func Parse(raw []byte, r *Rules) error {
	return yaml.Unmarshal(raw, r)
}

// DayStart buckets t into its UTC calendar day.
func DayStart(t time.Time) time.Time {
	ms := t.UTC().UnixMilli()
	return time.UnixMilli(floorDiv(ms, DayMs) * DayMs).UTC()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

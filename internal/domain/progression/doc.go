// Package progression holds the persisted model of the progression engine:
// raw activity pings, reconstructed activities, streak days, the three append-only
// ledgers (streak, vacation, experience) and the denormalized per-user totals.
package progression

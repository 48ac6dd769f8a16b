package domain

import (
	"fmt"
	"strings"
)

// Difficulty is the preparation difficulty of a meal.
type Difficulty string

const (
	DifficultyLow  Difficulty = "LOW"
	DifficultyMed  Difficulty = "MED"
	DifficultyHigh Difficulty = "HIGH"
)

// ParseDifficulty normalizes and validates a difficulty label.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case DifficultyLow, DifficultyMed, DifficultyHigh:
		return d, nil
	default:
		return "", fmt.Errorf("invalid difficulty level: %s, must be 'LOW', 'MED', or 'HIGH'", s)
	}
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyLow, DifficultyMed, DifficultyHigh:
		return true
	}
	return false
}

// Outcome is the result of a battle for a single meal.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

func (o Outcome) Valid() bool { return o == OutcomeWin || o == OutcomeLoss }

// Meal is a persisted combatant. ID is assigned by the store and never reused.
type Meal struct {
	ID         int64
	Name       string
	Cuisine    string
	Price      float64
	Difficulty Difficulty
}

// Validate checks the creation invariants: positive price, known difficulty.
func (m *Meal) Validate() error {
	if m.Price <= 0 {
		return fmt.Errorf("invalid price: %v, price must be a positive number", m.Price)
	}
	if !m.Difficulty.Valid() {
		return fmt.Errorf("invalid difficulty level: %s, must be 'LOW', 'MED', or 'HIGH'", m.Difficulty)
	}
	return nil
}

// LeaderboardEntry is a ranked projection of an active meal with battles > 0.
type LeaderboardEntry struct {
	ID         int64
	Name       string
	Cuisine    string
	Price      float64
	Difficulty Difficulty
	Battles    int64
	Wins       int64
	WinPct     float64 // wins/battles*100, rounded to one decimal
}

// SortKey selects the leaderboard ordering metric.
type SortKey string

const (
	SortByWins   SortKey = "wins"
	SortByWinPct SortKey = "win_pct"
)

func (k SortKey) Valid() bool { return k == SortByWins || k == SortByWinPct }

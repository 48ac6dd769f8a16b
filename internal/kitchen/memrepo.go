package kitchen

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kapu/meal-max-arena/internal/domain"
)

type memRow struct {
	meal    domain.Meal
	battles int64
	wins    int64
	deleted bool
}

// memRepository is an in-memory Repository used in tests and when no DB is
// configured. IDs are monotonic and never reused, matching the Postgres
// sequence behavior.
type memRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*memRow
}

func NewMemoryRepository() Repository {
	return &memRepository{rows: make(map[int64]*memRow)}
}

func (m *memRepository) Create(ctx context.Context, name, cuisine string, price float64, difficulty domain.Difficulty) (int64, error) {
	if err := validateMeal(name, price, difficulty); err != nil {
		return 0, err
	}
	// Names are stored trimmed; the duplicate check must see the same form.
	name = strings.TrimSpace(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if !row.deleted && row.meal.Name == name {
			return 0, fmt.Errorf("%w: meal with name %q", ErrDuplicateMeal, name)
		}
	}

	m.nextID++
	id := m.nextID
	m.rows[id] = &memRow{meal: domain.Meal{
		ID:         id,
		Name:       name,
		Cuisine:    cuisine,
		Price:      price,
		Difficulty: difficulty,
	}}
	return id, nil
}

func (m *memRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
	}
	if row.deleted {
		return fmt.Errorf("%w: meal with ID %d", ErrAlreadyDeleted, id)
	}
	row.deleted = true
	return nil
}

func (m *memRepository) GetByID(ctx context.Context, id int64) (*domain.Meal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
	}
	if row.deleted {
		return nil, fmt.Errorf("%w: meal with ID %d", ErrMealDeleted, id)
	}
	meal := row.meal
	return &meal, nil
}

func (m *memRepository) GetByName(ctx context.Context, name string) (*domain.Meal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Prefer the active row; a deleted namesake only matters when no active
	// row exists.
	var deletedMatch *memRow
	for _, row := range m.rows {
		if row.meal.Name != name {
			continue
		}
		if !row.deleted {
			meal := row.meal
			return &meal, nil
		}
		deletedMatch = row
	}
	if deletedMatch != nil {
		return nil, fmt.Errorf("%w: meal with name %q", ErrMealDeleted, name)
	}
	return nil, fmt.Errorf("%w: meal with name %q", ErrMealNotFound, name)
}

func (m *memRepository) Leaderboard(ctx context.Context, sortBy domain.SortKey) ([]*domain.LeaderboardEntry, error) {
	if !sortBy.Valid() {
		return nil, fmt.Errorf("%w: invalid sort_by parameter: %s", ErrValidation, sortBy)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var board []*domain.LeaderboardEntry
	for _, row := range m.rows {
		if row.deleted || row.battles == 0 {
			continue
		}
		board = append(board, &domain.LeaderboardEntry{
			ID:         row.meal.ID,
			Name:       row.meal.Name,
			Cuisine:    row.meal.Cuisine,
			Price:      row.meal.Price,
			Difficulty: row.meal.Difficulty,
			Battles:    row.battles,
			Wins:       row.wins,
			WinPct:     roundPct(row.wins, row.battles),
		})
	}
	sort.Slice(board, func(i, j int) bool {
		if sortBy == domain.SortByWinPct {
			if board[i].WinPct != board[j].WinPct {
				return board[i].WinPct > board[j].WinPct
			}
		} else if board[i].Wins != board[j].Wins {
			return board[i].Wins > board[j].Wins
		}
		return board[i].ID < board[j].ID
	})
	return board, nil
}

func roundPct(wins, battles int64) float64 {
	return math.Round(float64(wins)/float64(battles)*1000) / 10
}

func (m *memRepository) UpdateStats(ctx context.Context, id int64, outcome domain.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: invalid result: %s, expected 'win' or 'loss'", ErrValidation, outcome)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatsLocked(id, outcome)
}

func (m *memRepository) updateStatsLocked(id int64, outcome domain.Outcome) error {
	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
	}
	if row.deleted {
		return fmt.Errorf("%w: meal with ID %d", ErrMealDeleted, id)
	}
	row.battles++
	if outcome == domain.OutcomeWin {
		row.wins++
	}
	return nil
}

func (m *memRepository) RecordBattle(ctx context.Context, winnerID, loserID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check both rows first so a bad loser id cannot leave a half-recorded
	// battle behind.
	for _, id := range []int64{winnerID, loserID} {
		row, ok := m.rows[id]
		if !ok {
			return fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
		}
		if row.deleted {
			return fmt.Errorf("%w: meal with ID %d", ErrMealDeleted, id)
		}
	}
	if err := m.updateStatsLocked(winnerID, domain.OutcomeWin); err != nil {
		return err
	}
	return m.updateStatsLocked(loserID, domain.OutcomeLoss)
}

func (m *memRepository) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[int64]*memRow)
	m.nextID = 0
	return nil
}

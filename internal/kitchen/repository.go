package kitchen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/domain"
	"github.com/kapu/meal-max-arena/internal/obslog"
)

// Error taxonomy surfaced to callers. Wrapped errors keep the detail,
// errors.Is against these sentinels keeps the class.
var (
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateMeal  = errors.New("meal already exists")
	ErrMealNotFound   = errors.New("meal not found")
	ErrMealDeleted    = errors.New("meal has been deleted")
	ErrAlreadyDeleted = errors.New("meal has already been deleted")
	ErrStorage        = errors.New("storage error")
)

// Repository owns all persisted meal state.
type Repository interface {
	Create(ctx context.Context, name, cuisine string, price float64, difficulty domain.Difficulty) (int64, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Meal, error)
	GetByName(ctx context.Context, name string) (*domain.Meal, error)
	Leaderboard(ctx context.Context, sortBy domain.SortKey) ([]*domain.LeaderboardEntry, error)
	UpdateStats(ctx context.Context, id int64, outcome domain.Outcome) error
	RecordBattle(ctx context.Context, winnerID, loserID int64) error
	ClearAll(ctx context.Context) error
}

// schemaSQL recreates the meals table from scratch. IDs come from a sequence
// that survives soft deletes, so an id is never handed out twice. Name
// uniqueness applies to active rows only.
const schemaSQL = `
	DROP TABLE IF EXISTS meals;
	CREATE TABLE meals (
		id BIGSERIAL PRIMARY KEY,
		meal TEXT NOT NULL,
		cuisine TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL CHECK (price > 0),
		difficulty TEXT NOT NULL CHECK (difficulty IN ('LOW', 'MED', 'HIGH')),
		battles BIGINT NOT NULL DEFAULT 0,
		wins BIGINT NOT NULL DEFAULT 0,
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE UNIQUE INDEX meals_name_active ON meals (meal) WHERE NOT deleted;`

const uniqueViolation = "23505"

type pgRepository struct {
	db *sql.DB
}

// NewRepository opens a Postgres-backed meal repository.
func NewRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &pgRepository{db: db}, nil
}

// NewRepositoryWithDB wraps an existing connection pool.
func NewRepositoryWithDB(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

func (r *pgRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func validateMeal(name string, price float64, difficulty domain.Difficulty) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: meal name must not be empty", ErrValidation)
	}
	if price <= 0 {
		return fmt.Errorf("%w: invalid price %v, price must be a positive number", ErrValidation, price)
	}
	if !difficulty.Valid() {
		return fmt.Errorf("%w: invalid difficulty level %q, must be 'LOW', 'MED', or 'HIGH'", ErrValidation, difficulty)
	}
	return nil
}

func (r *pgRepository) Create(ctx context.Context, name, cuisine string, price float64, difficulty domain.Difficulty) (int64, error) {
	if err := validateMeal(name, price, difficulty); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)

	const query = `
		INSERT INTO meals (meal, cuisine, price, difficulty)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, name, cuisine, price, string(difficulty)).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%w: meal with name %q", ErrDuplicateMeal, name)
		}
		return 0, fmt.Errorf("%w: insert meal: %v", ErrStorage, err)
	}
	obslog.L().Info("meal_create", zap.Int64("meal_id", id), zap.String("meal", name))
	return id, nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	// Update first; a concurrent deleter losing the race must see
	// AlreadyDeleted, not a second success.
	res, err := r.db.ExecContext(ctx, `UPDATE meals SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("%w: delete meal: %v", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete meal: %v", ErrStorage, err)
	}
	if n == 0 {
		var deleted bool
		err := r.db.QueryRowContext(ctx, `SELECT deleted FROM meals WHERE id = $1`, id).Scan(&deleted)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("%w: select meal: %v", ErrStorage, err)
		}
		return fmt.Errorf("%w: meal with ID %d", ErrAlreadyDeleted, id)
	}
	obslog.L().Info("meal_delete", zap.Int64("meal_id", id))
	return nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*domain.Meal, error) {
	const query = `
		SELECT id, meal, cuisine, price, difficulty, deleted
		FROM meals
		WHERE id = $1`

	m, deleted, err := r.scanMeal(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select meal: %v", ErrStorage, err)
	}
	if deleted {
		return nil, fmt.Errorf("%w: meal with ID %d", ErrMealDeleted, id)
	}
	return m, nil
}

func (r *pgRepository) GetByName(ctx context.Context, name string) (*domain.Meal, error) {
	const query = `
		SELECT id, meal, cuisine, price, difficulty, deleted
		FROM meals
		WHERE meal = $1
		ORDER BY deleted ASC, id DESC
		LIMIT 1`

	m, deleted, err := r.scanMeal(r.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: meal with name %q", ErrMealNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select meal: %v", ErrStorage, err)
	}
	if deleted {
		return nil, fmt.Errorf("%w: meal with name %q", ErrMealDeleted, name)
	}
	return m, nil
}

func (r *pgRepository) scanMeal(row *sql.Row) (*domain.Meal, bool, error) {
	var (
		m          domain.Meal
		difficulty string
		deleted    bool
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Cuisine, &m.Price, &difficulty, &deleted); err != nil {
		return nil, false, err
	}
	m.Difficulty = domain.Difficulty(difficulty)
	return &m, deleted, nil
}

func (r *pgRepository) Leaderboard(ctx context.Context, sortBy domain.SortKey) ([]*domain.LeaderboardEntry, error) {
	if !sortBy.Valid() {
		return nil, fmt.Errorf("%w: invalid sort_by parameter: %s", ErrValidation, sortBy)
	}

	query := `
		SELECT id, meal, cuisine, price, difficulty, battles, wins,
			ROUND(wins * 100.0 / battles, 1) AS win_pct
		FROM meals
		WHERE NOT deleted AND battles > 0`
	if sortBy == domain.SortByWinPct {
		query += ` ORDER BY win_pct DESC`
	} else {
		query += ` ORDER BY wins DESC`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: select leaderboard: %v", ErrStorage, err)
	}
	defer rows.Close()

	var board []*domain.LeaderboardEntry
	for rows.Next() {
		var (
			e          domain.LeaderboardEntry
			difficulty string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Cuisine, &e.Price, &difficulty, &e.Battles, &e.Wins, &e.WinPct); err != nil {
			return nil, fmt.Errorf("%w: scan leaderboard row: %v", ErrStorage, err)
		}
		e.Difficulty = domain.Difficulty(difficulty)
		board = append(board, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: leaderboard rows: %v", ErrStorage, err)
	}
	return board, nil
}

func (r *pgRepository) UpdateStats(ctx context.Context, id int64, outcome domain.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: invalid result: %s, expected 'win' or 'loss'", ErrValidation, outcome)
	}
	return r.updateStatsExec(ctx, r.db, id, outcome)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// updateStatsExec increments counters with a single UPDATE so concurrent
// battles over the same meal never lose a count.
func (r *pgRepository) updateStatsExec(ctx context.Context, db execer, id int64, outcome domain.Outcome) error {
	query := `UPDATE meals SET battles = battles + 1 WHERE id = $1 AND NOT deleted`
	if outcome == domain.OutcomeWin {
		query = `UPDATE meals SET battles = battles + 1, wins = wins + 1 WHERE id = $1 AND NOT deleted`
	}
	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: update meal stats: %v", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update meal stats: %v", ErrStorage, err)
	}
	if n == 0 {
		var deleted bool
		err := db.QueryRowContext(ctx, `SELECT deleted FROM meals WHERE id = $1`, id).Scan(&deleted)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: meal with ID %d", ErrMealNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("%w: select meal: %v", ErrStorage, err)
		}
		return fmt.Errorf("%w: meal with ID %d", ErrMealDeleted, id)
	}
	return nil
}

// RecordBattle commits both combatants' counters in one transaction: either
// the winner's win and the loser's loss both land, or neither does.
func (r *pgRepository) RecordBattle(ctx context.Context, winnerID, loserID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin battle tx: %v", ErrStorage, err)
	}
	defer tx.Rollback()

	if err := r.updateStatsExec(ctx, tx, winnerID, domain.OutcomeWin); err != nil {
		return err
	}
	if err := r.updateStatsExec(ctx, tx, loserID, domain.OutcomeLoss); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit battle tx: %v", ErrStorage, err)
	}
	obslog.L().Info("battle_recorded", zap.Int64("winner_id", winnerID), zap.Int64("loser_id", loserID))
	return nil
}

func (r *pgRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: clear meals: %v", ErrStorage, err)
	}
	obslog.L().Info("meals_cleared")
	return nil
}

package kitchen

import (
	"context"
	"errors"
	"testing"

	"github.com/kapu/meal-max-arena/internal/domain"
)

func mustCreate(t *testing.T, repo Repository, name, cuisine string, price float64, difficulty domain.Difficulty) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), name, cuisine, price, difficulty)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return id
}

func TestCreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)

	byName, err := repo.GetByName(ctx, "Pasta")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if byName.ID != id || byName.Cuisine != "Italian" || byName.Price != 10.0 || byName.Difficulty != domain.DifficultyMed {
		t.Fatalf("unexpected meal: %+v", byName)
	}

	byID, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Name != "Pasta" {
		t.Fatalf("get by id name = %s", byID.Name)
	}

	// fresh meals carry no battle stats and stay off the leaderboard
	board, err := repo.Leaderboard(ctx, domain.SortByWins)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 0 {
		t.Fatalf("fresh meal on leaderboard: %d rows", len(board))
	}
}

func TestCreateValidation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	cases := []struct {
		name       string
		meal       string
		price      float64
		difficulty domain.Difficulty
	}{
		{"zero price", "Pasta", 0, domain.DifficultyMed},
		{"negative price", "Pasta", -3.5, domain.DifficultyMed},
		{"unknown difficulty", "Pasta", 10, domain.Difficulty("EXTREME")},
		{"empty name", "", 10, domain.DifficultyMed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := repo.Create(ctx, tc.meal, "Italian", tc.price, tc.difficulty); !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestDuplicateNameAndReuseAfterDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)

	if _, err := repo.Create(ctx, "Pasta", "Korean", 8.0, domain.DifficultyLow); !errors.Is(err, ErrDuplicateMeal) {
		t.Fatalf("duplicate create: got %v, want ErrDuplicateMeal", err)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// the name frees up once the original is soft-deleted
	id2, err := repo.Create(ctx, "Pasta", "Korean", 8.0, domain.DifficultyLow)
	if err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
	if id2 == id {
		t.Fatalf("id %d reused after delete", id)
	}
	m, err := repo.GetByName(ctx, "Pasta")
	if err != nil {
		t.Fatalf("get recreated: %v", err)
	}
	if m.ID != id2 || m.Cuisine != "Korean" {
		t.Fatalf("lookup returned stale row: %+v", m)
	}
}

func TestDuplicateNameIgnoresSurroundingSpace(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)

	if _, err := repo.Create(ctx, " Pasta ", "Korean", 8.0, domain.DifficultyLow); !errors.Is(err, ErrDuplicateMeal) {
		t.Fatalf("padded duplicate create: got %v, want ErrDuplicateMeal", err)
	}

	// a padded name is stored trimmed and found under its trimmed form
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	id2, err := repo.Create(ctx, "  Pasta", "Korean", 8.0, domain.DifficultyLow)
	if err != nil {
		t.Fatalf("create padded: %v", err)
	}
	m, err := repo.GetByID(ctx, id2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Name != "Pasta" {
		t.Fatalf("stored name = %q, want trimmed", m.Name)
	}
	if _, err := repo.GetByName(ctx, "Pasta"); err != nil {
		t.Fatalf("get by trimmed name: %v", err)
	}
}

func TestDeleteErrors(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Delete(ctx, 42); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("delete missing: got %v, want ErrMealNotFound", err)
	}

	id := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrAlreadyDeleted) {
		t.Fatalf("second delete: got %v, want ErrAlreadyDeleted", err)
	}

	if _, err := repo.GetByID(ctx, id); !errors.Is(err, ErrMealDeleted) {
		t.Fatalf("get deleted by id: got %v, want ErrMealDeleted", err)
	}
	if _, err := repo.GetByName(ctx, "Pasta"); !errors.Is(err, ErrMealDeleted) {
		t.Fatalf("get deleted by name: got %v, want ErrMealDeleted", err)
	}
}

func TestGetMissing(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, 7); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("get by id: got %v, want ErrMealNotFound", err)
	}
	if _, err := repo.GetByName(ctx, "Ghost"); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("get by name: got %v, want ErrMealNotFound", err)
	}
}

func TestUpdateStats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)

	if err := repo.UpdateStats(ctx, id, domain.OutcomeWin); err != nil {
		t.Fatalf("win update: %v", err)
	}
	if err := repo.UpdateStats(ctx, id, domain.OutcomeLoss); err != nil {
		t.Fatalf("loss update: %v", err)
	}
	if err := repo.UpdateStats(ctx, id, domain.OutcomeLoss); err != nil {
		t.Fatalf("loss update: %v", err)
	}

	board, err := repo.Leaderboard(ctx, domain.SortByWins)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 {
		t.Fatalf("leaderboard rows = %d, want 1", len(board))
	}
	e := board[0]
	if e.Battles != 3 || e.Wins != 1 {
		t.Fatalf("battles=%d wins=%d, want 3/1", e.Battles, e.Wins)
	}
	if e.Wins > e.Battles {
		t.Fatalf("wins %d exceeds battles %d", e.Wins, e.Battles)
	}
	if e.WinPct != 33.3 {
		t.Fatalf("win_pct = %v, want 33.3", e.WinPct)
	}

	if err := repo.UpdateStats(ctx, id, domain.Outcome("draw")); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad outcome: got %v, want ErrValidation", err)
	}
	if err := repo.UpdateStats(ctx, 99, domain.OutcomeWin); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("missing meal: got %v, want ErrMealNotFound", err)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.UpdateStats(ctx, id, domain.OutcomeWin); !errors.Is(err, ErrMealDeleted) {
		t.Fatalf("deleted meal: got %v, want ErrMealDeleted", err)
	}
}

func TestLeaderboardSorting(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Pasta: 3 battles 1 win (33.3%), Sushi: 2 battles 2 wins (100%),
	// Tacos: 5 battles 3 wins (60%), Salad: no battles, Stew: deleted.
	pasta := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)
	sushi := mustCreate(t, repo, "Sushi", "Japanese", 12.0, domain.DifficultyLow)
	tacos := mustCreate(t, repo, "Tacos", "Mexican", 6.0, domain.DifficultyHigh)
	mustCreate(t, repo, "Salad", "Greek", 5.0, domain.DifficultyLow)
	stew := mustCreate(t, repo, "Stew", "Irish", 9.0, domain.DifficultyMed)

	record := func(id int64, wins, losses int) {
		for i := 0; i < wins; i++ {
			if err := repo.UpdateStats(ctx, id, domain.OutcomeWin); err != nil {
				t.Fatalf("win: %v", err)
			}
		}
		for i := 0; i < losses; i++ {
			if err := repo.UpdateStats(ctx, id, domain.OutcomeLoss); err != nil {
				t.Fatalf("loss: %v", err)
			}
		}
	}
	record(pasta, 1, 2)
	record(sushi, 2, 0)
	record(tacos, 3, 2)
	record(stew, 1, 0)
	if err := repo.Delete(ctx, stew); err != nil {
		t.Fatalf("delete stew: %v", err)
	}

	byWins, err := repo.Leaderboard(ctx, domain.SortByWins)
	if err != nil {
		t.Fatalf("leaderboard wins: %v", err)
	}
	if len(byWins) != 3 {
		t.Fatalf("rows = %d, want 3 (no deleted, no zero-battle)", len(byWins))
	}
	if byWins[0].Name != "Tacos" || byWins[1].Name != "Sushi" || byWins[2].Name != "Pasta" {
		t.Fatalf("wins order: %s, %s, %s", byWins[0].Name, byWins[1].Name, byWins[2].Name)
	}

	byPct, err := repo.Leaderboard(ctx, domain.SortByWinPct)
	if err != nil {
		t.Fatalf("leaderboard win_pct: %v", err)
	}
	if byPct[0].Name != "Sushi" || byPct[1].Name != "Tacos" || byPct[2].Name != "Pasta" {
		t.Fatalf("win_pct order: %s, %s, %s", byPct[0].Name, byPct[1].Name, byPct[2].Name)
	}
	if byPct[0].WinPct != 100.0 || byPct[1].WinPct != 60.0 || byPct[2].WinPct != 33.3 {
		t.Fatalf("win_pct values: %v, %v, %v", byPct[0].WinPct, byPct[1].WinPct, byPct[2].WinPct)
	}

	if _, err := repo.Leaderboard(ctx, domain.SortKey("price")); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad sort key: got %v, want ErrValidation", err)
	}
}

func TestRecordBattle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	pasta := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)
	sushi := mustCreate(t, repo, "Sushi", "Japanese", 12.0, domain.DifficultyLow)

	if err := repo.RecordBattle(ctx, sushi, pasta); err != nil {
		t.Fatalf("record battle: %v", err)
	}
	board, err := repo.Leaderboard(ctx, domain.SortByWins)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("rows = %d, want 2", len(board))
	}
	if board[0].Name != "Sushi" || board[0].Wins != 1 || board[0].Battles != 1 {
		t.Fatalf("winner row: %+v", board[0])
	}
	if board[1].Wins != 0 || board[1].Battles != 1 {
		t.Fatalf("loser row: %+v", board[1])
	}
}

func TestRecordBattleFailsAtomically(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	pasta := mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)

	if err := repo.RecordBattle(ctx, pasta, 99); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("got %v, want ErrMealNotFound", err)
	}
	// the winner's counters must not have moved
	board, err := repo.Leaderboard(ctx, domain.SortByWins)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 0 {
		t.Fatalf("half-recorded battle: %d rows", len(board))
	}
}

func TestClearAll(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	mustCreate(t, repo, "Pasta", "Italian", 10.0, domain.DifficultyMed)
	mustCreate(t, repo, "Sushi", "Japanese", 12.0, domain.DifficultyLow)

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := repo.GetByName(ctx, "Pasta"); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("got %v, want ErrMealNotFound after clear", err)
	}
}

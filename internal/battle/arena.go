package battle

import (
	"context"
	"errors"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/domain"
	"github.com/kapu/meal-max-arena/internal/events"
	"github.com/kapu/meal-max-arena/internal/kitchen"
	"github.com/kapu/meal-max-arena/internal/obslog"
)

var (
	ErrCombatantsFull      = errors.New("Combatant list is full, cannot add more combatants.")
	ErrNotEnoughCombatants = errors.New("Two combatants must be prepped for a battle.")
	ErrNilCombatant        = errors.New("combatant must not be nil")
)

// RandomSource supplies one uniformly distributed value in [0,1) per call.
// Implementations must surface timeouts as a distinguishable error.
type RandomSource interface {
	Next(ctx context.Context) (float64, error)
}

// Difficulty penalties subtracted from the raw score. Values rise with
// difficulty; only MED is fixed by observed behavior, the rest follow the
// same step.
const (
	penaltyLow  = 1.0
	penaltyMed  = 2.0
	penaltyHigh = 3.0
)

func difficultyPenalty(d domain.Difficulty) float64 {
	switch d {
	case domain.DifficultyLow:
		return penaltyLow
	case domain.DifficultyHigh:
		return penaltyHigh
	default:
		return penaltyMed
	}
}

// Score is the deterministic battle rating of a meal:
// price times cuisine-name length, minus the difficulty penalty.
func Score(m *domain.Meal) float64 {
	return m.Price*float64(len(m.Cuisine)) - difficultyPenalty(m.Difficulty)
}

// Arena stages up to two combatants and resolves a battle between them.
// All staging mutations are serialized behind the mutex; one Arena is one
// logical battle ring.
type Arena struct {
	mu         sync.Mutex
	combatants [2]*domain.Meal
	count      int

	repo   kitchen.Repository
	random RandomSource
	hub    *events.Hub
}

func NewArena(repo kitchen.Repository, random RandomSource) *Arena {
	return &Arena{repo: repo, random: random}
}

// AttachEvents wires an event hub for live battle announcements.
func (a *Arena) AttachEvents(h *events.Hub) {
	if a != nil {
		a.hub = h
	}
}

func (a *Arena) publish(evType string, fields map[string]any) {
	if a.hub != nil {
		a.hub.Publish(evType, fields)
	}
}

// Stage adds a combatant. Fails once two are already staged.
func (a *Arena) Stage(meal *domain.Meal) error {
	if meal == nil {
		return ErrNilCombatant
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.count >= len(a.combatants) {
		return ErrCombatantsFull
	}
	a.combatants[a.count] = meal
	a.count++
	obslog.L().Info("combatant_staged",
		zap.Int64("meal_id", meal.ID),
		zap.String("meal", meal.Name),
		zap.Int("staged", a.count),
	)
	a.publish("battle.staged", map[string]any{"Name": meal.Name, "ID": meal.ID})
	return nil
}

// Clear empties the staging slots unconditionally.
func (a *Arena) Clear() {
	a.mu.Lock()
	a.combatants[0], a.combatants[1] = nil, nil
	a.count = 0
	a.mu.Unlock()
	obslog.L().Info("combatants_cleared")
	a.publish("battle.cleared", nil)
}

// Combatants returns the staged meals in insertion order.
func (a *Arena) Combatants() []*domain.Meal {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*domain.Meal, 0, a.count)
	for i := 0; i < a.count; i++ {
		out = append(out, a.combatants[i])
	}
	return out
}

// Battle resolves the staged pair. The score gap biases the draw toward the
// higher-scoring combatant: with gap g = clamp(|sA-sB|/100, 0, 1), the
// favorite wins iff draw < (1+g)/2. A zero gap is a fair coin; a gap of one
// is near certainty. On any failure nothing is committed and the staging
// slots are untouched. The winner stays staged, the loser is evicted.
func (a *Arena) Battle(ctx context.Context) (*domain.Meal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.count < 2 {
		return nil, ErrNotEnoughCombatants
	}

	first, second := a.combatants[0], a.combatants[1]
	scoreFirst := Score(first)
	scoreSecond := Score(second)
	obslog.L().Info("battle_start",
		zap.String("combatant_a", first.Name), zap.Float64("score_a", scoreFirst),
		zap.String("combatant_b", second.Name), zap.Float64("score_b", scoreSecond),
	)
	a.publish("battle.start", map[string]any{"A": first.Name, "B": second.Name})

	gap := math.Abs(scoreFirst-scoreSecond) / 100
	if gap >= 1 {
		gap = math.Nextafter(1, 0)
	}

	draw, err := a.random.Next(ctx)
	if err != nil {
		return nil, err
	}

	favorite, underdog := first, second
	if scoreSecond > scoreFirst {
		favorite, underdog = second, first
	}
	winner, loser := favorite, underdog
	if draw >= (1+gap)/2 {
		winner, loser = underdog, favorite
	}

	if err := a.repo.RecordBattle(ctx, winner.ID, loser.ID); err != nil {
		return nil, err
	}

	a.combatants[0] = winner
	a.combatants[1] = nil
	a.count = 1

	obslog.L().Info("battle_result",
		zap.String("winner", winner.Name),
		zap.String("loser", loser.Name),
		zap.Float64("gap", gap),
		zap.Float64("draw", draw),
	)
	a.publish("battle.result", map[string]any{"Winner": winner.Name, "Loser": loser.Name})
	return winner, nil
}

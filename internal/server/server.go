package server

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/battle"
	"github.com/kapu/meal-max-arena/internal/domain"
	"github.com/kapu/meal-max-arena/internal/kitchen"
	"github.com/kapu/meal-max-arena/internal/leaderboard"
	"github.com/kapu/meal-max-arena/internal/obslog"
	"github.com/kapu/meal-max-arena/internal/randomorg"
	"github.com/kapu/meal-max-arena/pkg/mealdto"
)

// Server exposes the kitchen and arena over a JSON API.
type Server struct {
	repo  kitchen.Repository
	arena *battle.Arena
	board *leaderboard.Cache
}

func New(repo kitchen.Repository, arena *battle.Arena, board *leaderboard.Cache) *Server {
	return &Server{repo: repo, arena: arena, board: board}
}

// Handler routes /api requests.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/api/health" && method == fasthttp.MethodGet:
			writeJSON(ctx, fasthttp.StatusOK, mealdto.StatusResponse{Status: "healthy"})
		case path == "/api/create-meal" && (method == fasthttp.MethodPost || method == fasthttp.MethodPut):
			s.handleCreateMeal(ctx)
		case strings.HasPrefix(path, "/api/delete-meal/") && method == fasthttp.MethodDelete:
			s.handleDeleteMeal(ctx, strings.TrimPrefix(path, "/api/delete-meal/"))
		case strings.HasPrefix(path, "/api/get-meal-by-id/") && method == fasthttp.MethodGet:
			s.handleGetMealByID(ctx, strings.TrimPrefix(path, "/api/get-meal-by-id/"))
		case strings.HasPrefix(path, "/api/get-meal-by-name/") && method == fasthttp.MethodGet:
			s.handleGetMealByName(ctx, strings.TrimPrefix(path, "/api/get-meal-by-name/"))
		case path == "/api/leaderboard" && method == fasthttp.MethodGet:
			s.handleLeaderboard(ctx)
		case path == "/api/clear-meals" && method == fasthttp.MethodDelete:
			s.handleClearMeals(ctx)
		case path == "/api/prep-combatant" && method == fasthttp.MethodPost:
			s.handlePrepCombatant(ctx)
		case path == "/api/get-combatants" && method == fasthttp.MethodGet:
			s.handleGetCombatants(ctx)
		case path == "/api/battle" && method == fasthttp.MethodPost:
			s.handleBattle(ctx)
		case path == "/api/clear-combatants" && method == fasthttp.MethodPost:
			s.handleClearCombatants(ctx)
		default:
			writeJSON(ctx, fasthttp.StatusNotFound, mealdto.ErrorResponse{Error: "unknown route"})
		}
	}
}

func (s *Server) handleCreateMeal(ctx *fasthttp.RequestCtx) {
	var req mealdto.CreateMealRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, mealdto.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, mealdto.ErrorResponse{Error: err.Error()})
		return
	}
	id, err := s.repo.Create(ctx, req.Meal, req.Cuisine, req.Price, difficulty)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, mealdto.CreateMealResponse{Status: "success", MealID: id})
}

func (s *Server) handleDeleteMeal(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, mealdto.ErrorResponse{Error: "invalid meal id"})
		return
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		writeError(ctx, err)
		return
	}
	s.board.Invalidate(ctx)
	writeJSON(ctx, fasthttp.StatusOK, mealdto.StatusResponse{Status: "success"})
}

func (s *Server) handleGetMealByID(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, mealdto.ErrorResponse{Error: "invalid meal id"})
		return
	}
	meal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, mealdto.MealResponse{Status: "success", Meal: toDTO(meal)})
}

func (s *Server) handleGetMealByName(ctx *fasthttp.RequestCtx, name string) {
	meal, err := s.repo.GetByName(ctx, name)
	if err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, mealdto.MealResponse{Status: "success", Meal: toDTO(meal)})
}

func (s *Server) handleLeaderboard(ctx *fasthttp.RequestCtx) {
	sortBy := domain.SortByWins
	if v := string(ctx.QueryArgs().Peek("sort")); v != "" {
		sortBy = domain.SortKey(v)
	}
	board, err := s.board.Get(ctx, sortBy)
	if err != nil {
		writeError(ctx, err)
		return
	}
	entries := make([]mealdto.LeaderboardEntry, 0, len(board))
	for _, e := range board {
		entries = append(entries, mealdto.LeaderboardEntry{
			ID:         e.ID,
			Meal:       e.Name,
			Cuisine:    e.Cuisine,
			Price:      e.Price,
			Difficulty: string(e.Difficulty),
			Battles:    e.Battles,
			Wins:       e.Wins,
			WinPct:     e.WinPct,
		})
	}
	writeJSON(ctx, fasthttp.StatusOK, mealdto.LeaderboardResponse{Status: "success", Leaderboard: entries})
}

func (s *Server) handleClearMeals(ctx *fasthttp.RequestCtx) {
	if err := s.repo.ClearAll(ctx); err != nil {
		writeError(ctx, err)
		return
	}
	s.board.Invalidate(ctx)
	writeJSON(ctx, fasthttp.StatusOK, mealdto.StatusResponse{Status: "success"})
}

func (s *Server) handlePrepCombatant(ctx *fasthttp.RequestCtx) {
	var req mealdto.PrepCombatantRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, mealdto.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	meal, err := s.repo.GetByName(ctx, req.Meal)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if err := s.arena.Stage(meal); err != nil {
		writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, mealdto.CombatantsResponse{Status: "success", Combatants: toDTOs(s.arena.Combatants())})
}

func (s *Server) handleGetCombatants(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, mealdto.CombatantsResponse{Status: "success", Combatants: toDTOs(s.arena.Combatants())})
}

func (s *Server) handleBattle(ctx *fasthttp.RequestCtx) {
	winner, err := s.arena.Battle(ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	s.board.Invalidate(ctx)
	writeJSON(ctx, fasthttp.StatusOK, mealdto.BattleResponse{Status: "success", Winner: winner.Name})
}

func (s *Server) handleClearCombatants(ctx *fasthttp.RequestCtx) {
	s.arena.Clear()
	writeJSON(ctx, fasthttp.StatusOK, mealdto.StatusResponse{Status: "success"})
}

func toDTO(m *domain.Meal) mealdto.Meal {
	return mealdto.Meal{
		ID:         m.ID,
		Meal:       m.Name,
		Cuisine:    m.Cuisine,
		Price:      m.Price,
		Difficulty: string(m.Difficulty),
	}
}

func toDTOs(meals []*domain.Meal) []mealdto.Meal {
	out := make([]mealdto.Meal, 0, len(meals))
	for _, m := range meals {
		out = append(out, toDTO(m))
	}
	return out
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	writeJSON(ctx, statusFor(err), mealdto.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, kitchen.ErrValidation):
		return fasthttp.StatusBadRequest
	case errors.Is(err, kitchen.ErrDuplicateMeal):
		return fasthttp.StatusConflict
	case errors.Is(err, kitchen.ErrMealNotFound):
		return fasthttp.StatusNotFound
	case errors.Is(err, kitchen.ErrMealDeleted), errors.Is(err, kitchen.ErrAlreadyDeleted):
		return fasthttp.StatusGone
	case errors.Is(err, battle.ErrCombatantsFull), errors.Is(err, battle.ErrNotEnoughCombatants):
		return fasthttp.StatusConflict
	case errors.Is(err, randomorg.ErrTimeout):
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		obslog.L().Error("encode response", zap.Error(err))
	}
}

package mealdto

type Meal struct {
	ID         int64   `json:"id"`
	Meal       string  `json:"meal"`
	Cuisine    string  `json:"cuisine"`
	Price      float64 `json:"price"`
	Difficulty string  `json:"difficulty"`
}

type LeaderboardEntry struct {
	ID         int64   `json:"id"`
	Meal       string  `json:"meal"`
	Cuisine    string  `json:"cuisine"`
	Price      float64 `json:"price"`
	Difficulty string  `json:"difficulty"`
	Battles    int64   `json:"battles"`
	Wins       int64   `json:"wins"`
	WinPct     float64 `json:"win_pct"`
}

type LeaderboardResponse struct {
	Status      string             `json:"status"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type CreateMealResponse struct {
	Status string `json:"status"`
	MealID int64  `json:"meal_id"`
}

type MealResponse struct {
	Status string `json:"status"`
	Meal   Meal   `json:"meal"`
}

type CombatantsResponse struct {
	Status     string `json:"status"`
	Combatants []Meal `json:"combatants"`
}

type BattleResponse struct {
	Status string `json:"status"`
	Winner string `json:"winner"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

package mealdto

// CreateMealRequest mirrors the create-meal JSON body.
type CreateMealRequest struct {
	Meal       string  `json:"meal"`
	Cuisine    string  `json:"cuisine"`
	Price      float64 `json:"price"`
	Difficulty string  `json:"difficulty"`
}

// PrepCombatantRequest stages a meal by name.
type PrepCombatantRequest struct {
	Meal string `json:"meal"`
}

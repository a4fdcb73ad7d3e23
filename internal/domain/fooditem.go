package domain

type FoodItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	SalesCount int64  `json:"sales_count"`
}

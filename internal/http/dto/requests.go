package dto

type RegisterRequest struct {
	Handle string `json:"handle"`
}

type TokenRequest struct {
	Handle string `json:"handle"`
	APIKey string `json:"api_key"`
}

type DepositRequest struct {
	AmountNano uint64 `json:"amount_nano"`
}

type CreateOrderRequest struct {
	Seller        string `json:"seller"`
	ProductName   string `json:"product_name"`
	AmountNano    uint64 `json:"amount_nano"`
	TimelineHours uint64 `json:"timeline_hours"`
}

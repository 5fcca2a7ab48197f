package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type RegisterResponse struct {
	User any `json:"user"`
	// APIKey is returned exactly once, at registration.
	APIKey string `json:"api_key"`
}

type TokenResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type BalanceResponse struct {
	AccountID   string `json:"account_id"`
	BalanceNano uint64 `json:"balance_nano"`
}

type EscrowBalanceResponse struct {
	Tenant   string `json:"tenant"`
	PoolNano uint64 `json:"pool_nano"`
}

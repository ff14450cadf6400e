package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Details   string `json:"details,omitempty"`
	TokenID   string `json:"token_id,omitempty"`
	State     string `json:"state,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Blockchain HealthChain `json:"blockchain"`
}

type HealthChain struct {
	Connected       bool   `json:"connected"`
	IsSimulated     bool   `json:"isSimulated"`
	ChainID         string `json:"chainId"`
	ContractAddress string `json:"contractAddress"`
	ContractName    string `json:"contractName"`
	ContractSymbol  string `json:"contractSymbol"`
	BlockNumber     uint64 `json:"blockNumber"`
	Error           string `json:"error,omitempty"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type SupplyResponse struct {
	TotalSupply uint64 `json:"total_supply"`
}

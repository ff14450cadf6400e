package models

// Registration saga states
const (
	SagaStateCreated    = "created"
	SagaStateMinted     = "minted"
	SagaStateLinked     = "linked"
	SagaStateURISet     = "uri-set"
	SagaStateDone       = "done"
	SagaStateRolledBack = "rolled-back"
)

// Valid saga transitions: from -> []to. A degraded mint is rolled back from
// minted.
var ValidSagaTransitions = map[string][]string{
	SagaStateCreated:    {SagaStateMinted, SagaStateRolledBack},
	SagaStateMinted:     {SagaStateLinked, SagaStateRolledBack},
	SagaStateLinked:     {SagaStateURISet},
	SagaStateURISet:     {SagaStateDone},
	SagaStateDone:       {},
	SagaStateRolledBack: {},
}

func IsValidSagaTransition(from, to string) bool {
	allowed, ok := ValidSagaTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Registration kinds
const (
	RegistrationKindAccount = "account"
	RegistrationKindAsset   = "asset"
)

// Registration is the outcome of a completed saga.
type Registration struct {
	Kind         string   `json:"kind"`
	Address      string   `json:"blockchain_account_address"`
	Key          string   `json:"key"`
	TokenID      string   `json:"token_id"`
	Slot         uint64   `json:"slot"`
	Value        uint64   `json:"value"`
	URI          string   `json:"uri"`
	MintTxHash   string   `json:"mint_tx_hash"`
	MintDegraded bool     `json:"mint_degraded"`
	URITxRef     string   `json:"uri_tx_ref"`
	URISkipped   bool     `json:"uri_skipped"`
	State        string   `json:"state"`
	Account      *Account `json:"account,omitempty"`
	Asset        *Asset   `json:"asset,omitempty"`
}

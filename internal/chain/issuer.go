package chain

import (
	"context"
	"math/big"
	"time"
)

// Slots of the HitachiNebutaToken contract.
const (
	SlotAccount uint64 = 1
	SlotAsset   uint64 = 2
)

// Issuer is the issuance surface shared by the simulated ledger and the real
// chain client. Callers pick one implementation at startup and never branch
// on which one they hold.
type Issuer interface {
	// CheckConnection reports whether the backing chain answers. It never fails.
	CheckConnection(ctx context.Context) bool
	// NetworkInfo is best-effort: failures are reported in NetworkInfo.Error.
	NetworkInfo(ctx context.Context) NetworkInfo

	Mint(ctx context.Context, owner string, slot, value uint64) (MintResult, error)
	SetTokenURI(ctx context.Context, tokenID, uri string) (URIResult, error)

	TokenURI(ctx context.Context, tokenID string) (string, error)
	OwnerOf(ctx context.Context, tokenID string) (string, error)
	SlotOf(ctx context.Context, tokenID string) (uint64, error)
	// TokenBalance returns the value held by a token.
	TokenBalance(ctx context.Context, tokenID string) (uint64, error)
	// Balance returns the number of tokens owned by an address.
	Balance(ctx context.Context, owner string) (uint64, error)
	TotalSupply(ctx context.Context) (uint64, error)
	// TokenExists returns false when the answer cannot be determined.
	TokenExists(ctx context.Context, tokenID string) bool
}

type NetworkInfo struct {
	BlockNumber     uint64 `json:"blockNumber"`
	ChainID         string `json:"chainId"`
	GasPrice        string `json:"gasPrice"`
	ContractAddress string `json:"contractAddress"`
	ContractName    string `json:"contractName"`
	ContractSymbol  string `json:"contractSymbol"`
	AccountAddress  string `json:"accountAddress"`
	IsSimulated     bool   `json:"isSimulated"`
	Error           string `json:"error,omitempty"`
}

// MintResult describes a completed mint. Degraded is set when the token id
// could not be recovered from the transaction and was derived from the clock;
// such an id may not match any real token.
type MintResult struct {
	TokenID  string `json:"tokenId"`
	TxHash   string `json:"txHash"`
	Degraded bool   `json:"degraded"`
}

// URIResult describes a metadata write. When Skipped is set nothing was sent
// and TxRef holds the token id instead of a transaction hash.
type URIResult struct {
	TxRef   string `json:"txRef"`
	Skipped bool   `json:"skipped"`
}

// TokenEntry is a ledger record kept by the simulated adapter.
type TokenEntry struct {
	TokenID  string
	Owner    string
	Slot     uint64
	Value    uint64
	URI      string
	TxHash   string
	MintedAt time.Time
	URISetAt time.Time
	minted   bool
}

// Options configures either adapter.
type Options struct {
	RPCURL          string
	ChainID         int64
	PrivateKey      string
	ContractAddress string
	ContractName    string
	ContractSymbol  string

	// Simulated mode. SimulatedSuccessRate is advisory and not enforced.
	Simulated            bool
	SimulatedLatency     time.Duration
	SimulatedSuccessRate int

	ReceiptPollInterval time.Duration
	MinSignerBalanceWei *big.Int
}

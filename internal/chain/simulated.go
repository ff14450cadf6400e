package chain

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	simulatedChainID  = 23251219
	simulatedGasPrice = "20000000000"
)

// Simulated is an in-memory ledger that answers like the real contract.
// Every instance owns its ledger; two instances never share tokens.
type Simulated struct {
	opts    Options
	account string
	log     *zap.Logger

	mu     sync.RWMutex
	tokens map[string]*TokenEntry
	nextID uint64
	now    func() time.Time
}

var _ Issuer = (*Simulated)(nil)

func NewSimulated(opts Options, log *zap.Logger) *Simulated {
	s := &Simulated{
		opts:   opts,
		log:    log,
		tokens: make(map[string]*TokenEntry),
		now:    time.Now,
	}
	// ids look like the millisecond timestamps a naive mock would hand out,
	// but come from a counter so they never collide within the instance
	s.nextID = uint64(s.now().UnixMilli())

	if opts.PrivateKey != "" {
		addr, err := addressFromKey(opts.PrivateKey)
		if err != nil {
			log.Warn("simulated account not loaded", zap.Error(err))
		} else {
			s.account = addr.Hex()
			log.Info("simulated account loaded", zap.String("address", s.account))
		}
	}

	log.Info("simulated ledger ready",
		zap.String("contract", opts.ContractName),
		zap.String("symbol", opts.ContractSymbol),
		zap.Duration("latency", opts.SimulatedLatency),
	)
	return s
}

func (s *Simulated) CheckConnection(_ context.Context) bool {
	return true
}

func (s *Simulated) NetworkInfo(_ context.Context) NetworkInfo {
	chainID := s.opts.ChainID
	if chainID == 0 {
		chainID = simulatedChainID
	}
	account := s.account
	if account == "" {
		account = "Mock account not configured"
	}
	return NetworkInfo{
		BlockNumber:     uint64(s.now().Unix() / 10),
		ChainID:         strconv.FormatInt(chainID, 10),
		GasPrice:        simulatedGasPrice,
		ContractAddress: s.opts.ContractAddress,
		ContractName:    s.opts.ContractName,
		ContractSymbol:  s.opts.ContractSymbol,
		AccountAddress:  account,
		IsSimulated:     true,
	}
}

// Mint records the token before the simulated latency elapses, so a caller
// that gives up while waiting still leaves a minted token behind, as it would
// on a real chain.
func (s *Simulated) Mint(ctx context.Context, owner string, slot, value uint64) (MintResult, error) {
	if !common.IsHexAddress(owner) {
		return MintResult{}, mintErr(fmt.Errorf("%w: %q", ErrInvalidAddress, owner))
	}
	txHash, err := randomTxHash()
	if err != nil {
		return MintResult{}, mintErr(err)
	}

	s.mu.Lock()
	s.nextID++
	tokenID := strconv.FormatUint(s.nextID, 10)
	s.tokens[tokenID] = &TokenEntry{
		TokenID:  tokenID,
		Owner:    common.HexToAddress(owner).Hex(),
		Slot:     slot,
		Value:    value,
		TxHash:   txHash,
		MintedAt: s.now(),
		minted:   true,
	}
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return MintResult{}, mintErr(err)
	}

	s.log.Info("simulated mint",
		zap.String("token_id", tokenID),
		zap.String("owner", owner),
		zap.Uint64("slot", slot),
		zap.Uint64("value", value),
		zap.String("tx_hash", txHash),
	)
	return MintResult{TokenID: tokenID, TxHash: txHash}, nil
}

func (s *Simulated) SetTokenURI(ctx context.Context, tokenID, uri string) (URIResult, error) {
	if err := s.wait(ctx); err != nil {
		return URIResult{}, metadataErr(tokenID, err)
	}
	txHash, err := randomTxHash()
	if err != nil {
		return URIResult{}, metadataErr(tokenID, err)
	}

	s.mu.Lock()
	entry, ok := s.tokens[tokenID]
	if !ok {
		entry = &TokenEntry{TokenID: tokenID}
		s.tokens[tokenID] = entry
	}
	entry.URI = uri
	entry.URISetAt = s.now()
	s.mu.Unlock()

	s.log.Info("simulated set token uri",
		zap.String("token_id", tokenID),
		zap.String("uri", uri),
		zap.String("tx_hash", txHash),
	)
	return URIResult{TxRef: txHash}, nil
}

func (s *Simulated) TokenURI(_ context.Context, tokenID string) (string, error) {
	entry, err := s.minted("tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	if entry.URI == "" {
		return fmt.Sprintf("mock://token/%s/metadata", tokenID), nil
	}
	return entry.URI, nil
}

func (s *Simulated) OwnerOf(_ context.Context, tokenID string) (string, error) {
	entry, err := s.minted("ownerOf", tokenID)
	if err != nil {
		return "", err
	}
	return entry.Owner, nil
}

func (s *Simulated) SlotOf(_ context.Context, tokenID string) (uint64, error) {
	entry, err := s.minted("slotOf", tokenID)
	if err != nil {
		return 0, err
	}
	return entry.Slot, nil
}

func (s *Simulated) TokenBalance(_ context.Context, tokenID string) (uint64, error) {
	entry, err := s.minted("balanceOf", tokenID)
	if err != nil {
		return 0, err
	}
	return entry.Value, nil
}

func (s *Simulated) Balance(_ context.Context, owner string) (uint64, error) {
	if !common.IsHexAddress(owner) {
		return 0, queryErr("balanceOf", fmt.Errorf("%w: %q", ErrInvalidAddress, owner))
	}
	want := common.HexToAddress(owner).Hex()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for _, e := range s.tokens {
		if e.minted && e.Owner == want {
			n++
		}
	}
	return n, nil
}

func (s *Simulated) TotalSupply(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n uint64
	for _, e := range s.tokens {
		if e.minted {
			n++
		}
	}
	return n, nil
}

func (s *Simulated) TokenExists(_ context.Context, tokenID string) bool {
	_, err := s.minted("ownerOf", tokenID)
	return err == nil
}

// Entry returns a copy of the ledger entry for tokenID.
func (s *Simulated) Entry(tokenID string) (TokenEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tokens[tokenID]
	if !ok {
		return TokenEntry{}, false
	}
	return *e, true
}

func (s *Simulated) minted(method, tokenID string) (TokenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tokens[tokenID]
	if !ok || !e.minted {
		return TokenEntry{}, queryErr(method, fmt.Errorf("%w: %s", ErrTokenNotFound, tokenID))
	}
	return *e, nil
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.opts.SimulatedLatency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.opts.SimulatedLatency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomTxHash() (string, error) {
	var b [common.HashLength]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate tx hash: %w", err)
	}
	return common.Hash(b).Hex(), nil
}

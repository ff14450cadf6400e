package services

import (
	"context"
	"math/big"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/chain"
	"go.uber.org/zap"
)

// TokenInfo is the on-chain view of one token.
type TokenInfo struct {
	TokenID string `json:"token_id"`
	Owner   string `json:"owner"`
	Slot    uint64 `json:"slot"`
	Value   uint64 `json:"value"`
	URI     string `json:"uri"`
	Exists  bool   `json:"exists"`
}

// TokenService answers read-only token queries.
type TokenService struct {
	issuer chain.Issuer
	log    *zap.Logger
}

func NewTokenService(issuer chain.Issuer, log *zap.Logger) *TokenService {
	return &TokenService{issuer: issuer, log: log}
}

// Token returns chain.ErrTokenNotFound when the token does not exist and
// the adapter's *chain.QueryError when the chain cannot be asked.
func (s *TokenService) Token(ctx context.Context, tokenID string) (*TokenInfo, error) {
	if id, ok := new(big.Int).SetString(tokenID, 10); !ok || id.Sign() < 0 {
		return nil, &chain.QueryError{Method: "ownerOf", Err: chain.ErrInvalidTokenID}
	}
	// OwnerOf tells a missing token (ErrTokenNotFound) from an unreachable node.
	owner, err := s.issuer.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	slot, err := s.issuer.SlotOf(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	value, err := s.issuer.TokenBalance(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	uri, err := s.issuer.TokenURI(ctx, tokenID)
	if err != nil {
		// metadata may not be readable yet
		s.log.Warn("token uri unavailable", zap.String("token_id", tokenID), zap.Error(err))
	}

	return &TokenInfo{TokenID: tokenID, Owner: owner, Slot: slot, Value: value, URI: uri, Exists: true}, nil
}

func (s *TokenService) Balance(ctx context.Context, owner string) (uint64, error) {
	return s.issuer.Balance(ctx, owner)
}

func (s *TokenService) TotalSupply(ctx context.Context) (uint64, error) {
	return s.issuer.TotalSupply(ctx)
}

func (s *TokenService) Network(ctx context.Context) chain.NetworkInfo {
	return s.issuer.NetworkInfo(ctx)
}

func (s *TokenService) Connected(ctx context.Context) bool {
	return s.issuer.CheckConnection(ctx)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/chain"
)

func TestTokenService(t *testing.T) {
	ledger := chain.NewSimulated(chain.Options{Simulated: true}, zap.NewNop())
	svc := NewTokenService(ledger, zap.NewNop())
	ctx := context.Background()

	res, err := ledger.Mint(ctx, aliceAddr, chain.SlotAsset, 7)
	require.NoError(t, err)

	info, err := svc.Token(ctx, res.TokenID)
	require.NoError(t, err)
	assert.Equal(t, chain.SlotAsset, info.Slot)
	assert.Equal(t, uint64(7), info.Value)
	assert.Equal(t, "mock://token/"+res.TokenID+"/metadata", info.URI)
	assert.True(t, info.Exists)

	_, err = svc.Token(ctx, "1")
	assert.ErrorIs(t, err, chain.ErrTokenNotFound)

	n, err := svc.Balance(ctx, aliceAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	supply, err := svc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply)

	assert.True(t, svc.Network(ctx).IsSimulated)
	assert.True(t, svc.Connected(ctx))
}

func TestTokenServiceRejectsMalformedID(t *testing.T) {
	ledger := chain.NewSimulated(chain.Options{Simulated: true}, zap.NewNop())
	svc := NewTokenService(ledger, zap.NewNop())

	for _, id := range []string{"abc", "-1", ""} {
		_, err := svc.Token(context.Background(), id)
		assert.ErrorIs(t, err, chain.ErrInvalidTokenID, id)
	}
}

type unreachableIssuer struct {
	chain.Issuer
}

func (unreachableIssuer) OwnerOf(context.Context, string) (string, error) {
	return "", &chain.QueryError{Method: "ownerOf", Err: errors.New("dial tcp: connection refused")}
}

func TestTokenServiceUnreachableIsNotNotFound(t *testing.T) {
	ledger := chain.NewSimulated(chain.Options{Simulated: true}, zap.NewNop())
	svc := NewTokenService(unreachableIssuer{Issuer: ledger}, zap.NewNop())

	_, err := svc.Token(context.Background(), "42")
	var qerr *chain.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.NotErrorIs(t, err, chain.ErrTokenNotFound)
}

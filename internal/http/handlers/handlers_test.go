package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/chain"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/config"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/events"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/dto"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories/memory"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	aliceAddr = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	bobAddr   = "0x0987654321098765432109876543210987654321"
)

type failingIssuer struct {
	chain.Issuer
	mintErr  error
	uriErr   error
	ownerErr error
}

func (f *failingIssuer) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	if f.ownerErr != nil {
		return "", f.ownerErr
	}
	return f.Issuer.OwnerOf(ctx, tokenID)
}

func (f *failingIssuer) Mint(ctx context.Context, owner string, slot, value uint64) (chain.MintResult, error) {
	if f.mintErr != nil {
		return chain.MintResult{}, f.mintErr
	}
	return f.Issuer.Mint(ctx, owner, slot, value)
}

func (f *failingIssuer) SetTokenURI(ctx context.Context, tokenID, uri string) (chain.URIResult, error) {
	if f.uriErr != nil {
		return chain.URIResult{}, f.uriErr
	}
	return f.Issuer.SetTokenURI(ctx, tokenID, uri)
}

type testServer struct {
	app    *fiber.App
	issuer *failingIssuer
	ledger *chain.Simulated
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	ledger := chain.NewSimulated(chain.Options{Simulated: true}, log)
	issuer := &failingIssuer{Issuer: ledger}
	cfg := &config.Config{RejectDegradedMint: true}

	regSvc := services.NewRegistrationService(
		memory.NewAccountStore(), memory.NewAssetStore(), memory.NewAuditStore(),
		issuer, events.NewLocalBus(log), cfg, log,
	)
	reg := NewRegistrationHandler(regSvc, log)
	tok := NewTokenHandler(services.NewTokenService(issuer, log), log)

	app := fiber.New()
	app.Get("/health", tok.Health)
	app.Post("/api/users/register", reg.RegisterUser)
	app.Get("/api/users", reg.ListUsers)
	app.Get("/api/users/:address", reg.GetUser)
	app.Get("/api/users/:address/history", reg.UserHistory)
	app.Post("/api/register-photo", reg.RegisterPhoto)
	app.Get("/api/photos", reg.ListPhotos)
	app.Get("/api/photos/:hash", reg.GetPhoto)
	app.Get("/api/network", tok.GetNetwork)
	app.Get("/api/tokens/supply", tok.GetSupply)
	app.Get("/api/tokens/:id", tok.GetToken)
	app.Get("/api/accounts/:address/balance", tok.GetBalance)

	return &testServer{app: app, issuer: issuer, ledger: ledger}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeData(t *testing.T, body []byte, v any) {
	t.Helper()
	var env struct {
		OK   bool            `json:"ok"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	require.True(t, env.OK, string(body))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestRegisterUser(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/users/register",
		`{"blockchain_account_address":"`+aliceAddr+`","nickname":"Alice"}`)
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var reg models.Registration
	decodeData(t, body, &reg)
	assert.Equal(t, models.SagaStateDone, reg.State)
	assert.Equal(t, chain.SlotAccount, reg.Slot)
	assert.Equal(t, uint64(1), reg.Value)
	assert.NotEmpty(t, reg.TokenID)

	status, body = s.do(t, http.MethodGet, "/api/tokens/"+reg.TokenID, "")
	require.Equal(t, fiber.StatusOK, status, string(body))
	var info services.TokenInfo
	decodeData(t, body, &info)
	assert.Equal(t, "Alice", info.URI)

	status, body = s.do(t, http.MethodGet, "/api/users/"+strings.ToLower(aliceAddr), "")
	require.Equal(t, fiber.StatusOK, status, string(body))
	var acc models.Account
	decodeData(t, body, &acc)
	require.NotNil(t, acc.TokenID)
	assert.Equal(t, reg.TokenID, *acc.TokenID)
	assert.Equal(t, models.LinkStateLinked, acc.LinkState)

	status, body = s.do(t, http.MethodGet, "/api/users/"+aliceAddr+"/history", "")
	require.Equal(t, fiber.StatusOK, status)
	var logs []models.AuditLog
	decodeData(t, body, &logs)
	assert.NotEmpty(t, logs)
}

func TestRegisterUserDuplicate(t *testing.T) {
	s := newTestServer(t)
	body := `{"blockchain_account_address":"` + aliceAddr + `","nickname":"Alice"}`

	status, _ := s.do(t, http.MethodPost, "/api/users/register", body)
	require.Equal(t, fiber.StatusCreated, status)

	lower := `{"blockchain_account_address":"` + strings.ToLower(aliceAddr) + `","nickname":"Other"}`
	status, resp := s.do(t, http.MethodPost, "/api/users/register", lower)
	assert.Equal(t, fiber.StatusConflict, status, string(resp))

	status, resp = s.do(t, http.MethodGet, "/api/tokens/supply", "")
	require.Equal(t, fiber.StatusOK, status)
	var supply dto.SupplyResponse
	decodeData(t, resp, &supply)
	assert.Equal(t, uint64(1), supply.TotalSupply)
}

func TestRegisterUserValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"bad address", `{"blockchain_account_address":"0x1234","nickname":"Alice"}`, "blockchain_account_address"},
		{"missing nickname", `{"blockchain_account_address":"` + aliceAddr + `"}`, "nickname"},
		{"malformed json", `{"blockchain_account_address":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, http.MethodPost, "/api/users/register", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.wantField, decodeError(t, body).Field)
		})
	}

	_, body := s.do(t, http.MethodGet, "/api/tokens/supply", "")
	var supply dto.SupplyResponse
	decodeData(t, body, &supply)
	assert.Zero(t, supply.TotalSupply)
}

func TestRegisterPhoto(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/register-photo",
		`{"blockchain_account_address":"`+bobAddr+`","instaPhotoUrl":"https://instagram.com/p/x","likeCount":89}`)
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var reg models.Registration
	decodeData(t, body, &reg)
	assert.Equal(t, chain.SlotAsset, reg.Slot)
	assert.Equal(t, uint64(89), reg.Value)
	assert.Len(t, reg.Key, 64)

	status, body = s.do(t, http.MethodGet, "/api/photos/"+reg.Key, "")
	require.Equal(t, fiber.StatusOK, status)
	var asset models.Asset
	decodeData(t, body, &asset)
	assert.Equal(t, models.UploadStatusCompleted, asset.UploadStatus)

	status, body = s.do(t, http.MethodGet, "/api/accounts/"+bobAddr+"/balance", "")
	require.Equal(t, fiber.StatusOK, status)
	var bal dto.BalanceResponse
	decodeData(t, body, &bal)
	assert.Equal(t, uint64(1), bal.Balance)

	status, body = s.do(t, http.MethodGet, "/api/photos", "")
	require.Equal(t, fiber.StatusOK, status)
	var assets []models.Asset
	decodeData(t, body, &assets)
	assert.Len(t, assets, 1)
}

func TestRegisterPhotoLikeCount(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{
		`{"blockchain_account_address":"` + bobAddr + `","instaPhotoUrl":"u"}`,
		`{"blockchain_account_address":"` + bobAddr + `","instaPhotoUrl":"u","likeCount":-1}`,
	} {
		status, resp := s.do(t, http.MethodPost, "/api/register-photo", body)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "likeCount", decodeError(t, resp).Field)
	}
}

func TestRegisterMintFailure(t *testing.T) {
	s := newTestServer(t)
	s.issuer.mintErr = &chain.MintError{Err: chain.ErrTxReverted}

	status, body := s.do(t, http.MethodPost, "/api/users/register",
		`{"blockchain_account_address":"`+aliceAddr+`","nickname":"Alice"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, models.SagaStateRolledBack, decodeError(t, body).State)

	status, _ = s.do(t, http.MethodGet, "/api/users/"+aliceAddr, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	// The record was removed, so a retry is accepted.
	s.issuer.mintErr = nil
	status, _ = s.do(t, http.MethodPost, "/api/users/register",
		`{"blockchain_account_address":"`+aliceAddr+`","nickname":"Alice"}`)
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestRegisterChainUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.issuer.mintErr = chain.ErrChainUnavailable

	status, _ := s.do(t, http.MethodPost, "/api/users/register",
		`{"blockchain_account_address":"`+aliceAddr+`","nickname":"Alice"}`)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestRegisterMetadataFailure(t *testing.T) {
	s := newTestServer(t)
	s.issuer.uriErr = &chain.MetadataWriteError{TokenID: "x", Err: chain.ErrTxReverted}

	status, body := s.do(t, http.MethodPost, "/api/register-photo",
		`{"blockchain_account_address":"`+bobAddr+`","instaPhotoUrl":"https://instagram.com/p/y","likeCount":3}`)
	assert.Equal(t, fiber.StatusBadGateway, status)

	resp := decodeError(t, body)
	assert.Equal(t, models.SagaStateLinked, resp.State)
	assert.NotEmpty(t, resp.TokenID)

	supply, err := s.ledger.TotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply)
}

func TestTokenQueries(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/tokens/999", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/api/tokens/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/accounts/nope/balance", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := s.do(t, http.MethodGet, "/api/network", "")
	require.Equal(t, fiber.StatusOK, status)
	var info chain.NetworkInfo
	decodeData(t, body, &info)
	assert.True(t, info.IsSimulated)
}

func TestGetTokenChainUnreachable(t *testing.T) {
	s := newTestServer(t)
	s.issuer.ownerErr = &chain.QueryError{Method: "ownerOf", Err: errors.New("connection refused")}

	status, _ := s.do(t, http.MethodGet, "/api/tokens/1", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, fiber.StatusOK, status)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Blockchain.Connected)
	assert.True(t, resp.Blockchain.IsSimulated)
}

func TestListUsersEmpty(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"ok":true,"data":[]}`, string(body))
}

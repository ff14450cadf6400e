package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/dto"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/services"
	"go.uber.org/zap"
)

type TokenHandler struct {
	tokenService *services.TokenService
	log          *zap.Logger
}

func NewTokenHandler(tokenService *services.TokenService, log *zap.Logger) *TokenHandler {
	return &TokenHandler{tokenService: tokenService, log: log}
}

func (h *TokenHandler) GetToken(c *fiber.Ctx) error {
	info, err := h.tokenService.Token(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: info})
}

func (h *TokenHandler) GetBalance(c *fiber.Ctx) error {
	addr, err := services.NormalizeAddress(c.Params("address"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	n, err := h.tokenService.Balance(c.Context(), addr)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BalanceResponse{Address: addr, Balance: n}})
}

func (h *TokenHandler) GetSupply(c *fiber.Ctx) error {
	n, err := h.tokenService.TotalSupply(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.SupplyResponse{TotalSupply: n}})
}

func (h *TokenHandler) GetNetwork(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.tokenService.Network(c.Context())})
}

// Health always answers 200; chain trouble shows up in the body.
func (h *TokenHandler) Health(c *fiber.Ctx) error {
	info := h.tokenService.Network(c.Context())
	status := "ok"
	if info.Error != "" {
		status = "degraded"
	}
	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Blockchain: dto.HealthChain{
			Connected:       info.Error == "",
			IsSimulated:     info.IsSimulated,
			ChainID:         info.ChainID,
			ContractAddress: info.ContractAddress,
			ContractName:    info.ContractName,
			ContractSymbol:  info.ContractSymbol,
			BlockNumber:     info.BlockNumber,
			Error:           info.Error,
		},
	})
}

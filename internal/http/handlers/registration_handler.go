package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/dto"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/services"
	"go.uber.org/zap"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
	log                 *zap.Logger
}

func NewRegistrationHandler(registrationService *services.RegistrationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService, log: log}
}

func (h *RegistrationHandler) RegisterUser(c *fiber.Ctx) error {
	var body dto.RegisterUserRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	req := services.AccountRequest{Address: body.BlockchainAccountAddress, Nickname: body.Nickname}
	if err := services.ValidateAccountRequest(&req); err != nil {
		return writeError(c, h.log, err)
	}

	h.log.Info("user registration request", zap.String("address", req.Address), zap.String("nickname", req.Nickname))

	reg, err := h.registrationService.RegisterAccount(c.Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: reg})
}

func (h *RegistrationHandler) RegisterPhoto(c *fiber.Ctx) error {
	var body dto.RegisterPhotoRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if body.LikeCount == nil {
		return writeError(c, h.log, &services.ValidationError{Field: "likeCount", Message: "is required"})
	}
	if *body.LikeCount < 0 {
		return writeError(c, h.log, &services.ValidationError{Field: "likeCount", Message: "must not be negative"})
	}

	req := services.AssetRequest{
		Address:   body.BlockchainAccountAddress,
		SourceURL: body.InstaPhotoURL,
		Likes:     uint64(*body.LikeCount),
		Hash:      body.Hash,
	}
	if err := services.ValidateAssetRequest(&req); err != nil {
		return writeError(c, h.log, err)
	}

	h.log.Info("photo registration request",
		zap.String("address", req.Address),
		zap.String("url", req.SourceURL),
		zap.Uint64("likes", req.Likes),
	)

	reg, err := h.registrationService.RegisterAsset(c.Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: reg})
}

func (h *RegistrationHandler) ListUsers(c *fiber.Ctx) error {
	accounts, err := h.registrationService.ListAccounts(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: accounts})
}

func (h *RegistrationHandler) ListPhotos(c *fiber.Ctx) error {
	assets, err := h.registrationService.ListAssets(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: assets})
}

func (h *RegistrationHandler) GetUser(c *fiber.Ctx) error {
	addr, err := services.NormalizeAddress(c.Params("address"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	acc, err := h.registrationService.GetAccount(c.Context(), addr)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: acc})
}

func (h *RegistrationHandler) GetPhoto(c *fiber.Ctx) error {
	asset, err := h.registrationService.GetAsset(c.Context(), c.Params("hash"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: asset})
}

func (h *RegistrationHandler) UserHistory(c *fiber.Ctx) error {
	addr, err := services.NormalizeAddress(c.Params("address"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.history(c, models.RegistrationKindAccount, addr)
}

func (h *RegistrationHandler) PhotoHistory(c *fiber.Ctx) error {
	return h.history(c, models.RegistrationKindAsset, c.Params("hash"))
}

func (h *RegistrationHandler) history(c *fiber.Ctx, kind, key string) error {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	logs, err := h.registrationService.History(c.Context(), kind, key, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

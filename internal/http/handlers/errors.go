package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/chain"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/http/dto"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/middleware"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/services"
	"go.uber.org/zap"
)

// writeError maps service and chain errors to HTTP responses.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)
	resp := dto.ErrorResponse{Error: err.Error(), RequestID: reqID}

	var (
		validationErr *services.ValidationError
		duplicateErr  *services.DuplicateError
		sagaErr       *services.SagaError
	)

	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = fiber.StatusBadRequest
		resp.Field = validationErr.Field
	case errors.As(err, &duplicateErr):
		status = fiber.StatusConflict
	case errors.Is(err, chain.ErrChainUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.As(err, &sagaErr):
		resp.Error = "blockchain processing failed"
		resp.Details = sagaErr.Err.Error()
		resp.State = sagaErr.State
		resp.TokenID = sagaErr.TokenID
		if !sagaErr.Compensated {
			status = fiber.StatusBadGateway
		}
	case errors.Is(err, chain.ErrInvalidTokenID), errors.Is(err, chain.ErrInvalidAddress):
		status = fiber.StatusBadRequest
	case errors.Is(err, chain.ErrTokenNotFound), errors.Is(err, repositories.ErrNotFound):
		status = fiber.StatusNotFound
	}

	if status >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(resp)
}

package services

import (
	"context"
	"errors"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
	"go.uber.org/zap"
)

var testAccounts = []models.Account{
	{Address: "0x1234567890123456789012345678901234567890", Nickname: "Alice (Kaleido Test)"},
	{Address: "0x0987654321098765432109876543210987654321", Nickname: "Bob (Kaleido Test)"},
}

var testAssets = []models.Asset{
	{
		Hash:         "kaleido_photo_hash_001",
		OwnerAddress: "0x1234567890123456789012345678901234567890",
		SourceURL:    "https://instagram.com/p/kaleido_test_photo_001",
		Likes:        150,
	},
	{
		Hash:         "kaleido_photo_hash_002",
		OwnerAddress: "0x0987654321098765432109876543210987654321",
		SourceURL:    "https://instagram.com/p/kaleido_test_photo_002",
		Likes:        89,
	},
}

// SeedTestData inserts the demo accounts and photos as pending records
// without minting. Existing records are left alone.
func (s *RegistrationService) SeedTestData(ctx context.Context) error {
	for _, a := range testAccounts {
		acc := a
		addr, err := NormalizeAddress(acc.Address)
		if err != nil {
			return err
		}
		acc.Address = addr
		acc.LinkState = models.LinkStatePending

		switch err := s.accounts.Create(ctx, &acc); {
		case err == nil:
			s.log.Info("test account created", zap.String("nickname", acc.Nickname))
		case errors.Is(err, repositories.ErrDuplicateKey):
		default:
			return err
		}
	}

	for _, a := range testAssets {
		asset := a
		addr, err := NormalizeAddress(asset.OwnerAddress)
		if err != nil {
			return err
		}
		asset.OwnerAddress = addr
		asset.UploadStatus = models.UploadStatusPending
		asset.LinkState = models.LinkStatePending

		switch err := s.assets.Create(ctx, &asset); {
		case err == nil:
			s.log.Info("test photo created", zap.String("hash", asset.Hash))
		case errors.Is(err, repositories.ErrDuplicateKey):
		default:
			return err
		}
	}

	s.log.Info("test data ready")
	return nil
}

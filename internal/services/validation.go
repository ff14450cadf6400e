package services

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

const (
	maxNicknameLen = 50
	maxURLLen      = 500
	maxHashLen     = 100
)

var addressRE = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

type AccountRequest struct {
	Address  string
	Nickname string
}

type AssetRequest struct {
	Address   string
	SourceURL string
	Likes     uint64
	// Hash is the unique content key; derived from Address and SourceURL
	// when empty.
	Hash string
}

// NormalizeAddress checks the 0x + 40 hex format and returns the EIP-55
// checksum form, so case variants of one address share a key.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", &ValidationError{Field: "blockchain_account_address", Message: "is required"}
	}
	if !addressRE.MatchString(addr) {
		return "", &ValidationError{Field: "blockchain_account_address", Message: "must be 0x followed by 40 hex digits"}
	}
	return common.HexToAddress(addr).Hex(), nil
}

// ValidateAccountRequest normalizes req in place.
func ValidateAccountRequest(req *AccountRequest) error {
	addr, err := NormalizeAddress(req.Address)
	if err != nil {
		return err
	}
	req.Address = addr

	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Nickname == "" {
		return &ValidationError{Field: "nickname", Message: "is required"}
	}
	if utf8.RuneCountInString(req.Nickname) > maxNicknameLen {
		return &ValidationError{Field: "nickname", Message: "must be at most 50 characters"}
	}
	return nil
}

// ValidateAssetRequest normalizes req in place and fills a missing hash.
func ValidateAssetRequest(req *AssetRequest) error {
	addr, err := NormalizeAddress(req.Address)
	if err != nil {
		return err
	}
	req.Address = addr

	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.SourceURL == "" {
		return &ValidationError{Field: "instaPhotoUrl", Message: "is required"}
	}
	if utf8.RuneCountInString(req.SourceURL) > maxURLLen {
		return &ValidationError{Field: "instaPhotoUrl", Message: "must be at most 500 characters"}
	}

	req.Hash = strings.TrimSpace(req.Hash)
	if req.Hash == "" {
		req.Hash = ContentHash(req.Address, req.SourceURL)
	}
	if utf8.RuneCountInString(req.Hash) > maxHashLen {
		return &ValidationError{Field: "hash", Message: "must be at most 100 characters"}
	}
	return nil
}

// ContentHash derives the asset key from its owner and source URL.
func ContentHash(owner, sourceURL string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(owner) + "|" + sourceURL))
	return hex.EncodeToString(sum[:])
}

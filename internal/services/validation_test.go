package services

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAccountRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       AccountRequest
		wantField string
	}{
		{"valid", AccountRequest{Address: "0x1234567890123456789012345678901234567890", Nickname: "Alice"}, ""},
		{"missing address", AccountRequest{Nickname: "Alice"}, "blockchain_account_address"},
		{"short address", AccountRequest{Address: "0x1234", Nickname: "Alice"}, "blockchain_account_address"},
		{"no prefix", AccountRequest{Address: "1234567890123456789012345678901234567890", Nickname: "Alice"}, "blockchain_account_address"},
		{"non hex", AccountRequest{Address: "0xZZ34567890123456789012345678901234567890", Nickname: "Alice"}, "blockchain_account_address"},
		{"missing nickname", AccountRequest{Address: "0x1234567890123456789012345678901234567890", Nickname: "  "}, "nickname"},
		{"long nickname", AccountRequest{Address: "0x1234567890123456789012345678901234567890", Nickname: strings.Repeat("a", 51)}, "nickname"},
		{"50 multibyte runes", AccountRequest{Address: "0x1234567890123456789012345678901234567890", Nickname: strings.Repeat("ね", 50)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := ValidateAccountRequest(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", verr.Field, tt.wantField)
			}
		})
	}
}

func TestNormalizeAddressChecksums(t *testing.T) {
	lower, err := NormalizeAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := NormalizeAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if err != nil {
		t.Fatal(err)
	}
	if lower != upper {
		t.Errorf("case variants normalize differently: %s vs %s", lower, upper)
	}
}

func TestValidateAssetRequest(t *testing.T) {
	addr := "0x0987654321098765432109876543210987654321"

	req := AssetRequest{Address: addr, SourceURL: "https://instagram.com/p/x", Likes: 89}
	if err := ValidateAssetRequest(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Hash) != 64 {
		t.Errorf("derived hash length = %d, want 64", len(req.Hash))
	}
	if req.Hash != ContentHash(req.Address, req.SourceURL) {
		t.Error("derived hash is not stable")
	}

	explicit := AssetRequest{Address: addr, SourceURL: "https://instagram.com/p/x", Hash: "kaleido_photo_hash_001"}
	if err := ValidateAssetRequest(&explicit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explicit.Hash != "kaleido_photo_hash_001" {
		t.Errorf("explicit hash replaced: %s", explicit.Hash)
	}

	bad := []struct {
		req   AssetRequest
		field string
	}{
		{AssetRequest{Address: addr}, "instaPhotoUrl"},
		{AssetRequest{Address: addr, SourceURL: strings.Repeat("u", 501)}, "instaPhotoUrl"},
		{AssetRequest{Address: addr, SourceURL: "u", Hash: strings.Repeat("h", 101)}, "hash"},
		{AssetRequest{Address: "nope", SourceURL: "u"}, "blockchain_account_address"},
	}
	for _, tt := range bad {
		req := tt.req
		err := ValidateAssetRequest(&req)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != tt.field {
			t.Errorf("ValidateAssetRequest(%+v) = %v, want field %s", tt.req, err, tt.field)
		}
	}
}

package dto

type RegisterUserRequest struct {
	BlockchainAccountAddress string `json:"blockchain_account_address"`
	Nickname                 string `json:"nickname"`
}

type RegisterPhotoRequest struct {
	BlockchainAccountAddress string `json:"blockchain_account_address"`
	InstaPhotoURL            string `json:"instaPhotoUrl"`
	LikeCount                *int64 `json:"likeCount"`
	// Hash is optional; derived from the address and URL when empty.
	Hash string `json:"hash,omitempty"`
}

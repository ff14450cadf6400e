package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HitachiNebutaToken is an ERC-3525 contract. balanceOf is overloaded; the
// ABI parser names the second declaration balanceOf0.
const contractABIJSON = `[
  {"type":"function","name":"mint","stateMutability":"nonpayable",
   "inputs":[{"name":"mintTo_","type":"address"},{"name":"slot_","type":"uint256"},{"name":"value_","type":"uint256"}],
   "outputs":[{"name":"tokenId","type":"uint256"}]},
  {"type":"function","name":"setTokenURI","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenId_","type":"uint256"},{"name":"uri_","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"tokenURI","stateMutability":"view",
   "inputs":[{"name":"tokenId_","type":"uint256"}],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view",
   "inputs":[{"name":"tokenId_","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"slotOf","stateMutability":"view",
   "inputs":[{"name":"tokenId_","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"owner_","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"tokenId_","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[{"name":"_from","type":"address","indexed":true},{"name":"_to","type":"address","indexed":true},{"name":"_tokenId","type":"uint256","indexed":true}]},
  {"type":"event","name":"Approval","anonymous":false,
   "inputs":[{"name":"_owner","type":"address","indexed":true},{"name":"_approved","type":"address","indexed":true},{"name":"_tokenId","type":"uint256","indexed":true}]},
  {"type":"event","name":"TransferValue","anonymous":false,
   "inputs":[{"name":"_fromTokenId","type":"uint256","indexed":true},{"name":"_toTokenId","type":"uint256","indexed":true},{"name":"_value","type":"uint256","indexed":false}]},
  {"type":"event","name":"ApprovalValue","anonymous":false,
   "inputs":[{"name":"_tokenId","type":"uint256","indexed":true},{"name":"_operator","type":"address","indexed":true},{"name":"_value","type":"uint256","indexed":false}]},
  {"type":"event","name":"SlotChanged","anonymous":false,
   "inputs":[{"name":"_tokenId","type":"uint256","indexed":true},{"name":"_oldSlot","type":"uint256","indexed":true},{"name":"_newSlot","type":"uint256","indexed":true}]}
]`

const (
	methodMint         = "mint"
	methodSetTokenURI  = "setTokenURI"
	methodTokenURI     = "tokenURI"
	methodOwnerOf      = "ownerOf"
	methodSlotOf       = "slotOf"
	methodBalanceOf    = "balanceOf"
	methodValueOf      = "balanceOf0"
	methodTotalSupply  = "totalSupply"
	eventTransfer      = "Transfer"
	eventApproval      = "Approval"
	eventApprovalValue = "ApprovalValue"
)

var contractABI = mustParseABI(contractABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse contract abi: %v", err))
	}
	return parsed
}

// ContractABI returns the parsed ABI of the token contract.
func ContractABI() abi.ABI {
	return contractABI
}

func parseTokenID(tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(tokenID), 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenID, tokenID)
	}
	return id, nil
}

func loadKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	return key, nil
}

func addressFromKey(hexKey string) (common.Address, error) {
	key, err := loadKey(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return addressFromKeyPair(key), nil
}

func addressFromKeyPair(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	defaultReceiptPoll = 2 * time.Second
	// gas limit = estimate * gasMarginNum / gasMarginDen
	gasMarginNum = 12
	gasMarginDen = 10
)

// DefaultMinSignerBalance is 0.001 ether in wei.
var DefaultMinSignerBalance = big.NewInt(1_000_000_000_000_000)

// Backend is the subset of the Ethereum JSON-RPC client used by
// EthereumIssuer. *ethclient.Client satisfies it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

// EthereumIssuer issues tokens through the deployed contract on an
// EVM-compatible network.
type EthereumIssuer struct {
	backend  Backend
	opts     Options
	log      *zap.Logger
	key      *ecdsa.PrivateKey
	account  common.Address
	contract common.Address
	now      func() time.Time

	// serialises nonce allocation and submission
	sendMu sync.Mutex
}

var _ Issuer = (*EthereumIssuer)(nil)

// DialEthereum connects to opts.RPCURL and returns an issuer bound to it.
func DialEthereum(ctx context.Context, opts Options, log *zap.Logger) (*EthereumIssuer, *ethclient.Client, error) {
	endpoint := strings.TrimSpace(opts.RPCURL)
	if endpoint == "" {
		return nil, nil, fmt.Errorf("blockchain rpc endpoint required")
	}
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return NewEthereumIssuer(client, opts, log), client, nil
}

// NewEthereumIssuer builds an issuer over backend. A missing or broken key
// or contract address is logged; write calls then fail with
// ErrChainUnavailable.
func NewEthereumIssuer(backend Backend, opts Options, log *zap.Logger) *EthereumIssuer {
	if opts.ReceiptPollInterval <= 0 {
		opts.ReceiptPollInterval = defaultReceiptPoll
	}
	if opts.MinSignerBalanceWei == nil {
		opts.MinSignerBalanceWei = DefaultMinSignerBalance
	}

	e := &EthereumIssuer{
		backend: backend,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}

	if opts.PrivateKey != "" {
		key, err := loadKey(opts.PrivateKey)
		if err != nil {
			log.Error("signing account not loaded", zap.Error(err))
		} else {
			e.key = key
			e.account = addressFromKeyPair(key)
			log.Info("signing account loaded", zap.String("address", e.account.Hex()))
		}
	}

	switch {
	case opts.ContractAddress == "":
		log.Error("contract not initialised", zap.String("reason", "CONTRACT_ADDRESS not configured"))
	case !common.IsHexAddress(opts.ContractAddress):
		log.Error("contract not initialised", zap.String("contract", opts.ContractAddress))
	default:
		e.contract = common.HexToAddress(opts.ContractAddress)
		log.Info("contract initialised", zap.String("contract", e.contract.Hex()))
	}

	return e
}

func (e *EthereumIssuer) CheckConnection(ctx context.Context) bool {
	block, err := e.backend.BlockNumber(ctx)
	if err != nil {
		e.log.Error("network connection failed", zap.Error(err))
		return false
	}
	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		e.log.Error("network connection failed", zap.Error(err))
		return false
	}
	e.log.Info("network connected",
		zap.Uint64("block_number", block),
		zap.String("chain_id", chainID.String()),
	)
	return true
}

func (e *EthereumIssuer) NetworkInfo(ctx context.Context) NetworkInfo {
	info := NetworkInfo{
		ChainID:         strconv.FormatInt(e.opts.ChainID, 10),
		GasPrice:        "0",
		ContractAddress: e.opts.ContractAddress,
		ContractName:    e.opts.ContractName,
		ContractSymbol:  e.opts.ContractSymbol,
		AccountAddress:  "Not configured",
	}
	if e.key != nil {
		info.AccountAddress = e.account.Hex()
	}

	block, err := e.backend.BlockNumber(ctx)
	if err != nil {
		return e.degradedInfo(info, err)
	}
	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		return e.degradedInfo(info, err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return e.degradedInfo(info, err)
	}

	info.BlockNumber = block
	info.ChainID = chainID.String()
	info.GasPrice = gasPrice.String()
	return info
}

func (e *EthereumIssuer) degradedInfo(info NetworkInfo, err error) NetworkInfo {
	e.log.Error("network info failed", zap.Error(err))
	info.Error = err.Error()
	return info
}

func (e *EthereumIssuer) Mint(ctx context.Context, owner string, slot, value uint64) (MintResult, error) {
	if !common.IsHexAddress(owner) {
		return MintResult{}, mintErr(fmt.Errorf("%w: %q", ErrInvalidAddress, owner))
	}

	e.log.Info("minting token",
		zap.String("owner", owner),
		zap.Uint64("slot", slot),
		zap.Uint64("value", value),
	)

	txHash, receipt, err := e.transact(ctx, methodMint,
		common.HexToAddress(owner),
		new(big.Int).SetUint64(slot),
		new(big.Int).SetUint64(value),
	)
	if err != nil {
		e.log.Error("mint failed", zap.Error(err))
		return MintResult{}, mintErr(err)
	}

	parsed := ParseMintLogs(receipt.Logs, e.contract, e.now())
	if parsed.Degraded {
		e.log.Warn("token id not found in receipt, using timestamp",
			zap.String("tx_hash", txHash.Hex()),
			zap.String("token_id", parsed.TokenID),
		)
	}

	e.log.Info("mint transaction included",
		zap.String("tx_hash", txHash.Hex()),
		zap.String("token_id", parsed.TokenID),
		zap.String("source", parsed.Source),
	)
	return MintResult{TokenID: parsed.TokenID, TxHash: txHash.Hex(), Degraded: parsed.Degraded}, nil
}

// SetTokenURI skips the write, without error, when the signer balance is
// below Options.MinSignerBalanceWei. An existence check runs first; it only
// blocks the write when the contract answers that the token has no owner.
func (e *EthereumIssuer) SetTokenURI(ctx context.Context, tokenID, uri string) (URIResult, error) {
	if err := e.requireSigner(); err != nil {
		return URIResult{}, metadataErr(tokenID, err)
	}
	id, err := parseTokenID(tokenID)
	if err != nil {
		return URIResult{}, metadataErr(tokenID, err)
	}

	balance, err := e.backend.BalanceAt(ctx, e.account, nil)
	switch {
	case err != nil:
		e.log.Warn("signer balance unknown, sending anyway", zap.Error(err))
	case balance.Cmp(e.opts.MinSignerBalanceWei) < 0:
		e.log.Warn("insufficient signer balance, skipping set token uri",
			zap.String("token_id", tokenID),
			zap.String("balance_wei", balance.String()),
			zap.String("min_wei", e.opts.MinSignerBalanceWei.String()),
		)
		return URIResult{TxRef: tokenID, Skipped: true}, nil
	}

	owner, err := e.ownerOf(ctx, id)
	switch {
	case err != nil:
		e.log.Warn("token existence unknown", zap.String("token_id", tokenID), zap.Error(err))
	case owner == (common.Address{}):
		return URIResult{}, metadataErr(tokenID, ErrTokenNotFound)
	}

	e.log.Info("setting token uri", zap.String("token_id", tokenID), zap.String("uri", uri))

	txHash, _, err := e.transact(ctx, methodSetTokenURI, id, uri)
	if err != nil {
		e.log.Error("set token uri failed", zap.String("token_id", tokenID), zap.Error(err))
		return URIResult{}, metadataErr(tokenID, err)
	}

	e.log.Info("set token uri included", zap.String("tx_hash", txHash.Hex()))
	return URIResult{TxRef: txHash.Hex()}, nil
}

func (e *EthereumIssuer) TokenURI(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", queryErr(methodTokenURI, err)
	}
	out, err := e.call(ctx, methodTokenURI, id)
	if err != nil {
		return "", queryErr(methodTokenURI, err)
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", queryErr(methodTokenURI, fmt.Errorf("unexpected output %T", out[0]))
	}
	return uri, nil
}

func (e *EthereumIssuer) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", queryErr(methodOwnerOf, err)
	}
	owner, err := e.ownerOf(ctx, id)
	if err != nil {
		if isRevert(err) {
			err = fmt.Errorf("%w: %v", ErrTokenNotFound, err)
		}
		return "", queryErr(methodOwnerOf, err)
	}
	if (owner == common.Address{}) {
		return "", queryErr(methodOwnerOf, ErrTokenNotFound)
	}
	return owner.Hex(), nil
}

func (e *EthereumIssuer) SlotOf(ctx context.Context, tokenID string) (uint64, error) {
	return e.uintByToken(ctx, methodSlotOf, tokenID)
}

func (e *EthereumIssuer) TokenBalance(ctx context.Context, tokenID string) (uint64, error) {
	return e.uintByToken(ctx, methodValueOf, tokenID)
}

func (e *EthereumIssuer) Balance(ctx context.Context, owner string) (uint64, error) {
	if !common.IsHexAddress(owner) {
		return 0, queryErr(methodBalanceOf, fmt.Errorf("%w: %q", ErrInvalidAddress, owner))
	}
	return e.uintCall(ctx, methodBalanceOf, common.HexToAddress(owner))
}

func (e *EthereumIssuer) TotalSupply(ctx context.Context) (uint64, error) {
	return e.uintCall(ctx, methodTotalSupply)
}

func (e *EthereumIssuer) TokenExists(ctx context.Context, tokenID string) bool {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return false
	}
	owner, err := e.ownerOf(ctx, id)
	if err != nil {
		return false
	}
	return owner != (common.Address{})
}

func (e *EthereumIssuer) uintByToken(ctx context.Context, method, tokenID string) (uint64, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return 0, queryErr(method, err)
	}
	return e.uintCall(ctx, method, id)
}

func (e *EthereumIssuer) uintCall(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	out, err := e.call(ctx, method, args...)
	if err != nil {
		return 0, queryErr(method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return 0, queryErr(method, fmt.Errorf("unexpected output %T", out[0]))
	}
	if !v.IsUint64() {
		return 0, queryErr(method, fmt.Errorf("%w: %s", ErrValueOutOfRange, v))
	}
	return v.Uint64(), nil
}

func (e *EthereumIssuer) ownerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	out, err := e.call(ctx, methodOwnerOf, id)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected output %T", out[0])
	}
	return owner, nil
}

// isRevert reports whether a call failed inside the EVM rather than in
// transport. Nodes answer reverts with JSON-RPC code 3.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func (e *EthereumIssuer) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if (e.contract == common.Address{}) {
		return nil, ErrChainUnavailable
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &e.contract, Data: data}
	if e.key != nil {
		msg.From = e.account
	}
	raw, err := e.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty output", method)
	}
	return out, nil
}

// transact estimates gas, fetches the gas price, sends the call with a 20%
// gas margin and waits for the receipt.
func (e *EthereumIssuer) transact(ctx context.Context, method string, args ...interface{}) (common.Hash, *types.Receipt, error) {
	if err := e.requireSigner(); err != nil {
		return common.Hash{}, nil, err
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("pack %s: %w", method, err)
	}

	estimate, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{From: e.account, To: &e.contract, Data: data})
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("estimate gas: %w", err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("gas price: %w", err)
	}
	gasLimit := estimate * gasMarginNum / gasMarginDen

	chainID, err := e.chainID(ctx)
	if err != nil {
		return common.Hash{}, nil, err
	}

	tx, err := e.send(ctx, chainID, gasLimit, gasPrice, data)
	if err != nil {
		return common.Hash{}, nil, err
	}

	e.log.Info("transaction sent",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("gas_estimate", estimate),
		zap.Uint64("gas_limit", gasLimit),
		zap.String("gas_price", gasPrice.String()),
	)

	receipt, err := e.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return tx.Hash(), nil, err
	}
	return tx.Hash(), receipt, nil
}

func (e *EthereumIssuer) send(ctx context.Context, chainID *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) (*types.Transaction, error) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	nonce, err := e.backend.PendingNonceAt(ctx, e.account)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &e.contract,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return signed, nil
}

// waitReceipt polls until the transaction is included. Giving up through ctx
// does not withdraw the transaction.
func (e *EthereumIssuer) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(e.opts.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("%w: %s", ErrTxReverted, hash.Hex())
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *EthereumIssuer) chainID(ctx context.Context) (*big.Int, error) {
	if e.opts.ChainID > 0 {
		return big.NewInt(e.opts.ChainID), nil
	}
	id, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return id, nil
}

func (e *EthereumIssuer) requireSigner() error {
	if e.key == nil || (e.contract == common.Address{}) {
		return ErrChainUnavailable
	}
	return nil
}

// Account returns the signing address, or the zero address.
func (e *EthereumIssuer) Account() common.Address {
	return e.account
}

package chain

import (
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Sources of a parsed token id.
const (
	SourceMintTransfer = "mint_transfer"
	SourceLastTransfer = "last_transfer"
	SourceApproval     = "approval"
	SourceTimestamp    = "timestamp"
)

var (
	transferTopic      = contractABI.Events[eventTransfer].ID
	approvalTopic      = contractABI.Events[eventApproval].ID
	approvalValueTopic = contractABI.Events[eventApprovalValue].ID
)

// ParsedMint is the token id recovered from a mint receipt.
type ParsedMint struct {
	TokenID  string
	Source   string
	Degraded bool
}

// ParseMintLogs recovers the id of a freshly minted token from the logs of
// the mint transaction. ERC-3525 mints may emit several Transfer events, so
// the one originating from the zero address wins; otherwise the last Transfer
// is used, then an approval event. When nothing matches the id is derived
// from now and flagged as degraded.
//
// Logs emitted by other contracts are ignored unless contract is the zero
// address.
func ParseMintLogs(logs []*types.Log, contract common.Address, now time.Time) ParsedMint {
	var transfers []*types.Log
	var approvals []*types.Log
	for _, l := range logs {
		if l == nil || len(l.Topics) == 0 {
			continue
		}
		if (contract != common.Address{}) && l.Address != contract {
			continue
		}
		switch {
		case l.Topics[0] == transferTopic && len(l.Topics) == 4:
			transfers = append(transfers, l)
		case l.Topics[0] == approvalTopic && len(l.Topics) == 4:
			approvals = append(approvals, l)
		case l.Topics[0] == approvalValueTopic && len(l.Topics) >= 2:
			approvals = append(approvals, l)
		}
	}

	for _, l := range transfers {
		from := common.BytesToAddress(l.Topics[1].Bytes())
		if (from == common.Address{}) {
			return ParsedMint{TokenID: topicInt(l.Topics[3]), Source: SourceMintTransfer}
		}
	}
	if n := len(transfers); n > 0 {
		return ParsedMint{TokenID: topicInt(transfers[n-1].Topics[3]), Source: SourceLastTransfer}
	}
	if len(approvals) > 0 {
		l := approvals[0]
		idTopic := l.Topics[1]
		if l.Topics[0] == approvalTopic {
			idTopic = l.Topics[3]
		}
		return ParsedMint{TokenID: topicInt(idTopic), Source: SourceApproval}
	}

	return ParsedMint{
		TokenID:  strconv.FormatInt(now.UnixMilli(), 10),
		Source:   SourceTimestamp,
		Degraded: true,
	}
}

func topicInt(h common.Hash) string {
	return new(big.Int).SetBytes(h.Bytes()).String()
}

package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrTxReverted = errors.New("transaction reverted on chain")
)

// TransferRequest 一笔待广播的 ERC-20 转账
type TransferRequest struct {
	Token    common.Address
	To       common.Address
	Calldata []byte
}

// WalletClient 外部钱包客户端：签名广播交易并等待上链确认
type WalletClient interface {
	// SubmitTransfer 广播转账，返回交易哈希句柄
	SubmitTransfer(ctx context.Context, req TransferRequest) (string, error)

	// WaitMined 阻塞等待句柄对应的交易被确认；回滚的交易返回 ErrTxReverted
	WaitMined(ctx context.Context, handle string) error
}

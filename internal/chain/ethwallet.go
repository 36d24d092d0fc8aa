package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const transferGasLimit = 100_000

// EthWallet 基于 JSON-RPC 的 WalletClient 实现（单账户热钱包）
type EthWallet struct {
	client       *ethclient.Client
	key          *ecdsa.PrivateKey
	from         common.Address
	chainID      *big.Int
	pollInterval time.Duration
}

func NewEthWallet(rpcURL, privateKeyHex string, chainID int64) (*EthWallet, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return &EthWallet{
		client:       client,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:      big.NewInt(chainID),
		pollInterval: time.Second,
	}, nil
}

func (w *EthWallet) SubmitTransfer(ctx context.Context, req TransferRequest) (string, error) {
	nonce, err := w.client.PendingNonceAt(ctx, w.from)
	if err != nil {
		return "", err
	}
	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &req.Token,
		Value:    big.NewInt(0),
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
		Data:     req.Calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return "", err
	}
	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return "", err
	}
	return signed.Hash().Hex(), nil
}

func (w *EthWallet) WaitMined(ctx context.Context, handle string) error {
	hash := common.HexToHash(handle)
	for {
		receipt, err := w.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return ErrTxReverted
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

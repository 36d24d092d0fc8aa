package service

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/ethereum/go-ethereum/common"
    "github.com/getsentry/sentry-go"
    "go.uber.org/zap"

    "github.com/d60-Lab/anonboard/internal/chain"
    "github.com/d60-Lab/anonboard/internal/model"
    "github.com/d60-Lab/anonboard/pkg/logger"
)

// PostSource 打赏前校验目标帖所需的读取能力
type PostSource interface {
    GetByID(ctx context.Context, id string) (*model.Post, error)
}

// TipSink 确认后落账的写入能力（本地服务或远端 API 客户端均可）
type TipSink interface {
    RecordTip(ctx context.Context, id, amount, txHash string) error
}

// TipWorkflow 协调链上转账与链下计数：
// Idle -> Validating -> Submitting -> AwaitingConfirmation -> Reconciling -> Idle。
// 全局同一时刻仅允许一笔打赏在途；转账一经广播不可取消，
// 落账失败不回滚链上转账，只延迟刷新并上报差异。
type TipWorkflow struct {
    wallet        chain.WalletClient
    posts         PostSource
    sink          TipSink
    token         chain.Token
    defaultAmount string
    refreshDelay  time.Duration
    onRefresh     func()

    mu             sync.Mutex
    inFlight       string // 在途打赏的帖子 ID，空表示 Idle
    lastReconciled string // 最近一次已落账的交易句柄，防止重复入账

    wg sync.WaitGroup
}

func NewTipWorkflow(wallet chain.WalletClient, posts PostSource, sink TipSink, token chain.Token, defaultAmount string, refreshDelay time.Duration, onRefresh func()) *TipWorkflow {
    if defaultAmount == "" {
        defaultAmount = "0.10"
    }
    if refreshDelay <= 0 {
        refreshDelay = 500 * time.Millisecond
    }
    return &TipWorkflow{
        wallet:        wallet,
        posts:         posts,
        sink:          sink,
        token:         token,
        defaultAmount: defaultAmount,
        refreshDelay:  refreshDelay,
        onRefresh:     onRefresh,
    }
}

// InFlight 返回当前在途打赏的帖子 ID
func (w *TipWorkflow) InFlight() (string, bool) {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.inFlight, w.inFlight != ""
}

// Tip 发起一笔打赏。amount 为空时使用默认金额。
// 校验或广播失败时同步返回错误并回到 Idle；广播成功后返回交易句柄，
// 确认与落账在后台完成。
func (w *TipWorkflow) Tip(ctx context.Context, postID, amount string) (string, error) {
    w.mu.Lock()
    if w.inFlight != "" {
        current := w.inFlight
        w.mu.Unlock()
        return "", &TipInFlightError{PostID: current}
    }
    w.inFlight = postID
    w.mu.Unlock()

    handle, err := w.submit(ctx, postID, amount)
    if err != nil {
        w.release()
        return "", err
    }

    w.wg.Add(1)
    go w.await(handle, postID, amount)
    return handle, nil
}

// submit 覆盖 Validating 与 Submitting 两个状态
func (w *TipWorkflow) submit(ctx context.Context, postID, amount string) (string, error) {
    post, err := w.posts.GetByID(ctx, postID)
    if err != nil {
        return "", err
    }
    if post.AuthorAddress == nil || !validTipAddress(*post.AuthorAddress) {
        return "", ErrNoTipAddress
    }
    if amount == "" {
        amount = w.defaultAmount
    }
    micros, err := w.token.ParseAmount(amount)
    if err != nil {
        return "", ErrInvalidAmount
    }

    to := common.HexToAddress(*post.AuthorAddress)
    calldata, err := w.token.TransferCalldata(to, micros)
    if err != nil {
        return "", err
    }
    handle, err := w.wallet.SubmitTransfer(ctx, chain.TransferRequest{
        Token:    w.token.Address,
        To:       to,
        Calldata: calldata,
    })
    if err != nil {
        return "", fmt.Errorf("chain submission failed: %w", err)
    }
    return handle, nil
}

// await 等待确认后落账；无论结果如何最终回到 Idle
func (w *TipWorkflow) await(handle, postID, amount string) {
    defer w.wg.Done()
    defer w.release()

    if err := w.wallet.WaitMined(context.Background(), handle); err != nil {
        logger.Error("tip confirmation failed",
            zap.String("post", postID), zap.String("tx", handle), zap.Error(err))
        return
    }
    w.reconcile(postID, amount, handle)
}

// reconcile 同一交易句柄只落账一次；落账失败按 best-effort 策略延迟刷新
func (w *TipWorkflow) reconcile(postID, amount, handle string) {
    w.mu.Lock()
    if w.lastReconciled == handle {
        w.mu.Unlock()
        return
    }
    w.lastReconciled = handle
    w.mu.Unlock()

    if amount == "" {
        amount = w.defaultAmount
    }

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := w.sink.RecordTip(ctx, postID, amount, handle); err != nil {
        // 链上已成功，链下计数丢失：记录差异，等待后刷新
        logger.Error("tip confirmed on chain but persistence failed",
            zap.String("post", postID), zap.String("tx", handle),
            zap.String("amount", amount), zap.Error(err))
        sentry.CaptureException(fmt.Errorf("tip reconciliation persist failure (post %s, tx %s): %w", postID, handle, err))
        time.Sleep(w.refreshDelay)
    }
    if w.onRefresh != nil {
        w.onRefresh()
    }
}

func (w *TipWorkflow) release() {
    w.mu.Lock()
    w.inFlight = ""
    w.mu.Unlock()
}

package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/anonboard/internal/chain"
    "github.com/d60-Lab/anonboard/internal/model"
)

type fakeWallet struct {
    mu        sync.Mutex
    submitErr error
    submitted []chain.TransferRequest
    mined     chan error
}

func newFakeWallet() *fakeWallet {
    return &fakeWallet{mined: make(chan error, 1)}
}

func (f *fakeWallet) SubmitTransfer(_ context.Context, req chain.TransferRequest) (string, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.submitErr != nil {
        return "", f.submitErr
    }
    f.submitted = append(f.submitted, req)
    return fmt.Sprintf("0xtx%04d", len(f.submitted)), nil
}

func (f *fakeWallet) WaitMined(ctx context.Context, _ string) error {
    select {
    case err := <-f.mined:
        return err
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (f *fakeWallet) submitCount() int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return len(f.submitted)
}

type fakePosts struct {
    posts map[string]*model.Post
}

func (f *fakePosts) GetByID(_ context.Context, id string) (*model.Post, error) {
    if p, ok := f.posts[id]; ok {
        return p, nil
    }
    return nil, ErrPostNotFound
}

type recordedTip struct{ postID, amount, txHash string }

type fakeSink struct {
    mu      sync.Mutex
    err     error
    records []recordedTip
}

func (f *fakeSink) RecordTip(_ context.Context, id, amount, txHash string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.err != nil {
        return f.err
    }
    f.records = append(f.records, recordedTip{id, amount, txHash})
    return nil
}

func (f *fakeSink) recorded() []recordedTip {
    f.mu.Lock()
    defer f.mu.Unlock()
    return append([]recordedTip(nil), f.records...)
}

func addrPost(id string) *model.Post {
    addr := "0x" + strings.Repeat("ab", 20)
    return &model.Post{ID: id, Text: "t", AuthorAddress: &addr}
}

func testWorkflow(wallet chain.WalletClient, posts PostSource, sink TipSink, onRefresh func()) *TipWorkflow {
    token := chain.Token{Decimals: 6}
    return NewTipWorkflow(wallet, posts, sink, token, "0.10", time.Millisecond, onRefresh)
}

func TestTipRejectsAnonymousPost(t *testing.T) {
    wallet := newFakeWallet()
    posts := &fakePosts{posts: map[string]*model.Post{"p1": {ID: "p1", Text: "anon"}}}
    wf := testWorkflow(wallet, posts, &fakeSink{}, nil)

    _, err := wf.Tip(context.Background(), "p1", "")
    require.ErrorIs(t, err, ErrNoTipAddress)
    require.Zero(t, wallet.submitCount(), "wallet must not be called for anonymous posts")

    _, inFlight := wf.InFlight()
    require.False(t, inFlight)
}

func TestTipRejectsUnprefixedAddress(t *testing.T) {
    wallet := newFakeWallet()
    bare := strings.Repeat("ab", 20) // 缺 0x 前缀
    posts := &fakePosts{posts: map[string]*model.Post{"p1": {ID: "p1", Text: "t", AuthorAddress: &bare}}}
    wf := testWorkflow(wallet, posts, &fakeSink{}, nil)

    _, err := wf.Tip(context.Background(), "p1", "")
    require.ErrorIs(t, err, ErrNoTipAddress)
    require.Zero(t, wallet.submitCount())

    _, inFlight := wf.InFlight()
    require.False(t, inFlight)
}

func TestTipRejectsBadAmount(t *testing.T) {
    wallet := newFakeWallet()
    posts := &fakePosts{posts: map[string]*model.Post{"p1": addrPost("p1")}}
    wf := testWorkflow(wallet, posts, &fakeSink{}, nil)

    _, err := wf.Tip(context.Background(), "p1", "not-a-number")
    require.ErrorIs(t, err, ErrInvalidAmount)
    require.Zero(t, wallet.submitCount())
}

func TestTipSingleInFlight(t *testing.T) {
    wallet := newFakeWallet()
    posts := &fakePosts{posts: map[string]*model.Post{"a": addrPost("a"), "b": addrPost("b")}}
    sink := &fakeSink{}
    wf := testWorkflow(wallet, posts, sink, nil)
    ctx := context.Background()

    _, err := wf.Tip(ctx, "a", "")
    require.NoError(t, err)

    id, inFlight := wf.InFlight()
    require.True(t, inFlight)
    require.Equal(t, "a", id)

    _, err = wf.Tip(ctx, "b", "")
    var inflightErr *TipInFlightError
    require.ErrorAs(t, err, &inflightErr)
    require.Equal(t, "a", inflightErr.PostID)

    // 确认 a 后应释放在途标记，b 可以继续
    wallet.mined <- nil
    wf.wg.Wait()
    _, inFlight = wf.InFlight()
    require.False(t, inFlight)

    _, err = wf.Tip(ctx, "b", "")
    require.NoError(t, err)
    wallet.mined <- nil
    wf.wg.Wait()
    require.Len(t, sink.recorded(), 2)
}

func TestTipConfirmedRecordsOnce(t *testing.T) {
    wallet := newFakeWallet()
    posts := &fakePosts{posts: map[string]*model.Post{"a": addrPost("a")}}
    sink := &fakeSink{}
    refreshed := 0
    wf := testWorkflow(wallet, posts, sink, func() { refreshed++ })

    handle, err := wf.Tip(context.Background(), "a", "0.25")
    require.NoError(t, err)
    wallet.mined <- nil
    wf.wg.Wait()

    recs := sink.recorded()
    require.Len(t, recs, 1)
    require.Equal(t, recordedTip{"a", "0.25", handle}, recs[0])
    require.Equal(t, 1, refreshed)

    // 确认信号重复触发也只入账一次
    wf.reconcile("a", "0.25", handle)
    require.Len(t, sink.recorded(), 1)
}

func TestTipSubmissionFailureReturnsToIdle(t *testing.T) {
    wallet := newFakeWallet()
    wallet.submitErr = errors.New("rejected by node")
    posts := &fakePosts{posts: map[string]*model.Post{"a": addrPost("a")}}
    wf := testWorkflow(wallet, posts, &fakeSink{}, nil)

    _, err := wf.Tip(context.Background(), "a", "")
    require.ErrorContains(t, err, "chain submission failed")
    _, inFlight := wf.InFlight()
    require.False(t, inFlight)
}

func TestTipConfirmationFailureSkipsReconcile(t *testing.T) {
    wallet := newFakeWallet()
    posts := &fakePosts{posts: map[string]*model.Post{"a": addrPost("a")}}
    sink := &fakeSink{}
    wf := testWorkflow(wallet, posts, sink, nil)

    _, err := wf.Tip(context.Background(), "a", "")
    require.NoError(t, err)
    wallet.mined <- chain.ErrTxReverted
    wf.wg.Wait()

    require.Empty(t, sink.recorded())
    _, inFlight := wf.InFlight()
    require.False(t, inFlight)
}

func TestTipPersistFailureStillRefreshes(t *testing.T) {
    wallet := newFakeWallet()
    posts := &fakePosts{posts: map[string]*model.Post{"a": addrPost("a")}}
    sink := &fakeSink{err: errors.New("store down")}
    refreshed := make(chan struct{}, 1)
    wf := testWorkflow(wallet, posts, sink, func() { refreshed <- struct{}{} })

    _, err := wf.Tip(context.Background(), "a", "")
    require.NoError(t, err)
    wallet.mined <- nil
    wf.wg.Wait()

    select {
    case <-refreshed:
    default:
        t.Fatal("feed refresh must still happen after persist failure")
    }
    _, inFlight := wf.InFlight()
    require.False(t, inFlight)
}

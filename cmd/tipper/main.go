package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/d60-Lab/anonboard/config"
	"github.com/d60-Lab/anonboard/internal/api/client"
	"github.com/d60-Lab/anonboard/internal/chain"
	"github.com/d60-Lab/anonboard/internal/service"
	"github.com/d60-Lab/anonboard/pkg/logger"
)

// tipper 对指定帖子发起一笔打赏并等待链上确认与落账
func main() {
	base := flag.String("server", "http://localhost:8080", "anonboard server base URL")
	postID := flag.String("post", "", "post id to tip")
	amount := flag.String("amount", "", "tip amount (defaults to configured amount)")
	flag.Parse()

	if *postID == "" {
		fmt.Fprintln(os.Stderr, "usage: tipper -post <id> [-amount 0.10] [-server url]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Chain.RPCURL == "" || cfg.Chain.PrivateKey == "" {
		fmt.Fprintln(os.Stderr, "chain.rpcurl and chain.privatekey must be configured")
		os.Exit(2)
	}

	wallet, err := chain.NewEthWallet(cfg.Chain.RPCURL, cfg.Chain.PrivateKey, cfg.Chain.ChainID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "wallet init failed:", err)
		os.Exit(1)
	}

	token := chain.Token{
		Address:  common.HexToAddress(cfg.Tip.TokenAddress),
		Decimals: cfg.Tip.TokenDecimals,
	}
	feed := client.New(*base, token)

	done := make(chan struct{})
	wf := service.NewTipWorkflow(wallet, feed, feed, token, cfg.Tip.DefaultAmount, cfg.Tip.RefreshDelay, func() {
		close(done)
	})

	handle, err := wf.Tip(context.Background(), *postID, *amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tip failed:", err)
		os.Exit(1)
	}
	fmt.Println("transfer broadcast:", handle)

	select {
	case <-done:
		fmt.Println("tip confirmed and recorded")
	case <-time.After(10 * time.Minute):
		fmt.Fprintln(os.Stderr, "gave up waiting for confirmation")
		os.Exit(1)
	}
}

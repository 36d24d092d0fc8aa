package main

import (
    "context"
    "fmt"
    "math"
    "os"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/d60-Lab/anonboard/config"
    "github.com/d60-Lab/anonboard/internal/model"
    "github.com/d60-Lab/anonboard/internal/repository"
    "github.com/d60-Lab/anonboard/pkg/database"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func main() {
    cfg := must(config.Load())
    db := must(database.InitDB(cfg))

    repo := repository.NewPostRepository(db)
    ctx := context.Background()

    N := 10000
    if s := os.Getenv("N"); s != "" {
        if n, err := strconv.Atoi(s); err == nil && n > 0 { N = n }
    }
    PAGE := 15
    if s := os.Getenv("PAGE"); s != "" {
        if p, err := strconv.Atoi(s); err == nil && p > 0 { PAGE = p }
    }

    // seed posts
    addr := "0x" + strings.Repeat("aa", 20)
    t0 := time.Now()
    for i := 0; i < N; i++ {
        p := &model.Post{Text: fmt.Sprintf("bench post %d", i)}
        if i%2 == 0 { a := addr; p.AuthorAddress = &a }
        _ = repo.Create(ctx, p)
    }
    seedDur := time.Since(t0)

    // cursor-chain through the whole feed
    pageRecs := make([]time.Duration, 0, N/PAGE+1)
    total := 0
    cursor := ""
    t1 := time.Now()
    for {
        st := time.Now()
        posts, next, err := repo.List(ctx, PAGE, cursor)
        if err != nil { panic(err) }
        pageRecs = append(pageRecs, time.Since(st))
        total += len(posts)
        if next == "" { break }
        cursor = next
    }
    walkDur := time.Since(t1)

    pct := func(vs []time.Duration, p float64) time.Duration {
        if len(vs) == 0 { return 0 }
        xs := append([]time.Duration(nil), vs...)
        sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
        k := int(math.Ceil(p*float64(len(xs)))) - 1
        if k < 0 { k = 0 }
        if k >= len(xs) { k = len(xs)-1 }
        return xs[k]
    }

    fmt.Printf("N=%d, PAGE=%d\n", N, PAGE)
    fmt.Printf("Seed total: %v, per post: %v\n", seedDur, seedDur/time.Duration(N))
    fmt.Printf("Full walk: %v over %d pages, %d posts\n", walkDur, len(pageRecs), total)
    fmt.Printf("Page latency p50: %v, p95: %v, p99: %v\n",
        pct(pageRecs, 0.50), pct(pageRecs, 0.95), pct(pageRecs, 0.99))
}

package service

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "unicode/utf8"

    "github.com/ethereum/go-ethereum/common"
    "gorm.io/gorm"

    "github.com/d60-Lab/anonboard/internal/cache"
    "github.com/d60-Lab/anonboard/internal/chain"
    "github.com/d60-Lab/anonboard/internal/model"
    "github.com/d60-Lab/anonboard/internal/repository"
)

// MaxTextLen 帖子正文最大长度（字符数）
const MaxTextLen = 10000

// validTipAddress 要求 0x 前缀的 20 字节十六进制地址；
// common.IsHexAddress 本身接受裸 40 位十六进制，前缀需单独约束
func validTipAddress(s string) bool {
    return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// PostService 帖子业务服务
type PostService interface {
    // Create 发帖；authorAddress 为空表示匿名（不可收打赏）
    Create(ctx context.Context, text, authorAddress string) (*model.Post, error)

    // List 倒序分页；limit <= 0 时使用配置页大小
    List(ctx context.Context, limit int, cursor string) ([]*model.Post, string, error)

    // GetByID 查询单帖
    GetByID(ctx context.Context, id string) (*model.Post, error)

    // RecordTip 入账一笔打赏；txHash 非空时按交易哈希幂等
    RecordTip(ctx context.Context, id, amount, txHash string) error

    // Like 点赞
    Like(ctx context.Context, id string) error
}

type postService struct {
    repo     repository.PostRepository
    token    chain.Token
    feed     *cache.FeedCache // 可为 nil
    pageSize int
}

func NewPostService(repo repository.PostRepository, token chain.Token, feed *cache.FeedCache, pageSize int) PostService {
    if pageSize <= 0 {
        pageSize = 15
    }
    return &postService{repo: repo, token: token, feed: feed, pageSize: pageSize}
}

func (s *postService) Create(ctx context.Context, text, authorAddress string) (*model.Post, error) {
    text = strings.TrimSpace(text)
    if text == "" {
        return nil, ErrTextRequired
    }
    if utf8.RuneCountInString(text) > MaxTextLen {
        return nil, ErrTextTooLong
    }

    var addr *string
    if authorAddress != "" {
        if !validTipAddress(authorAddress) {
            return nil, ErrInvalidAddress
        }
        normalized := strings.ToLower(authorAddress)
        addr = &normalized
    }

    post := &model.Post{Text: text, AuthorAddress: addr}
    if err := s.repo.Create(ctx, post); err != nil {
        return nil, err
    }
    s.invalidateFeed(ctx)
    return post, nil
}

// cachedPage 首屏缓存负载
type cachedPage struct {
    Posts      []*model.Post `json:"posts"`
    NextCursor string        `json:"nextCursor"`
}

func (s *postService) List(ctx context.Context, limit int, cursor string) ([]*model.Post, string, error) {
    if limit <= 0 {
        limit = s.pageSize
    }

    firstPage := cursor == ""
    if firstPage && s.feed != nil {
        if data, ok := s.feed.GetFirstPage(ctx, limit); ok {
            var page cachedPage
            if err := json.Unmarshal(data, &page); err == nil {
                return page.Posts, page.NextCursor, nil
            }
        }
    }

    posts, next, err := s.repo.List(ctx, limit, cursor)
    if err != nil {
        return nil, "", err
    }

    if firstPage && s.feed != nil {
        if data, err := json.Marshal(cachedPage{Posts: posts, NextCursor: next}); err == nil {
            s.feed.SetFirstPage(ctx, limit, data)
        }
    }
    return posts, next, nil
}

func (s *postService) GetByID(ctx context.Context, id string) (*model.Post, error) {
    post, err := s.repo.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, ErrPostNotFound
        }
        return nil, err
    }
    return post, nil
}

func (s *postService) RecordTip(ctx context.Context, id, amount, txHash string) error {
    micros, err := s.token.ParseAmount(amount)
    if err != nil {
        return ErrInvalidAmount
    }
    var hash *string
    if txHash != "" {
        hash = &txHash
    }
    if err := s.repo.IncrementTipStats(ctx, id, micros, hash); err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return ErrPostNotFound
        }
        return err
    }
    s.invalidateFeed(ctx)
    return nil
}

func (s *postService) Like(ctx context.Context, id string) error {
    if err := s.repo.IncrementLikes(ctx, id); err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return ErrPostNotFound
        }
        return err
    }
    s.invalidateFeed(ctx)
    return nil
}

func (s *postService) invalidateFeed(ctx context.Context) {
    if s.feed != nil {
        s.feed.Invalidate(ctx)
    }
}

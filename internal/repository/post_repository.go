package repository

import (
    "context"
    "errors"

    "github.com/google/uuid"
    "go.uber.org/zap"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/d60-Lab/anonboard/internal/model"
    "github.com/d60-Lab/anonboard/pkg/logger"
)

// PostRepository 帖子仓储接口
type PostRepository interface {
    // Create 创建帖子
    Create(ctx context.Context, post *model.Post) error

    // List 按创建时间倒序分页；cursor 为上一页末条帖子 ID，返回 nextCursor
    List(ctx context.Context, limit int, cursor string) ([]*model.Post, string, error)

    // GetByID 根据 ID 查询帖子
    GetByID(ctx context.Context, id string) (*model.Post, error)

    // IncrementTipStats 原子累加打赏计数与金额；txHash 非空时按交易哈希去重
    IncrementTipStats(ctx context.Context, id string, amountMicros int64, txHash *string) error

    // IncrementLikes 原子累加点赞数
    IncrementLikes(ctx context.Context, id string) error
}

type postRepository struct {
    db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
    if post.ID == "" {
        post.ID = uuid.New().String()
    }
    return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) List(ctx context.Context, limit int, cursor string) ([]*model.Post, string, error) {
    q := r.db.WithContext(ctx).Model(&model.Post{})
    if cursor != "" {
        var cp model.Post
        err := r.db.WithContext(ctx).Select("id", "created_at").Where("id = ?", cursor).First(&cp).Error
        switch {
        case err == nil:
            // 严格早于游标帖：时间相同时按 ID 定序，保证翻页确定性
            q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cp.CreatedAt, cp.CreatedAt, cp.ID)
        case errors.Is(err, gorm.ErrRecordNotFound):
            // 游标失效退回首页，不报错
            logger.Warn("unresolvable feed cursor, serving first page", zap.String("cursor", cursor))
        default:
            return nil, "", err
        }
    }

    // 多取一条判断是否还有下一页，避免二次查询
    var posts []*model.Post
    err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&posts).Error
    if err != nil {
        return nil, "", err
    }

    next := ""
    if len(posts) > limit {
        posts = posts[:limit]
        next = posts[len(posts)-1].ID
    }
    return posts, next, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
    var post model.Post
    err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
    if err != nil {
        return nil, err
    }
    return &post, nil
}

func (r *postRepository) IncrementTipStats(ctx context.Context, id string, amountMicros int64, txHash *string) error {
    return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        ev := &model.TipEvent{ID: uuid.New().String(), PostID: id, TxHash: txHash, AmountMicros: amountMicros}
        if txHash != nil {
            // 幂等：同一交易哈希只入账一次
            res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ev)
            if res.Error != nil {
                return res.Error
            }
            if res.RowsAffected == 0 {
                return nil
            }
        } else if err := tx.Create(ev).Error; err != nil {
            return err
        }

        res := tx.Model(&model.Post{}).Where("id = ?", id).Updates(map[string]any{
            "tips_count":        gorm.Expr("tips_count + 1"),
            "total_tips_micros": gorm.Expr("total_tips_micros + ?", amountMicros),
        })
        if res.Error != nil {
            return res.Error
        }
        if res.RowsAffected == 0 {
            return gorm.ErrRecordNotFound
        }
        return nil
    })
}

func (r *postRepository) IncrementLikes(ctx context.Context, id string) error {
    res := r.db.WithContext(ctx).Model(&model.Post{}).
        Where("id = ?", id).
        Update("likes_count", gorm.Expr("likes_count + 1"))
    if res.Error != nil {
        return res.Error
    }
    if res.RowsAffected == 0 {
        return gorm.ErrRecordNotFound
    }
    return nil
}

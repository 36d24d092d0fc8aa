package model

import "time"

// Post 匿名帖子（可选绑定打赏地址）
type Post struct {
    ID              string    `gorm:"primaryKey;type:varchar(36)"`
    Text            string    `gorm:"type:text;not null"`
    AuthorAddress   *string   `gorm:"type:varchar(42);default:null"`
    LikesCount      int64     `gorm:"not null;default:0"`
    TipsCount       int64     `gorm:"not null;default:0"`
    TotalTipsMicros int64     `gorm:"not null;default:0"` // 累计打赏金额，按 10^-6 最小单位计
    CreatedAt       time.Time `gorm:"index:idx_post_created,sort:desc"`
    UpdatedAt       time.Time
}

func (Post) TableName() string { return "posts" }

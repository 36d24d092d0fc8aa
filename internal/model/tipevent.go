package model

import "time"

// TipEvent 打赏流水；tx_hash 唯一索引用于按链上交易去重
type TipEvent struct {
    ID           string  `gorm:"primaryKey;type:varchar(36)"`
    PostID       string  `gorm:"type:varchar(36);index:idx_tip_post"`
    TxHash       *string `gorm:"type:varchar(66);uniqueIndex:idx_tip_txhash"`
    AmountMicros int64   `gorm:"not null"`
    CreatedAt    time.Time
}

func (TipEvent) TableName() string { return "tip_events" }

package service

import (
	"errors"
	"fmt"
)

var (
	ErrTextRequired   = errors.New("post text is required")
	ErrTextTooLong    = errors.New("post text is too long (max 10000 characters)")
	ErrInvalidAddress = errors.New("invalid ethereum address")
	ErrInvalidAmount  = errors.New("invalid tip amount")
	ErrPostNotFound   = errors.New("post not found")
	ErrNoTipAddress   = errors.New("post has no valid address for receiving tips")
)

// TipInFlightError 同一时刻全局只允许一笔打赏在途
type TipInFlightError struct {
	PostID string
}

func (e *TipInFlightError) Error() string {
	return fmt.Sprintf("tip already in progress for post %s", e.PostID)
}

// IsValidation 判断是否属于调用方输入错误（对应 400）
func IsValidation(err error) bool {
	return errors.Is(err, ErrTextRequired) ||
		errors.Is(err, ErrTextTooLong) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidAmount)
}

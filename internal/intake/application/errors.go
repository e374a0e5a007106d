package application

import (
	"errors"
	"fmt"
)

// ErrHoneypot 蜜罐命中：预期内的高频拒绝，不按错误记日志
var ErrHoneypot = errors.New("honeypot field populated")

// RateLimitedError 限流拒绝，携带准确的重试提示
type RateLimitedError struct {
	// ResetInSeconds 最早的窗口内请求滑出窗口所需秒数（向上取整）
	ResetInSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %ds", e.ResetInSeconds)
}

// ValidationError 字段级校验失败
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

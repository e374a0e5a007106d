package application

import "github.com/risevoices/risevoices/internal/intake/domain"

// SubmitCommand 一次公开提交请求
type SubmitCommand struct {
	Type domain.SubmissionType
	// Honeypot 蜜罐字段原始值，表单中存在但对真人不可见
	Honeypot string
	// ClientIP 客户端网络地址，为空时限流退化为共享的 "unknown" 桶
	ClientIP string

	DisplayName string
	Email       string
	City        string
	State       string
	Title       string
	Body        string
	Category    string
	// ReferredBy 邀请方推荐码，原样透传存储
	ReferredBy string

	// 投放归因字段，管线不解释
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMContent  string
	UTMTerm     string
}

// SubmitResult 提交成功的返回
type SubmitResult struct {
	SubmissionID string                  `json:"submission_id"`
	Status       domain.ModerationStatus `json:"status"`
	// ReferralCode 新分配的推荐码，客户端可据此拼出分享链接
	ReferralCode string `json:"referral_code,omitempty"`
}

// MapPin 公开地图图钉，只含公开安全字段
type MapPin struct {
	SubmissionID string  `json:"submission_id"`
	DisplayName  string  `json:"display_name"`
	Category     string  `json:"category"`
	Color        string  `json:"color"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	City         string  `json:"city"`
	State        string  `json:"state"`
}

// StatsResult 公开统计
type StatsResult struct {
	Total          int64   `json:"total"`
	Referred       int64   `json:"referred"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Package domain 提交接收管线的领域模型
package domain

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidTransition  = errors.New("invalid moderation status transition")
	// ErrDuplicateReferralCode (type, referral_code) 唯一键冲突，由仓储层翻译
	ErrDuplicateReferralCode = errors.New("referral code already taken")
)

// SubmissionType 提交类型
type SubmissionType string

const (
	TypePledge     SubmissionType = "PLEDGE"     // 公开承诺
	TypeStory      SubmissionType = "STORY"      // 个人故事
	TypeContact    SubmissionType = "CONTACT"    // 联系留言
	TypeAmbassador SubmissionType = "AMBASSADOR" // 大使申请
	TypeNewsletter SubmissionType = "NEWSLETTER" // 邮件订阅
)

// ModerationStatus 审核状态
type ModerationStatus string

const (
	StatusPending   ModerationStatus = "PENDING"
	StatusApproved  ModerationStatus = "APPROVED"
	StatusPublished ModerationStatus = "PUBLISHED"
	StatusRejected  ModerationStatus = "REJECTED"
)

// Submission 提交实体。五种提交类型共用一张表，Type 为判别字段。
type Submission struct {
	gorm.Model
	// SubmissionID 对外暴露的提交 ID
	SubmissionID string `gorm:"column:submission_id;type:varchar(36);uniqueIndex;not null" json:"submission_id"`
	// Type 提交类型
	Type SubmissionType `gorm:"column:type;type:varchar(20);index;not null" json:"type"`
	// DisplayName 对外展示名
	DisplayName string `gorm:"column:display_name;type:varchar(100)" json:"display_name"`
	// Email 联系邮箱，绝不出现在公开读取接口中
	Email string `gorm:"column:email;type:varchar(200)" json:"email"`
	// City / State 自由文本位置
	City  string `gorm:"column:city;type:varchar(100)" json:"city"`
	State string `gorm:"column:state;type:varchar(50)" json:"state"`
	// Title / Body 自由文本内容（故事标题与正文、留言内容等）
	Title string `gorm:"column:title;type:varchar(200)" json:"title"`
	Body  string `gorm:"column:body;type:text" json:"body"`
	// Category 展示分类（地图图钉颜色由此派生）
	Category string `gorm:"column:category;type:varchar(50)" json:"category"`
	// Status 审核状态，需要人工审核的提交默认 PENDING
	Status ModerationStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// ReviewNotes 审核备注，风险规则命中明细以 JSON 形式写入
	ReviewNotes string `gorm:"column:review_notes;type:text" json:"review_notes"`
	// Flagged 是否命中任一风险规则
	Flagged bool `gorm:"column:flagged;index" json:"flagged"`
	// RiskScore 风险分，各命中规则严重度之和
	RiskScore int `gorm:"column:risk_score" json:"risk_score"`
	// ReferralCode 本提交可分发的推荐码；同类型内唯一
	ReferralCode *string `gorm:"column:referral_code;type:varchar(36);uniqueIndex:idx_type_referral_code,composite:type" json:"referral_code"`
	// ReferredBy 邀请方的推荐码，按原样保存，读取侧再做归因
	ReferredBy *string `gorm:"column:referred_by;type:varchar(36);index" json:"referred_by"`
	// Geocoded 是否成功解析坐标；false 时不参与地图渲染，且不会自动重试
	Geocoded bool   `gorm:"column:geocoded" json:"geocoded"`
	Lat      *float64 `gorm:"column:lat" json:"lat"`
	Lng      *float64 `gorm:"column:lng" json:"lng"`
	// SubmitterIP 提交方地址，仅内部可见
	SubmitterIP string `gorm:"column:submitter_ip;type:varchar(45)" json:"-"`
	// 投放归因字段，按原样透传存储，管线不解释
	UTMSource   string `gorm:"column:utm_source;type:varchar(100)" json:"utm_source"`
	UTMMedium   string `gorm:"column:utm_medium;type:varchar(100)" json:"utm_medium"`
	UTMCampaign string `gorm:"column:utm_campaign;type:varchar(100)" json:"utm_campaign"`
	UTMContent  string `gorm:"column:utm_content;type:varchar(100)" json:"utm_content"`
	UTMTerm     string `gorm:"column:utm_term;type:varchar(100)" json:"utm_term"`
}

// TableName 指定表名
func (Submission) TableName() string {
	return "submissions"
}

// HasFreeText 是否携带需要风险评分的自由文本
func (s *Submission) HasFreeText() bool {
	return strings.TrimSpace(s.Title) != "" || strings.TrimSpace(s.Body) != ""
}

// ReferredByCode 返回邀请方推荐码，未填写时为空串
func (s *Submission) ReferredByCode() string {
	if s.ReferredBy == nil {
		return ""
	}
	return *s.ReferredBy
}

// Code 返回本提交的推荐码，未分配时为空串
func (s *Submission) Code() string {
	if s.ReferralCode == nil {
		return ""
	}
	return *s.ReferralCode
}

// Approve 审核通过。仅允许 PENDING -> APPROVED。
func (s *Submission) Approve(notes string) error {
	if s.Status != StatusPending {
		return ErrInvalidTransition
	}
	s.Status = StatusApproved
	s.appendNotes(notes)
	return nil
}

// Publish 发布。仅允许 APPROVED -> PUBLISHED。
func (s *Submission) Publish() error {
	if s.Status != StatusApproved {
		return ErrInvalidTransition
	}
	s.Status = StatusPublished
	return nil
}

// Reject 驳回。允许 PENDING/APPROVED -> REJECTED。
func (s *Submission) Reject(notes string) error {
	if s.Status != StatusPending && s.Status != StatusApproved {
		return ErrInvalidTransition
	}
	s.Status = StatusRejected
	s.appendNotes(notes)
	return nil
}

func (s *Submission) appendNotes(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	if s.ReviewNotes == "" {
		s.ReviewNotes = notes
		return
	}
	s.ReviewNotes = s.ReviewNotes + "\n" + notes
}

// ExposesReferral 该类型是否分配推荐码并参与归因
func (t SubmissionType) ExposesReferral() bool {
	return t == TypePledge || t == TypeAmbassador
}

// BearsLocation 该类型是否携带城市/州并尝试地理编码
func (t SubmissionType) BearsLocation() bool {
	return t == TypePledge || t == TypeStory || t == TypeAmbassador
}

// HoneypotTripped 蜜罐判定：该字段对真人不可见，填了就是自动化提交
func HoneypotTripped(value string) bool {
	return strings.TrimSpace(value) != ""
}

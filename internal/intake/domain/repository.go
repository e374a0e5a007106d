package domain

import "context"

// ListFilter 内部列表查询条件
type ListFilter struct {
	Type   SubmissionType
	Status ModerationStatus
	// Flagged 为 true 时只返回命中风险规则的提交
	Flagged bool
	Limit   int
	Offset  int
}

// SubmissionRepository 提交仓储接口
type SubmissionRepository interface {
	// Create 创建提交；(type, referral_code) 唯一键冲突时返回可判定的重复键错误
	Create(ctx context.Context, submission *Submission) error
	// Save 保存已有提交（审核状态变更）
	Save(ctx context.Context, submission *Submission) error
	// GetBySubmissionID 按对外 ID 获取
	GetBySubmissionID(ctx context.Context, submissionID string) (*Submission, error)
	// GetByReferralCode 按推荐码在指定类型内查找
	GetByReferralCode(ctx context.Context, typ SubmissionType, code string) (*Submission, error)
	// ListByType 返回指定类型的全部提交，归因聚合在读取侧基于该结果推导
	ListByType(ctx context.Context, typ SubmissionType) ([]*Submission, error)
	// ListForMap 返回已审核通过且成功编码坐标的提交
	ListForMap(ctx context.Context) ([]*Submission, error)
	// List 内部分页列表
	List(ctx context.Context, filter ListFilter) ([]*Submission, int64, error)
	// CountByType 指定类型的提交总数
	CountByType(ctx context.Context, typ SubmissionType) (int64, error)
	// CountReferredByType 指定类型中携带推荐归因的提交数
	CountReferredByType(ctx context.Context, typ SubmissionType) (int64, error)
}

// Coordinates 地理坐标
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder 正向地理编码接口。
// 实现方对任何失败（凭证缺失、非 2xx、空结果、网络异常、超时）一律返回 nil 坐标，
// 调用方绝不把地理编码失败当作提交失败。
type Geocoder interface {
	Geocode(ctx context.Context, city, state string) (*Coordinates, error)
}

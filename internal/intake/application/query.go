package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/risevoices/risevoices/internal/intake/domain"
)

// QueryService 公开读取侧服务：地图、排行榜、归因动态、统计与内部列表
type QueryService struct {
	repo domain.SubmissionRepository
}

// NewQueryService 构造函数
func NewQueryService(repo domain.SubmissionRepository) *QueryService {
	return &QueryService{repo: repo}
}

// pinColors 展示分类到图钉颜色的映射，未知分类取默认色
var pinColors = map[string]string{
	"parent":    "#2563EB",
	"educator":  "#16A34A",
	"clinician": "#9333EA",
	"survivor":  "#DC2626",
	"ally":      "#F59E0B",
}

const defaultPinColor = "#64748B"

func colorForCategory(category string) string {
	if c, ok := pinColors[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return defaultPinColor
}

// MapPins 返回可渲染在公开地图上的提交。
// 仓储已过滤：仅已过审且成功编码坐标的提交，公开字段之外一概不出。
func (s *QueryService) MapPins(ctx context.Context) ([]MapPin, error) {
	subs, err := s.repo.ListForMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions for map: %w", err)
	}

	pins := make([]MapPin, 0, len(subs))
	for _, sub := range subs {
		if sub.Lat == nil || sub.Lng == nil {
			continue
		}
		pins = append(pins, MapPin{
			SubmissionID: sub.SubmissionID,
			DisplayName:  sub.DisplayName,
			Category:     sub.Category,
			Color:        colorForCategory(sub.Category),
			Lat:          *sub.Lat,
			Lng:          *sub.Lng,
			City:         sub.City,
			State:        sub.State,
		})
	}
	return pins, nil
}

// Leaderboard 承诺类型内的推荐排行榜
func (s *QueryService) Leaderboard(ctx context.Context, limit int) ([]domain.ReferrerStat, error) {
	subs, err := s.repo.ListByType(ctx, domain.TypePledge)
	if err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	return domain.TopReferrers(subs, limit), nil
}

// RecentActivity 最近的归因动态
func (s *QueryService) RecentActivity(ctx context.Context, limit int) ([]domain.ReferralActivity, error) {
	subs, err := s.repo.ListByType(ctx, domain.TypePledge)
	if err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	return domain.RecentReferralActivity(subs, limit), nil
}

// Stats 公开统计：承诺总数、携带归因的数量与转化率
func (s *QueryService) Stats(ctx context.Context) (*StatsResult, error) {
	total, err := s.repo.CountByType(ctx, domain.TypePledge)
	if err != nil {
		return nil, fmt.Errorf("count pledges: %w", err)
	}
	referred, err := s.repo.CountReferredByType(ctx, domain.TypePledge)
	if err != nil {
		return nil, fmt.Errorf("count referred pledges: %w", err)
	}
	return &StatsResult{
		Total:          total,
		Referred:       referred,
		ConversionRate: domain.ConversionRate(referred, total),
	}, nil
}

// ListSubmissions 内部分页列表，包含邮箱、IP 等非公开字段
func (s *QueryService) ListSubmissions(ctx context.Context, filter domain.ListFilter) ([]*domain.Submission, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

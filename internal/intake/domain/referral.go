package domain

import (
	"math"
	"sort"
	"time"
)

// ReferrerStat 排行榜条目：推荐码及其带来的提交数，连同邀请方的公开信息
type ReferrerStat struct {
	Code        string `json:"code"`
	Count       int    `json:"count"`
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	State       string `json:"state"`
}

// ReferralActivity 最近归因动态条目
type ReferralActivity struct {
	SubmissionID  string    `json:"submission_id"`
	DisplayName   string    `json:"display_name"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ReferredBy    string    `json:"referred_by"`
	ReferrerName  string    `json:"referrer_name"`
	ReferrerCity  string    `json:"referrer_city"`
	ReferrerState string    `json:"referrer_state"`
	CreatedAt     time.Time `json:"created_at"`
}

// indexByCode 推荐码到原始提交的索引
func indexByCode(submissions []*Submission) map[string]*Submission {
	idx := make(map[string]*Submission)
	for _, s := range submissions {
		if code := s.Code(); code != "" {
			idx[code] = s
		}
	}
	return idx
}

// TopReferrers 按 referredBy 分组计数并排序，推导排行榜。
// 推荐关系不落边表，每次读取基于提交集合现算。
// 指向不存在推荐码的归因保留在原始数据里，但不会出现在榜单上。
func TopReferrers(submissions []*Submission, limit int) []ReferrerStat {
	counts := make(map[string]int)
	for _, s := range submissions {
		if code := s.ReferredByCode(); code != "" {
			counts[code]++
		}
	}

	byCode := indexByCode(submissions)

	stats := make([]ReferrerStat, 0, len(counts))
	for code, count := range counts {
		origin, ok := byCode[code]
		if !ok {
			// 无法解析邀请方的推荐码不上榜
			continue
		}
		stats = append(stats, ReferrerStat{
			Code:        code,
			Count:       count,
			DisplayName: origin.DisplayName,
			City:        origin.City,
			State:       origin.State,
		})
	}

	// 计数降序，计数相同时按推荐码升序，保证结果确定
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Code < stats[j].Code
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// RecentReferralActivity 返回最近 N 条携带归因的提交，最新的在前，
// 每条补充邀请方的公开信息；邀请方不可解析时相应字段留空。
func RecentReferralActivity(submissions []*Submission, limit int) []ReferralActivity {
	byCode := indexByCode(submissions)

	referred := make([]*Submission, 0)
	for _, s := range submissions {
		if s.ReferredByCode() != "" {
			referred = append(referred, s)
		}
	}

	sort.Slice(referred, func(i, j int) bool {
		if !referred[i].CreatedAt.Equal(referred[j].CreatedAt) {
			return referred[i].CreatedAt.After(referred[j].CreatedAt)
		}
		return referred[i].SubmissionID > referred[j].SubmissionID
	})

	if limit > 0 && len(referred) > limit {
		referred = referred[:limit]
	}

	out := make([]ReferralActivity, 0, len(referred))
	for _, s := range referred {
		entry := ReferralActivity{
			SubmissionID: s.SubmissionID,
			DisplayName:  s.DisplayName,
			City:         s.City,
			State:        s.State,
			ReferredBy:   s.ReferredByCode(),
			CreatedAt:    s.CreatedAt,
		}
		if origin, ok := byCode[s.ReferredByCode()]; ok {
			entry.ReferrerName = origin.DisplayName
			entry.ReferrerCity = origin.City
			entry.ReferrerState = origin.State
		}
		out = append(out, entry)
	}
	return out
}

// ConversionRate 归因转化率，保留一位小数；总数为零时定义为 0
func ConversionRate(referred, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(referred)/float64(total)*1000) / 10
}

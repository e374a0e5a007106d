package application

import (
	"strings"

	"github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/pkg/ratelimit"
)

// endpointLimits 各端点类别的限流策略。策略常量，不是机制。
var endpointLimits = map[string]ratelimit.Limit{
	"pledge":     ratelimit.PerHour(5),
	"story":      ratelimit.PerHour(3),
	"contact":    ratelimit.PerHour(5),
	"newsletter": ratelimit.PerHour(3),
	"ambassador": ratelimit.PerHour(3),
	"upload":     ratelimit.PerHour(10),
}

// endpointName 提交类型对应的端点类别名
func endpointName(typ domain.SubmissionType) string {
	return strings.ToLower(string(typ))
}

// limitFor 返回端点类别的限流策略；未知端点取最严格的故事档位
func limitFor(endpoint string) ratelimit.Limit {
	if l, ok := endpointLimits[endpoint]; ok {
		return l
	}
	return ratelimit.PerHour(3)
}

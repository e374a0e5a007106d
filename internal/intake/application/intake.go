// Package application 提交接收管线的应用服务。
// 写路径顺序固定：蜜罐 -> 限流 -> 字段校验 -> 内容风险评分 -> 地理编码 -> 落库 -> 异步通知。
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/pkg/logger"
	"github.com/risevoices/risevoices/pkg/metrics"
	"github.com/risevoices/risevoices/pkg/ratelimit"
)

// Notifier 落库成功后的通知接口。
// 通知是 fire-and-forget：失败只记日志，绝不影响已成功的提交。
type Notifier interface {
	SubmissionReceived(ctx context.Context, typ domain.SubmissionType, submissionID, displayName, email string, flagged bool) error
}

// IntakeService 公开提交接收服务
type IntakeService struct {
	repo         domain.SubmissionRepository
	limiter      ratelimit.RateLimiter
	geocoder     domain.Geocoder
	notifier     Notifier
	metrics      *metrics.Metrics
	limitEnabled bool
}

// NewIntakeService 构造函数。geocoder、notifier、metrics 均可为 nil（相应能力降级）。
func NewIntakeService(
	repo domain.SubmissionRepository,
	limiter ratelimit.RateLimiter,
	geocoder domain.Geocoder,
	notifier Notifier,
	m *metrics.Metrics,
	limitEnabled bool,
) *IntakeService {
	return &IntakeService{
		repo:         repo,
		limiter:      limiter,
		geocoder:     geocoder,
		notifier:     notifier,
		metrics:      m,
		limitEnabled: limitEnabled,
	}
}

// Submit 执行完整接收管线并持久化提交。
// 被接受的请求要么落库成功，要么返回显式错误，绝不静默丢弃。
func (s *IntakeService) Submit(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	// 1. 蜜罐先于限流：机器人流量不应消耗正常配额
	if domain.HoneypotTripped(cmd.Honeypot) {
		s.incHoneypot()
		return nil, ErrHoneypot
	}

	// 2. 限流
	if err := s.checkRateLimit(ctx, cmd); err != nil {
		return nil, err
	}

	// 3. 字段校验
	if fields := validateCommand(cmd); len(fields) > 0 {
		s.incValidationFailure()
		return nil, &ValidationError{Fields: fields}
	}

	sub := s.buildSubmission(cmd)

	// 4. 内容风险评分：只标注，不阻断
	if sub.HasFreeText() {
		report := domain.ScoreContent(sub.Title, sub.Body)
		if report.Flagged {
			sub.Flagged = true
			sub.RiskScore = report.Score
			if notes, err := json.Marshal(report.Flags); err == nil {
				sub.ReviewNotes = string(notes)
			}
			s.incFlagged()
		}
	}

	// 5. 地理编码：尽力而为，失败的提交照常落库但不参与地图渲染
	if cmd.Type.BearsLocation() && strings.TrimSpace(cmd.City) != "" && s.geocoder != nil {
		coords, err := s.geocoder.Geocode(ctx, cmd.City, cmd.State)
		if err != nil || coords == nil {
			logger.Warn(ctx, "geocoding degraded, submission stored without coordinates",
				"type", cmd.Type, "city", cmd.City, "state", cmd.State, "error", err)
			s.incGeocodeFailure()
		} else {
			sub.Geocoded = true
			sub.Lat = &coords.Lat
			sub.Lng = &coords.Lng
		}
	}

	// 6. 落库（含推荐码分配）
	if err := s.persist(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}
	s.incSubmission()

	// 7. 异步通知，不等待
	s.notifyAsync(sub)

	return &SubmitResult{
		SubmissionID: sub.SubmissionID,
		Status:       sub.Status,
		ReferralCode: sub.Code(),
	}, nil
}

// checkRateLimit 滑动窗口限流。限流器自身出错时放行（限流是滥用威慑，不是硬配额）。
func (s *IntakeService) checkRateLimit(ctx context.Context, cmd SubmitCommand) error {
	if !s.limitEnabled || s.limiter == nil {
		return nil
	}

	identity := strings.TrimSpace(cmd.ClientIP)
	if identity == "" {
		// 无法解析地址的调用方共享一个桶：已文档化的降级，不是缺陷
		identity = "unknown"
	}

	endpoint := endpointName(cmd.Type)
	key := fmt.Sprintf("intake:%s:%s", endpoint, identity)

	res, err := s.limiter.Allow(ctx, key, limitFor(endpoint))
	if err != nil {
		logger.Warn(ctx, "rate limiter unavailable, failing open", "endpoint", endpoint, "error", err)
		return nil
	}
	if !res.Allowed {
		s.incRateLimited()
		return &RateLimitedError{
			ResetInSeconds: int(math.Ceil(res.RetryAfter.Seconds())),
		}
	}
	return nil
}

func (s *IntakeService) buildSubmission(cmd SubmitCommand) *domain.Submission {
	sub := &domain.Submission{
		SubmissionID: uuid.New().String(),
		Type:         cmd.Type,
		DisplayName:  strings.TrimSpace(cmd.DisplayName),
		Email:        strings.TrimSpace(cmd.Email),
		City:         strings.TrimSpace(cmd.City),
		State:        strings.TrimSpace(cmd.State),
		Title:        strings.TrimSpace(cmd.Title),
		Body:         strings.TrimSpace(cmd.Body),
		Category:     strings.TrimSpace(cmd.Category),
		Status:       domain.StatusPending,
		SubmitterIP:  cmd.ClientIP,
		UTMSource:    cmd.UTMSource,
		UTMMedium:    cmd.UTMMedium,
		UTMCampaign:  cmd.UTMCampaign,
		UTMContent:   cmd.UTMContent,
		UTMTerm:      cmd.UTMTerm,
	}
	// 邮件订阅无需人工审核
	if cmd.Type == domain.TypeNewsletter {
		sub.Status = domain.StatusApproved
	}
	if code := strings.TrimSpace(cmd.ReferredBy); code != "" {
		sub.ReferredBy = &code
	}
	return sub
}

// persist 落库。对分配推荐码的类型，码取自提交 UUID 的前缀；
// 与存量码冲突时逐级加长重试，唯一索引是并发下的最终仲裁者，
// 因此两个并发提交绝不会拿到同一个有效推荐码。
func (s *IntakeService) persist(ctx context.Context, sub *domain.Submission) error {
	if !sub.Type.ExposesReferral() {
		return s.repo.Create(ctx, sub)
	}

	raw := strings.ToUpper(strings.ReplaceAll(sub.SubmissionID, "-", ""))
	var err error
	for _, n := range []int{8, 12, len(raw)} {
		code := raw[:n]
		sub.ReferralCode = &code
		err = s.repo.Create(ctx, sub)
		if errors.Is(err, domain.ErrDuplicateReferralCode) {
			logger.Info(ctx, "referral code collision, lengthening",
				"submission_id", sub.SubmissionID, "length", n)
			continue
		}
		return err
	}
	return err
}

// notifyAsync 后置副作用：不等待、失败只记日志
func (s *IntakeService) notifyAsync(sub *domain.Submission) {
	if s.notifier == nil {
		return
	}
	typ, id, name, email, flagged := sub.Type, sub.SubmissionID, sub.DisplayName, sub.Email, sub.Flagged
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(context.Background(), "notification dispatch panicked", "submission_id", id, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notifier.SubmissionReceived(ctx, typ, id, name, email, flagged); err != nil {
			logger.Error(ctx, "notification dispatch failed", "submission_id", id, "error", err)
		}
	}()
}

// --- 审核命令 ---

// Approve 审核通过
func (s *IntakeService) Approve(ctx context.Context, submissionID, notes string) (*domain.Submission, error) {
	return s.transition(ctx, submissionID, func(sub *domain.Submission) error {
		return sub.Approve(notes)
	})
}

// Publish 发布
func (s *IntakeService) Publish(ctx context.Context, submissionID string) (*domain.Submission, error) {
	return s.transition(ctx, submissionID, func(sub *domain.Submission) error {
		return sub.Publish()
	})
}

// Reject 驳回
func (s *IntakeService) Reject(ctx context.Context, submissionID, notes string) (*domain.Submission, error) {
	return s.transition(ctx, submissionID, func(sub *domain.Submission) error {
		return sub.Reject(notes)
	})
}

func (s *IntakeService) transition(ctx context.Context, submissionID string, fn func(*domain.Submission) error) (*domain.Submission, error) {
	sub, err := s.repo.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubmissionNotFound
	}
	if err := fn(sub); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	return sub, nil
}

// --- 校验 ---

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validateCommand 字段级校验，返回 field -> message
func validateCommand(cmd SubmitCommand) map[string]string {
	fields := make(map[string]string)

	requireName := func() {
		if strings.TrimSpace(cmd.DisplayName) == "" {
			fields["name"] = "name is required"
		}
	}
	requireEmail := func() {
		if strings.TrimSpace(cmd.Email) == "" {
			fields["email"] = "email is required"
		}
	}
	requireLocation := func() {
		if strings.TrimSpace(cmd.City) == "" {
			fields["city"] = "city is required"
		}
		if strings.TrimSpace(cmd.State) == "" {
			fields["state"] = "state is required"
		}
	}
	requireBody := func() {
		if strings.TrimSpace(cmd.Body) == "" {
			fields["message"] = "message is required"
		}
	}

	switch cmd.Type {
	case domain.TypePledge:
		requireName()
		requireLocation()
	case domain.TypeStory:
		requireName()
		requireBody()
	case domain.TypeContact:
		requireEmail()
		requireBody()
	case domain.TypeNewsletter:
		requireEmail()
	case domain.TypeAmbassador:
		requireName()
		requireEmail()
		requireLocation()
	default:
		fields["type"] = "unknown submission type"
	}

	if email := strings.TrimSpace(cmd.Email); email != "" && !emailPattern.MatchString(email) {
		fields["email"] = "email is malformed"
	}

	return fields
}

// --- 指标 ---

func (s *IntakeService) incSubmission() {
	if s.metrics != nil {
		s.metrics.SubmissionsTotal.Inc()
	}
}

func (s *IntakeService) incHoneypot() {
	if s.metrics != nil {
		s.metrics.HoneypotRejectionsTotal.Inc()
	}
}

func (s *IntakeService) incRateLimited() {
	if s.metrics != nil {
		s.metrics.RateLimitRejectionsTotal.Inc()
	}
}

func (s *IntakeService) incValidationFailure() {
	if s.metrics != nil {
		s.metrics.ValidationFailuresTotal.Inc()
	}
}

func (s *IntakeService) incFlagged() {
	if s.metrics != nil {
		s.metrics.FlaggedSubmissionsTotal.Inc()
	}
}

func (s *IntakeService) incGeocodeFailure() {
	if s.metrics != nil {
		s.metrics.GeocodeFailuresTotal.Inc()
	}
}

package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/risevoices/risevoices/internal/intake/application"
	"github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/pkg/logger"
)

// InternalHandler 内部审核接口处理器。路由整体受共享令牌保护。
type InternalHandler struct {
	intake *application.IntakeService
	query  *application.QueryService
	token  string
}

// NewInternalHandler 构造内部处理器
func NewInternalHandler(intake *application.IntakeService, query *application.QueryService, token string) *InternalHandler {
	return &InternalHandler{intake: intake, query: query, token: token}
}

// RegisterInternalRoutes 注册内部路由
func (h *InternalHandler) RegisterInternalRoutes(r gin.IRouter) {
	v1 := r.Group("/internal/v1", h.requireToken)
	{
		v1.GET("/submissions", h.list)
		v1.POST("/submissions/:id/approve", h.approve)
		v1.POST("/submissions/:id/publish", h.publish)
		v1.POST("/submissions/:id/reject", h.reject)
	}
}

func (h *InternalHandler) requireToken(c *gin.Context) {
	if h.token == "" {
		// 未配置令牌则整组接口关闭，而不是裸奔
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "internal api disabled"})
		return
	}
	got := c.GetHeader("X-Internal-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (h *InternalHandler) list(c *gin.Context) {
	filter := domain.ListFilter{
		Type:    domain.SubmissionType(c.Query("type")),
		Status:  domain.ModerationStatus(c.Query("status")),
		Flagged: c.Query("flagged") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	subs, total, err := h.query.ListSubmissions(c.Request.Context(), filter)
	if err != nil {
		logger.Error(c.Request.Context(), "internal submission list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs, "total": total})
}

type moderationRequest struct {
	Notes string `json:"notes"`
}

func (h *InternalHandler) approve(c *gin.Context) {
	h.moderate(c, func(id, notes string) (*domain.Submission, error) {
		return h.intake.Approve(c.Request.Context(), id, notes)
	})
}

func (h *InternalHandler) publish(c *gin.Context) {
	h.moderate(c, func(id, _ string) (*domain.Submission, error) {
		return h.intake.Publish(c.Request.Context(), id)
	})
}

func (h *InternalHandler) reject(c *gin.Context) {
	h.moderate(c, func(id, notes string) (*domain.Submission, error) {
		return h.intake.Reject(c.Request.Context(), id, notes)
	})
}

func (h *InternalHandler) moderate(c *gin.Context, fn func(id, notes string) (*domain.Submission, error)) {
	var req moderationRequest
	// 请求体可选，解析失败当空备注处理
	_ = c.ShouldBindJSON(&req)

	sub, err := fn(c.Param("id"), req.Notes)
	switch {
	case errors.Is(err, domain.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	case err != nil:
		logger.Error(c.Request.Context(), "moderation action failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, gin.H{"submission_id": sub.SubmissionID, "status": sub.Status})
	}
}

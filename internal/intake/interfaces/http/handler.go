// Package http 提交接收服务的 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/risevoices/risevoices/internal/intake/application"
	"github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/pkg/logger"
)

// Handler 公开接口处理器
type Handler struct {
	intake *application.IntakeService
	query  *application.QueryService
}

// NewHandler 构造处理器
func NewHandler(intake *application.IntakeService, query *application.QueryService) *Handler {
	return &Handler{intake: intake, query: query}
}

// RegisterPublicRoutes 注册公开路由
func (h *Handler) RegisterPublicRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/pledges", h.submit(domain.TypePledge))
		v1.POST("/stories", h.submit(domain.TypeStory))
		v1.POST("/contact", h.submit(domain.TypeContact))
		v1.POST("/ambassadors", h.submit(domain.TypeAmbassador))
		v1.POST("/newsletter", h.submit(domain.TypeNewsletter))

		v1.GET("/map/pins", h.mapPins)
		v1.GET("/referrals/leaderboard", h.leaderboard)
		v1.GET("/referrals/activity", h.recentActivity)
		v1.GET("/stats", h.stats)
	}
}

// submitRequest 公开提交请求体。
// 不使用 binding 标签：字段校验必须发生在蜜罐与限流之后，由应用层执行。
type submitRequest struct {
	// Website 蜜罐字段，表单中对真人不可见，填了就是机器人
	Website string `json:"website"`

	Name     string `json:"name"`
	Email    string `json:"email"`
	City     string `json:"city"`
	State    string `json:"state"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Category string `json:"category"`
	// Ref 邀请方推荐码（分享链接中的 ?ref= 参数）
	Ref string `json:"ref"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`
}

func (h *Handler) submit(typ domain.SubmissionType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		cmd := application.SubmitCommand{
			Type:        typ,
			Honeypot:    req.Website,
			ClientIP:    c.ClientIP(),
			DisplayName: req.Name,
			Email:       req.Email,
			City:        req.City,
			State:       req.State,
			Title:       req.Title,
			Body:        req.Message,
			Category:    req.Category,
			ReferredBy:  req.Ref,
			UTMSource:   req.UTMSource,
			UTMMedium:   req.UTMMedium,
			UTMCampaign: req.UTMCampaign,
			UTMContent:  req.UTMContent,
			UTMTerm:     req.UTMTerm,
		}

		result, err := h.intake.Submit(c.Request.Context(), cmd)
		if err != nil {
			h.writeSubmitError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// writeSubmitError 管线错误到 HTTP 响应的映射。
// 蜜罐命中返回与普通校验失败无法区分的 400，不向机器人暴露检测手段。
func (h *Handler) writeSubmitError(c *gin.Context, err error) {
	var (
		rle *application.RateLimitedError
		ve  *application.ValidationError
	)
	switch {
	case errors.Is(err, application.ErrHoneypot):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission"})
	case errors.As(err, &rle):
		c.Header("Retry-After", strconv.Itoa(rle.ResetInSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            "too many submissions, please try again later",
			"reset_in_seconds": rle.ResetInSeconds,
		})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Fields})
	default:
		logger.Error(c.Request.Context(), "submission pipeline failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) mapPins(c *gin.Context) {
	pins, err := h.query.MapPins(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "map pins query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pins": pins})
}

func (h *Handler) leaderboard(c *gin.Context) {
	limit := parseLimit(c, 10, 100)
	stats, err := h.query.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		logger.Error(c.Request.Context(), "leaderboard query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": stats})
}

func (h *Handler) recentActivity(c *gin.Context) {
	limit := parseLimit(c, 20, 100)
	activity, err := h.query.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		logger.Error(c.Request.Context(), "referral activity query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.query.Stats(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "stats query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseLimit(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

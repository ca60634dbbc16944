package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codam/web-greeter/internal/dto"
	"github.com/codam/web-greeter/internal/middleware"
	"github.com/codam/web-greeter/internal/models"
	appErrors "github.com/codam/web-greeter/pkg/errors"
	"github.com/codam/web-greeter/pkg/hostname"
	"github.com/codam/web-greeter/pkg/response"
)

type schedulingService interface {
	Config(ctx context.Context, host string) (*models.ScheduleSnapshot, error)
	ExamModeHosts(ctx context.Context) (*dto.ExamModeHostsResponse, bool, error)
	UserImage(ctx context.Context, login string) (string, error)
}

// GreeterHandler serves the endpoints polled by greeter clients.
type GreeterHandler struct {
	service  schedulingService
	resolver hostname.Resolver
}

// NewGreeterHandler constructs the handler. resolver maps peer addresses to
// hostnames when the request path carries none.
func NewGreeterHandler(service schedulingService, resolver hostname.Resolver) *GreeterHandler {
	return &GreeterHandler{service: service, resolver: resolver}
}

// Root godoc
// @Summary Liveness probe
// @Tags Greeter
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router / [get]
func (h *GreeterHandler) Root(c *gin.Context) {
	response.JSON(c, http.StatusOK, dto.StatusResponse{Status: response.StatusOK})
}

// Config godoc
// @Summary Schedule snapshot for a workstation
// @Description Without a hostname the workstation is derived from X-Forwarded-For or the peer address.
// @Tags Greeter
// @Produce json
// @Param hostname path string false "Workstation hostname"
// @Success 200 {object} models.ScheduleSnapshot
// @Failure 503 {object} response.ErrorBody
// @Router /api/config/{hostname} [get]
func (h *GreeterHandler) Config(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrNoData)
		return
	}
	explicit := c.Param("hostname")
	if explicit == hostname.Unknown {
		explicit = ""
	}
	host := hostname.FromRequest(c.Request.Context(), h.resolver, c.Request, explicit)

	snapshot, err := h.service.Config(c.Request.Context(), host)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot)
}

// ExamModeHosts godoc
// @Summary Workstations currently in exam mode
// @Tags Greeter
// @Produce json
// @Success 200 {object} dto.ExamModeHostsResponse
// @Failure 503 {object} response.ErrorBody
// @Router /api/exam_mode_hosts [get]
func (h *GreeterHandler) ExamModeHosts(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrNoData)
		return
	}
	result, cacheHit, err := h.service.ExamModeHosts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	out := *result
	out.Status = response.StatusOK
	response.JSON(c, http.StatusOK, out)
}

// UserFace godoc
// @Summary Redirect to a user's profile picture
// @Tags Greeter
// @Param login path string true "Login"
// @Success 302
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 503 {object} response.ErrorBody
// @Router /api/user/{login}/.face [get]
func (h *GreeterHandler) UserFace(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrNoData)
		return
	}
	login := strings.TrimSpace(c.Param("login"))
	if login == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "login is required"))
		return
	}
	url, err := h.service.UserImage(c.Request.Context(), login)
	if err != nil {
		response.Error(c, err)
		return
	}
	if url == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "user image not found"))
		return
	}
	c.Redirect(http.StatusFound, url)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type BaseHandler struct {
	logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{logger: logger}
}

func (b *BaseHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", b.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (b *BaseHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// traceID reads the id set by the TraceID middleware.
func traceID(c *gin.Context) string {
	id, err := utils.GetTraceID(c)
	if err != nil {
		return ""
	}
	return id
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, pkg.APIResponse{TraceID: traceID(c), Data: data})
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	resp := pkg.ToErrorResponse(logger, traceID(c), err)
	c.JSON(resp.Status, resp)
}

func invalidInput(msg string, err error) error {
	return pkg.NewAppError(pkg.ErrInvalidInputCode, msg, err)
}

package historyhandler

import (
	"net/http"
	"strings"

	"chatrelaygo/internal/auth"
	"chatrelaygo/internal/services/history"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc     history.IHistoryService
	authSvc auth.IAuthService
}

func New(svc history.IHistoryService, authSvc auth.IAuthService) *Handler {
	return &Handler{svc: svc, authSvc: authSvc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/history", h.list)
}

func (h *Handler) list(ginCtx *gin.Context) {
	if _, err := h.authSvc.Verify(bearerToken(ginCtx)); err != nil {
		ginCtx.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var q HistoryQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	out, err := h.svc.Query(ginCtx.Request.Context(), q.Room, q.Limit)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

func bearerToken(ginCtx *gin.Context) string {
	h := ginCtx.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// the browser websocket client passes its token as a query
	// parameter, accept the same here
	return ginCtx.Query("token")
}

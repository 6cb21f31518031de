package loginhandler

import (
	"net/http"

	"chatrelaygo/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handler exposes the thin token-issuing wrapper around the auth
// collaborator. Credential checking beyond "a username was supplied"
// belongs to an external identity provider and is not modelled here.
type Handler struct {
	svc auth.IAuthService
}

func New(svc auth.IAuthService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/login", h.login)
}

func (h *Handler) login(ginCtx *gin.Context) {
	var body LoginBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	token, err := h.svc.Issue(body.Username)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, LoginResponse{Token: token, Username: body.Username})
}

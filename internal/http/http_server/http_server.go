package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"chatrelaygo/internal/auth"
	"chatrelaygo/internal/http/historyhandler"
	"chatrelaygo/internal/http/loginhandler"
	"chatrelaygo/internal/services/history"
	"chatrelaygo/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	wsSrv      *ws.WsServer
	authSvc    auth.IAuthService
	historySvc history.IHistoryService
	ctx        context.Context
}

func NewHttpServer(
	ctx context.Context,
	listenPort uint16,
	wsSrv *ws.WsServer,
	authSvc auth.IAuthService,
	historySvc history.IHistoryService,
) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		authSvc:    authSvc,
		historySvc: historySvc,
		ctx:        ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint: the gateway
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// thin REST wrappers around the collaborators
	loginhandler.New(h.authSvc).Register(routerEngine)
	historyhandler.New(h.historySvc, h.authSvc).Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down, waiting up to 10 s for
// in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}

	return nil
}

package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"
	"golang.org/x/net/netutil"

	"github.com/pixelworld/pixelworld-server/internal/api"
	"github.com/pixelworld/pixelworld-server/internal/config"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/service"
	"github.com/pixelworld/pixelworld-server/internal/ws"
)

// ProvideWSHandler provides the websocket transport.
func ProvideWSHandler(i do.Injector) (*ws.Handler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	svc := do.MustInvoke[*service.SyncService](i)
	h := do.MustInvoke[*hub.Hub](i)

	return ws.NewHandler(svc, h, log, ws.Options{
		PingInterval:    cfg.Transport.PingInterval,
		MaxMessageBytes: cfg.Transport.MaxMessageBytes,
		AllowedOrigins:  cfg.Server.CORSOrigins,
	}), nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	hub *hub.Hub
	ws  *ws.Handler
}

// Shutdown implements do.Shutdownable. Hijacked websocket connections are not
// tracked by http.Server, so the hub closes them and the handler waits.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := h.Server.Shutdown(ctx)
	if hubErr := h.hub.Shutdown(ctx); hubErr != nil {
		err = errors.Join(err, hubErr)
	}
	if wsErr := h.ws.Shutdown(ctx); wsErr != nil {
		err = errors.Join(err, wsErr)
	}
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	schedulerHandle := do.MustInvoke[*PersistSchedulerHandle](i)
	syncService := do.MustInvoke[*service.SyncService](i)
	h := do.MustInvoke[*hub.Hub](i)
	wsHandler := do.MustInvoke[*ws.Handler](i)

	services := &api.Services{
		Sync:    syncService,
		Hub:     h,
		Search:  searchHandle.SearchIndex,
		Storage: storeHandle,
		Persist: schedulerHandle.Scheduler,
	}

	handler := api.NewServer(services, wsHandler, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}
	if cfg.Server.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr, "max_connections", cfg.Server.MaxConnections)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, hub: h, ws: wsHandler}, nil
}

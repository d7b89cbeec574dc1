package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger   *slog.Logger
	handlers *handlers
}

func New(logger *slog.Logger, uSession sessionUseCase) *Server {
	logger = logger.With("component", "rest")

	return &Server{
		logger: logger,
		handlers: &handlers{
			logger:   logger,
			uSession: uSession,
		},
	}
}

// Routes - the HTTP API.
func (that *Server) Routes() http.Handler {
	h := that.handlers

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", pingHandler)
	mux.Handle("GET /bingo", http.RedirectHandler("/bingo/sessions", http.StatusFound))

	mux.HandleFunc("GET /bingo/sessions", h.listSessions)
	mux.HandleFunc("POST /bingo/sessions", h.createSession)
	mux.HandleFunc("GET /bingo/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /bingo/sessions/{id}", h.updateSession)
	mux.HandleFunc("PUT /bingo/sessions/{id}", h.updateSession)
	mux.HandleFunc("DELETE /bingo/sessions/{id}", h.deleteSession)

	mux.HandleFunc("POST /bingo/sessions/{id}/boards", h.requestBoard)
	mux.HandleFunc("GET /bingo/sessions/{id}/boards/{board}", h.getBoard)
	mux.HandleFunc("DELETE /bingo/sessions/{id}/boards/{board}", h.leaveSession)
	mux.HandleFunc("GET /bingo/sessions/{id}/boards/{board}/draw", h.nextDraw)
	mux.HandleFunc("POST /bingo/sessions/{id}/boards/{board}/marks", h.markBoard)

	mux.HandleFunc("GET /bingo/sessions/{id}/game", h.gameState)
	mux.HandleFunc("POST /bingo/sessions/{id}/game/start", h.startGame)
	mux.HandleFunc("POST /bingo/sessions/{id}/game/abort", h.abortGame)
	mux.HandleFunc("PUT /bingo/sessions/{id}/game/speed", h.adjustSpeed)

	return mux
}

// Start - serves the API until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

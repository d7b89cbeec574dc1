package websocket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rocketscienceinc/bingo-backend/internal/bingo"
	"github.com/rocketscienceinc/bingo-backend/internal/pkg"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

const (
	maxMessageSize  = 1 << 16
	shutdownTimeout = 5 * time.Second
)

type sessionUseCase interface {
	Subscribe(ctx context.Context, sessionID int64, boardID int) (*bingo.Mailbox, error)
	MarkBoard(ctx context.Context, sessionID int64, boardID int, column string, number int) (*usecase.MarkResult, error)
	GameState(ctx context.Context, sessionID int64) (*usecase.GameState, error)
}

type handlerFunc func(ctx context.Context, message *Message, conn *connection) error

type Server struct {
	logger   *slog.Logger
	uSession sessionUseCase

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, uSession sessionUseCase) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		uSession: uSession,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionBoardMark] = server.handleBoardMark
	server.handlers[actionGameState] = server.handleGameState

	return server
}

// Routes - the websocket endpoint.
func (that *Server) Routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Routes(ctx),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	if req.Header.Get("Upgrade") != "websocket" {
		http.Error(writer, "not a websocket upgrade", http.StatusBadRequest)
		return
	}

	key := req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		http.Error(writer, "missing Sec-WebSocket-Key", http.StatusBadRequest)
		return
	}

	viewer := that.setSessionCookie(writer, req)

	hijacker, ok := writer.(http.Hijacker)
	if !ok {
		log.Error("web server does not support hijacking", "error", http.StatusText(http.StatusInternalServerError))
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Upgrade", "websocket")
	writer.Header().Set("Connection", "Upgrade")
	writer.Header().Set("Sec-WebSocket-Accept", pkg.GenerateAcceptKey(key))
	writer.WriteHeader(http.StatusSwitchingProtocols)

	netConn, bufrw, err := hijacker.Hijack()
	if err != nil {
		log.Error("failed to hijack connection", "error", err)
		return
	}

	// hijacked connections keep the server deadlines otherwise
	if err = netConn.SetDeadline(time.Time{}); err != nil {
		log.Error("failed to clear deadlines", "error", err)
		netConn.Close()
		return
	}

	conn := newConnection(netConn, bufrw, viewer)
	defer conn.close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-connCtx.Done()
		conn.close()
	}()

	log = log.With("viewer", viewer)
	log.Info("WebSocket connection established")

	if err = that.handleMessages(connCtx, conn); err != nil && !errors.Is(err, errConnectionClosed) {
		log.Error("error handling messages", "error", err)
	}

	log.Info("WebSocket connection closed")
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "handleMessages")

	for {
		reqBody, err := conn.readMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			if err = that.sendErrorResponse(conn, message.Action, "unknown action"); err != nil {
				return err
			}
			continue
		}

		if err = handler(ctx, &message, conn); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// setSessionCookie - identifies the viewer behind a connection.
func (that *Server) setSessionCookie(writer http.ResponseWriter, req *http.Request) string {
	cookie, err := req.Cookie("user_session")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	cookie = &http.Cookie{
		Name:     "user_session",
		Value:    pkg.GenerateNewSessionID(),
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/ws",
		HttpOnly: true,
	}
	http.SetCookie(writer, cookie)

	return cookie.Value
}

// connection is a hijacked client connection. Writes come from the read loop and the draw pump.
type connection struct {
	netConn net.Conn
	bufrw   *bufio.ReadWriter
	viewer  string

	writeMu sync.Mutex

	mu        sync.Mutex
	sessionID int64
	boardID   int
	stopPump  context.CancelFunc

	closeOnce sync.Once
}

func newConnection(netConn net.Conn, bufrw *bufio.ReadWriter, viewer string) *connection {
	return &connection{
		netConn: netConn,
		bufrw:   bufrw,
		viewer:  viewer,
	}
}

func (that *connection) send(action string, payload any) error {
	data, err := newMessage(action, payload)
	if err != nil {
		return err
	}

	return that.writeFrame(textFrame(data))
}

func (that *connection) writeFrame(f frame) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	return writeFrame(that.bufrw, f)
}

// readMessage - reads frames until a complete text message arrives, answering control frames on the way.
func (that *connection) readMessage() ([]byte, error) {
	var data []byte

	for {
		f, err := readFrame(that.bufrw)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil, errConnectionClosed
			}
			return nil, err
		}

		switch f.opCode {
		case opCodeClose:
			_ = that.writeFrame(frame{isFin: true, opCode: opCodeClose, length: f.length, payload: f.payload})
			return nil, errConnectionClosed
		case opCodePing:
			if err = that.writeFrame(frame{isFin: true, opCode: opCodePong, length: f.length, payload: f.payload}); err != nil {
				return nil, err
			}
		case opCodePong:
		case opCodeText, opCodeContinuation:
			data = append(data, f.payload...)
			if len(data) > maxMessageSize {
				return nil, fmt.Errorf("message exceeds %d bytes", maxMessageSize)
			}
			if f.isFin {
				return data, nil
			}
		default:
			return nil, fmt.Errorf("unsupported opcode %#x", f.opCode)
		}
	}
}

// attach - binds the connection to a seat, stopping the pump of a previous seat.
func (that *connection) attach(sessionID int64, boardID int, stop context.CancelFunc) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopPump != nil {
		that.stopPump()
	}

	that.sessionID = sessionID
	that.boardID = boardID
	that.stopPump = stop
}

func (that *connection) seat() (int64, int, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.sessionID, that.boardID, that.stopPump != nil
}

func (that *connection) close() {
	that.closeOnce.Do(func() {
		that.mu.Lock()
		if that.stopPump != nil {
			that.stopPump()
		}
		that.mu.Unlock()

		that.netConn.Close()
	})
}

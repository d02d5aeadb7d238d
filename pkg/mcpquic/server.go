package mcpquic

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/lexcheck/pkg/kit"
)

// Handler runs MCP sessions on QUIC connections it is handed. The chassis
// uses it behind its ALPN switch; Listener uses it standalone.
type Handler struct {
	mcp    *server.MCPServer
	limits Limits
	logger *slog.Logger
	active atomic.Int64
}

// NewHandler serves the tools registered on srv within limits. Zero fields
// of limits take their DefaultLimits value.
func NewHandler(srv *server.MCPServer, limits Limits, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcp: srv, limits: limits.withDefaults(), logger: logger}
}

// Limits returns the limits applied to each session.
func (h *Handler) Limits() Limits { return h.limits }

// ServeConn runs one MCP session on conn and closes it when the session ends.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPN {
		conn.CloseWithError(CodeWrongALPN, "unsupported ALPN: "+alpn)
		return
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		h.logger.Warn("mcp: no stream opened", "remote", remote, "error", err)
		conn.CloseWithError(CodeProtocol, "no stream")
		return
	}
	if err := readPreamble(stream); err != nil {
		h.logger.Warn("mcp: rejected connection", "remote", remote, "error", err)
		stream.CancelRead(streamBadPreamble)
		stream.CancelWrite(streamBadPreamble)
		conn.CloseWithError(CodeProtocol, "bad preamble")
		return
	}

	err = h.run(kit.WithTransport(ctx, kit.TransportMCPQUIC), remote, stream, stream)
	switch {
	case errors.Is(err, ErrMessageTooLarge):
		stream.CancelRead(streamTooLarge)
		conn.CloseWithError(CodeProtocol, "message too large")
	case err != nil:
		conn.CloseWithError(CodeProtocol, err.Error())
	default:
		stream.Close()
		conn.CloseWithError(CodeNone, "")
	}
}

// run registers a session and answers JSON-RPC lines from r on w until r
// ends. It returns ErrMessageTooLarge when a line exceeds the limit.
func (h *Handler) run(ctx context.Context, remote string, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := newSession("quic_"+uuid.NewString(), w, h.limits, h.logger.With("remote", remote))
	if err := h.mcp.RegisterSession(ctx, sess); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	defer h.mcp.UnregisterSession(ctx, sess.id)
	ctx = h.mcp.WithContext(ctx, sess)

	n := h.active.Add(1)
	defer h.active.Add(-1)
	sess.logger.Info("mcp session started", "active", n)

	go sess.forwardNotifications(ctx)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4<<10, h.limits.MaxMessage)), h.limits.MaxMessage)
	for sc.Scan() {
		if err := sess.handle(ctx, h.mcp, sc.Bytes()); err != nil {
			return err
		}
	}
	err := sc.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		sess.logger.Warn("mcp message over limit", "limit", h.limits.MaxMessage)
		err = ErrMessageTooLarge
	} else if err != nil && ctx.Err() == nil {
		sess.logger.Warn("mcp read failed", "error", err)
	}
	sess.logger.Info("mcp session ended", "calls", sess.calls)
	return err
}

// Listener accepts MCP connections on its own UDP port, for
// `lexcheck mcp --quic`.
type Listener struct {
	ln *quic.Listener
	h  *Handler
}

// Listen binds addr. tlsCfg must offer ALPN; see ServerTLS.
func Listen(addr string, tlsCfg *tls.Config, h *Handler) (*Listener, error) {
	ln, err := quic.ListenAddr(addr, tlsCfg, h.limits.QUICConfig())
	if err != nil {
		return nil, fmt.Errorf("mcp listen %s: %w", addr, err)
	}
	h.logger.Info("mcp QUIC listener ready", "addr", ln.Addr().String())
	return &Listener{ln: ln, h: h}, nil
}

// Addr returns the bound UDP address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve accepts connections until ctx is done or the listener is closed.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("mcp accept: %w", err)
		}
		go l.h.ServeConn(ctx, conn)
	}
}

func (l *Listener) Close() error { return l.ln.Close() }

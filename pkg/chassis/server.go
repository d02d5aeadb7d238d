// Package chassis serves lexcheck on one port. TCP carries the JSON API over
// TLS (HTTP/1.1 and HTTP/2). UDP carries QUIC, where ALPN picks HTTP/3 for
// the same API or the MCP evaluation tools (see package mcpquic).
//
// Without cert files a self-signed localhost certificate is generated.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/lexcheck/pkg/mcpquic"
)

const alpnH3 = "h3"

// Config describes a chassis.
type Config struct {
	Addr      string // ":8443" when empty; the same port on TCP and UDP
	CertFile  string
	KeyFile   string
	Handler   http.Handler      // the API router
	MCPServer *server.MCPServer // nil leaves MCP off
	MCPLimits mcpquic.Limits
	Logger    *slog.Logger
}

// Server runs the TCP and UDP sides of the chassis.
type Server struct {
	addr    string
	logger  *slog.Logger
	tls     *tls.Config
	handler http.Handler
	mcp     *mcpquic.Handler

	mu   sync.Mutex
	tcp  *http.Server
	h3   *http3.Server
	quic *quic.Listener
}

// New prepares a chassis without binding any port.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8443"
	}
	cert, generated, err := LoadCertificate(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	if generated {
		cfg.Logger.Warn("chassis: using a generated self-signed certificate", "valid_for", devCertLifetime)
	}

	s := &Server{
		addr:   cfg.Addr,
		logger: cfg.Logger,
		tls: &tls.Config{
			MinVersion:   tls.VersionTLS13,
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{alpnH3, mcpquic.ALPN},
		},
		handler: apiHeaders(cfg.Addr, cfg.Handler),
	}
	if cfg.MCPServer != nil {
		s.mcp = mcpquic.NewHandler(cfg.MCPServer, cfg.MCPLimits, cfg.Logger)
	}
	return s, nil
}

// apiHeaders adds the response headers of every API answer: HTTP/3
// advertisement, no caching of evaluated arguments, and a lockdown policy
// fitting JSON and downloaded reports.
func apiHeaders(addr string, next http.Handler) http.Handler {
	port := "8443"
	if _, p, err := net.SplitHostPort(addr); err == nil && p != "" {
		port = p
	}
	altSvc := fmt.Sprintf(`%s=":%s"; ma=86400`, alpnH3, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Alt-Svc", altSvc)
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// quicConfig serves both HTTP/3, with many short streams, and MCP sessions,
// with one long stream sized by the MCP limits.
func (s *Server) quicConfig() *quic.Config {
	limits := mcpquic.DefaultLimits()
	if s.mcp != nil {
		limits = s.mcp.Limits()
	}
	c := limits.QUICConfig()
	c.MaxIncomingStreams = 256
	return c
}

// Start binds TCP and UDP on the chassis address and serves until ctx is
// done or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	tcpTLS := s.tls.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	tcpLn, err := tls.Listen("tcp", s.addr, tcpTLS)
	if err != nil {
		return fmt.Errorf("chassis tcp: %w", err)
	}
	udpLn, err := quic.ListenAddr(s.addr, s.tls, s.quicConfig())
	if err != nil {
		tcpLn.Close()
		return fmt.Errorf("chassis quic: %w", err)
	}

	s.mu.Lock()
	s.tcp = &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	s.h3 = &http3.Server{Handler: s.handler}
	s.quic = udpLn
	tcp := s.tcp
	s.mu.Unlock()

	s.logger.Info("chassis listening", "addr", s.addr, "mcp", s.mcp != nil)

	errCh := make(chan error, 2)
	go func() {
		if err := tcp.Serve(tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("chassis tcp: %w", err)
		}
	}()
	go func() {
		for {
			conn, err := udpLn.Accept(ctx)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, quic.ErrServerClosed) {
					errCh <- fmt.Errorf("chassis quic: %w", err)
				}
				return
			}
			go s.route(ctx, conn)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// route hands a QUIC connection to HTTP/3 or MCP by its negotiated ALPN.
func (s *Server) route(ctx context.Context, conn *quic.Conn) {
	switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
	case alpnH3:
		if err := s.h3.ServeQUICConn(conn); err != nil {
			s.logger.Debug("http3 connection closed", "remote", conn.RemoteAddr().String(), "error", err)
		}
	case mcpquic.ALPN:
		if s.mcp == nil {
			conn.CloseWithError(mcpquic.CodeMCPDisabled, "MCP is not enabled on this server")
			return
		}
		s.mcp.ServeConn(ctx, conn)
	default:
		conn.CloseWithError(mcpquic.CodeWrongALPN, "unsupported ALPN: "+alpn)
	}
}

// Stop shuts the TCP server down gracefully and closes the QUIC side.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.tcp != nil {
		errs = append(errs, s.tcp.Shutdown(ctx))
	}
	if s.h3 != nil {
		errs = append(errs, s.h3.Close())
	}
	if s.quic != nil {
		errs = append(errs, s.quic.Close())
	}
	s.logger.Info("chassis stopped")
	return errors.Join(errs...)
}

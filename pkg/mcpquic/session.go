package mcpquic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
)

// JSON-RPC error code sent when a session used up its tools/call budget.
const codeCallLimit = -32000

// session is one MCP client on one QUIC stream. It implements
// server.ClientSession.
type session struct {
	id     string
	limits Limits
	logger *slog.Logger

	mu  sync.Mutex // serializes writes to out
	out io.Writer

	notes       chan mcp.JSONRPCNotification
	initialized atomic.Bool
	calls       int
}

func newSession(id string, out io.Writer, limits Limits, logger *slog.Logger) *session {
	return &session{
		id:     id,
		limits: limits,
		logger: logger.With("session", id),
		out:    out,
		notes:  make(chan mcp.JSONRPCNotification, 16),
	}
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notes }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

// rpcRequest is the part of an incoming message the session looks at before
// handing it to the MCP server.
type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

// handle answers one JSON-RPC line. Tool calls are counted against
// MaxCalls and logged with the catalog and case they evaluate.
func (s *session) handle(ctx context.Context, srv *server.MCPServer, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var req rpcRequest
	isCall := json.Unmarshal(line, &req) == nil && req.Method == "tools/call"
	if isCall {
		s.calls++
		if s.limits.MaxCalls > 0 && s.calls > s.limits.MaxCalls {
			s.logger.Warn("mcp call limit reached", "tool", req.Params.Name, "limit", s.limits.MaxCalls)
			return s.reply(callLimitError(req.ID, s.limits.MaxCalls))
		}
	}

	start := time.Now()
	resp := srv.HandleMessage(ctx, json.RawMessage(line))
	if isCall {
		args := req.Params.Arguments
		s.logger.Debug("mcp tool call",
			"tool", req.Params.Name,
			"catalog", cast.ToString(args["catalog"]),
			"case_id", cast.ToString(args["case_id"]),
			"side", cast.ToString(args["side"]),
			"text_bytes", len(cast.ToString(args["text"])),
			"duration", time.Since(start),
		)
	}
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("mcp marshal response", "error", err)
		return nil
	}
	return s.reply(data)
}

func (s *session) reply(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func (s *session) forwardNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.notes:
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if err := s.reply(data); err != nil {
				return
			}
		}
	}
}

func callLimitError(id json.RawMessage, limit int) []byte {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	msg := struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{JSONRPC: "2.0", ID: id}
	msg.Error.Code = codeCallLimit
	msg.Error.Message = "session tool call limit reached (" + cast.ToString(limit) + ")"
	data, _ := json.Marshal(msg)
	return data
}

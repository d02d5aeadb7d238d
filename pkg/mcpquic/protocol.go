// Package mcpquic carries the lexcheck MCP tools (evaluate_argument,
// list_cases, ...) over QUIC. A connection opens one bidirectional stream,
// sends a 4-byte preamble, then exchanges newline-delimited JSON-RPC.
package mcpquic

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN is the protocol id negotiated for MCP sessions. The chassis offers it
// next to "h3" on the same UDP port.
const ALPN = "lexcheck-mcp-v1"

const preamble = "LXM1"

// Connection close codes.
const (
	CodeNone        quic.ApplicationErrorCode = 0x00
	CodeWrongALPN   quic.ApplicationErrorCode = 0x01
	CodeProtocol    quic.ApplicationErrorCode = 0x03
	CodeMCPDisabled quic.ApplicationErrorCode = 0x10
)

// Stream reset codes.
const (
	streamBadPreamble quic.StreamErrorCode = 0x02
	streamTooLarge    quic.StreamErrorCode = 0x03
)

var (
	ErrBadPreamble     = errors.New("mcpquic: bad stream preamble")
	ErrWrongALPN       = errors.New("mcpquic: peer did not negotiate " + ALPN)
	ErrMessageTooLarge = errors.New("mcpquic: message exceeds limit")
	ErrNotConnected    = errors.New("mcpquic: client not connected")
)

// ConnectionError is returned when a connection had to be closed with an
// application code.
type ConnectionError struct {
	RemoteAddr string
	Code       quic.ApplicationErrorCode
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s closed with 0x%02x: %v", e.RemoteAddr, e.Code, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Limits bound what one MCP session may ask of the evaluator.
type Limits struct {
	// MaxMessage is the largest JSON-RPC line accepted, in bytes.
	MaxMessage int
	// MaxCalls caps tools/call requests per session; 0 means no cap.
	MaxCalls int
	// Idle closes a connection after this long without traffic.
	Idle time.Duration
}

// DefaultLimits fits evaluate_argument: the argument text is capped at
// 64 KiB by the API and JSON escaping can inflate it several times.
func DefaultLimits() Limits {
	return Limits{MaxMessage: 512 << 10, MaxCalls: 1000, Idle: 5 * time.Minute}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxMessage <= 0 {
		l.MaxMessage = d.MaxMessage
	}
	if l.MaxCalls < 0 {
		l.MaxCalls = 0
	}
	if l.Idle <= 0 {
		l.Idle = d.Idle
	}
	return l
}

// QUICConfig returns transport settings sized for l: the stream window holds
// two full messages so a request and its notification never stall.
func (l Limits) QUICConfig() *quic.Config {
	l = l.withDefaults()
	return &quic.Config{
		MaxStreamReceiveWindow:     uint64(2 * l.MaxMessage),
		MaxConnectionReceiveWindow: uint64(8 * l.MaxMessage),
		MaxIdleTimeout:             l.Idle,
		KeepAlivePeriod:            l.Idle / 10,
	}
}

// ServerTLS builds the TLS config of a standalone MCP listener.
func ServerTLS(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}
}

// ClientTLS builds the client TLS config. Without verify any certificate is
// accepted, which is what the generated development certificates need.
func ClientTLS(verify bool) *tls.Config {
	return &tls.Config{
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: !verify,
	}
}

func writePreamble(w io.Writer) error {
	if _, err := io.WriteString(w, preamble); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}
	return nil
}

func readPreamble(r io.Reader) error {
	got := make([]byte, len(preamble))
	if _, err := io.ReadFull(r, got); err != nil {
		return fmt.Errorf("read preamble: %w", err)
	}
	if !bytes.Equal(got, []byte(preamble)) {
		return fmt.Errorf("%w: %q", ErrBadPreamble, got)
	}
	return nil
}

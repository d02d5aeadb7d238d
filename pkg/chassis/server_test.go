package chassis

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/lexcheck/pkg/mcpquic"
)

func TestLoadCertificate_Generated(t *testing.T) {
	cert, generated, err := LoadCertificate("", "")
	if err != nil {
		t.Fatalf("LoadCertificate: %v", err)
	}
	if !generated {
		t.Error("generated = false for empty paths")
	}
	if cert.Leaf == nil {
		t.Fatal("generated certificate has no leaf")
	}
	if err := cert.Leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("VerifyHostname(localhost): %v", err)
	}
	if err := cert.Leaf.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("VerifyHostname(127.0.0.1): %v", err)
	}
	if life := cert.Leaf.NotAfter.Sub(cert.Leaf.NotBefore); life > devCertLifetime+time.Hour {
		t.Errorf("lifetime = %v", life)
	}
}

func TestLoadCertificate_Files(t *testing.T) {
	gen, err := selfSigned(time.Now())
	if err != nil {
		t.Fatalf("selfSigned: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(gen.PrivateKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	writePEM(t, certFile, "CERTIFICATE", gen.Certificate[0])
	writePEM(t, keyFile, "PRIVATE KEY", keyDER)

	cert, generated, err := LoadCertificate(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadCertificate: %v", err)
	}
	if generated {
		t.Error("generated = true for cert files")
	}
	if len(cert.Certificate) != 1 {
		t.Errorf("chain length = %d", len(cert.Certificate))
	}
}

func TestLoadCertificate_Errors(t *testing.T) {
	if _, _, err := LoadCertificate("cert.pem", ""); err == nil {
		t.Error("expected error when key_file is missing")
	}
	if _, _, err := LoadCertificate("missing.pem", "missing.key"); err == nil {
		t.Error("expected error for missing files")
	}
}

func TestNew(t *testing.T) {
	s, err := New(Config{Handler: http.NotFoundHandler()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.addr != ":8443" {
		t.Errorf("addr = %q", s.addr)
	}
	protos := s.tls.NextProtos
	if len(protos) != 2 || protos[0] != "h3" || protos[1] != mcpquic.ALPN {
		t.Errorf("NextProtos = %v", protos)
	}
	if s.tls.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x", s.tls.MinVersion)
	}
	if s.mcp != nil {
		t.Error("MCP handler set without an MCP server")
	}
	if got := s.quicConfig().MaxStreamReceiveWindow; got != uint64(2*mcpquic.DefaultLimits().MaxMessage) {
		t.Errorf("stream window = %d", got)
	}
}

func TestNew_MCPLimits(t *testing.T) {
	s, err := New(Config{
		Handler:   http.NotFoundHandler(),
		MCPServer: server.NewMCPServer("lexcheck", "test"),
		MCPLimits: mcpquic.Limits{MaxMessage: 1 << 20, MaxCalls: 5},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.mcp == nil {
		t.Fatal("MCP handler missing")
	}
	if got := s.mcp.Limits().MaxCalls; got != 5 {
		t.Errorf("MaxCalls = %d", got)
	}
	c := s.quicConfig()
	if c.MaxStreamReceiveWindow != 2<<20 || c.MaxIncomingStreams != 256 {
		t.Errorf("quic config = %+v", c)
	}
}

func TestAPIHeaders(t *testing.T) {
	h := apiHeaders("127.0.0.1:9443", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluate", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	want := map[string]string{
		"Alt-Svc":                `h3=":9443"; ma=86400`,
		"Cache-Control":          "no-store",
		"X-Content-Type-Options": "nosniff",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func writePEM(t *testing.T, path, typ string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package api

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
)

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T, ids ...string) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry(t.TempDir())
	for _, id := range ids {
		entries := []catalog.Entry{
			catalog.NewEntry("1", "defesa", "Direito à Saúde", "CF art. 196", 5, "direito a saude"),
			catalog.NewEntry("1", "defesa", "Dignidade", "CF art. 1 III", 3, "dignidade"),
			catalog.NewEntry("1", "acusação", "Reserva do Possível", "ADPF 45", 4, "reserva do possivel"),
			catalog.NewEntry("2", "defesa", "Insignificância", "HC 84412", 2, "bagatela"),
		}
		for i := range entries {
			entries[i].CaseTitle = "Caso " + entries[i].CaseID
		}
		reg.Add(catalog.New(&catalog.Manifest{ID: id, Version: "1", Title: "Catalog " + id}, entries))
	}
	return reg
}

func testServer(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(testRegistry(t, ids...), logger, WithClock(func() time.Time { return fixedNow })))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestEvaluate(t *testing.T) {
	srv := testServer(t, "br")

	resp := post(t, srv.URL+"/v1/evaluate", `{"case_id": 1, "side": "Defesa", "text": "Invoco o direito à saúde"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	m := decode(t, resp)
	assert.Equal(t, "br", m["catalog"])
	assert.Equal(t, "1", m["case_id"])
	assert.Equal(t, "Caso 1", m["case_title"])
	assert.Equal(t, 5.0, m["score"])
	assert.Equal(t, 8.0, m["max_score"])
	assert.Len(t, m["matched"], 1)
	assert.Len(t, m["recommended"], 1)
	assert.Len(t, m["counterarguments"], 1)
}

func TestEvaluate_Threshold(t *testing.T) {
	srv := testServer(t, "br")

	m := decode(t, post(t, srv.URL+"/v1/evaluate", `{"case_id":"1","side":"defesa","text":"dignidad"}`))
	assert.Len(t, m["matched"], 1)

	m = decode(t, post(t, srv.URL+"/v1/evaluate", `{"case_id":"1","side":"defesa","text":"dignidad","threshold":0.99}`))
	assert.Empty(t, m["matched"])
	assert.Equal(t, 0.99, m["threshold"])
}

func TestEvaluate_Errors(t *testing.T) {
	srv := testServer(t, "br", "en")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"case_id":`, http.StatusBadRequest},
		{"missing case", `{"catalog":"br","side":"defesa","text":"x"}`, http.StatusBadRequest},
		{"missing side", `{"catalog":"br","case_id":"1","side":" ","text":"x"}`, http.StatusBadRequest},
		{"threshold out of range", `{"catalog":"br","case_id":"1","side":"defesa","threshold":2}`, http.StatusBadRequest},
		{"unknown catalog", `{"catalog":"xx","case_id":"1","side":"defesa"}`, http.StatusNotFound},
		{"ambiguous catalog", `{"case_id":"1","side":"defesa"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/v1/evaluate", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decode(t, resp)["error"])
		})
	}
}

func TestEvaluate_UnknownCaseIsEmpty(t *testing.T) {
	srv := testServer(t, "br")

	resp := post(t, srv.URL+"/v1/evaluate", `{"case_id":"99","side":"defesa","text":"dignidade"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode(t, resp)
	assert.Equal(t, []any{}, m["matched"])
	assert.Equal(t, []any{}, m["recommended"])
	assert.Equal(t, 0.0, m["score"])
}

func TestReport_CSV(t *testing.T) {
	srv := testServer(t, "br")

	resp := post(t, srv.URL+"/v1/evaluate/report?format=csv", `{"case_id":"1","side":"defesa","text":"direito a saude"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_1_defesa.csv"`, resp.Header.Get("Content-Disposition"))

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2026-05-04T12:00:00Z", "1", "Caso 1", "defesa", "matched", "Direito à Saúde", "CF art. 196", "5"}, records[1])
	assert.Equal(t, "suggested", records[2][4])
}

func TestReport_Formats(t *testing.T) {
	srv := testServer(t, "br")
	body := `{"case_id":"1","side":"defesa","text":"direito a saude"}`

	resp := post(t, srv.URL+"/v1/evaluate/report?format=md", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "# Case 1: Caso 1")

	resp = post(t, srv.URL+"/v1/evaluate/report?format=html", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "report_1_defesa.html")
	data, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "<h1>")

	resp = post(t, srv.URL+"/v1/evaluate/report?format=pdf", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListCatalogs(t *testing.T) {
	srv := testServer(t, "en", "br")

	resp := get(t, srv.URL+"/v1/catalogs")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body catalogsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Catalogs, 2)
	assert.Equal(t, "br", body.Catalogs[0].ID)
	assert.Equal(t, 2, body.Catalogs[0].Cases)
	assert.Equal(t, 4, body.Catalogs[0].Entries)
}

func TestListCases(t *testing.T) {
	srv := testServer(t, "br")

	resp := get(t, srv.URL+"/v1/catalogs/br/cases")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body casesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Cases, 2)
	assert.Equal(t, "1", body.Cases[0].ID)
	assert.Equal(t, []string{"defesa", "acusacao"}, body.Cases[0].Sides)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/catalogs/nope/cases").StatusCode)
}

func TestNormalize(t *testing.T) {
	srv := testServer(t, "br")

	resp := get(t, srv.URL+"/v1/normalize?text="+"Direito%20%C3%A0%20Sa%C3%BAde!")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body normalizeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "direito a saude", body.Normalized)
	assert.Equal(t, []string{"direito", "a", "saude"}, body.Tokens)

	m := decode(t, get(t, srv.URL+"/v1/normalize"))
	assert.Equal(t, []any{}, m["tokens"])
}

func TestHealth(t *testing.T) {
	srv := testServer(t, "br")

	m := decode(t, get(t, srv.URL+"/v1/health"))
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, 1.0, m["catalogs"])
	assert.Equal(t, 4.0, m["total_entries"])
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t, "br")

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/evaluate", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEvaluate_GetNotAllowed(t *testing.T) {
	srv := testServer(t, "br")
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, srv.URL+"/v1/evaluate").StatusCode)
}

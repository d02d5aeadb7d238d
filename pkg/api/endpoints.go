package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
	"github.com/hazyhaar/lexcheck/pkg/evaluate"
	"github.com/hazyhaar/lexcheck/pkg/kit"
	"github.com/hazyhaar/lexcheck/pkg/report"
	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

// Shared request/response types used by both HTTP and MCP transports.

// errInvalid marks requests rejected before evaluation (HTTP 400).
var errInvalid = errors.New("invalid request")

// maxTextLen bounds the argument text accepted by the evaluation endpoints.
const maxTextLen = 64 * 1024

type evaluateReq struct {
	Catalog   string   `json:"catalog"`
	CaseID    any      `json:"case_id"`
	Side      string   `json:"side"`
	Text      string   `json:"text"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type evaluateResponse struct {
	Catalog   string `json:"catalog"`
	CaseTitle string `json:"case_title,omitempty"`
	evaluate.Result
}

type reportReq struct {
	evaluateReq
	Format string
}

type reportResponse struct {
	FileName    string
	ContentType string
	Body        []byte
}

type catalogsResponse struct {
	Catalogs []catalog.Info `json:"catalogs"`
}

type casesReq struct {
	Catalog string
}

type casesResponse struct {
	Catalog string         `json:"catalog"`
	Cases   []catalog.Case `json:"cases"`
}

type normalizeReq struct {
	Text string
}

type normalizeResponse struct {
	Text       string   `json:"text"`
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
}

func (r *evaluateReq) validate() error {
	if r.CaseID == nil || strings.TrimSpace(fmt.Sprint(r.CaseID)) == "" {
		return fmt.Errorf("%w: case_id is required", errInvalid)
	}
	if textnorm.Normalize(r.Side) == "" {
		return fmt.Errorf("%w: side is required", errInvalid)
	}
	if len(r.Text) > maxTextLen {
		return fmt.Errorf("%w: text longer than %d bytes", errInvalid, maxTextLen)
	}
	if t := r.Threshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("%w: threshold must be within [0, 1]", errInvalid)
	}
	return nil
}

func runEvaluation(reg *catalog.Registry, req *evaluateReq) (*evaluateResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	c, err := reg.Get(req.Catalog)
	if err != nil {
		return nil, err
	}
	var opts []evaluate.Option
	if req.Threshold != nil {
		opts = append(opts, evaluate.WithThreshold(*req.Threshold))
	}
	res := evaluate.Evaluate(req.CaseID, req.Side, req.Text, c.Entries, opts...)

	resp := &evaluateResponse{Catalog: c.Manifest.ID, Result: res}
	if cs, ok := c.Case(res.CaseID); ok {
		resp.CaseTitle = cs.Title
	}
	return resp, nil
}

func evaluateEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		return runEvaluation(reg, request.(*evaluateReq))
	}
}

// reportEndpoint renders an evaluation as a downloadable file. now stamps
// the report rows.
func reportEndpoint(reg *catalog.Registry, now func() time.Time) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*reportReq)
		resp, err := runEvaluation(reg, &req.evaluateReq)
		if err != nil {
			return nil, err
		}
		meta := report.Meta{
			CaseID:    resp.CaseID,
			CaseTitle: resp.CaseTitle,
			Side:      resp.Side,
			Generated: now().UTC(),
		}

		out := &reportResponse{}
		switch strings.ToLower(req.Format) {
		case "", "csv":
			var buf bytes.Buffer
			if err := report.WriteCSV(&buf, report.Rows(resp.Result, meta)); err != nil {
				return nil, err
			}
			out.Body, out.ContentType = buf.Bytes(), "text/csv; charset=utf-8"
			out.FileName = report.FileName(meta.CaseID, meta.Side, "csv")
		case "md", "markdown":
			out.Body, out.ContentType = []byte(report.Markdown(resp.Result, meta)), "text/markdown; charset=utf-8"
			out.FileName = report.FileName(meta.CaseID, meta.Side, "md")
		case "html":
			html, err := report.HTML(resp.Result, meta)
			if err != nil {
				return nil, err
			}
			out.Body, out.ContentType = []byte(html), "text/html; charset=utf-8"
			out.FileName = report.FileName(meta.CaseID, meta.Side, "html")
		default:
			return nil, fmt.Errorf("%w: unknown report format %q (want csv, md or html)", errInvalid, req.Format)
		}
		return out, nil
	}
}

func listCatalogsEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return catalogsResponse{Catalogs: reg.List()}, nil
	}
}

func listCasesEndpoint(reg *catalog.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*casesReq)
		c, err := reg.Get(req.Catalog)
		if err != nil {
			return nil, err
		}
		return casesResponse{Catalog: c.Manifest.ID, Cases: c.Cases()}, nil
	}
}

func normalizeEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		tokens := textnorm.Tokenize(req.Text)
		if tokens == nil {
			tokens = []string{}
		}
		return normalizeResponse{
			Text:       req.Text,
			Normalized: textnorm.Normalize(req.Text),
			Tokens:     tokens,
		}, nil
	}
}

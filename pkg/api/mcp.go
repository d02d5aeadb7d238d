package api

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
	"github.com/hazyhaar/lexcheck/pkg/kit"
)

// RegisterMCPTools registers the lexcheck MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *catalog.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))(ep)
	}

	kit.RegisterMCPTool(srv, mcp.NewTool("evaluate_argument",
		mcp.WithDescription("Evaluate a written legal argument for one side of a cataloged case: principles identified, principles missed, and what the opposing side may argue."),
		mcp.WithString("case_id", mcp.Required(), mcp.Description("Case identifier, as listed by list_cases")),
		mcp.WithString("side", mcp.Required(), mcp.Description("Side argued (e.g. defesa, acusacao); case and accents are ignored")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The argument text")),
		mcp.WithString("catalog", mcp.Description("Catalog id; may be omitted when a single catalog is loaded")),
		mcp.WithNumber("threshold", mcp.Description("Fuzzy similarity cutoff in [0, 1], default 0.8")),
	), wrap("evaluate", evaluateEndpoint(reg)), decodeEvaluate)

	kit.RegisterMCPTool(srv, mcp.NewTool("list_cases",
		mcp.WithDescription("List the cases of a catalog with their title, description and sides."),
		mcp.WithString("catalog", mcp.Description("Catalog id; may be omitted when a single catalog is loaded")),
	), wrap("list_cases", listCasesEndpoint(reg)), decodeListCases)

	kit.RegisterMCPTool(srv, mcp.NewTool("list_catalogs",
		mcp.WithDescription("List loaded argument catalogs with metadata (language, source, case and entry counts)."),
	), wrap("list_catalogs", listCatalogsEndpoint(reg)), func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("normalize_text",
		mcp.WithDescription("Show how a text is normalized before matching: lowercase, accents removed, punctuation collapsed."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to normalize")),
	), wrap("normalize", normalizeEndpoint()), decodeNormalize)
}

func decodeEvaluate(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	args := req.GetArguments()
	r := &evaluateReq{
		Catalog: cast.ToString(args["catalog"]),
		Side:    cast.ToString(args["side"]),
		Text:    cast.ToString(args["text"]),
	}
	// Clients often send numeric case ids.
	if v, ok := args["case_id"]; ok && v != nil {
		r.CaseID = cast.ToString(v)
	}
	if v, ok := args["threshold"]; ok && v != nil {
		t, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("threshold: %w", err)
		}
		r.Threshold = &t
	}
	return &kit.MCPDecodeResult{Request: r}, nil
}

func decodeListCases(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{Request: &casesReq{Catalog: cast.ToString(req.GetArguments()["catalog"])}}, nil
}

func decodeNormalize(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{Request: &normalizeReq{Text: cast.ToString(req.GetArguments()["text"])}}, nil
}

// CLAUDE:SUMMARY MCP tools bookpress_export, bookpress_formats and bookpress_recent registered through kit.RegisterMCPTool.
package bookexport

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/bookpress/kit"
)

// RegisterMCP registers the export tools on an MCP server.
func (e *Exporter) RegisterMCP(srv *mcp.Server) {
	e.registerExportTool(srv)
	e.registerFormatsTool(srv)
	e.registerRecentTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- export ---

type exportToolReq struct {
	Request
	// ReturnData forces the file into the response even when it was stored.
	ReturnData bool `json:"return_data"`
}

type exportToolResp struct {
	*Result
	Bytes      int    `json:"bytes"`
	DataBase64 string `json:"data_base64,omitempty"`
}

func (e *Exporter) registerExportTool(srv *mcp.Server) {
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	tool := &mcp.Tool{
		Name:        "bookpress_export",
		Description: "Export a book (cover, body text, illustrations) as pdf, epub or docx. Returns the artifact key when a store is configured, otherwise the file as base64.",
		InputSchema: inputSchema(map[string]any{
			"format": map[string]any{"type": "string", "enum": []string{"pdf", "epub", "docx"}},
			"cover": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":        str("Book title"),
					"subtitle":     str("Subtitle"),
					"author":       str("Author"),
					"image_base64": str("Inline cover image"),
					"image_url":    str("Remote cover image"),
					"show_image":   map[string]any{"type": "boolean"},
				},
				"required": []string{"title"},
			},
			"content":      str("Body text; '# ' and '## ' lines are headings"),
			"content_type": map[string]any{"type": "string", "enum": []string{"text", "html", "auto"}},
			"illustrations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url":          str("Remote image"),
						"image_base64": str("Inline image"),
						"caption":      str("Caption"),
					},
				},
			},
			"language":    str("BCP 47 language tag"),
			"return_data": map[string]any{"type": "boolean", "description": "Include the file as base64 even when stored"},
		}, []string{"format", "cover", "content"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*exportToolReq)
		format, ok := ParseFormat(r.Format)
		if !ok {
			return nil, &ExportError{Kind: ErrUnsupportedFormat, Format: Format(r.Format)}
		}
		doc, err := r.Document(e.cfg.Language)
		if err != nil {
			return nil, err
		}
		res, err := e.Export(ctx, doc, format)
		if err != nil {
			return nil, err
		}
		resp := exportToolResp{Result: res, Bytes: len(res.Data)}
		if res.ArtifactKey == "" || r.ReturnData {
			resp.DataBase64 = base64.StdEncoding.EncodeToString(res.Data)
		}
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r exportToolReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, kit.Logging(e.logger, tool.Name))
}

// --- formats ---

func (e *Exporter) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bookpress_formats",
		Description: "List the supported export formats.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": Formats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, kit.Logging(e.logger, tool.Name))
}

// --- recent ---

type recentReq struct {
	Limit int `json:"limit"`
}

func (e *Exporter) registerRecentTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bookpress_recent",
		Description: "List recent exports from the journal, newest first, with omitted images.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum entries (default 20)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*recentReq)
		if r.Limit <= 0 {
			r.Limit = 20
		}
		entries, err := e.Recent(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"exports": entries}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r recentReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, kit.Logging(e.logger, tool.Name))
}

package bookexport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/bookpress/bookexport/internal/epub"
)

var testMCPImpl = &mcp.Implementation{Name: "bookpress-test", Version: "0.1.0"}

func mcpSession(t *testing.T, ex *Exporter) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	ex.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func mcpText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool error: %s", toolError(result))
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return tc.Text
}

// toolError returns the error text of a failed call, "" on success.
func toolError(result *mcp.CallToolResult) string {
	if !result.IsError || len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return "error"
}

func TestMCP_Formats(t *testing.T) {
	ex, _ := newTestExporter(t, Config{})
	text := mcpText(t, mcpCall(t, mcpSession(t, ex), "bookpress_formats", map[string]any{}))

	var resp struct {
		Formats []string `json:"formats"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if strings.Join(resp.Formats, ",") != "pdf,epub,docx" {
		t.Fatalf("formats = %v", resp.Formats)
	}
}

func TestMCP_Export(t *testing.T) {
	ex, _ := newTestExporter(t, Config{})
	text := mcpText(t, mcpCall(t, mcpSession(t, ex), "bookpress_export", map[string]any{
		"format":  "epub",
		"cover":   map[string]any{"title": "Small Tales", "author": "Bo"},
		"content": "# One\nOnce.\n# Two\nTwice.",
	}))

	var resp struct {
		ID         string `json:"id"`
		Filename   string `json:"filename"`
		Bytes      int    `json:"bytes"`
		DataBase64 string `json:"data_base64"`
		Stats      Stats  `json:"stats"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "small-tales.epub" || resp.Stats.Sections != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	data, err := base64.StdEncoding.DecodeString(resp.DataBase64)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != resp.Bytes || !strings.HasPrefix(string(data), "PK") {
		t.Fatalf("payload: %d bytes, header %q", len(data), data[:min(4, len(data))])
	}
	pkg, err := epub.Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Title != "Small Tales" || pkg.Creator != "Bo" {
		t.Fatalf("package = %+v", pkg)
	}
}

func TestMCP_ExportErrors(t *testing.T) {
	ex, _ := newTestExporter(t, Config{})
	session := mcpSession(t, ex)

	res := mcpCall(t, session, "bookpress_export", map[string]any{
		"format":  "docx",
		"cover":   map[string]any{"title": ""},
		"content": "x",
	})
	if msg := toolError(res); !strings.Contains(msg, "cover.title") {
		t.Fatalf("missing title: %q", msg)
	}

	res = mcpCall(t, session, "bookpress_export", map[string]any{
		"format":  "rtf",
		"cover":   map[string]any{"title": "T"},
		"content": "x",
	})
	if msg := toolError(res); !strings.Contains(msg, "unsupported format") {
		t.Fatalf("bad format: %q", msg)
	}
}

func TestMCP_RecentWithoutJournal(t *testing.T) {
	ex, _ := newTestExporter(t, Config{})
	res := mcpCall(t, mcpSession(t, ex), "bookpress_recent", map[string]any{"limit": 3})
	if !strings.Contains(toolError(res), "journal disabled") {
		t.Fatalf("recent without a journal: %+v", res)
	}
}

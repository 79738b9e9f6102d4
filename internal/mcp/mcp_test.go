package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/gistdl/internal/config"
	"github.com/hpungsan/gistdl/internal/db"
	"github.com/hpungsan/gistdl/internal/errors"
)

// testSetup creates a temporary database, a fake GitHub API and a config
// pointing at both.
func testSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/gists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprintf(w, `[
			{"id":"abc123","description":"","files":{"a.txt":{"filename":"a.txt","raw_url":"%[1]s/raw/a"}}},
			{"id":"def456","description":"Hello World","files":{"b.txt":{"filename":"b.txt","raw_url":"%[1]s/raw/missing"}}}
		]`, srv.URL)
	})
	mux.HandleFunc("/raw/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/raw/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "alpha")
	})
	srv = httptest.NewServer(mux)

	cfg := config.DefaultConfig()
	cfg.Username = "octocat"
	cfg.Token = "t0ken"
	cfg.APIURL = srv.URL
	cfg.OutputDir = filepath.Join(tmpDir, "gists")
	cfg.HTTPTimeoutSeconds = 5

	cleanup := func() {
		srv.Close()
		database.Close()
	}

	return database, cfg, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleList(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	result, err := h.HandleList(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleList returned error: %v", err)
	}
	output := parseOutput(t, result)

	if output["total"].(float64) != 2 {
		t.Errorf("total = %v, want 2", output["total"])
	}
	items := output["items"].([]any)
	if dir := items[1].(map[string]any)["dir"]; dir != "Hello_World" {
		t.Errorf("dir = %v, want Hello_World", dir)
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Error("gist_list must not create the output directory")
	}
}

func TestHandleList_InvalidArguments(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	t.Run("unknown argument", func(t *testing.T) {
		result, _ := h.HandleList(context.Background(), makeRequest(map[string]any{"colision_policy": "suffix"}))
		assertErrorCode(t, result, "INVALID_REQUEST")
	})

	t.Run("bad collision policy", func(t *testing.T) {
		result, _ := h.HandleList(context.Background(), makeRequest(map[string]any{"collision_policy": "rename"}))
		assertErrorCode(t, result, "INVALID_CONFIG")
	})
}

func TestHandleList_MissingCredentials(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	cfg.Token = ""
	h := NewHandlers(database, cfg, nil)

	result, _ := h.HandleList(context.Background(), makeRequest(nil))
	assertErrorCode(t, result, "INVALID_CONFIG")
}

func TestHandleDownload(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	result, err := h.HandleDownload(context.Background(), makeRequest(map[string]any{
		"max_concurrency": 2,
		"write_index":     true,
	}))
	if err != nil {
		t.Fatalf("HandleDownload returned error: %v", err)
	}
	output := parseOutput(t, result)

	if output["files_written"].(float64) != 1 {
		t.Errorf("files_written = %v, want 1", output["files_written"])
	}
	if output["files_failed"].(float64) != 1 {
		t.Errorf("files_failed = %v, want 1", output["files_failed"])
	}
	failures := output["failures"].([]any)
	if code := failures[0].(map[string]any)["error_code"]; code != "DOWNLOAD_FAILED" {
		t.Errorf("error_code = %v, want DOWNLOAD_FAILED", code)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "abc123", "a.txt"))
	if err != nil {
		t.Fatalf("expected abc123/a.txt: %v", err)
	}
	if string(data) != "alpha" {
		t.Errorf("content = %q, want alpha", data)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "index.html")); err != nil {
		t.Errorf("expected index.html: %v", err)
	}

	runID := output["run_id"].(string)

	t.Run("run_failures", func(t *testing.T) {
		result, _ := h.HandleFailures(context.Background(), makeRequest(map[string]any{"run_id": runID}))
		output := parseOutput(t, result)
		files := output["files"].([]any)
		if len(files) != 1 {
			t.Fatalf("failures = %d, want 1", len(files))
		}
		if name := files[0].(map[string]any)["name"]; name != "b.txt" {
			t.Errorf("name = %v, want b.txt", name)
		}
	})

	t.Run("run_list", func(t *testing.T) {
		result, _ := h.HandleRuns(context.Background(), makeRequest(map[string]any{"limit": 10}))
		output := parseOutput(t, result)
		pagination := output["pagination"].(map[string]any)
		if pagination["total"].(float64) != 1 {
			t.Errorf("total = %v, want 1", pagination["total"])
		}
	})
}

func TestHandleDownload_NoRecord(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	result, _ := h.HandleDownload(context.Background(), makeRequest(map[string]any{"record": false}))
	parseOutput(t, result)

	count, err := db.CountRuns(database)
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if count != 0 {
		t.Errorf("runs = %d, want 0", count)
	}
}

func TestHandleDownload_OutputIsFile(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	result, _ := h.HandleDownload(context.Background(), makeRequest(map[string]any{"output_dir": file}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleDownload_Cancelled(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _ := h.HandleDownload(ctx, makeRequest(nil))
	assertErrorCode(t, result, "CANCELLED")
}

func TestHandleFailures_NoRuns(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	result, _ := h.HandleFailures(context.Background(), makeRequest(nil))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestServerRegistration(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(database, cfg, "test", nil)
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{"gist_list", "gist_download", "run_list", "run_failures"}
	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"gist_download", "gist_download"}
	s := NewServer(database, cfg, "test", nil)
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	if _, ok := tools["gist_download"]; ok {
		t.Error("disabled tool gist_download should not be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, cfg, "test", nil)

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"gist_download", "run_list"}, wantLen: 0},
		{name: "one unknown", input: []string{"gist_download", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar"}, wantLen: 2},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 4 {
		t.Errorf("AllToolNames() returned %d names, want 4", len(names))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if strings.Contains(errObj["message"].(string), "secret.db") {
		t.Fatal("expected INTERNAL message to be redacted")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("gist abc123: %w", errors.NewNotFound("run"))

	errObj := errorObject(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "gist abc123") {
		t.Errorf("message should contain wrapper context, got: %s", msg)
	}
}

func TestErrorResult_NonGistError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewListingFailed(2, 502, nil)))
	if errObj["code"] != string(errors.ErrListingFailed) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrListingFailed)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatal("no error object in payload")
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if result == nil || !result.IsError {
		t.Fatalf("expected error result with code %s", expectedCode)
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/okatsu/duebook/internal/backup"
	"github.com/okatsu/duebook/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
	Now   func() time.Time // nil means time.Now
}

func (d MCPDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewMCPServer creates an MCP server exposing the assignment store and the
// backup engine to local assistants.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"duebook",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("duebook — personal assignment tracker with backup/restore over its key-value store."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_item",
			mcp.WithDescription("Read the raw stored value for a key."),
			mcp.WithString("key", mcp.Description("Store key"), mcp.Required()),
		),
		mcpGetItem(deps),
	)

	s.AddTool(
		mcp.NewTool("set_item",
			mcp.WithDescription("Write a raw string value under a key, replacing any existing value."),
			mcp.WithString("key", mcp.Description("Store key"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to store"), mcp.Required()),
		),
		mcpSetItem(deps),
	)

	s.AddTool(
		mcp.NewTool("list_keys",
			mcp.WithDescription("List every key currently in the store."),
		),
		mcpListKeys(deps),
	)

	s.AddTool(
		mcp.NewTool("export_backup",
			mcp.WithDescription("Serialize the whole store to a pretty-printed JSON backup document."),
		),
		mcpExportBackup(deps),
	)

	s.AddTool(
		mcp.NewTool("import_backup",
			mcp.WithDescription("Merge a JSON backup document into the store."),
			mcp.WithString("document", mcp.Description("Backup document (a JSON object)"), mcp.Required()),
			mcp.WithString("policy", mcp.Description("Merge policy: overwrite or add-only (default overwrite)")),
		),
		mcpImportBackup(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"store://export",
			"Store Export",
			mcp.WithResourceDescription("Current export document for the assignment store"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceExport(deps),
	)

	return s
}

func mcpGetItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}

		value, err := deps.Store.GetItem(key)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("key %q not found", key)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read %q: %v", key, err)), nil
		}

		return mcpText(value), nil
	}
}

func mcpSetItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if err := deps.Store.SetItem(key, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set %q: %v", key, err)), nil
		}

		return mcpText(fmt.Sprintf("Set %s", key)), nil
	}
}

func mcpListKeys(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keys, err := deps.Store.Keys()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list keys: %v", err)), nil
		}

		if len(keys) == 0 {
			return mcpText("(empty store)"), nil
		}

		out := ""
		for _, k := range keys {
			out += k + "\n"
		}
		return mcpText(out), nil
	}
}

func mcpExportBackup(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := backup.Export(deps.Store)
		if err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}

		keys, err := deps.Store.Keys()
		if err == nil {
			rec := storage.BackupRecord{
				ID:        uuid.New().String(),
				Kind:      "export",
				KeysTotal: len(keys),
				CreatedAt: deps.now().UTC(),
			}
			_ = deps.Store.SaveBackupRecord(rec)
		}

		return mcpText(string(data)), nil
	}
}

func mcpImportBackup(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		document, err := req.RequireString("document")
		if err != nil {
			return mcpError("document is required"), nil
		}

		policy := backup.PolicyOverwrite
		if s := req.GetString("policy", ""); s != "" {
			p, err := backup.ParsePolicy(s)
			if err != nil {
				return mcpError(err.Error()), nil
			}
			policy = p
		}

		res, err := backup.Import(deps.Store, []byte(document), policy)
		if err != nil {
			return mcpError(fmt.Sprintf("import failed: %v", err)), nil
		}

		rec := storage.BackupRecord{
			ID:        uuid.New().String(),
			Kind:      "import",
			Policy:    string(policy),
			KeysAdded: res.Added,
			KeysTotal: res.Total,
			CreatedAt: deps.now().UTC(),
		}
		_ = deps.Store.SaveBackupRecord(rec)

		if policy == backup.PolicyAddOnly {
			return mcpText(fmt.Sprintf("Imported backup: %d of %d keys added", res.Added, res.Total)), nil
		}
		return mcpText(fmt.Sprintf("Imported backup: %d keys written", res.Added)), nil
	}
}

func mcpResourceExport(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := backup.Export(deps.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to export store: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

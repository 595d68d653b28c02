package pagekeeper

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/offsite/kit"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// RegisterMCP registers the pagekeeper tools on an MCP server.
func (k *Keeper) RegisterMCP(srv *mcp.Server) {
	k.registerSaveTool(srv)
	k.registerLoadTool(srv)
	k.registerDiagnosticsTool(srv)
	k.registerFieldsTool(srv)
	k.registerEditTool(srv)
	k.registerAccentTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
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

var refSchema = map[string]any{
	"type":        "object",
	"description": "Field descriptor as returned by pagekeeper_fields",
	"properties": map[string]any{
		"tag":     map[string]any{"type": "string"},
		"classes": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"ordinal": map[string]any{"type": "integer"},
		"section": map[string]any{"type": "string", "enum": []any{"HEADER", "WELCOME", "AGENDA", "PARTICIPANTS", "INFO", "OTHER"}},
	},
	"required": []string{"tag", "ordinal", "section"},
}

func (k *Keeper) endpoint(op string, ep kit.Endpoint) kit.Endpoint {
	return kit.Logging(k.logger, op)(ep)
}

func (k *Keeper) registerSaveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagekeeper_save",
		Description: "Save the page now, rotating the backup and history keys.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, k.endpoint("save", func(ctx context.Context, _ any) (any, error) {
		return k.SaveNow(ctx)
	}), kit.NoArgs)
}

func (k *Keeper) registerLoadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagekeeper_load",
		Description: "Restore the page from the most recent readable snapshot (primary, backup, then history).",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, k.endpoint("load", func(ctx context.Context, _ any) (any, error) {
		return k.LoadAll(ctx)
	}), kit.NoArgs)
}

func (k *Keeper) registerDiagnosticsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagekeeper_diagnostics",
		Description: "Count editable fields, run a save and verify it reads back from storage.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, k.endpoint("diagnostics", func(ctx context.Context, _ any) (any, error) {
		return k.RunDiagnostics(ctx)
	}), kit.NoArgs)
}

func (k *Keeper) registerFieldsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagekeeper_fields",
		Description: "List the editable fields of the page with their descriptor and current text.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, k.endpoint("fields", func(ctx context.Context, _ any) (any, error) {
		fields, err := k.Fields(ctx)
		if fields == nil {
			fields = []Field{}
		}
		return fields, err
	}), kit.NoArgs)
}

type editRequest struct {
	Ref  snapshot.NodeRef `json:"ref"`
	Text string           `json:"text"`
	HTML string           `json:"html,omitempty"`
	Kind string           `json:"kind,omitempty"`
}

type editResponse struct {
	Field string  `json:"field"`
	Kind  Trigger `json:"kind"`
}

func (k *Keeper) registerEditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagekeeper_edit",
		Description: "Set the text of one field. kind selects the save trigger: input (debounced, default), focusout or enter (immediate).",
		InputSchema: inputSchema(map[string]any{
			"ref":  refSchema,
			"text": map[string]any{"type": "string", "description": "New text content"},
			"html": map[string]any{"type": "string", "description": "New inner HTML, wins over text"},
			"kind": map[string]any{"type": "string", "enum": []any{"input", "focusout", "enter"}},
		}, []string{"ref"}),
	}
	kit.RegisterMCPTool(srv, tool, k.endpoint("edit", func(ctx context.Context, req any) (any, error) {
		r := req.(*editRequest)
		kind := TriggerInput
		if r.Kind != "" {
			var ok bool
			if kind, ok = ParseTrigger(r.Kind); !ok || kind == TriggerUnload {
				return nil, errors.New("kind must be input, focusout or enter")
			}
		}
		ev := Event{Kind: kind, Edit: &Edit{Ref: r.Ref, Text: r.Text, HTML: r.HTML}}
		if err := k.Dispatch(ctx, ev); err != nil {
			return nil, err
		}
		return editResponse{Field: r.Ref.String(), Kind: kind}, nil
	}), kit.DecodeJSON[editRequest]())
}

func (k *Keeper) registerAccentTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagekeeper_set_accent",
		Description: "Paint the left-border accent of the agenda entry hosting a field and save.",
		InputSchema: inputSchema(map[string]any{
			"ref":   refSchema,
			"color": map[string]any{"type": "string", "description": "CSS color, e.g. #FF9900"},
		}, []string{"ref", "color"}),
	}
	kit.RegisterMCPTool(srv, tool, k.endpoint("set_accent", func(ctx context.Context, req any) (any, error) {
		r := req.(*accentRequest)
		if r.Color == "" {
			return nil, errors.New("color is required")
		}
		return k.SetAccent(ctx, r.Ref, r.Color)
	}), kit.DecodeJSON[accentRequest]())
}

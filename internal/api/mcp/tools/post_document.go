package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hirosato/ledger-engine/backend/internal/domain/document"
	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/mcp"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/domain/tenant"
)

type PostDocumentTool struct {
	adapters posting.Registry
}

func NewPostDocumentTool(adapters posting.Registry) *PostDocumentTool {
	return &PostDocumentTool{adapters: adapters}
}

type postDocumentArgs struct {
	Source     string `json:"source"`
	DocumentID string `json:"documentId"`
}

func (t *PostDocumentTool) GetName() string {
	return "post-document"
}

func (t *PostDocumentTool) GetDescription() string {
	return "Records the ledger transaction for an invoice, bill, payment, credit note or expense. Posting an already posted document returns the existing transaction."
}

func (t *PostDocumentTool) GetInputSchema() mcp.JSONSchema {
	kinds := make([]string, 0, len(document.Kinds))
	for _, k := range document.Kinds {
		kinds = append(kinds, string(k))
	}
	return mcp.JSONSchema{
		Type: "object",
		Properties: map[string]any{
			"source": map[string]any{
				"type":        "string",
				"description": "Document type",
				"enum":        kinds,
			},
			"documentId": stringProperty("ID of the document to post"),
		},
		Required: []string{"source", "documentId"},
	}
}

func (t *PostDocumentTool) Execute(ctx context.Context, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	var args postDocumentArgs
	if err := decodeArguments(arguments, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.DocumentID) == "" {
		return nil, errors.NewValidationError("documentId is required")
	}

	adapter, ok := t.adapters[document.Kind(args.Source)]
	if !ok {
		return nil, errors.NewValidationError("unknown document source " + args.Source)
	}

	current := tenant.Current(ctx)
	tx, err := adapter.PostFor(ctx, args.DocumentID, current.TenantID, current.UserID)
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(tx)
}

package tools

import (
	"encoding/json"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/mcp"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
)

// decodeArguments unmarshals tool arguments, treating an absent payload as {}
func decodeArguments(arguments json.RawMessage, out any) error {
	if len(arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(arguments, out); err != nil {
		return errors.NewInvalidInputError("invalid tool arguments", err)
	}
	return nil
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// LedgerTools builds every ledger tool over the given services
func LedgerTools(adapters posting.Registry, ledgerService *ledger.Service) []mcp.ToolHandler {
	return []mcp.ToolHandler{
		NewPostDocumentTool(adapters),
		NewReconcileTransactionTool(ledgerService),
		NewQueryTrailTool(ledgerService),
		NewGetTransactionTool(ledgerService),
		NewAccountBalanceTool(ledgerService),
	}
}

// Package mcpadapter exposes the pipeline's read models as MCP tools, so
// agent clients can inspect document state without going through HTTP.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/auditstack/docuquery/internal/core/ports"
)

type Deps struct {
	Status ports.StatusReader
	Poller ports.AnswerPoller
}

// NewServer creates an MCP server with the document inspection tools
// registered.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"docuquery",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("docuquery — classification status and extracted answers for uploaded audit documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("document_status",
			mcp.WithDescription("Return the processing status of a document: classified type, per-question state, and whether all questions are settled."),
			mcp.WithString("document_id", mcp.Description("Document identifier"), mcp.Required()),
		),
		toolDocumentStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("document_answers",
			mcp.WithDescription("Return the latest complete answers for a document, keyed by question identifier."),
			mcp.WithString("document_id", mcp.Description("Document identifier"), mcp.Required()),
		),
		toolDocumentAnswers(deps),
	)

	s.AddTool(
		mcp.NewTool("wait_for_answer",
			mcp.WithDescription("Block until a specific question has a complete answer, or the wait budget elapses."),
			mcp.WithString("document_id", mcp.Description("Document identifier"), mcp.Required()),
			mcp.WithString("identifier", mcp.Description("Question identifier"), mcp.Required()),
		),
		toolWaitForAnswer(deps),
	)

	return s
}

func toolDocumentStatus(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := req.RequireString("document_id")
		if err != nil {
			return toolError("document_id is required"), nil
		}

		view, err := deps.Status.Status(ctx, documentID)
		if err != nil {
			return toolError(fmt.Sprintf("status lookup failed: %v", err)), nil
		}
		return toolJSON(view)
	}
}

func toolDocumentAnswers(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := req.RequireString("document_id")
		if err != nil {
			return toolError("document_id is required"), nil
		}

		answers, err := deps.Status.Answers(ctx, documentID)
		if err != nil {
			return toolError(fmt.Sprintf("answers lookup failed: %v", err)), nil
		}
		return toolJSON(answers)
	}
}

func toolWaitForAnswer(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := req.RequireString("document_id")
		if err != nil {
			return toolError("document_id is required"), nil
		}
		identifier, err := req.RequireString("identifier")
		if err != nil {
			return toolError("identifier is required"), nil
		}

		answer, err := deps.Poller.Poll(ctx, documentID, identifier)
		if err != nil {
			return toolError(fmt.Sprintf("wait failed: %v", err)), nil
		}
		if answer == nil {
			return toolError("timed out waiting for answer"), nil
		}

		payload := map[string]any{"is_validated": answer.IsValidated}
		if answer.Result != nil {
			payload["result"] = *answer.Result
		}
		return toolJSON(payload)
	}
}

func toolJSON(payload any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return toolError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return toolText(string(b)), nil
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to retrieve passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages (default: the configured top-k)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Passages []Passage `json:"passages"`
	Count    int       `json:"count"`
}

// Passage is one retrieved chunk.
type Passage struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkID      string  `json:"chunk_id"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// AugmentInput is the input schema for the augment_prompt tool.
type AugmentInput struct {
	Prompt string `json:"prompt" jsonschema:"the prompt to add retrieved context to"`
}

// AugmentOutput is the output schema for the augment_prompt tool.
type AugmentOutput struct {
	Prompt   string    `json:"prompt"`
	Passages []Passage `json:"passages"`
}

// RunToolsInput is the input schema for the run_tools tool.
type RunToolsInput struct {
	Message string `json:"message" jsonschema:"text containing {{tool(param=\"value\")}} calls"`
}

// RunToolsOutput is the output schema for the run_tools tool.
type RunToolsOutput struct {
	Message string       `json:"message"`
	Calls   []CallResult `json:"calls"`
}

// CallResult reports one executed tool call.
type CallResult struct {
	Tool   string `json:"tool"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ListDocumentsInput is the (empty) input schema for list_documents.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for list_documents.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo summarises a stored document.
type DocumentInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MIMEType  string `json:"mime_type"`
	WordCount int    `json:"word_count"`
	DateAdded string `json:"date_added"`
}

// registerTools registers the tools whose ports are present.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the passages of the user's documents most relevant to a query",
	}, s.handleRetrieve)

	if s.ports.Prompt != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "augment_prompt",
			Description: "Return a prompt with the relevant document passages spliced in as context",
		}, s.handleAugment)
	}

	if s.ports.Agent != nil {
		var names []string
		for _, t := range s.ports.Agent.Tools() {
			names = append(names, t.Name)
		}
		mcp.AddTool(s.server, &mcp.Tool{
			Name: "run_tools",
			Description: "Execute inline {{tool(param=\"value\")}} calls in a message and return it with " +
				"each result appended. Available tools: " + strings.Join(names, ", "),
		}, s.handleRunTools)
	}

	if s.ports.Documents != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the documents available for retrieval",
		}, s.handleListDocuments)
	}
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	results, err := s.ports.Search.Search(ctx, input.Query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	if input.Limit > 0 && input.Limit < len(results) {
		results = results[:input.Limit]
	}

	passages := toPassages(results)
	return nil, RetrieveOutput{Passages: passages, Count: len(passages)}, nil
}

func (s *Server) handleAugment(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AugmentInput,
) (*mcp.CallToolResult, AugmentOutput, error) {
	augmented, err := s.ports.Prompt.AugmentPromptWithRAG(ctx, input.Prompt)
	if err != nil {
		return nil, AugmentOutput{}, err
	}
	return nil, AugmentOutput{Prompt: augmented.Prompt, Passages: toPassages(augmented.Context)}, nil
}

func (s *Server) handleRunTools(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunToolsInput,
) (*mcp.CallToolResult, RunToolsOutput, error) {
	message, results := s.ports.Agent.Process(ctx, input.Message)

	calls := make([]CallResult, len(results))
	for i, r := range results {
		calls[i] = CallResult{Tool: r.Call.Name, Output: r.Output}
		if r.Err != nil {
			calls[i].Error = r.Err.Error()
		}
	}
	return nil, RunToolsOutput{Message: message, Calls: calls}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs := s.ports.Documents.ListDocuments(ctx)

	infos := make([]DocumentInfo, len(docs))
	for i := range docs {
		infos[i] = DocumentInfo{
			ID:        docs[i].ID,
			Name:      docs[i].Name,
			MIMEType:  docs[i].MIMEType,
			WordCount: docs[i].Metadata.WordCount,
			DateAdded: docs[i].DateAdded.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return nil, ListDocumentsOutput{Documents: infos, Count: len(infos)}, nil
}

func toPassages(results []domain.ScoredChunk) []Passage {
	passages := make([]Passage, len(results))
	for i, r := range results {
		passages[i] = Passage{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			ChunkID:      r.ID,
			Score:        r.Score,
			Content:      r.Content,
		}
	}
	return passages
}

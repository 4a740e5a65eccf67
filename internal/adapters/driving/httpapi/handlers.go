package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Passage is one retrieved chunk.
type Passage struct {
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	ChunkID      string  `json:"chunkId"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

func toPassages(chunks []domain.ScoredChunk) []Passage {
	out := make([]Passage, len(chunks))
	for i, c := range chunks {
		out[i] = Passage{
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkID:      c.ID,
			Score:        c.Score,
			Content:      c.Content,
		}
	}
	return out
}

// ChunkSummary describes a chunk without its embedding.
type ChunkSummary struct {
	ID         string `json:"id"`
	StartIndex int    `json:"startIndex"`
	EndIndex   int    `json:"endIndex"`
	Content    string `json:"content"`
	Embedded   bool   `json:"embedded"`
}

// DocumentResponse is a document with its chunks.
type DocumentResponse struct {
	domain.Document
	Chunks []ChunkSummary `json:"chunks"`
}

// CallResult reports one executed tool call.
type CallResult struct {
	Tool   string            `json:"tool"`
	Params map[string]string `json:"params,omitempty"`
	Output string            `json:"output,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func toCallResults(results []domain.ToolResult) []CallResult {
	out := make([]CallResult, len(results))
	for i, r := range results {
		out[i] = CallResult{Tool: r.Call.Name, Params: r.Call.Params, Output: r.Output}
		if r.Failed() {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.ports.Documents.ListDocuments(r.Context())
	for i := range docs {
		docs[i].Content = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	mimeType := extractors.DetectMIMEType(header.Filename, content)
	if s.ports.Types != nil && !s.ports.Types.Supports(mimeType) {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported file type %q, accepted: %s",
			mimeType, strings.Join(s.ports.Types.SupportedMIMETypes(), ", ")))
		return
	}
	doc, err := s.ports.Documents.AddDocument(r.Context(), &domain.RawFile{
		Name:     header.Filename,
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logger.Info("Uploaded %s (%s, %d bytes)", doc.Name, doc.MIMEType, doc.ByteSize)
	writeJSON(w, http.StatusCreated, s.documentResponse(r, doc))
}

func (s *Server) listFileTypes(w http.ResponseWriter, _ *http.Request) {
	if s.ports.Types == nil {
		writeError(w, http.StatusNotImplemented, "file types not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": s.ports.Types.SupportedMIMETypes()})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ports.Documents.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.documentResponse(r, doc))
}

func (s *Server) documentResponse(r *http.Request, doc *domain.Document) DocumentResponse {
	resp := DocumentResponse{Document: *doc, Chunks: []ChunkSummary{}}
	for _, c := range s.ports.Documents.Chunks(r.Context()) {
		if c.DocumentID != doc.ID {
			continue
		}
		resp.Chunks = append(resp.Chunks, ChunkSummary{
			ID:         c.ID,
			StartIndex: c.StartIndex,
			EndIndex:   c.EndIndex,
			Content:    c.Content,
			Embedded:   c.HasEmbedding(),
		})
	}
	return resp
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := s.ports.Documents.DeleteDocument(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (s *Server) reprocessDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Documents.ReprocessAll(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ports.Documents.Stats(r.Context()))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"store":    s.ports.Documents.Stats(r.Context()),
		"settings": s.ports.Documents.Settings(),
	})
}

// RetrieveRequest is the body of POST /api/v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	results, err := s.ports.Search.Search(r.Context(), req.Query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"passages": toPassages(results), "count": len(results)})
}

// PromptRequest is the body of POST /api/v1/augment.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) augment(w http.ResponseWriter, r *http.Request) {
	if s.ports.Prompt == nil {
		writeError(w, http.StatusNotImplemented, "prompt augmentation not configured")
		return
	}
	var req PromptRequest
	if !decode(w, r, &req) {
		return
	}

	aug, err := s.ports.Prompt.AugmentPromptWithRAG(r.Context(), req.Prompt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompt": aug.Prompt, "passages": toPassages(aug.Context)})
}

func (s *Server) listTools(w http.ResponseWriter, _ *http.Request) {
	if s.ports.Agent == nil {
		writeError(w, http.StatusNotImplemented, "tools not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.ports.Agent.Tools()})
}

// MessageRequest is the body of POST /api/v1/tools/run and /api/v1/chat.
type MessageRequest struct {
	Message string `json:"message"`
	// Stream asks for server-sent events instead of a single JSON reply.
	Stream bool `json:"stream,omitempty"`
}

func (s *Server) runTools(w http.ResponseWriter, r *http.Request) {
	if s.ports.Agent == nil {
		writeError(w, http.StatusNotImplemented, "tools not configured")
		return
	}
	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}

	msg, results := s.ports.Agent.Process(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "calls": toCallResults(results)})
}

// ChatResponse is the final reply of a chat turn.
type ChatResponse struct {
	Sent     string       `json:"sent"`
	Reply    string       `json:"reply"`
	Passages []Passage    `json:"passages"`
	Calls    []CallResult `json:"calls"`
}

func toChatResponse(reply *domain.ChatReply) ChatResponse {
	return ChatResponse{
		Sent:     reply.Sent,
		Reply:    reply.Reply,
		Passages: toPassages(reply.Context),
		Calls:    toCallResults(reply.Tools),
	}
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	if s.ports.Chat == nil {
		writeError(w, http.StatusNotImplemented, "chat not configured")
		return
	}
	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	if req.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.chatStream(w, r, req.Message)
		return
	}

	reply, err := s.ports.Chat.Send(r.Context(), req.Message, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(reply))
}

func (s *Server) chatStream(w http.ResponseWriter, r *http.Request, message string) {
	sse, err := newEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := s.ports.Chat.Send(r.Context(), message, func(delta string) error {
		return sse.send("delta", map[string]string{"text": delta})
	})
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		if sendErr := sse.send("error", errorResponse{Error: err.Error()}); sendErr != nil {
			logger.Debug("Client gone before error event: %v", sendErr)
		}
		return
	}
	if err := sse.send("done", toChatResponse(reply)); err != nil {
		logger.Debug("Client gone before done event: %v", err)
	}
}

func (s *Server) chatHistory(w http.ResponseWriter, _ *http.Request) {
	if s.ports.Chat == nil {
		writeError(w, http.StatusNotImplemented, "chat not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.ports.Chat.History()})
}

func (s *Server) chatReset(w http.ResponseWriter, _ *http.Request) {
	if s.ports.Chat == nil {
		writeError(w, http.StatusNotImplemented, "chat not configured")
		return
	}
	s.ports.Chat.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

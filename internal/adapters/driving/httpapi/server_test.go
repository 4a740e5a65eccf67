package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/services"
	"github.com/custodia-labs/sercha-chat/internal/extractors"
	"github.com/custodia-labs/sercha-chat/internal/extractors/plaintext"
	"github.com/custodia-labs/sercha-chat/internal/tools"
)

type stubInference struct {
	reply string
	err   error
}

func (s *stubInference) StreamChat(
	_ context.Context, _ []domain.ChatMessage, _ driven.ChatOptions, onDelta func(string) error,
) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for _, w := range strings.SplitAfter(s.reply, " ") {
		if onDelta != nil {
			if err := onDelta(w); err != nil {
				return "", err
			}
		}
	}
	return s.reply, nil
}

func (s *stubInference) ModelName() string          { return "stub" }
func (s *stubInference) Ping(context.Context) error { return s.err }
func (s *stubInference) Close() error               { return nil }

type testAPI struct {
	server    *httptest.Server
	docs      *services.DocumentStore
	inference *stubInference
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	registry := extractors.NewRegistry(plaintext.New())
	docs := services.NewDocumentStore(memory.NewKVStore(), registry, nil)
	keyword := domain.DefaultRetrievalSettings()
	keyword.RetrievalStrategy = domain.RetrievalKeyword
	keyword.SimilarityThreshold = 0
	keyword.MinChunkLength = 0
	require.NoError(t, docs.UpdateSettings(context.Background(), keyword))

	search := services.NewSearchService(docs, services.NewRetrievalEngine(nil))
	prompt := services.NewPromptAugmenter(search)
	agent := services.NewAgentDispatcher(tools.Defaults(search)...)
	inference := &stubInference{reply: "The harbour opens at dawn."}
	chat := services.NewChatService(inference, agent, prompt, domain.DefaultInferenceSettings())

	srv, err := NewServer(&Ports{Documents: docs, Search: search, Prompt: prompt, Agent: agent, Chat: chat, Types: registry})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{server: ts, docs: docs, inference: inference}
}

func (a *testAPI) url(path string) string {
	return a.server.URL + path
}

func (a *testAPI) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.url(path), "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(a.url(path))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) upload(t *testing.T, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(a.url("/api/v1/documents"), mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const harbourNotes = `The harbour opens at dawn when the tide is high.

Fishing boats unload their catch on the north quay before the market starts.`

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{})
	assert.ErrorIs(t, err, ErrMissingDocumentService)

	_, err = NewServer(&Ports{Documents: services.NewDocumentStore(memory.NewKVStore(), nil, nil)})
	assert.ErrorIs(t, err, ErrMissingSearchService)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDocuments_Lifecycle(t *testing.T) {
	api := newTestAPI(t)

	resp := api.upload(t, "harbour.txt", harbourNotes)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[DocumentResponse](t, resp)
	assert.Equal(t, "harbour.txt", created.Name)
	assert.Equal(t, domain.MIMETypePlainText, created.MIMEType)
	assert.NotEmpty(t, created.Chunks)

	list := decodeBody[struct {
		Documents []domain.Document `json:"documents"`
		Count     int               `json:"count"`
	}](t, api.get(t, "/api/v1/documents"))
	require.Equal(t, 1, list.Count)
	assert.Empty(t, list.Documents[0].Content, "list omits content")

	got := api.get(t, "/api/v1/documents/"+created.ID)
	require.Equal(t, http.StatusOK, got.StatusCode)
	assert.Contains(t, decodeBody[DocumentResponse](t, got).Content, "north quay")

	req, err := http.NewRequest(http.MethodDelete, api.url("/api/v1/documents/"+created.ID), nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)

	assert.Equal(t, http.StatusNotFound, api.get(t, "/api/v1/documents/"+created.ID).StatusCode)
	assert.Equal(t, 0, api.docs.Stats(context.Background()).Documents)
}

func TestDocuments_DeleteUnknown(t *testing.T) {
	api := newTestAPI(t)

	req, err := http.NewRequest(http.MethodDelete, api.url("/api/v1/documents/missing"), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocuments_UploadErrors(t *testing.T) {
	api := newTestAPI(t)

	t.Run("unsupported type", func(t *testing.T) {
		resp := api.upload(t, "photo.png", "\x89PNG\r\n\x1a\n")
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
		msg := decodeBody[errorResponse](t, resp).Error
		assert.Contains(t, msg, "unsupported file type")
		assert.Contains(t, msg, "text/plain")
		assert.Empty(t, api.docs.ListDocuments(context.Background()))
	})

	t.Run("no file field", func(t *testing.T) {
		resp, err := http.Post(api.url("/api/v1/documents"), "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDocuments_FileTypes(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get(t, "/api/v1/documents/types")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Types []string `json:"types"`
	}](t, resp)
	assert.Contains(t, body.Types, "text/plain")
	assert.NotContains(t, body.Types, "image/png")
}

func TestDocuments_UploadWithoutTypeCheck(t *testing.T) {
	docs := services.NewDocumentStore(memory.NewKVStore(), extractors.NewRegistry(plaintext.New()), nil)
	srv, err := NewServer(&Ports{Documents: docs, Search: services.NewSearchService(docs, services.NewRetrievalEngine(nil))})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/types", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestReprocessAndStats(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t, "harbour.txt", harbourNotes)

	resp := api.postJSON(t, "/api/v1/documents/reprocess", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeBody[domain.StoreStats](t, resp).Documents)

	stats := decodeBody[struct {
		Store    domain.StoreStats         `json:"store"`
		Settings domain.RetrievalSettings `json:"settings"`
	}](t, api.get(t, "/api/v1/stats"))
	assert.Equal(t, 1, stats.Store.Documents)
	assert.Equal(t, domain.RetrievalKeyword, stats.Settings.RetrievalStrategy)
}

func TestRetrieve(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t, "harbour.txt", harbourNotes)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCount  int
	}{
		{"match", RetrieveRequest{Query: "fishing boats"}, http.StatusOK, 1},
		{"no match", RetrieveRequest{Query: "zeppelin"}, http.StatusOK, 0},
		{"empty query", RetrieveRequest{Query: "  "}, http.StatusBadRequest, 0},
		{"bad body", "not an object", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.postJSON(t, "/api/v1/retrieve", tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			out := decodeBody[struct {
				Passages []Passage `json:"passages"`
				Count    int       `json:"count"`
			}](t, resp)
			assert.Equal(t, tt.wantCount, out.Count)
			if tt.wantCount > 0 {
				assert.Equal(t, "harbour.txt", out.Passages[0].DocumentName)
			}
		})
	}
}

func TestAugment(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t, "harbour.txt", harbourNotes)

	resp := api.postJSON(t, "/api/v1/augment", PromptRequest{Prompt: "When does the harbour open?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[struct {
		Prompt   string    `json:"prompt"`
		Passages []Passage `json:"passages"`
	}](t, resp)
	assert.Contains(t, out.Prompt, "[1] harbour.txt")
	assert.Contains(t, out.Prompt, "Question: When does the harbour open?")
	assert.NotEmpty(t, out.Passages)
}

func TestTools(t *testing.T) {
	api := newTestAPI(t)

	list := decodeBody[struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}](t, api.get(t, "/api/v1/tools"))
	assert.Len(t, list.Tools, 3)

	resp := api.postJSON(t, "/api/v1/tools/run", MessageRequest{Message: `Total: {{calculate(expression="6*7")}}`})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[struct {
		Message string       `json:"message"`
		Calls   []CallResult `json:"calls"`
	}](t, resp)
	require.Len(t, out.Calls, 1)
	assert.Equal(t, "calculate", out.Calls[0].Tool)
	assert.Equal(t, "42", out.Calls[0].Output)
	assert.Contains(t, out.Message, "[calculate result]\n42\n[end calculate result]")
}

func TestChat_JSON(t *testing.T) {
	api := newTestAPI(t)
	api.upload(t, "harbour.txt", harbourNotes)

	resp := api.postJSON(t, "/api/v1/chat", MessageRequest{Message: "When does the harbour open?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[ChatResponse](t, resp)
	assert.Equal(t, "The harbour opens at dawn.", out.Reply)
	assert.NotEmpty(t, out.Passages)

	history := decodeBody[struct {
		Messages []domain.ChatMessage `json:"messages"`
	}](t, api.get(t, "/api/v1/chat/history"))
	assert.Equal(t, domain.RoleAssistant, history.Messages[len(history.Messages)-1].Role)

	require.Equal(t, http.StatusOK, api.postJSON(t, "/api/v1/chat/reset", nil).StatusCode)
	history = decodeBody[struct {
		Messages []domain.ChatMessage `json:"messages"`
	}](t, api.get(t, "/api/v1/chat/history"))
	for _, m := range history.Messages {
		assert.NotEqual(t, domain.RoleUser, m.Role)
	}
}

func TestChat_Errors(t *testing.T) {
	api := newTestAPI(t)

	resp := api.postJSON(t, "/api/v1/chat", MessageRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	api.inference.err = fmt.Errorf("%w: connection refused", domain.ErrInferenceUnavailable)
	resp = api.postJSON(t, "/api/v1/chat", MessageRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// readEvents parses an SSE body into (event, data) pairs.
func readEvents(t *testing.T, resp *http.Response) [][2]string {
	t.Helper()
	var events [][2]string
	var event string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			events = append(events, [2]string{event, strings.TrimPrefix(line, "data: ")})
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestChat_Stream(t *testing.T) {
	api := newTestAPI(t)

	resp := api.postJSON(t, "/api/v1/chat", MessageRequest{Message: "hello", Stream: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.NotEmpty(t, events)

	var text strings.Builder
	for _, e := range events[:len(events)-1] {
		require.Equal(t, "delta", e[0])
		var d map[string]string
		require.NoError(t, json.Unmarshal([]byte(e[1]), &d))
		text.WriteString(d["text"])
	}
	assert.Equal(t, "The harbour opens at dawn.", text.String())

	last := events[len(events)-1]
	assert.Equal(t, "done", last[0])
	var done ChatResponse
	require.NoError(t, json.Unmarshal([]byte(last[1]), &done))
	assert.Equal(t, "The harbour opens at dawn.", done.Reply)
}

func TestChat_StreamError(t *testing.T) {
	api := newTestAPI(t)
	api.inference.err = errors.New("model crashed")

	resp := api.postJSON(t, "/api/v1/chat", MessageRequest{Message: "hello", Stream: true})
	events := readEvents(t, resp)

	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0][0])
	assert.Contains(t, events[0][1], "model crashed")
}

func TestOptionalPortsAnswerNotImplemented(t *testing.T) {
	docs := services.NewDocumentStore(memory.NewKVStore(), extractors.NewRegistry(plaintext.New()), nil)
	srv, err := NewServer(&Ports{Documents: docs, Search: services.NewSearchService(docs, services.NewRetrievalEngine(nil))})
	require.NoError(t, err)

	for _, path := range []string{"/api/v1/augment", "/api/v1/tools/run", "/api/v1/chat", "/api/v1/chat/reset"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"message":"x","prompt":"x"}`)))
			assert.Equal(t, http.StatusNotImplemented, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	docs := services.NewDocumentStore(memory.NewKVStore(), nil, nil)
	srv, err := NewServer(&Ports{Documents: docs, Search: services.NewSearchService(docs, services.NewRetrievalEngine(nil))},
		WithAllowedOrigins("http://localhost:5173"))
	require.NoError(t, err)

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{&domain.UnsupportedFileTypeError{MIMEType: "image/png"}, http.StatusUnsupportedMediaType},
		{&domain.ExtractionError{FileName: "a.pdf", Err: errors.New("bad xref")}, http.StatusUnprocessableEntity},
		{domain.ErrInferenceUnavailable, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

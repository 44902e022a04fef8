package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/docmind/internal/annotate"
	"github.com/akolanti/docmind/internal/annotate/diagram"
	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/auth"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/data/database"
	"github.com/akolanti/docmind/internal/data/objectStore"
	"github.com/akolanti/docmind/internal/data/store"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/extract"
	"github.com/akolanti/docmind/internal/handlers"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/middleware"
	"github.com/akolanti/docmind/internal/pipeline"
	"github.com/akolanti/docmind/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatedAnnotator struct {
	summaryGate chan struct{}
}

func (g *gatedAnnotator) Restructure(ctx context.Context, text string, o annotate.RestructureOptions) (string, error) {
	return "# Notes\n\n" + text, nil
}

func (g *gatedAnnotator) Summarize(ctx context.Context, text string, o annotate.SummaryOptions) (string, error) {
	select {
	case <-g.summaryGate:
		return "Summary.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedAnnotator) ExtractConcepts(ctx context.Context, text string, o annotate.ConceptOptions) ([]documentModel.Concept, error) {
	return []documentModel.Concept{{Term: "word", Category: "term", Importance: 2}}, nil
}

func (g *gatedAnnotator) GenerateExercises(ctx context.Context, text string, o annotate.ExerciseOptions) ([]documentModel.Exercise, error) {
	return []documentModel.Exercise{{Type: documentModel.ShortAnswer, Question: "Which word?", CorrectAnswer: "word1"}}, nil
}

func (g *gatedAnnotator) GenerateMindMap(ctx context.Context, text string, o annotate.MindMapOptions) (annotate.MindMap, error) {
	src := "mindmap\n  root\n    a"
	return annotate.MindMap{Title: "Words", DiagramSource: src, Validation: diagram.Validate(src)}, nil
}

type testServer struct {
	srv    *httptest.Server
	tokens *auth.JWTManager
	ann    *gatedAnnotator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(fmt.Sprintf("sqlite:file:server_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{MaxUploadBytes: 1 << 20, MinWorkers: 1, MaxWorkers: 2, QueueSize: 8}
	jobs := job.NewService(cfg, store.InitInMemoryJobStore())
	ann := &gatedAnnotator{summaryGate: make(chan struct{})}
	orch := pipeline.New(pipeline.Deps{
		Documents:      store.NewGormDocumentStore(db),
		Artifacts:      store.NewGormArtifactStore(db),
		Blobs:          objectStore.NewMemoryStore(),
		Extractor:      extract.NewService(http.DefaultClient),
		Annotator:      ann,
		Jobs:           jobs,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	pool := worker.NewPool(jobs, orch, worker.PoolConfig{MinWorkers: 1, MaxWorkers: 2, IdleTimeout: time.Minute})
	pool.Start()

	tokens, err := auth.NewJWTManager("test-secret")
	require.NoError(t, err)

	h := handlers.NewHandler(orch, cfg.MaxUploadBytes, func(r *http.Request) error { return database.Ping(r.Context(), db) })
	srv := httptest.NewServer(Routes(h, middleware.New(cfg, tokens)))

	ts := &testServer{srv: srv, tokens: tokens, ann: ann}
	t.Cleanup(func() {
		srv.Close()
		select {
		case <-ann.summaryGate:
		default:
			close(ann.summaryGate)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
		database.Close(db)
	})
	return ts
}

func (ts *testServer) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := ts.tokens.Mint(user, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) upload(t *testing.T, token, fileName string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("document", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", "Word list"))
	require.NoError(t, mw.WriteField("tags", "study, words"))
	require.NoError(t, mw.Close())
	return ts.do(t, http.MethodPost, "/documents", token, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func wordText(n int) []byte {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return []byte(strings.Join(parts, " "))
}

func TestUploadPollAndAnnotate(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.token(t, "alice")

	resp := ts.upload(t, alice, "words.txt", wordText(500))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.DocumentResponse](t, resp)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, []string{"study", "words"}, created.Tags)
	assert.NotEmpty(t, created.JobId)

	var doc api.DocumentResponse
	require.Eventually(t, func() bool {
		r := ts.do(t, http.MethodGet, "/documents/"+created.Id, alice, nil, "")
		if r.StatusCode != http.StatusOK {
			return false
		}
		doc = decode[api.DocumentResponse](t, r)
		return doc.Status == "completed"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Nil(t, doc.ProcessingError)
	assert.InDelta(t, 500, doc.Metadata.WordCount, 25)

	text := ts.do(t, http.MethodGet, "/documents/"+created.Id+"/extractedText", alice, nil, "")
	assert.Equal(t, http.StatusOK, text.StatusCode)

	early := ts.do(t, http.MethodGet, "/documents/"+created.Id+"/ai/summary", alice, nil, "")
	assert.Equal(t, http.StatusNotFound, early.StatusCode)
	assert.Equal(t, "not_found", decode[api.ErrorResponse](t, early).Error.Kind)

	close(ts.ann.summaryGate)
	var summaries []api.SummaryResponse
	require.Eventually(t, func() bool {
		r := ts.do(t, http.MethodGet, "/documents/"+created.Id+"/ai/summary", alice, nil, "")
		if r.StatusCode != http.StatusOK {
			return false
		}
		summaries = decode[[]api.SummaryResponse](t, r)
		return true
	}, 5*time.Second, 20*time.Millisecond)
	require.Len(t, summaries, 1)
	assert.Equal(t, config.DefaultSummaryType, summaries[0].Type)

	jobResp := ts.do(t, http.MethodGet, "/jobs/"+created.JobId, alice, nil, "")
	require.Equal(t, http.StatusOK, jobResp.StatusCode)
	assert.Equal(t, created.Id, decode[api.JobResponse](t, jobResp).DocumentId)
}

func TestOwnerIsolation(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.token(t, "alice"), ts.token(t, "bob")

	resp := ts.upload(t, alice, "words.txt", wordText(20))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.DocumentResponse](t, resp)

	for _, path := range []string{
		"/documents/" + created.Id,
		"/documents/" + created.Id + "/download",
		"/documents/" + created.Id + "/ai/concepts",
		"/jobs/" + created.JobId,
	} {
		r := ts.do(t, http.MethodGet, path, bob, nil, "")
		assert.Equal(t, http.StatusNotFound, r.StatusCode, path)
	}

	list := decode[api.DocumentListResponse](t, ts.do(t, http.MethodGet, "/documents", bob, nil, ""))
	assert.Zero(t, list.Count)

	r := ts.do(t, http.MethodDelete, "/documents/"+created.Id, bob, nil, "")
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodGet, "/documents", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, r.StatusCode)
	body := decode[api.ErrorResponse](t, r)
	assert.Equal(t, "auth", body.Error.Kind)
	assert.Equal(t, http.StatusUnauthorized, body.Error.Code)

	expired, err := ts.tokens.Mint("alice", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	r = ts.do(t, http.MethodGet, "/documents", expired, nil, "")
	assert.Equal(t, http.StatusUnauthorized, r.StatusCode)

	health := ts.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, health.StatusCode)
	assert.Equal(t, "ok", decode[api.HealthResponse](t, health).Status)
}

func TestUploadValidation(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.token(t, "alice")

	r := ts.do(t, http.MethodPost, "/documents", alice, strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r = ts.upload(t, alice, "empty.txt", nil)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r = ts.upload(t, alice, "big.txt", bytes.Repeat([]byte("a "), 600_000))
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r = ts.do(t, http.MethodPost, "/documents:url", alice, strings.NewReader(`{"url":"ftp://example.com/x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
	assert.Equal(t, "validation", decode[api.ErrorResponse](t, r).Error.Kind)
}

func TestSoftDeleteHidesDocument(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.token(t, "alice")

	created := decode[api.DocumentResponse](t, ts.upload(t, alice, "words.txt", wordText(50)))
	r := ts.do(t, http.MethodDelete, "/documents/"+created.Id, alice, nil, "")
	require.Equal(t, http.StatusOK, r.StatusCode)

	r = ts.do(t, http.MethodGet, "/documents/"+created.Id, alice, nil, "")
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
	list := decode[api.DocumentListResponse](t, ts.do(t, http.MethodGet, "/documents", alice, nil, ""))
	assert.Zero(t, list.Count)
}

func TestGenerateBeforeExtractionIsRejected(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.token(t, "alice")

	// nothing listens on port 1, so extraction fails
	r := ts.do(t, http.MethodPost, "/documents:url", alice, strings.NewReader(`{"url":"http://127.0.0.1:1/page"}`), "application/json")
	require.Equal(t, http.StatusCreated, r.StatusCode)
	created := decode[api.DocumentResponse](t, r)

	require.Eventually(t, func() bool {
		r := ts.do(t, http.MethodGet, "/documents/"+created.Id, alice, nil, "")
		return decode[api.DocumentResponse](t, r).Status == "failed"
	}, 5*time.Second, 20*time.Millisecond)

	r = ts.do(t, http.MethodPost, "/documents/"+created.Id+"/ai/mindmap", alice, nil, "")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
	r = ts.do(t, http.MethodPost, "/documents/"+created.Id+"/ai/exercises", alice, strings.NewReader(`{"count":3}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

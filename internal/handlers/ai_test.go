package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lawdesk/internal/ai"
	"lawdesk/internal/cache"
	"lawdesk/internal/config"
	"lawdesk/internal/extract"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoGenerator records each user prompt and echoes it back.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (g *echoGenerator) GenerateText(_ context.Context, _, user string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, user)
	g.mu.Unlock()
	return "summary of: " + user, nil
}

func newAIHandler(t *testing.T, privacy bool) (*Handler, *echoGenerator, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gen := &echoGenerator{}
	h := New(Deps{
		Config:    &config.Config{MaxUploadBytes: 1 << 20},
		Cache:     cache.New(nil, "test", 0),
		Sessions:  cache.NewSessionMirror(nil, 0),
		Limiter:   cache.NewRateLimiter(nil, "", 0, 0),
		Extractor: extract.New("", "", ""),
		Assistant: ai.NewAssistant(gen, privacy),
		Hub:       realtime.NewHub(16),
	})
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetCurrentUser(c, &models.User{Model: models.Model{ID: 7}, Role: models.RoleAttorney})
		c.Next()
	})
	r.POST("/api/ai/chat", h.APIChat)
	r.POST("/api/ai/summarize", h.APISummarize)
	r.POST("/api/ai/batch-analyze", h.APIBatchAnalyze)
	return h, gen, r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatAnonymizesInPrivacyMode(t *testing.T) {
	_, gen, r := newAIHandler(t, true)

	w := postJSON(r, "/api/ai/chat", gin.H{"message": "Email jane@example.com about the lease"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data ai.Reply `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Data.Anonymized)
	assert.Equal(t, 1, env.Data.Redactions["EMAIL"])
	// the answer echoes the placeholder, which comes back restored
	assert.Contains(t, env.Data.Content, "jane@example.com")
	require.Len(t, gen.prompts, 1)
	assert.NotContains(t, gen.prompts[0], "jane@example.com")
}

func TestSummarizeRequiresText(t *testing.T) {
	_, _, r := newAIHandler(t, false)
	w := postJSON(r, "/api/ai/summarize", gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchAnalyzePublishesProgress(t *testing.T) {
	h, _, r := newAIHandler(t, false)

	events, unsubscribe := h.Hub.Subscribe(batchTopic("job-1"))
	defer unsubscribe()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.txt", "b.txt"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("Contents of " + name + " for the batch."))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("job_id", "job-1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ai/batch-analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data struct {
			JobID   string           `json:"job_id"`
			Results []ai.BatchResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "job-1", env.Data.JobID)
	require.Len(t, env.Data.Results, 2)
	for _, res := range env.Data.Results {
		assert.Empty(t, res.Error)
		assert.True(t, strings.HasPrefix(res.Summary, "summary of: "))
	}

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Len(t, types, 5)
	assert.Equal(t, "complete", types[len(types)-1])
}

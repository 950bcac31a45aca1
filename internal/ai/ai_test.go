package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lawdesk/internal/apperr"
	"lawdesk/internal/extract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM answers chat completions and records the requests it saw.
type fakeLLM struct {
	mu       sync.Mutex
	requests []oaiChatRequest
	answer   func(req oaiChatRequest) string
	status   int
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req oaiChatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
		return
	}
	content := "ok"
	if f.answer != nil {
		content = f.answer(req)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func newGenerator(t *testing.T, f *fakeLLM) *OpenAICompatGenerator {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewOpenAICompatGenerator(srv.URL+"/v1/", "key", "test-model", 5*time.Second)
}

func TestGeneratorSendsSystemAndHistory(t *testing.T) {
	f := &fakeLLM{}
	a := NewAssistant(newGenerator(t, f), false)

	reply, err := a.Chat(context.Background(), []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "system", Content: "ignored"},
	}, "what is consideration?")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)

	require.Len(t, f.requests, 1)
	msgs := f.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "what is consideration?", msgs[3].Content)
	assert.Equal(t, "test-model", f.requests[0].Model)
}

func TestPrivacyModeAnonymizesAndRestores(t *testing.T) {
	f := &fakeLLM{answer: func(req oaiChatRequest) string {
		last := req.Messages[len(req.Messages)-1].Content
		return "Reply about " + last
	}}
	a := NewAssistant(newGenerator(t, f), true)

	reply, err := a.Summarize(context.Background(), "Email jane@firm.test today", 50)
	require.NoError(t, err)

	sent := f.requests[0].Messages[1].Content
	assert.NotContains(t, sent, "jane@firm.test")
	assert.Contains(t, sent, "[EMAIL_1]")
	assert.Equal(t, "Reply about Email jane@firm.test today", reply.Content)
	assert.True(t, reply.Anonymized)
	assert.Equal(t, 1, reply.Redactions["EMAIL"])
}

func TestUpstreamErrorsClassify(t *testing.T) {
	f := &fakeLLM{status: http.StatusUnauthorized}
	a := NewAssistant(newGenerator(t, f), false)

	_, err := a.Research(context.Background(), "statute of limitations?", "")
	require.Error(t, err)
	assert.Equal(t, "UPSTREAM_AUTH", apperr.Classify(err).Code)
}

func TestDisabledAssistant(t *testing.T) {
	a := NewAssistant(nil, true)
	assert.False(t, a.Enabled())
	_, err := a.AnalyzeContract(context.Background(), "text")
	assert.ErrorIs(t, err, apperr.ErrDisabled)
}

func TestEmptyInputIsInvalid(t *testing.T) {
	a := NewAssistant(&OpenAICompatGenerator{}, false)
	_, err := a.CompareDocuments(context.Background(), "a", "  ")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

type plainGenerator struct{ prompt string }

func (p *plainGenerator) GenerateText(_ context.Context, _, user string) (string, error) {
	p.prompt = user
	return "done", nil
}

func TestNonChatGeneratorGetsFlattenedHistory(t *testing.T) {
	g := &plainGenerator{}
	a := NewAssistant(g, false)
	_, err := a.Chat(context.Background(), []Message{{Role: "user", Content: "first"}}, "second")
	require.NoError(t, err)
	assert.Equal(t, "USER: first\n\nUSER: second", g.prompt)
}

type countingGenerator struct {
	inFlight, peak atomic.Int32
}

func (c *countingGenerator) GenerateText(_ context.Context, _, user string) (string, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	if strings.Contains(user, "fail") {
		return "", errors.New("model overloaded")
	}
	return "summary of " + user, nil
}

func TestAnalyzeBatchBoundsConcurrency(t *testing.T) {
	g := &countingGenerator{}
	a := NewAssistant(g, false)
	ex := extract.New("", "", "")

	var files []BatchFile
	for _, body := range []string{"one", "two", "fail", "four", "five", "six", "seven"} {
		files = append(files, BatchFile{Name: body + ".txt", MimeType: "text/plain", Data: []byte(body)})
	}

	var mu sync.Mutex
	var events []Progress
	results, err := a.AnalyzeBatch(context.Background(), files, ex, func(p Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, results, len(files))

	assert.LessOrEqual(t, g.peak.Load(), int32(BatchLimit))
	assert.Equal(t, "summary of one", results[0].Summary)
	assert.Equal(t, extract.MethodText, results[0].Method)
	assert.Contains(t, results[2].Error, "model overloaded")

	last := events[len(events)-1]
	assert.Equal(t, "complete", last.Status)
	assert.Equal(t, len(files), last.Completed)
}

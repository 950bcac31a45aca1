package handlers

import (
	"io"
	"net/http"
	"strings"

	"lawdesk/internal/ai"
	"lawdesk/internal/logging"
	"lawdesk/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxBatchFiles bounds one batch-analysis request.
const maxBatchFiles = 10

func batchTopic(id string) string { return "batch:" + id }

func (h *Handler) aiReady(c *gin.Context) bool {
	if !h.Assistant.Enabled() {
		disabled(c, "AI_DISABLED", "The AI assistant is not configured.")
		return false
	}
	return true
}

// textOrDocument returns text, or the extracted text of documentID when
// text is empty.
func (h *Handler) textOrDocument(c *gin.Context, text string, documentID uint) (string, error) {
	if strings.TrimSpace(text) != "" || documentID == 0 {
		return text, nil
	}
	doc, err := h.Store.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		return "", err
	}
	return doc.ExtractedText, nil
}

func (h *Handler) reply(c *gin.Context, kind string, r ai.Reply, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	logging.FromContext(c.Request.Context()).Info("ai request", "kind", kind, "anonymized", r.Anonymized, "user_id", currentUserID(c))
	ok(c, http.StatusOK, r)
}

func (h *Handler) APIChat(c *gin.Context) {
	if !h.aiReady(c) {
		return
	}
	var body struct {
		Message string       `json:"message"`
		History []ai.Message `json:"history"`
	}
	if !bindJSON(c, &body) {
		return
	}
	r, err := h.Assistant.Chat(c.Request.Context(), body.History, body.Message)
	h.reply(c, "chat", r, err)
}

func (h *Handler) APIAnalyzeContract(c *gin.Context) {
	if !h.aiReady(c) {
		return
	}
	var body struct {
		Text       string `json:"text"`
		DocumentID uint   `json:"document_id"`
	}
	if !bindJSON(c, &body) {
		return
	}
	text, err := h.textOrDocument(c, body.Text, body.DocumentID)
	if err != nil {
		fail(c, err)
		return
	}
	r, err := h.Assistant.AnalyzeContract(c.Request.Context(), text)
	h.reply(c, "analyze_contract", r, err)
}

func (h *Handler) APIResearch(c *gin.Context) {
	if !h.aiReady(c) {
		return
	}
	var body struct {
		Question     string `json:"question"`
		Jurisdiction string `json:"jurisdiction"`
	}
	if !bindJSON(c, &body) {
		return
	}
	r, err := h.Assistant.Research(c.Request.Context(), body.Question, body.Jurisdiction)
	h.reply(c, "research", r, err)
}

func (h *Handler) APICompare(c *gin.Context) {
	if !h.aiReady(c) {
		return
	}
	var body struct {
		First            string `json:"first"`
		Second           string `json:"second"`
		FirstDocumentID  uint   `json:"first_document_id"`
		SecondDocumentID uint   `json:"second_document_id"`
	}
	if !bindJSON(c, &body) {
		return
	}
	first, err := h.textOrDocument(c, body.First, body.FirstDocumentID)
	if err != nil {
		fail(c, err)
		return
	}
	second, err := h.textOrDocument(c, body.Second, body.SecondDocumentID)
	if err != nil {
		fail(c, err)
		return
	}
	r, err := h.Assistant.CompareDocuments(c.Request.Context(), first, second)
	h.reply(c, "compare", r, err)
}

func (h *Handler) APISummarize(c *gin.Context) {
	if !h.aiReady(c) {
		return
	}
	var body struct {
		Text       string `json:"text"`
		DocumentID uint   `json:"document_id"`
		MaxWords   int    `json:"max_words"`
	}
	if !bindJSON(c, &body) {
		return
	}
	text, err := h.textOrDocument(c, body.Text, body.DocumentID)
	if err != nil {
		fail(c, err)
		return
	}
	r, err := h.Assistant.Summarize(c.Request.Context(), text, body.MaxWords)
	h.reply(c, "summarize", r, err)
}

// APIBatchAnalyze extracts and summarizes the uploaded "files" within the
// request. Progress goes to the hub under the job id, which the client may
// choose (form field job_id) so it can subscribe before posting.
func (h *Handler) APIBatchAnalyze(c *gin.Context) {
	if !h.aiReady(c) {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, badRequest("multipart form expected"))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 || len(headers) > maxBatchFiles {
		fail(c, badRequest("between 1 and %d files are required", maxBatchFiles))
		return
	}
	files := make([]ai.BatchFile, 0, len(headers))
	for _, fh := range headers {
		data, err := h.readUpload(fh)
		if err != nil {
			fail(c, err)
			return
		}
		files = append(files, ai.BatchFile{Name: fh.Filename, MimeType: fh.Header.Get("Content-Type"), Data: data})
	}

	jobID := strings.TrimSpace(c.PostForm("job_id"))
	if jobID == "" || len(jobID) > 64 {
		jobID = uuid.NewString()
	}
	topic := batchTopic(jobID)
	results, err := h.Assistant.AnalyzeBatch(c.Request.Context(), files, h.Extractor, func(p ai.Progress) {
		h.Hub.Publish(topic, realtime.Event{Type: p.Status, Data: p})
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"job_id": jobID, "results": results})
}

// BatchEvents streams a batch job's progress as Server-Sent Events until
// the job completes or the client goes away.
func (h *Handler) BatchEvents(c *gin.Context) {
	events, unsubscribe := h.Hub.Subscribe(batchTopic(c.Param("id")))
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("subscribed", gin.H{"job_id": c.Param("id")})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return ev.Type != "complete"
		}
	})
}

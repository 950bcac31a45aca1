package handlers

import (
	"net/http"

	"lawdesk/internal/privacy"
	"lawdesk/internal/translate"

	"github.com/gin-gonic/gin"
)

// APIExtract runs extraction on an upload without storing it.
func (h *Handler) APIExtract(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, badRequest("file is required"))
		return
	}
	data, err := h.readUpload(fh)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, h.Extractor.Extract(c.Request.Context(), data, fh.Filename, fh.Header.Get("Content-Type")))
}

func (h *Handler) APIAnonymize(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &body) {
		return
	}
	ok(c, http.StatusOK, privacy.Anonymize(body.Text))
}

func (h *Handler) APIRestore(c *gin.Context) {
	var body struct {
		Text    string            `json:"text"`
		Mapping map[string]string `json:"mapping"`
	}
	if !bindJSON(c, &body) {
		return
	}
	ok(c, http.StatusOK, gin.H{"text": privacy.Restore(body.Text, body.Mapping)})
}

func (h *Handler) APITranslate(c *gin.Context) {
	var body struct {
		Text    string `json:"text"`
		Target  string `json:"target"`
		Enhance bool   `json:"enhance"`
	}
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.Translator.Translate(c.Request.Context(), body.Text, body.Target, body.Enhance)
	if err != nil {
		fail(c, badRequest("%v", err))
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *Handler) APIDetectLanguage(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &body) {
		return
	}
	ok(c, http.StatusOK, gin.H{"language": translate.DetectLanguage(body.Text)})
}

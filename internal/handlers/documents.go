package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/extract"
	"lawdesk/internal/logging"
	"lawdesk/internal/models"
	"lawdesk/internal/privacy"
	"lawdesk/internal/storage"

	"github.com/gin-gonic/gin"
)

const presignExpiry = 15 * time.Minute

// readUpload returns the bytes of an uploaded file, refusing anything over
// the configured limit.
func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.Config.MaxUploadBytes {
		return nil, fmt.Errorf("%s: file too large (%d bytes, limit %d)", fh.Filename, fh.Size, h.Config.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.Config.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > h.Config.MaxUploadBytes {
		return nil, fmt.Errorf("%s: file too large", fh.Filename)
	}
	if len(data) == 0 {
		return nil, badRequest("%s is empty", fh.Filename)
	}
	return data, nil
}

// ingest extracts text from an upload and writes it to object storage.
// The returned document is not yet persisted.
func (h *Handler) ingest(c *gin.Context, fh *multipart.FileHeader, clientID *uint) (*models.Document, extract.Result, error) {
	ctx := c.Request.Context()
	data, err := h.readUpload(fh)
	if err != nil {
		return nil, extract.Result{}, err
	}
	mime := fh.Header.Get("Content-Type")
	res := h.Extractor.Extract(ctx, data, fh.Filename, mime)

	var owner uint
	if clientID != nil {
		owner = *clientID
	}
	key := storage.DocumentKey(owner, fh.Filename)
	if err := h.Files.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		return nil, res, err
	}
	doc := &models.Document{
		Title:         strings.TrimSpace(c.PostForm("title")),
		Filename:      storage.SafeFilename(fh.Filename),
		StorageKey:    key,
		MimeType:      mime,
		Format:        string(res.Report.DetectedFormat),
		Size:          int64(len(data)),
		ExtractedText: res.Text,
		Warnings:      strings.Join(res.Report.Warnings, "\n"),
		UploadedByID:  currentUserID(c),
	}
	return doc, res, nil
}

// dropObject removes an orphaned upload after the database write failed.
func (h *Handler) dropObject(c *gin.Context, key string) {
	if err := h.Files.Delete(c.Request.Context(), key); err != nil {
		logging.FromContext(c.Request.Context()).Warn("orphaned upload", "key", key, "err", err)
	}
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (h *Handler) createDocument(c *gin.Context) (*models.Document, extract.Result, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, extract.Result{}, badRequest("file is required")
	}
	caseID, clientID := formID(c, "case_id"), formID(c, "client_id")
	if clientID == nil && caseID != nil {
		if cs, err := h.Store.GetCase(c.Request.Context(), *caseID); err == nil {
			clientID = &cs.ClientID
		}
	}
	doc, res, err := h.ingest(c, fh, clientID)
	if err != nil {
		return nil, res, err
	}
	doc.CaseID, doc.ClientID = caseID, clientID
	if err := h.Store.CreateDocument(c.Request.Context(), doc, splitTags(c.PostForm("tags"))); err != nil {
		h.dropObject(c, doc.StorageKey)
		return nil, res, err
	}
	h.audit(c, "upload", "document", doc.ID, nil, gin.H{"filename": doc.Filename, "format": doc.Format, "size": doc.Size})
	return doc, res, nil
}

func documentFilter(c *gin.Context) database.DocumentFilter {
	return database.DocumentFilter{
		CaseID:      queryID(c, "case_id"),
		ClientID:    queryID(c, "client_id"),
		Status:      models.DocumentStatus(c.Query("status")),
		Tag:         c.Query("tag"),
		Query:       strings.TrimSpace(c.Query("q")),
		AllVersions: c.Query("versions") == "all",
	}
}

func (h *Handler) ListDocuments(c *gin.Context) {
	f := documentFilter(c)
	if f.Status == "" {
		f.Status = models.DocumentActive
	}
	docs, err := h.Store.ListDocuments(c.Request.Context(), f)
	if err != nil {
		renderError(c, err)
		return
	}
	cases, _ := h.Store.ListCases(c.Request.Context(), database.CaseFilter{})
	render(c, http.StatusOK, "documents.html", gin.H{"documents": docs, "cases": cases, "q": c.Query("q")})
}

// UploadDocument is the upload form on the documents page.
func (h *Handler) UploadDocument(c *gin.Context) {
	if _, _, err := h.createDocument(c); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/documents")
}

func (h *Handler) APIListDocuments(c *gin.Context) {
	docs, err := h.Store.ListDocuments(c.Request.Context(), documentFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

func (h *Handler) APIUploadDocument(c *gin.Context) {
	doc, res, err := h.createDocument(c)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"document": doc, "method": res.Method, "report": res.Report})
}

func (h *Handler) APIGetDocument(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	doc, err := h.Store.GetDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, doc)
}

// DownloadDocument redirects to a presigned URL when the object store can
// issue one, otherwise streams the bytes.
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	doc, err := h.Store.GetDocument(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}

	url, err := h.Files.PresignGet(ctx, doc.StorageKey, presignExpiry)
	if err == nil {
		c.Redirect(http.StatusFound, url)
		return
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		fail(c, err)
		return
	}

	rc, err := h.Files.Get(ctx, doc.StorageKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		fail(c, fmt.Errorf("document %d content: %w", id, apperr.ErrNotFound))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	defer rc.Close()

	mime := doc.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.Size, mime, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + doc.Filename + `"`,
	})
}

func (h *Handler) APIAddVersion(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	parent, err := h.Store.GetDocument(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, badRequest("file is required"))
		return
	}
	doc, res, err := h.ingest(c, fh, parent.ClientID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.AddDocumentVersion(ctx, id, doc); err != nil {
		h.dropObject(c, doc.StorageKey)
		fail(c, err)
		return
	}
	h.audit(c, "version", "document", doc.ID, gin.H{"parent_id": id}, gin.H{"version": doc.Version, "filename": doc.Filename})
	ok(c, http.StatusCreated, gin.H{"document": doc, "method": res.Method, "report": res.Report})
}

func (h *Handler) APITagDocument(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Tags []string `json:"tags"`
	}
	if !bindJSON(c, &body) {
		return
	}
	doc, err := h.Store.TagDocument(c.Request.Context(), id, body.Tags)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "tag", "document", id, nil, gin.H{"tags": body.Tags})
	ok(c, http.StatusOK, doc)
}

func (h *Handler) APIArchiveDocument(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	doc, err := h.Store.ArchiveDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "archive", "document", id, nil, gin.H{"status": doc.Status})
	ok(c, http.StatusOK, doc)
}

func (h *Handler) documentText(c *gin.Context) (*models.Document, bool) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return nil, false
	}
	doc, err := h.Store.GetDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	if strings.TrimSpace(doc.ExtractedText) == "" {
		fail(c, badRequest("document %d has no extracted text", id))
		return nil, false
	}
	return doc, true
}

func (h *Handler) APITranslateDocument(c *gin.Context) {
	doc, found := h.documentText(c)
	if !found {
		return
	}
	var body struct {
		Target  string `json:"target"`
		Enhance bool   `json:"enhance"`
	}
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.Translator.Translate(c.Request.Context(), doc.ExtractedText, body.Target, body.Enhance)
	if err != nil {
		fail(c, badRequest("%v", err))
		return
	}
	ok(c, http.StatusOK, gin.H{"document_id": doc.ID, "translation": res})
}

func (h *Handler) APIAnonymizeDocument(c *gin.Context) {
	doc, found := h.documentText(c)
	if !found {
		return
	}
	res := privacy.Anonymize(doc.ExtractedText)
	h.audit(c, "anonymize", "document", doc.ID, nil, gin.H{"counts": res.Counts})
	ok(c, http.StatusOK, gin.H{"document_id": doc.ID, "text": res.Text, "mapping": res.Mapping, "counts": res.Counts})
}

func (h *Handler) APIListTags(c *gin.Context) {
	tags, err := h.Store.ListTags(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, tags)
}

func (h *Handler) APICreateTag(c *gin.Context) {
	var t models.Tag
	if !bindJSON(c, &t) {
		return
	}
	t.ID = 0
	if err := h.Store.CreateTag(c.Request.Context(), &t); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "tag", t.ID, nil, t)
	ok(c, http.StatusCreated, t)
}

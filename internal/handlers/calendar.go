package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"lawdesk/internal/database"
	"lawdesk/internal/models"

	"github.com/gin-gonic/gin"
)

type eventInput struct {
	Title       string           `json:"title" form:"title"`
	Description string           `json:"description" form:"description"`
	Type        models.EventType `json:"type" form:"type"`
	StartsAt    string           `json:"starts_at" form:"starts_at"`
	EndsAt      string           `json:"ends_at" form:"ends_at"`
	Location    string           `json:"location" form:"location"`
	CaseID      *uint            `json:"case_id" form:"case_id"`
}

func (in eventInput) apply(e *models.CalendarEvent) error {
	start, err := parseDate(in.StartsAt)
	if err != nil {
		return err
	}
	end, err := parseDate(in.EndsAt)
	if err != nil {
		return err
	}
	e.Title = in.Title
	e.Description = strings.TrimSpace(in.Description)
	e.Type = in.Type
	e.StartsAt = start
	e.EndsAt = end
	e.Location = strings.TrimSpace(in.Location)
	if in.CaseID != nil && *in.CaseID == 0 {
		in.CaseID = nil
	}
	e.CaseID = in.CaseID
	return nil
}

func eventFilter(c *gin.Context) (database.EventFilter, error) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		return database.EventFilter{}, err
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		return database.EventFilter{}, err
	}
	cancelled, _ := strconv.ParseBool(c.Query("include_cancelled"))
	return database.EventFilter{
		From:             from,
		To:               to,
		OwnerID:          queryID(c, "owner_id"),
		CaseID:           queryID(c, "case_id"),
		IncludeCancelled: cancelled,
	}, nil
}

func (h *Handler) ShowCalendar(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.Store.Now()
	events, err := h.Store.ListEvents(ctx, database.EventFilter{From: now.AddDate(0, 0, -1), To: now.AddDate(0, 0, 30)})
	if err != nil {
		renderError(c, err)
		return
	}
	cases, _ := h.Store.ListCases(ctx, database.CaseFilter{Status: models.CaseOpen})
	render(c, http.StatusOK, "calendar.html", gin.H{
		"events": events,
		"cases":  cases,
		"types":  []models.EventType{models.EventHearing, models.EventDeadline, models.EventMeeting, models.EventOther},
	})
}

func (h *Handler) CreateEventForm(c *gin.Context) {
	var in eventInput
	if err := c.ShouldBind(&in); err != nil {
		renderError(c, badRequest("invalid form data"))
		return
	}
	if _, err := h.createEvent(c, in); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/calendar")
}

func (h *Handler) createEvent(c *gin.Context, in eventInput) (*models.CalendarEvent, error) {
	e := models.CalendarEvent{OwnerID: currentUserID(c)}
	if err := in.apply(&e); err != nil {
		return nil, err
	}
	if err := h.Store.CreateEvent(c.Request.Context(), &e); err != nil {
		return nil, err
	}
	h.audit(c, "create", "event", e.ID, nil, e)
	h.invalidateReports(c.Request.Context())
	return &e, nil
}

func (h *Handler) APIListEvents(c *gin.Context) {
	f, err := eventFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	events, err := h.Store.ListEvents(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, events)
}

func (h *Handler) APICreateEvent(c *gin.Context) {
	var in eventInput
	if !bindJSON(c, &in) {
		return
	}
	e, err := h.createEvent(c, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, e)
}

func (h *Handler) APIUpdateEvent(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	e, err := h.Store.GetEvent(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	var in eventInput
	if !bindJSON(c, &in) {
		return
	}
	old := *e
	if err := in.apply(e); err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.UpdateEvent(ctx, e); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "update", "event", id, old, e)
	h.invalidateReports(ctx)
	ok(c, http.StatusOK, e)
}

// APICancelEvent is DELETE /api/events/:id.
func (h *Handler) APICancelEvent(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	e, err := h.Store.CancelEvent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "cancel", "event", id, nil, gin.H{"status": e.Status})
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusOK, e)
}

func (h *Handler) APIListMessages(c *gin.Context) {
	msgs, err := h.Store.ListMessages(c.Request.Context(), currentUserID(c), c.Query("box") == "sent")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msgs)
}

func (h *Handler) APISendMessage(c *gin.Context) {
	var body struct {
		RecipientID uint   `json:"recipient_id" binding:"required"`
		CaseID      *uint  `json:"case_id"`
		Subject     string `json:"subject"`
		Body        string `json:"body"`
	}
	if !bindJSON(c, &body) {
		return
	}
	m := models.Message{
		SenderID:    currentUserID(c),
		RecipientID: body.RecipientID,
		CaseID:      body.CaseID,
		Subject:     strings.TrimSpace(body.Subject),
		Body:        body.Body,
	}
	if err := h.Store.SendMessage(c.Request.Context(), &m); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "send", "message", m.ID, nil, gin.H{"recipient_id": m.RecipientID, "subject": m.Subject})
	ok(c, http.StatusCreated, m)
}

func (h *Handler) APIMarkMessageRead(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.Store.MarkMessageRead(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

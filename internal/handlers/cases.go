package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/models"

	"github.com/gin-gonic/gin"
)

type caseInput struct {
	CaseNumber    string              `json:"case_number" form:"case_number"`
	Title         string              `json:"title" form:"title"`
	Description   string              `json:"description" form:"description"`
	PracticeArea  string              `json:"practice_area" form:"practice_area"`
	Court         string              `json:"court" form:"court"`
	OpposingParty string              `json:"opposing_party" form:"opposing_party"`
	Priority      models.CasePriority `json:"priority" form:"priority"`
	ClientID      uint                `json:"client_id" form:"client_id"`
	AttorneyIDs   []uint              `json:"attorney_ids" form:"attorney_ids"`
}

func (in caseInput) apply(cs *models.Case) {
	cs.Title = in.Title
	cs.Description = strings.TrimSpace(in.Description)
	cs.PracticeArea = strings.TrimSpace(in.PracticeArea)
	cs.Court = strings.TrimSpace(in.Court)
	cs.OpposingParty = strings.TrimSpace(in.OpposingParty)
	if in.Priority != "" {
		cs.Priority = in.Priority
	}
}

func caseFilter(c *gin.Context) database.CaseFilter {
	return database.CaseFilter{
		Status:     models.CaseStatus(c.Query("status")),
		ClientID:   queryID(c, "client_id"),
		AttorneyID: queryID(c, "attorney_id"),
		Query:      strings.TrimSpace(c.Query("q")),
	}
}

func (h *Handler) ListCases(c *gin.Context) {
	cases, err := h.Store.ListCases(c.Request.Context(), caseFilter(c))
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "cases_list.html", gin.H{"cases": cases, "status": c.Query("status")})
}

func (h *Handler) ShowNewCase(c *gin.Context) {
	h.renderCaseForm(c, http.StatusOK, nil, "")
}

func (h *Handler) renderCaseForm(c *gin.Context, status int, in *caseInput, msg string) {
	clients, _ := h.Store.ListClients(c.Request.Context(), database.ClientFilter{Status: models.ClientActive})
	render(c, status, "cases_new.html", gin.H{
		"clients":   clients,
		"attorneys": h.attorneys(c),
		"form":      in,
		"error":     msg,
	})
}

func (h *Handler) CreateCase(c *gin.Context) {
	var in caseInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderCaseForm(c, http.StatusBadRequest, &in, "Invalid form data")
		return
	}
	cs := models.Case{CaseNumber: in.CaseNumber, ClientID: in.ClientID}
	in.apply(&cs)
	if err := h.Store.CreateCase(c.Request.Context(), &cs, in.AttorneyIDs); err != nil {
		info := apperr.Classify(err)
		h.renderCaseForm(c, info.Status, &in, info.Message)
		return
	}
	h.audit(c, "create", "case", cs.ID, nil, cs)
	h.invalidateReports(c.Request.Context())

	c.Redirect(http.StatusFound, "/cases/"+strconv.FormatUint(uint64(cs.ID), 10))
}

func (h *Handler) ShowCaseDetail(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	ctx := c.Request.Context()
	cs, err := h.Store.GetCase(ctx, id)
	if err != nil {
		renderError(c, err)
		return
	}
	docs, err := h.Store.ListDocuments(ctx, database.DocumentFilter{CaseID: id})
	if err != nil {
		renderError(c, err)
		return
	}
	entries, err := h.Store.ListTimeEntries(ctx, database.TimeEntryFilter{CaseID: id})
	if err != nil {
		renderError(c, err)
		return
	}
	events, err := h.Store.ListEvents(ctx, database.EventFilter{CaseID: id})
	if err != nil {
		renderError(c, err)
		return
	}

	hours := 0.0
	for _, e := range entries {
		hours += e.Hours
	}
	render(c, http.StatusOK, "case_detail.html", gin.H{
		"case":       cs,
		"documents":  docs,
		"entries":    entries,
		"events":     events,
		"totalHours": hours,
		"statuses":   []models.CaseStatus{models.CaseOpen, models.CasePending, models.CaseOnHold, models.CaseClosed},
	})
}

// ChangeCaseStatus is the form post from the case page.
func (h *Handler) ChangeCaseStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.setCaseStatus(c, id, models.CaseStatus(c.PostForm("status"))); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cases/"+c.Param("id"))
}

func (h *Handler) setCaseStatus(c *gin.Context, id uint, status models.CaseStatus) (*models.Case, error) {
	ctx := c.Request.Context()
	before, err := h.Store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	cs, err := h.Store.SetCaseStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	h.audit(c, "status", "case", id, gin.H{"status": before.Status}, gin.H{"status": cs.Status, "date_closed": cs.DateClosed})
	h.invalidateReports(ctx)
	return cs, nil
}

func (h *Handler) APIListCases(c *gin.Context) {
	cases, err := h.Store.ListCases(c.Request.Context(), caseFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cases)
}

func (h *Handler) APIGetCase(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cs, err := h.Store.GetCase(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cs)
}

func (h *Handler) APICreateCase(c *gin.Context) {
	var in caseInput
	if !bindJSON(c, &in) {
		return
	}
	cs := models.Case{CaseNumber: in.CaseNumber, ClientID: in.ClientID}
	in.apply(&cs)
	if err := h.Store.CreateCase(c.Request.Context(), &cs, in.AttorneyIDs); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "case", cs.ID, nil, cs)
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusCreated, cs)
}

func (h *Handler) APIUpdateCase(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cs, err := h.Store.GetCase(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	var in caseInput
	if !bindJSON(c, &in) {
		return
	}
	old := *cs
	in.apply(cs)
	if err := h.Store.UpdateCase(c.Request.Context(), cs); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "update", "case", cs.ID, old, cs)
	ok(c, http.StatusOK, cs)
}

func (h *Handler) APISetCaseStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Status models.CaseStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	cs, err := h.setCaseStatus(c, id, body.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cs)
}

func (h *Handler) APIAssignAttorneys(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		AttorneyIDs []uint `json:"attorney_ids"`
	}
	if !bindJSON(c, &body) {
		return
	}
	cs, err := h.Store.AssignAttorneys(c.Request.Context(), id, body.AttorneyIDs)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "assign", "case", id, nil, gin.H{"attorney_ids": body.AttorneyIDs})
	ok(c, http.StatusOK, cs)
}

type taskInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DueDate     string            `json:"due_date"`
	Status      models.TaskStatus `json:"status"`
	AssigneeID  *uint             `json:"assignee_id"`
	Tags        []string          `json:"tags"`
}

func (in taskInput) apply(t *models.Task) error {
	due, err := parseDate(in.DueDate)
	if err != nil {
		return err
	}
	t.Title = in.Title
	t.Description = strings.TrimSpace(in.Description)
	t.DueDate = nil
	if !due.IsZero() {
		t.DueDate = &due
	}
	if in.Status != "" {
		t.Status = in.Status
	}
	t.AssigneeID = in.AssigneeID
	return nil
}

func (h *Handler) APIListTasks(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	tasks, err := h.Store.ListTasks(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (h *Handler) APICreateTask(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in taskInput
	if !bindJSON(c, &in) {
		return
	}
	t := models.Task{CaseID: id}
	if err := in.apply(&t); err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.CreateTask(c.Request.Context(), &t, in.Tags); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "task", t.ID, nil, t)
	ok(c, http.StatusCreated, t)
}

func (h *Handler) APIUpdateTask(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	t, err := h.Store.GetTask(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	var in taskInput
	if !bindJSON(c, &in) {
		return
	}
	old := *t
	if err := in.apply(t); err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.UpdateTask(c.Request.Context(), t); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "update", "task", t.ID, old, t)
	ok(c, http.StatusOK, t)
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"

	"github.com/gin-gonic/gin"
)

type timeEntryInput struct {
	UserID      uint    `json:"user_id" form:"user_id"`
	CaseID      uint    `json:"case_id" form:"case_id"`
	Date        string  `json:"date" form:"date"`
	Hours       float64 `json:"hours" form:"hours"`
	HourlyRate  float64 `json:"hourly_rate" form:"hourly_rate"`
	Description string  `json:"description" form:"description"`
	Billable    *bool   `json:"billable" form:"-"`
}

// entry builds a new entry owned by the caller. Only billing roles may log
// time on someone else's behalf.
func (in timeEntryInput) entry(c *gin.Context) (*models.TimeEntry, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	user := middleware.CurrentUser(c)
	owner := user.ID
	if in.UserID != 0 && in.UserID != user.ID {
		if !isBilling(user) {
			return nil, fmt.Errorf("log time for user %d: %w", in.UserID, apperr.ErrForbidden)
		}
		owner = in.UserID
	}
	billable := true
	if in.Billable != nil {
		billable = *in.Billable
	}
	return &models.TimeEntry{
		UserID:      owner,
		CaseID:      in.CaseID,
		Date:        date,
		Hours:       in.Hours,
		HourlyRate:  in.HourlyRate,
		Description: in.Description,
		Billable:    billable,
	}, nil
}

func timeFilter(c *gin.Context) (database.TimeEntryFilter, error) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		return database.TimeEntryFilter{}, err
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		return database.TimeEntryFilter{}, err
	}
	unbilled, _ := strconv.ParseBool(c.Query("unbilled"))
	return database.TimeEntryFilter{
		UserID:   queryID(c, "user_id"),
		CaseID:   queryID(c, "case_id"),
		Status:   models.TimeEntryStatus(c.Query("status")),
		Unbilled: unbilled,
		From:     from,
		To:       to,
	}, nil
}

func (h *Handler) ListTimeEntries(c *gin.Context) {
	f, err := timeFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}
	if user := middleware.CurrentUser(c); !isBilling(user) {
		f.UserID = user.ID
	}
	ctx := c.Request.Context()
	entries, err := h.Store.ListTimeEntries(ctx, f)
	if err != nil {
		renderError(c, err)
		return
	}
	cases, _ := h.Store.ListCases(ctx, database.CaseFilter{Status: models.CaseOpen})

	hours, amount := 0.0, 0.0
	for _, e := range entries {
		hours += e.Hours
		amount += e.Amount
	}
	render(c, http.StatusOK, "time_entries.html", gin.H{
		"entries": entries,
		"cases":   cases,
		"hours":   hours,
		"amount":  amount,
		"error":   c.Query("error"),
	})
}

// CreateTimeEntry is the form on the time page; the hidden billable field
// is "on" or absent.
func (h *Handler) CreateTimeEntry(c *gin.Context) {
	var in timeEntryInput
	if err := c.ShouldBind(&in); err != nil {
		renderError(c, badRequest("invalid form data"))
		return
	}
	billable := c.PostForm("billable") != ""
	in.Billable = &billable
	if _, err := h.createTimeEntry(c, in); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/time")
}

func (h *Handler) createTimeEntry(c *gin.Context, in timeEntryInput) (*models.TimeEntry, error) {
	e, err := in.entry(c)
	if err != nil {
		return nil, err
	}
	if err := h.Store.CreateTimeEntry(c.Request.Context(), e); err != nil {
		return nil, err
	}
	h.audit(c, "create", "time_entry", e.ID, nil, e)
	h.invalidateReports(c.Request.Context())
	return e, nil
}

// ChangeTimeEntryStatus is the submit/approve buttons on the time page.
func (h *Handler) ChangeTimeEntryStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.setTimeEntryStatus(c, id, models.TimeEntryStatus(c.PostForm("status"))); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/time")
}

// setTimeEntryStatus lets the owner submit or recall an entry; approving
// and writing off need a billing role.
func (h *Handler) setTimeEntryStatus(c *gin.Context, id uint, status models.TimeEntryStatus) (*models.TimeEntry, error) {
	ctx := c.Request.Context()
	before, err := h.Store.GetTimeEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	user := middleware.CurrentUser(c)
	if !isBilling(user) {
		if before.UserID != user.ID {
			return nil, fmt.Errorf("time entry %d: %w", id, apperr.ErrForbidden)
		}
		if status == models.TimeApproved || status == models.TimeWrittenOff {
			return nil, fmt.Errorf("%s time entry: %w", status, apperr.ErrForbidden)
		}
	}
	e, err := h.Store.SetTimeEntryStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	h.audit(c, "status", "time_entry", id, gin.H{"status": before.Status}, gin.H{"status": e.Status})
	h.invalidateReports(ctx)
	return e, nil
}

func (h *Handler) APIListTimeEntries(c *gin.Context) {
	f, err := timeFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	if user := middleware.CurrentUser(c); !isBilling(user) {
		f.UserID = user.ID
	}
	entries, err := h.Store.ListTimeEntries(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

func (h *Handler) APICreateTimeEntry(c *gin.Context) {
	var in timeEntryInput
	if !bindJSON(c, &in) {
		return
	}
	e, err := h.createTimeEntry(c, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, e)
}

func (h *Handler) APIUpdateTimeEntry(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	before, err := h.Store.GetTimeEntry(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	if before.UserID != user.ID && !isBilling(user) {
		fail(c, fmt.Errorf("time entry %d: %w", id, apperr.ErrForbidden))
		return
	}
	var in timeEntryInput
	if !bindJSON(c, &in) {
		return
	}
	date, err := parseDate(in.Date)
	if err != nil {
		fail(c, err)
		return
	}
	e := &models.TimeEntry{
		Model:       models.Model{ID: id},
		Date:        date,
		Hours:       in.Hours,
		HourlyRate:  in.HourlyRate,
		Description: strings.TrimSpace(in.Description),
		Billable:    before.Billable,
	}
	if e.HourlyRate == 0 {
		e.HourlyRate = before.HourlyRate
	}
	if in.Billable != nil {
		e.Billable = *in.Billable
	}
	if err := h.Store.UpdateTimeEntry(ctx, e); err != nil {
		fail(c, err)
		return
	}
	before.Case = nil
	h.audit(c, "update", "time_entry", id, before, e)
	h.invalidateReports(ctx)
	ok(c, http.StatusOK, e)
}

func (h *Handler) APISetTimeEntryStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Status models.TimeEntryStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	e, err := h.setTimeEntryStatus(c, id, body.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// APIWriteOffTimeEntry is DELETE /api/time-entries/:id.
func (h *Handler) APIWriteOffTimeEntry(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	e, err := h.setTimeEntryStatus(c, id, models.TimeWrittenOff)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

type expenseInput struct {
	CaseID      uint    `json:"case_id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Billable    *bool   `json:"billable"`
}

func (h *Handler) APIListExpenses(c *gin.Context) {
	unbilled, _ := strconv.ParseBool(c.Query("unbilled"))
	out, err := h.Store.ListExpenses(c.Request.Context(), queryID(c, "case_id"), unbilled)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

func (h *Handler) APICreateExpense(c *gin.Context) {
	var in expenseInput
	if !bindJSON(c, &in) {
		return
	}
	date, err := parseDate(in.Date)
	if err != nil {
		fail(c, err)
		return
	}
	e := models.Expense{
		CaseID:      in.CaseID,
		UserID:      currentUserID(c),
		Date:        date,
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Billable:    in.Billable == nil || *in.Billable,
	}
	if err := h.Store.CreateExpense(c.Request.Context(), &e); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "expense", e.ID, nil, e)
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusCreated, e)
}

func (h *Handler) APIWriteOffExpense(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	e, err := h.Store.WriteOffExpense(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "write_off", "expense", id, nil, gin.H{"status": e.Status})
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusOK, e)
}

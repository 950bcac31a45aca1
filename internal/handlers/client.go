package handlers

import (
	"net/http"
	"strings"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/models"

	"github.com/gin-gonic/gin"
)

type clientInput struct {
	Type                  models.ClientType   `json:"type" form:"type"`
	FirstName             string              `json:"first_name" form:"first_name"`
	LastName              string              `json:"last_name" form:"last_name"`
	CompanyName           string              `json:"company_name" form:"company_name"`
	Email                 string              `json:"email" form:"email"`
	Phone                 string              `json:"phone" form:"phone"`
	Address               string              `json:"address" form:"address"`
	Notes                 string              `json:"notes" form:"notes"`
	Status                models.ClientStatus `json:"status" form:"status"`
	ResponsibleAttorneyID *uint               `json:"responsible_attorney_id" form:"responsible_attorney_id"`
}

func (in clientInput) apply(cl *models.Client) {
	cl.Type = in.Type
	cl.FirstName = strings.TrimSpace(in.FirstName)
	cl.LastName = strings.TrimSpace(in.LastName)
	cl.CompanyName = strings.TrimSpace(in.CompanyName)
	cl.Email = strings.TrimSpace(in.Email)
	cl.Phone = strings.TrimSpace(in.Phone)
	cl.Address = strings.TrimSpace(in.Address)
	cl.Notes = strings.TrimSpace(in.Notes)
	if in.Status != "" {
		cl.Status = in.Status
	}
	if in.ResponsibleAttorneyID != nil && *in.ResponsibleAttorneyID == 0 {
		in.ResponsibleAttorneyID = nil
	}
	cl.ResponsibleAttorneyID = in.ResponsibleAttorneyID
	cl.ResponsibleAttorney = nil
}

func clientFilter(c *gin.Context) database.ClientFilter {
	return database.ClientFilter{
		Status: models.ClientStatus(c.Query("status")),
		Type:   models.ClientType(c.Query("type")),
		Query:  strings.TrimSpace(c.Query("q")),
	}
}

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.Store.ListClients(c.Request.Context(), clientFilter(c))
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "clients_list.html", gin.H{
		"clients": clients,
		"q":       c.Query("q"),
	})
}

func (h *Handler) attorneys(c *gin.Context) []models.User {
	users, _ := h.Store.ListUsers(c.Request.Context(), models.RolePartner, models.RoleAttorney, models.RoleAssociate)
	return users
}

func (h *Handler) ShowNewClient(c *gin.Context) {
	render(c, http.StatusOK, "clients_new.html", gin.H{"attorneys": h.attorneys(c)})
}

func (h *Handler) CreateClient(c *gin.Context) {
	var in clientInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderClientForm(c, "clients_new.html", nil, badRequest("invalid form data"))
		return
	}
	var cl models.Client
	in.apply(&cl)
	if err := h.Store.CreateClient(c.Request.Context(), &cl); err != nil {
		h.renderClientForm(c, "clients_new.html", &cl, err)
		return
	}
	h.audit(c, "create", "client", cl.ID, nil, cl)
	h.invalidateReports(c.Request.Context())

	c.Redirect(http.StatusFound, "/clients")
}

func (h *Handler) ShowEditClient(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	cl, err := h.Store.GetClient(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "clients_edit.html", gin.H{"client": cl, "attorneys": h.attorneys(c)})
}

func (h *Handler) UpdateClient(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	cl, err := h.Store.GetClient(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	var in clientInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderClientForm(c, "clients_edit.html", cl, badRequest("invalid form data"))
		return
	}
	old := *cl
	old.Cases = nil
	in.apply(cl)
	cl.Cases = nil
	if err := h.Store.UpdateClient(c.Request.Context(), cl); err != nil {
		h.renderClientForm(c, "clients_edit.html", cl, err)
		return
	}
	h.audit(c, "update", "client", cl.ID, old, cl)
	h.invalidateReports(c.Request.Context())

	c.Redirect(http.StatusFound, "/clients/"+c.Param("id"))
}

func (h *Handler) renderClientForm(c *gin.Context, tmpl string, cl *models.Client, err error) {
	info := apperr.Classify(err)
	render(c, info.Status, tmpl, gin.H{
		"client":    cl,
		"attorneys": h.attorneys(c),
		"error":     info.Message,
	})
}

func (h *Handler) APIListClients(c *gin.Context) {
	clients, err := h.Store.ListClients(c.Request.Context(), clientFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, clients)
}

func (h *Handler) APIGetClient(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cl, err := h.Store.GetClient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cl)
}

func (h *Handler) APICreateClient(c *gin.Context) {
	var in clientInput
	if !bindJSON(c, &in) {
		return
	}
	var cl models.Client
	in.apply(&cl)
	if err := h.Store.CreateClient(c.Request.Context(), &cl); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "client", cl.ID, nil, cl)
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusCreated, cl)
}

func (h *Handler) APIUpdateClient(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cl, err := h.Store.GetClient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	var in clientInput
	if !bindJSON(c, &in) {
		return
	}
	old := *cl
	old.Cases = nil
	in.apply(cl)
	cl.Cases = nil
	if err := h.Store.UpdateClient(c.Request.Context(), cl); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "update", "client", cl.ID, old, cl)
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusOK, cl)
}

// APIArchiveClient is DELETE /api/clients/:id; the row is kept.
func (h *Handler) APIArchiveClient(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	cl, err := h.Store.ArchiveClient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "archive", "client", cl.ID, nil, gin.H{"status": cl.Status})
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusOK, cl)
}

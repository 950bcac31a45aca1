package handlers

import (
	"net/http"

	"lawdesk/internal/database"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ShowClientDetail(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	ctx := c.Request.Context()

	// cases come preloaded with the client
	client, err := h.Store.GetClient(ctx, id)
	if err != nil {
		renderError(c, err)
		return
	}
	invoices, err := h.Store.ListInvoices(ctx, database.InvoiceFilter{ClientID: id})
	if err != nil {
		renderError(c, err)
		return
	}
	documents, err := h.Store.ListDocuments(ctx, database.DocumentFilter{ClientID: id})
	if err != nil {
		renderError(c, err)
		return
	}

	outstanding := 0.0
	for _, inv := range invoices {
		if inv.Status.Open() {
			outstanding += inv.Balance()
		}
	}

	render(c, http.StatusOK, "client_detail.html", gin.H{
		"client":      client,
		"invoices":    invoices,
		"documents":   documents,
		"outstanding": outstanding,
	})
}

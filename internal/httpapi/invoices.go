package httpapi

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/aurumcart/aurum-backend/internal/domain/invoice"
)

type generateInvoiceRequest struct {
	BillingType   string `json:"billingType"`
	CustomerGSTIN string `json:"customerGSTIN"`
	Notes         string `json:"notes"`
}

func (s *Server) generateInvoice(w http.ResponseWriter, r *http.Request, accountID string) {
	// The body is optional; without one the invoice is billed with GST.
	var req generateInvoiceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID := r.PathValue("orderId")
	o, err := s.orders.Get(r.Context(), orderID)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	if o.AccountID != accountID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	inv, err := s.invoices.Generate(r.Context(), invoice.GenerateRequest{
		OrderID:       orderID,
		BillingType:   invoice.BillingType(req.BillingType),
		CustomerGSTIN: req.CustomerGSTIN,
		Notes:         req.Notes,
	})
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request, accountID string) {
	inv, err := s.invoices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	if inv.AccountID != accountID {
		writeError(w, http.StatusNotFound, invoice.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request, accountID string) {
	invoices, total, err := s.invoices.List(r.Context(), invoice.ListFilter{
		AccountID: accountID,
		Limit:     queryInt(r, "limit", 20),
		Offset:    queryInt(r, "offset", 0),
	})
	if err != nil {
		serveDomainError(w, r, err)
		return
	}

	out := make([]map[string]any, len(invoices))
	for i := range invoices {
		out[i] = toInvoiceResponse(&invoices[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": out, "total": total})
}

func (s *Server) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.invoices.Cancel(r.Context(), r.PathValue("id")); err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": invoice.StatusCancelled})
}

func toInvoiceResponse(inv *invoice.Invoice) map[string]any {
	return map[string]any{
		"id":            inv.ID,
		"invoiceNumber": inv.Number,
		"orderNumber":   inv.OrderHumanID,
		"billingType":   inv.BillingType,
		"seller":        inv.Seller,
		"buyer":         inv.Buyer,
		"items":         inv.Items,
		"taxableAmount": inv.TaxableAmount,
		"cgstRate":      inv.CGSTRate,
		"cgstAmount":    inv.CGSTAmount,
		"sgstRate":      inv.SGSTRate,
		"sgstAmount":    inv.SGSTAmount,
		"shippingFee":   inv.ShippingFee,
		"discount":      inv.Discount,
		"roundOff":      inv.RoundOff,
		"grandTotal":    inv.GrandTotal,
		"amountInWords": inv.AmountInWords,
		"notes":         inv.Notes,
		"status":        inv.Status,
		"issuedAt":      inv.IssuedAt,
	}
}

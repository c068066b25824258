package httpapi

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items,omitempty"`
	VoucherCode   string             `json:"voucherCode,omitempty"`
	PointsToUse   int64              `json:"pointsToUse,omitempty"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	PaymentType   string             `json:"paymentType,omitempty"`
	PartialAmount decimal.Decimal    `json:"partialAmount,omitempty"`
	PlanID        string             `json:"planId,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

type orderResponse struct {
	ID              string                `json:"id"`
	OrderNumber     string                `json:"orderNumber"`
	Items           []order.Item          `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	MakingCharges   decimal.Decimal       `json:"makingCharges"`
	Tax             decimal.Decimal       `json:"tax"`
	ShippingFee     decimal.Decimal       `json:"shippingFee"`
	VoucherCode     string                `json:"voucherCode,omitempty"`
	VoucherDiscount decimal.Decimal       `json:"voucherDiscount"`
	PointsUsed      int64                 `json:"pointsUsed"`
	PointsDiscount  decimal.Decimal       `json:"pointsDiscount"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	Payment         payment.Terms         `json:"payment"`
	GatewayOrderID  string                `json:"gatewayOrderId,omitempty"`
	Status          order.Status          `json:"status"`
	Tracking        []order.TrackingEvent `json:"tracking"`
	CreatedAt       time.Time             `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.HumanID,
		Items:           o.Items,
		Subtotal:        o.Subtotal,
		MakingCharges:   o.MakingCharges,
		Tax:             o.Tax,
		ShippingFee:     o.ShippingFee,
		VoucherCode:     o.VoucherCode,
		VoucherDiscount: o.VoucherDiscount,
		PointsUsed:      o.PointsUsed,
		PointsDiscount:  o.PointsDiscount,
		TotalAmount:     o.TotalAmount,
		Payment:         o.Payment,
		GatewayOrderID:  o.GatewayOrderID,
		Status:          o.Status,
		Tracking:        o.Tracking,
		CreatedAt:       o.CreatedAt,
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, accountID string) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	items := make([]order.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CartItem{ProductID: item.ProductID, Quantity: item.Quantity, Size: item.Size}
	}

	o, err := s.orders.Create(r.Context(), order.CreateRequest{
		AccountID:   accountID,
		Items:       items,
		VoucherCode: req.VoucherCode,
		PointsToUse: req.PointsToUse,
		Payment: payment.Request{
			Method:        payment.Method(req.PaymentMethod),
			Type:          payment.Type(req.PaymentType),
			PartialAmount: req.PartialAmount,
			PlanID:        req.PlanID,
		},
		Notes: req.Notes,
	})
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request, accountID string) {
	orders, total, err := s.orders.List(r.Context(), order.ListFilter{
		AccountID: accountID,
		Status:    order.Status(r.URL.Query().Get("status")),
		Limit:     queryInt(r, "limit", 20),
		Offset:    queryInt(r, "offset", 0),
	})
	if err != nil {
		serveDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out, "total": total})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, accountID string) {
	o, err := s.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	if o.AccountID != accountID {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// trackOrder is public: it exposes only the order's status trail.
func (s *Server) trackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.Track(r.Context(), r.PathValue("humanId"))
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orderNumber": o.HumanID,
		"status":      o.Status,
		"tracking":    o.Tracking,
	})
}

type confirmPaymentRequest struct {
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request, accountID string) {
	var req confirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !s.ownsOrder(w, r, accountID) {
		return
	}
	o, err := s.orders.ConfirmPayment(r.Context(), r.PathValue("id"), req.PaymentID, req.Signature)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type followUpPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) recordFollowUpPayment(w http.ResponseWriter, r *http.Request, accountID string) {
	var req followUpPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !s.ownsOrder(w, r, accountID) {
		return
	}
	o, err := s.orders.RecordFollowUpPayment(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request, accountID string) {
	var req cancelOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !s.ownsOrder(w, r, accountID) {
		return
	}
	cancelled, err := s.orders.Cancel(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(cancelled))
}

// ownsOrder verifies the order in the path belongs to the caller, writing the
// error response itself when it does not.
func (s *Server) ownsOrder(w http.ResponseWriter, r *http.Request, accountID string) bool {
	o, err := s.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serveDomainError(w, r, err)
		return false
	}
	if o.AccountID != accountID {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return false
	}
	return true
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	o, err := s.orders.UpdateStatus(r.Context(), r.PathValue("id"), order.Status(req.Status), req.Note)
	if err != nil {
		serveDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Package httpapi exposes the engine over JSON HTTP. Customer endpoints
// identify the caller via the X-Account-ID header set by the edge proxy;
// admin endpoints require an API key.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/aurumcart/aurum-backend/internal/domain/auth"
	"github.com/aurumcart/aurum-backend/internal/domain/invoice"
	"github.com/aurumcart/aurum-backend/internal/domain/loyalty"
	"github.com/aurumcart/aurum-backend/internal/domain/order"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
	"github.com/aurumcart/aurum-backend/internal/domain/referral"
	"github.com/aurumcart/aurum-backend/internal/domain/settings"
	"github.com/aurumcart/aurum-backend/internal/domain/voucher"
)

// Server holds the handlers' dependencies.
type Server struct {
	orders      *order.Service
	loyalty     *loyalty.Service
	vouchers    *voucher.Evaluator
	referrals   *referral.Service
	invoices    *invoice.Service
	plans       *payment.Resolver
	paySettings payment.SettingsStore
	settings    settings.Store
	verifier    *auth.Verifier
}

// NewServer constructs a Server with the required domain dependencies.
func NewServer(
	orders *order.Service,
	loyaltySvc *loyalty.Service,
	vouchers *voucher.Evaluator,
	referrals *referral.Service,
	invoices *invoice.Service,
	plans *payment.Resolver,
	paySettings payment.SettingsStore,
	st settings.Store,
	verifier *auth.Verifier,
) *Server {
	return &Server{
		orders:      orders,
		loyalty:     loyaltySvc,
		vouchers:    vouchers,
		referrals:   referrals,
		invoices:    invoices,
		plans:       plans,
		paySettings: paySettings,
		settings:    st,
		verifier:    verifier,
	}
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/orders", s.withAccount(s.createOrder))
	mux.HandleFunc("GET /api/orders", s.withAccount(s.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", s.withAccount(s.getOrder))
	mux.HandleFunc("POST /api/orders/{id}/confirm-payment", s.withAccount(s.confirmPayment))
	mux.HandleFunc("POST /api/orders/{id}/payments", s.withAccount(s.recordFollowUpPayment))
	mux.HandleFunc("POST /api/orders/{id}/cancel", s.withAccount(s.cancelOrder))
	mux.HandleFunc("GET /api/orders/track/{humanId}", s.trackOrder)

	mux.HandleFunc("GET /api/payments/emi-plans", s.quoteEMIPlans)

	mux.HandleFunc("GET /api/vouchers", s.listVouchers)
	mux.HandleFunc("POST /api/vouchers/preview", s.previewVoucher)

	mux.HandleFunc("GET /api/loyalty/balance", s.withAccount(s.loyaltyBalance))
	mux.HandleFunc("GET /api/loyalty/history", s.withAccount(s.loyaltyHistory))
	mux.HandleFunc("POST /api/loyalty/calculate", s.withAccount(s.loyaltyCalculate))

	mux.HandleFunc("GET /api/referrals/code", s.withAccount(s.referralCode))
	mux.HandleFunc("GET /api/referrals/validate/{code}", s.validateReferralCode)
	mux.HandleFunc("POST /api/referrals/apply", s.withAccount(s.applyReferralCode))
	mux.HandleFunc("GET /api/referrals", s.withAccount(s.listReferrals))
	mux.HandleFunc("GET /api/referrals/stats", s.withAccount(s.referralStats))

	mux.HandleFunc("GET /api/invoices", s.withAccount(s.listInvoices))
	mux.HandleFunc("GET /api/invoices/{id}", s.withAccount(s.getInvoice))
	mux.HandleFunc("POST /api/invoices/orders/{orderId}", s.withAccount(s.generateInvoice))

	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", s.withAdmin(s.updateOrderStatus))
	mux.HandleFunc("POST /api/admin/loyalty/adjust", s.withAdmin(s.adminAdjustPoints))
	mux.HandleFunc("GET /api/admin/loyalty/stats", s.withAdmin(s.loyaltyStats))
	mux.HandleFunc("POST /api/admin/invoices/{id}/cancel", s.withAdmin(s.cancelInvoice))
	mux.HandleFunc("PUT /api/admin/settings/{key}", s.withAdmin(s.putSetting))
	mux.HandleFunc("PATCH /api/admin/accounts/{id}/payment-settings", s.withAdmin(s.patchPaymentSettings))

	return mux
}

// withAccount requires the caller identity header.
func (s *Server) withAccount(h func(w http.ResponseWriter, r *http.Request, accountID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.Header.Get("X-Account-ID")
		if accountID == "" {
			writeError(w, http.StatusUnauthorized, "account identity required")
			return
		}
		h(w, r, accountID)
	}
}

// withAdmin requires a valid API key with the admin scope.
func (s *Server) withAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "api key required")
			return
		}
		info, err := s.verifier.Authenticate(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !info.HasScope("admin") {
			writeError(w, http.StatusForbidden, "admin scope required")
			return
		}
		h(w, r)
	}
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses the request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// queryInt parses an integer query parameter, defaulting when absent or bad.
func queryInt(r *http.Request, key string, def int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return def
}

// serveDomainError maps a domain error to an HTTP response and logs the
// unexpected ones.
func serveDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		message = "internal error"
	}
	writeError(w, status, message)
}

// Package httpapi is the thin HTTP boundary over the payment services. It
// maps the error taxonomy to status codes and keeps the webhook contract:
// once an event is durably logged, the gateway always gets a 200.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/service"
)

type PaymentEngine interface {
	InitializePayment(ctx context.Context, req *service.InitializeRequest) (*domain.Payment, error)
	VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error)
	ListTransactions(ctx context.Context, reference string) ([]*domain.Transaction, error)
}

type EnrollmentRegistrar interface {
	Enroll(ctx context.Context, req *service.EnrollRequest) (*domain.Enrollment, error)
}

type WebhookProcessor interface {
	HandleEvent(ctx context.Context, provider string, payload []byte, signature string) error
	ListFailures(ctx context.Context, limit int) ([]*domain.WebhookLog, error)
}

type Server struct {
	addr        string
	payments    PaymentEngine
	enrollments EnrollmentRegistrar
	webhooks    WebhookProcessor
}

func NewServer(addr string, payments PaymentEngine, enrollments EnrollmentRegistrar, webhooks WebhookProcessor) *Server {
	return &Server{
		addr:        addr,
		payments:    payments,
		enrollments: enrollments,
		webhooks:    webhooks,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /enrollments", s.handleEnroll)
	mux.HandleFunc("POST /payments", s.handleInitializePayment)
	mux.HandleFunc("GET /payments/{reference}/verify", s.handleVerifyPayment)
	mux.HandleFunc("GET /payments/{reference}/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /webhooks/{provider}", s.handleWebhook)
	mux.HandleFunc("GET /webhooks/failures", s.handleWebhookFailures)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) ListenAndServe() error {
	logrus.WithField("addr", s.addr).Info("http server listening")
	return http.ListenAndServe(s.addr, s.Handler())
}

type enrollRequest struct {
	UserID          string `json:"userId"`
	Skill           string `json:"skill"`
	ScholarshipTier string `json:"scholarshipTier"`
}

type enrollmentResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	Skill           string `json:"skill"`
	ScholarshipTier string `json:"scholarshipTier"`
	BasePrice       int64  `json:"basePrice"`
	FinalPrice      int64  `json:"finalPrice"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId must be a uuid")
		return
	}

	enrollment, err := s.enrollments.Enroll(r.Context(), &service.EnrollRequest{
		UserID:          userID,
		Skill:           req.Skill,
		ScholarshipTier: req.ScholarshipTier,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &enrollmentResponse{
		ID:              enrollment.ID.String(),
		UserID:          enrollment.UserID.String(),
		Skill:           enrollment.Skill,
		ScholarshipTier: enrollment.ScholarshipTier,
		BasePrice:       enrollment.BasePrice,
		FinalPrice:      enrollment.FinalPrice,
	})
}

type initializePaymentRequest struct {
	EnrollmentID  string `json:"enrollmentId"`
	Stage         int    `json:"stage"`
	Amount        int64  `json:"amount"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
}

type paymentResponse struct {
	Reference     string               `json:"reference"`
	Status        domain.PaymentStatus `json:"status"`
	Stage         int                  `json:"stage"`
	Amount        int64                `json:"amount"`
	CheckoutURL   string               `json:"checkoutUrl,omitempty"`
	GatewayRef    string               `json:"gatewayReference,omitempty"`
	PaymentMethod string               `json:"paymentMethod,omitempty"`
	PaidAt        *time.Time           `json:"paidAt,omitempty"`
	ExpiresAt     time.Time            `json:"expiresAt"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
}

func toPaymentResponse(p *domain.Payment) *paymentResponse {
	return &paymentResponse{
		Reference:     p.Reference,
		Status:        p.Status,
		Stage:         p.Stage,
		Amount:        p.Amount,
		CheckoutURL:   p.CheckoutURL,
		GatewayRef:    p.GatewayRef,
		PaymentMethod: p.PaymentMethod,
		PaidAt:        p.PaidAt,
		ExpiresAt:     p.ExpiresAt,
		ErrorMessage:  p.ErrorMessage,
	}
}

func (s *Server) handleInitializePayment(w http.ResponseWriter, r *http.Request) {
	var req initializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	enrollmentID, err := uuid.Parse(req.EnrollmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "enrollmentId must be a uuid")
		return
	}

	payment, err := s.payments.InitializePayment(r.Context(), &service.InitializeRequest{
		EnrollmentID:  enrollmentID,
		Stage:         req.Stage,
		Amount:        req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")
	payment, err := s.payments.VerifyPayment(r.Context(), reference)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

type transactionResponse struct {
	ID         string                   `json:"id"`
	GatewayRef string                   `json:"gatewayReference,omitempty"`
	Amount     int64                    `json:"amount"`
	Status     domain.TransactionStatus `json:"status"`
	Detail     string                   `json:"detail,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")
	txns, err := s.payments.ListTransactions(r.Context(), reference)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res := make([]*transactionResponse, 0, len(txns))
	for _, t := range txns {
		res = append(res, &transactionResponse{
			ID:         t.ID.String(),
			GatewayRef: t.GatewayRef,
			Amount:     t.Amount,
			Status:     t.Status,
			Detail:     t.Detail,
			CreatedAt:  t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read body")
		return
	}

	signature := r.Header.Get(signatureHeader(provider))
	if err := s.webhooks.HandleEvent(r.Context(), provider, payload, signature); err != nil {
		// The event was not durably logged; let the gateway redeliver.
		logrus.Errorf("webhook logging failed: %v", err)
		writeError(w, http.StatusInternalServerError, "event not recorded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func signatureHeader(provider string) string {
	switch provider {
	case "monnify":
		return "x-monnify-signature"
	default:
		return fmt.Sprintf("x-%s-signature", provider)
	}
}

type webhookFailureResponse struct {
	ID             string               `json:"id"`
	Provider       string               `json:"provider"`
	SignatureValid bool                 `json:"signatureValid"`
	Status         domain.WebhookStatus `json:"status"`
	Detail         string               `json:"detail"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func (s *Server) handleWebhookFailures(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := s.webhooks.ListFailures(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res := make([]*webhookFailureResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, &webhookFailureResponse{
			ID:             l.ID.String(),
			Provider:       l.Provider,
			SignatureValid: l.SignatureValid,
			Status:         l.Status,
			Detail:         l.Detail,
			CreatedAt:      l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"alloc":  m.Alloc,
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var (
		vErr  *domain.ValidationError
		nfErr *domain.NotFoundError
		cErr  *domain.ConflictError
		gErr  *domain.GatewayError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &nfErr):
		writeError(w, http.StatusNotFound, nfErr.Error())
	case errors.As(err, &cErr):
		writeError(w, http.StatusConflict, cErr.Error())
	case errors.As(err, &gErr):
		writeError(w, http.StatusBadGateway, gErr.Error())
	default:
		logrus.Errorf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("unable to encode response: %v", err)
	}
}

// Package handler содержит HTTP-обработчики API платформы вознаграждений.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-system/internal/middleware"
	"github.com/mmeshcher/rewards-system/internal/model"
	"github.com/mmeshcher/rewards-system/internal/pricing"
	"github.com/mmeshcher/rewards-system/internal/repository"
	"github.com/mmeshcher/rewards-system/internal/service"
	"github.com/mmeshcher/rewards-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)

	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.PointsTransaction, error)
	AwardAdminPoints(ctx context.Context, userID, points int64, description, awardedBy string) (*model.PointsTransaction, error)

	ProcessRedemption(ctx context.Context, userID, productID, quantity int64) (*service.RedemptionResult, error)
	GetRedemption(ctx context.Context, id uuid.UUID) (*model.Redemption, error)
	GetRedemptionsByUser(ctx context.Context, userID int64) ([]model.Redemption, error)
	ApproveRedemption(ctx context.Context, id uuid.UUID, approverID string) (*model.Redemption, error)
	RejectRedemption(ctx context.Context, id uuid.UUID, reason string) (*model.Redemption, error)
	CancelRedemption(ctx context.Context, id uuid.UUID, reason string) (*model.Redemption, error)
	DeliverRedemption(ctx context.Context, id uuid.UUID, delivererID string) (*model.Redemption, error)

	GetInventory(ctx context.Context, productID int64) (*model.InventoryItem, error)
	AddStock(ctx context.Context, productID, quantity, reorderLevel int64) (*model.InventoryItem, error)

	RegisterParticipant(ctx context.Context, eventID, userID int64) (*model.EventParticipant, error)
	CheckInParticipant(ctx context.Context, id uuid.UUID) (*model.EventParticipant, error)
	AwardEventPoints(ctx context.Context, id uuid.UUID, points int64, rank *int, awardedBy string) (*model.EventParticipant, error)
	RevokeEventPoints(ctx context.Context, id uuid.UUID, revokedBy string) (*model.EventParticipant, error)
}

// Handler реализует HTTP-обработчики API платформы вознаграждений.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeBusinessError отображает бизнес-ошибки сервиса в HTTP-статусы.
// Текст ошибки содержит нарушенное правило и конкретные числа.
func (h *Handler) writeBusinessError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrInsufficientBalance),
		errors.Is(err, model.ErrBudgetExceeded):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, model.ErrInsufficientInventory),
		errors.Is(err, model.ErrInvalidStateTransition),
		errors.Is(err, model.ErrDuplicatePointsAward),
		errors.Is(err, model.ErrInvalidOperation),
		errors.Is(err, service.ErrDuplicateRedemption),
		errors.Is(err, repository.ErrParticipantExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrInventoryNotFound),
		errors.Is(err, repository.ErrRedemptionNotFound),
		errors.Is(err, repository.ErrParticipantNotFound),
		errors.Is(err, pricing.ErrProductNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.logger.Error("get balance error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

type transactionResponse struct {
	ID           string `json:"id"`
	Points       int64  `json:"points"`
	Category     string `json:"category"`
	Origin       string `json:"origin"`
	SourceID     string `json:"source_id,omitempty"`
	Description  string `json:"description,omitempty"`
	BalanceAfter int64  `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

func toTransactionResponse(t *model.PointsTransaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID.String(),
		Points:       t.Points,
		Category:     string(t.Category),
		Origin:       string(t.Origin),
		SourceID:     t.SourceID,
		Description:  t.Description,
		BalanceAfter: t.BalanceAfter,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

// GetTransactions возвращает журнал операций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	txs, err := h.service.GetTransactionsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get transactions error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		resp = append(resp, toTransactionResponse(&txs[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type redemptionRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type redemptionResponse struct {
	ID              string  `json:"id"`
	ProductID       int64   `json:"product_id"`
	PointsSpent     int64   `json:"points_spent"`
	Quantity        int64   `json:"quantity"`
	Status          string  `json:"status"`
	RequestedAt     string  `json:"requested_at"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	DeliveredAt     *string `json:"delivered_at,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

func toRedemptionResponse(red *model.Redemption) redemptionResponse {
	resp := redemptionResponse{
		ID:              red.ID.String(),
		ProductID:       red.ProductID,
		PointsSpent:     red.PointsSpent,
		Quantity:        red.Quantity,
		Status:          string(red.Status),
		RequestedAt:     red.RequestedAt.Format(time.RFC3339),
		RejectionReason: red.RejectionReason,
	}
	if red.ApprovedAt != nil {
		v := red.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	if red.DeliveredAt != nil {
		v := red.DeliveredAt.Format(time.RFC3339)
		resp.DeliveredAt = &v
	}
	return resp
}

// CreateRedemption принимает заявку на обмен баллов от текущего пользователя.
func (h *Handler) CreateRedemption(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidID(req.ProductID) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if !validation.IsValidQuantity(req.Quantity) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	res, err := h.service.ProcessRedemption(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("process redemption error", zap.Error(err),
			zap.Int64("userID", userID), zap.Int64("productID", req.ProductID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		Redemption  redemptionResponse  `json:"redemption"`
		Transaction transactionResponse `json:"transaction"`
	}{
		Redemption:  toRedemptionResponse(res.Redemption),
		Transaction: toTransactionResponse(res.Transaction),
	})
}

// GetRedemptions возвращает заявки текущего пользователя.
func (h *Handler) GetRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	reds, err := h.service.GetRedemptionsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get redemptions error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(reds) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]redemptionResponse, 0, len(reds))
	for i := range reds {
		resp = append(resp, toRedemptionResponse(&reds[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func redemptionIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CancelRedemption отменяет заявку текущего пользователя.
func (h *Handler) CancelRedemption(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := redemptionIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		req.Reason = "cancelled by user"
	}

	red, err := h.service.GetRedemption(r.Context(), id)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("get redemption error", zap.Error(err), zap.String("redemptionID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if red.UserID != userID {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	red, err = h.service.CancelRedemption(r.Context(), id, req.Reason)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("cancel redemption error", zap.Error(err), zap.String("redemptionID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toRedemptionResponse(red))
}

// adminActor возвращает строковый идентификатор администратора из контекста запроса.
func adminActor(r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return "", false
	}
	return strconv.FormatInt(userID, 10), true
}

// ApproveRedemption подтверждает заявку администратором.
func (h *Handler) ApproveRedemption(w http.ResponseWriter, r *http.Request) {
	actor, ok := adminActor(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := redemptionIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	red, err := h.service.ApproveRedemption(r.Context(), id, actor)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("approve redemption error", zap.Error(err), zap.String("redemptionID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toRedemptionResponse(red))
}

// RejectRedemption отклоняет заявку администратором.
func (h *Handler) RejectRedemption(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminActor(r); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := redemptionIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	red, err := h.service.RejectRedemption(r.Context(), id, req.Reason)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("reject redemption error", zap.Error(err), zap.String("redemptionID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toRedemptionResponse(red))
}

// DeliverRedemption отмечает выдачу товара по подтверждённой заявке.
func (h *Handler) DeliverRedemption(w http.ResponseWriter, r *http.Request) {
	actor, ok := adminActor(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := redemptionIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	red, err := h.service.DeliverRedemption(r.Context(), id, actor)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("deliver redemption error", zap.Error(err), zap.String("redemptionID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toRedemptionResponse(red))
}

type adminAwardRequest struct {
	UserID      int64  `json:"user_id"`
	Points      int64  `json:"points"`
	Description string `json:"description"`
}

// AwardPoints начисляет пользователю баллы по решению администратора.
func (h *Handler) AwardPoints(w http.ResponseWriter, r *http.Request) {
	actor, ok := adminActor(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req adminAwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidID(req.UserID) || req.Points <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	tx, err := h.service.AwardAdminPoints(r.Context(), req.UserID, req.Points, req.Description, actor)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("admin award error", zap.Error(err), zap.Int64("userID", req.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

type inventoryResponse struct {
	ProductID         int64  `json:"product_id"`
	QuantityAvailable int64  `json:"quantity_available"`
	QuantityReserved  int64  `json:"quantity_reserved"`
	ReorderLevel      int64  `json:"reorder_level"`
	LastUpdated       string `json:"last_updated"`
}

func toInventoryResponse(item *model.InventoryItem) inventoryResponse {
	return inventoryResponse{
		ProductID:         item.ProductID,
		QuantityAvailable: item.QuantityAvailable,
		QuantityReserved:  item.QuantityReserved,
		ReorderLevel:      item.ReorderLevel,
		LastUpdated:       item.LastUpdated.Format(time.RFC3339),
	}
}

func productIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	return id, err == nil && id > 0
}

// GetInventory возвращает позицию склада для товара.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminActor(r); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID, ok := productIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	item, err := h.service.GetInventory(r.Context(), productID)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("get inventory error", zap.Error(err), zap.Int64("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toInventoryResponse(item))
}

type addStockRequest struct {
	Quantity     int64 `json:"quantity"`
	ReorderLevel int64 `json:"reorder_level"`
}

// AddStock пополняет остаток товара на складе.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminActor(r); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	productID, ok := productIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	item, err := h.service.AddStock(r.Context(), productID, req.Quantity, req.ReorderLevel)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("add stock error", zap.Error(err), zap.Int64("productID", productID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toInventoryResponse(item))
}

type participantResponse struct {
	ID            string  `json:"id"`
	EventID       int64   `json:"event_id"`
	UserID        int64   `json:"user_id"`
	Status        string  `json:"status"`
	PointsAwarded *int64  `json:"points_awarded,omitempty"`
	EventRank     *int    `json:"event_rank,omitempty"`
	RegisteredAt  string  `json:"registered_at"`
	CheckedInAt   *string `json:"checked_in_at,omitempty"`
	AwardedAt     *string `json:"awarded_at,omitempty"`
	AwardedBy     *string `json:"awarded_by,omitempty"`
}

func toParticipantResponse(p *model.EventParticipant) participantResponse {
	resp := participantResponse{
		ID:            p.ID.String(),
		EventID:       p.EventID,
		UserID:        p.UserID,
		Status:        string(p.Status),
		PointsAwarded: p.PointsAwarded,
		EventRank:     p.EventRank,
		RegisteredAt:  p.RegisteredAt.Format(time.RFC3339),
		AwardedBy:     p.AwardedBy,
	}
	if p.CheckedInAt != nil {
		v := p.CheckedInAt.Format(time.RFC3339)
		resp.CheckedInAt = &v
	}
	if p.AwardedAt != nil {
		v := p.AwardedAt.Format(time.RFC3339)
		resp.AwardedAt = &v
	}
	return resp
}

type registerParticipantRequest struct {
	UserID int64 `json:"user_id"`
}

// RegisterParticipant регистрирует пользователя на событие.
func (h *Handler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminActor(r); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil || !validation.IsValidID(eventID) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req registerParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validation.IsValidID(req.UserID) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.RegisterParticipant(r.Context(), eventID, req.UserID)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("register participant error", zap.Error(err),
			zap.Int64("eventID", eventID), zap.Int64("userID", req.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toParticipantResponse(p))
}

func participantIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// CheckInParticipant отмечает прибытие участника на событие.
func (h *Handler) CheckInParticipant(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminActor(r); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := participantIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.CheckInParticipant(r.Context(), id)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("check-in participant error", zap.Error(err), zap.String("participantID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toParticipantResponse(p))
}

type awardEventRequest struct {
	Points int64 `json:"points"`
	Rank   *int  `json:"rank,omitempty"`
}

// AwardEventPoints начисляет участнику баллы за событие.
func (h *Handler) AwardEventPoints(w http.ResponseWriter, r *http.Request) {
	actor, ok := adminActor(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := participantIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req awardEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidAwardPoints(req.Points) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Rank != nil && !validation.IsValidRank(*req.Rank) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.AwardEventPoints(r.Context(), id, req.Points, req.Rank, actor)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("award event points error", zap.Error(err), zap.String("participantID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toParticipantResponse(p))
}

// RevokeEventPoints снимает ранее начисленные за событие баллы.
func (h *Handler) RevokeEventPoints(w http.ResponseWriter, r *http.Request) {
	actor, ok := adminActor(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := participantIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.RevokeEventPoints(r.Context(), id, actor)
	if err != nil {
		if h.writeBusinessError(w, err) {
			return
		}
		h.logger.Error("revoke event points error", zap.Error(err), zap.String("participantID", id.String()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toParticipantResponse(p))
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-system/internal/middleware"
	"github.com/mmeshcher/rewards-system/internal/model"
	"github.com/mmeshcher/rewards-system/internal/repository"
	"github.com/mmeshcher/rewards-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUserID int64
	authErr    error

	balanceResp *model.Balance
	balanceErr  error

	transactionsResp []model.PointsTransaction
	transactionsErr  error

	adminAwardResp *model.PointsTransaction
	adminAwardErr  error

	redemptionResp *service.RedemptionResult
	redemptionErr  error

	getRedemptionResp *model.Redemption
	getRedemptionErr  error

	redemptionsResp []model.Redemption
	redemptionsErr  error

	approveResp *model.Redemption
	approveErr  error

	rejectResp *model.Redemption
	rejectErr  error

	cancelResp *model.Redemption
	cancelErr  error

	deliverResp *model.Redemption
	deliverErr  error

	inventoryResp *model.InventoryItem
	inventoryErr  error

	addStockResp *model.InventoryItem
	addStockErr  error

	participantResp *model.EventParticipant
	participantErr  error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	return s.authUserID, s.authErr
}

func (s *stubService) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	return s.balanceResp, s.balanceErr
}

func (s *stubService) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.PointsTransaction, error) {
	return s.transactionsResp, s.transactionsErr
}

func (s *stubService) AwardAdminPoints(ctx context.Context, userID, points int64, description, awardedBy string) (*model.PointsTransaction, error) {
	return s.adminAwardResp, s.adminAwardErr
}

func (s *stubService) ProcessRedemption(ctx context.Context, userID, productID, quantity int64) (*service.RedemptionResult, error) {
	return s.redemptionResp, s.redemptionErr
}

func (s *stubService) GetRedemption(ctx context.Context, id uuid.UUID) (*model.Redemption, error) {
	return s.getRedemptionResp, s.getRedemptionErr
}

func (s *stubService) GetRedemptionsByUser(ctx context.Context, userID int64) ([]model.Redemption, error) {
	return s.redemptionsResp, s.redemptionsErr
}

func (s *stubService) ApproveRedemption(ctx context.Context, id uuid.UUID, approverID string) (*model.Redemption, error) {
	return s.approveResp, s.approveErr
}

func (s *stubService) RejectRedemption(ctx context.Context, id uuid.UUID, reason string) (*model.Redemption, error) {
	return s.rejectResp, s.rejectErr
}

func (s *stubService) CancelRedemption(ctx context.Context, id uuid.UUID, reason string) (*model.Redemption, error) {
	return s.cancelResp, s.cancelErr
}

func (s *stubService) DeliverRedemption(ctx context.Context, id uuid.UUID, delivererID string) (*model.Redemption, error) {
	return s.deliverResp, s.deliverErr
}

func (s *stubService) GetInventory(ctx context.Context, productID int64) (*model.InventoryItem, error) {
	return s.inventoryResp, s.inventoryErr
}

func (s *stubService) AddStock(ctx context.Context, productID, quantity, reorderLevel int64) (*model.InventoryItem, error) {
	return s.addStockResp, s.addStockErr
}

func (s *stubService) RegisterParticipant(ctx context.Context, eventID, userID int64) (*model.EventParticipant, error) {
	return s.participantResp, s.participantErr
}

func (s *stubService) CheckInParticipant(ctx context.Context, id uuid.UUID) (*model.EventParticipant, error) {
	return s.participantResp, s.participantErr
}

func (s *stubService) AwardEventPoints(ctx context.Context, id uuid.UUID, points int64, rank *int, awardedBy string) (*model.EventParticipant, error) {
	return s.participantResp, s.participantErr
}

func (s *stubService) RevokeEventPoints(ctx context.Context, id uuid.UUID, revokedBy string) (*model.EventParticipant, error) {
	return s.participantResp, s.participantErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// authedRequest снабжает запрос валидным cookie авторизации пользователя.
func authedRequest(h *Handler, req *http.Request, userID int64) *http.Request {
	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, userID)
	req.AddCookie(rec.Result().Cookies()[0])
	return req
}

func serveAuthed(h *Handler, handlerFn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.authMiddleware.Middleware(handlerFn).ServeHTTP(rec, req)
	return rec
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("expected auth cookie to be set")
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLogin_UnauthorizedOnError(t *testing.T) {
	svc := &stubService{
		authErr: context.DeadlineExceeded,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGetBalance_JSONResponse(t *testing.T) {
	svc := &stubService{
		balanceResp: &model.Balance{Current: 400, Pending: 600, TotalEarned: 1000, TotalRedeemed: 600},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/user/balance", nil)
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.GetBalance, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var got model.Balance
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Current != 400 || got.Pending != 600 {
		t.Fatalf("unexpected balance: %+v", got)
	}
}

func TestGetBalance_Unauthorized(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/balance", nil)
	rec := serveAuthed(h, h.GetBalance, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGetTransactions_NoContent(t *testing.T) {
	svc := &stubService{
		transactionsResp: []model.PointsTransaction{},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/user/transactions", nil)
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.GetTransactions, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestCreateRedemption_Created(t *testing.T) {
	red, err := model.NewRedemption(1, 7, 600, 2)
	if err != nil {
		t.Fatalf("NewRedemption error: %v", err)
	}
	tx, err := model.NewPointsTransaction(1, 600,
		model.TransactionCategoryRedeemed, model.TransactionOriginRedemption, red.ID.String(), "", 400)
	if err != nil {
		t.Fatalf("NewPointsTransaction error: %v", err)
	}

	svc := &stubService{
		redemptionResp: &service.RedemptionResult{Redemption: red, Transaction: tx},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(redemptionRequest{ProductID: 7, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/user/redemptions", bytes.NewReader(body))
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.CreateRedemption, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestCreateRedemption_PaymentRequired(t *testing.T) {
	svc := &stubService{
		redemptionErr: &model.InsufficientBalanceError{Required: 600, Available: 100},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(redemptionRequest{ProductID: 7, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/user/redemptions", bytes.NewReader(body))
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.CreateRedemption, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusPaymentRequired)
	}
}

func TestCreateRedemption_QuantityRejected(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(redemptionRequest{ProductID: 7, Quantity: 11})
	req := httptest.NewRequest(http.MethodPost, "/api/user/redemptions", bytes.NewReader(body))
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.CreateRedemption, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

// withURLParam добавляет параметр маршрута chi в контекст запроса.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCancelRedemption_ForbiddenForOtherUser(t *testing.T) {
	red, err := model.NewRedemption(2, 7, 600, 2)
	if err != nil {
		t.Fatalf("NewRedemption error: %v", err)
	}

	svc := &stubService{
		getRedemptionResp: red,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/user/redemptions/"+red.ID.String()+"/cancel", nil)
	req = withURLParam(req, "id", red.ID.String())
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.CancelRedemption, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestApproveRedemption_ConflictOnBadState(t *testing.T) {
	svc := &stubService{
		approveErr: &model.InvalidStateTransitionError{Current: "CANCELLED", Expected: "PENDING"},
	}
	h := newTestHandler(t, svc)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/redemptions/"+id.String()+"/approve", nil)
	req = withURLParam(req, "id", id.String())
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.ApproveRedemption, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRejectRedemption_ReasonRequired(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	id := uuid.New()
	body, _ := json.Marshal(reasonRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/redemptions/"+id.String()+"/reject", bytes.NewReader(body))
	req = withURLParam(req, "id", id.String())
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.RejectRedemption, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAwardEventPoints_ConflictOnDuplicate(t *testing.T) {
	svc := &stubService{
		participantErr: model.ErrDuplicatePointsAward,
	}
	h := newTestHandler(t, svc)

	id := uuid.New()
	body, _ := json.Marshal(awardEventRequest{Points: 100})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/participants/"+id.String()+"/award", bytes.NewReader(body))
	req = withURLParam(req, "id", id.String())
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.AwardEventPoints, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestAwardEventPoints_BudgetExceeded(t *testing.T) {
	svc := &stubService{
		participantErr: &model.BudgetExceededError{Requested: 600, Remaining: 400},
	}
	h := newTestHandler(t, svc)

	id := uuid.New()
	body, _ := json.Marshal(awardEventRequest{Points: 600})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/participants/"+id.String()+"/award", bytes.NewReader(body))
	req = withURLParam(req, "id", id.String())
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.AwardEventPoints, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusPaymentRequired)
	}
}

func TestGetInventory_NotFound(t *testing.T) {
	svc := &stubService{
		inventoryErr: repository.ErrInventoryNotFound,
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/inventory/7", nil)
	req = withURLParam(req, "productID", "7")
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.GetInventory, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterParticipant_Created(t *testing.T) {
	svc := &stubService{
		participantResp: model.NewEventParticipant(10, 1),
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(registerParticipantRequest{UserID: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/events/10/participants", bytes.NewReader(body))
	req = withURLParam(req, "eventID", "10")
	req = authedRequest(h, req, 1)

	rec := serveAuthed(h, h.RegisterParticipant, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

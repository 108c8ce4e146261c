package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-system/internal/model"
	"github.com/mmeshcher/rewards-system/internal/repository"
)

type fixedPrice struct {
	cost int64
	err  error
}

func (f *fixedPrice) GetCurrentUnitCost(ctx context.Context, productID int64) (int64, error) {
	return f.cost, f.err
}

func newTestService(t *testing.T, unitCost int64) (*Service, *repository.MemoryRepository) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	budget := BudgetConfig{MonthlyLimit: 1000, WarningPercent: 80, HardLimit: true}

	return NewService(repo, &fixedPrice{cost: unitCost}, budget, zap.NewNop()), repo
}

func registerUser(t *testing.T, svc *Service, login string) int64 {
	t.Helper()

	id, err := svc.RegisterUser(context.Background(), login, "pass")
	if err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}
	return id
}

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	svc, _ := newTestService(t, 100)

	registerUser(t, svc, "alice")

	_, err := svc.RegisterUser(context.Background(), "alice", "pass")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t, 100)

	registerUser(t, svc, "alice")

	if _, err := svc.AuthenticateUser(context.Background(), "alice", "wrong"); err == nil {
		t.Fatalf("expected error for invalid credentials")
	}

	id, err := svc.AuthenticateUser(context.Background(), "alice", "pass")
	if err != nil {
		t.Fatalf("AuthenticateUser error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero user id")
	}
}

func TestAwardAdminPoints(t *testing.T) {
	svc, repo := newTestService(t, 100)
	ctx := context.Background()

	userID := registerUser(t, svc, "alice")

	tx, err := svc.AwardAdminPoints(ctx, userID, 1000, "welcome bonus", "admin-1")
	if err != nil {
		t.Fatalf("AwardAdminPoints error: %v", err)
	}
	if tx.Category != model.TransactionCategoryEarned || tx.Origin != model.TransactionOriginAdminAward {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.BalanceAfter != 1000 {
		t.Fatalf("balance after = %d, want 1000", tx.BalanceAfter)
	}

	acc, err := repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreateAccount error: %v", err)
	}
	if acc.CurrentBalance != 1000 || acc.TotalEarned != 1000 {
		t.Fatalf("account after award: %+v", acc)
	}
}

func TestAwardAdminPoints_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, 100)

	_, err := svc.AwardAdminPoints(context.Background(), 999, 100, "", "admin")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAddStock_CreatesAndAccumulates(t *testing.T) {
	svc, _ := newTestService(t, 100)
	ctx := context.Background()

	item, err := svc.AddStock(ctx, 7, 5, 2)
	if err != nil {
		t.Fatalf("AddStock error: %v", err)
	}
	if item.QuantityAvailable != 5 || item.ReorderLevel != 2 {
		t.Fatalf("new item: %+v", item)
	}

	item, err = svc.AddStock(ctx, 7, 3, 0)
	if err != nil {
		t.Fatalf("AddStock error: %v", err)
	}
	if item.QuantityAvailable != 8 {
		t.Fatalf("accumulated quantity = %d, want 8", item.QuantityAvailable)
	}
	// Порог дозаказа существующей позиции не перезаписывается.
	if item.ReorderLevel != 2 {
		t.Fatalf("reorder level = %d, want 2", item.ReorderLevel)
	}
}

func TestGetBalance_LazyAccount(t *testing.T) {
	svc, _ := newTestService(t, 100)

	balance, err := svc.GetBalance(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if balance.Current != 0 || balance.Pending != 0 {
		t.Fatalf("fresh balance: %+v", balance)
	}
}

func TestCheckReorderLevels_NoPanic(t *testing.T) {
	svc, repo := newTestService(t, 100)
	ctx := context.Background()

	low, err := model.NewInventoryItem(1, 1, 5)
	if err != nil {
		t.Fatalf("NewInventoryItem error: %v", err)
	}
	if err := repo.SaveInventory(ctx, low); err != nil {
		t.Fatalf("SaveInventory error: %v", err)
	}

	svc.checkReorderLevels(ctx)
}

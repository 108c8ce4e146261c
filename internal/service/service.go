// Package service реализует бизнес-логику платформы вознаграждений.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-system/internal/model"
	"github.com/mmeshcher/rewards-system/internal/repository"
)

// ErrDuplicateRedemption возвращается, если у пользователя уже есть
// необработанная заявка на тот же товар.
var ErrDuplicateRedemption = errors.New("pending redemption already exists for this product")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	UserExists(ctx context.Context, userID int64) (bool, error)

	GetOrCreateAccount(ctx context.Context, userID int64) (*model.PointsAccount, error)
	SaveAccount(ctx context.Context, acc *model.PointsAccount) error

	AddTransaction(ctx context.Context, tx *model.PointsTransaction) error
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.PointsTransaction, error)

	GetInventory(ctx context.Context, productID int64) (*model.InventoryItem, error)
	SaveInventory(ctx context.Context, item *model.InventoryItem) error
	ListInventoryBelowReorder(ctx context.Context) ([]model.InventoryItem, error)

	CreateRedemption(ctx context.Context, red *model.Redemption) error
	GetRedemption(ctx context.Context, id uuid.UUID) (*model.Redemption, error)
	UpdateRedemption(ctx context.Context, red *model.Redemption) error
	GetRedemptionsByUser(ctx context.Context, userID int64) ([]model.Redemption, error)
	HasPendingRedemption(ctx context.Context, userID, productID int64) (bool, error)

	CreateParticipant(ctx context.Context, p *model.EventParticipant) error
	GetParticipant(ctx context.Context, id uuid.UUID) (*model.EventParticipant, error)
	UpdateParticipant(ctx context.Context, p *model.EventParticipant) error
	SumAwardedPointsForMonth(ctx context.Context, awardedBy string, year int, month time.Month) (int64, error)
}

// PriceProvider описывает контракт получения стоимости товара в баллах.
type PriceProvider interface {
	GetCurrentUnitCost(ctx context.Context, productID int64) (int64, error)
}

// BudgetConfig задаёт месячный бюджет начислений одного администратора.
type BudgetConfig struct {
	MonthlyLimit   int64
	WarningPercent int
	HardLimit      bool
}

// Service содержит бизнес-логику платформы вознаграждений.
type Service struct {
	repo    Repository
	pricing PriceProvider
	budget  BudgetConfig
	logger  *zap.Logger

	// Пер-ключевые блокировки сериализуют саги по пользователю и товару,
	// а начисления за мероприятия — дополнительно по администратору.
	userLocks    *keyedMutex[int64]
	productLocks *keyedMutex[int64]
	adminLocks   *keyedMutex[string]
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом системы ценообразования.
func NewService(repo Repository, pricing PriceProvider, budget BudgetConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:         repo,
		pricing:      pricing,
		budget:       budget,
		logger:       logger,
		userLocks:    newKeyedMutex[int64](),
		productLocks: newKeyedMutex[int64](),
		adminLocks:   newKeyedMutex[string](),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// GetBalance возвращает баланс пользователя в виде структуры model.Balance.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	acc, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Balance{
		Current:       acc.CurrentBalance,
		Pending:       acc.PendingPoints,
		TotalEarned:   acc.TotalEarned,
		TotalRedeemed: acc.TotalRedeemed,
	}, nil
}

// GetTransactionsByUser возвращает журнал операций пользователя.
func (s *Service) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.PointsTransaction, error) {
	return s.repo.GetTransactionsByUser(ctx, userID)
}

// GetRedemption возвращает заявку на обмен по идентификатору.
func (s *Service) GetRedemption(ctx context.Context, id uuid.UUID) (*model.Redemption, error) {
	return s.repo.GetRedemption(ctx, id)
}

// GetRedemptionsByUser возвращает заявки пользователя на обмен.
func (s *Service) GetRedemptionsByUser(ctx context.Context, userID int64) ([]model.Redemption, error) {
	return s.repo.GetRedemptionsByUser(ctx, userID)
}

// GetInventory возвращает позицию склада для товара.
func (s *Service) GetInventory(ctx context.Context, productID int64) (*model.InventoryItem, error) {
	return s.repo.GetInventory(ctx, productID)
}

// AddStock пополняет остаток товара, создавая позицию склада при отсутствии.
func (s *Service) AddStock(ctx context.Context, productID, quantity, reorderLevel int64) (*model.InventoryItem, error) {
	s.productLocks.Lock(productID)
	defer s.productLocks.Unlock(productID)

	item, err := s.repo.GetInventory(ctx, productID)
	if errors.Is(err, repository.ErrInventoryNotFound) {
		item, err = model.NewInventoryItem(productID, 0, reorderLevel)
	}
	if err != nil {
		return nil, err
	}

	if err := item.AddStock(quantity); err != nil {
		return nil, err
	}

	if err := s.repo.SaveInventory(ctx, item); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}

	return item, nil
}

// AwardAdminPoints начисляет пользователю баллы по решению администратора.
func (s *Service) AwardAdminPoints(ctx context.Context, userID, points int64, description, awardedBy string) (*model.PointsTransaction, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, repository.ErrUserNotFound
	}

	s.userLocks.Lock(userID)
	defer s.userLocks.Unlock(userID)

	acc, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := acc.Credit(points); err != nil {
		return nil, err
	}
	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	tx, err := model.NewPointsTransaction(userID, points,
		model.TransactionCategoryEarned, model.TransactionOriginAdminAward,
		awardedBy, description, acc.CurrentBalance)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	return tx, nil
}

// refundDebit отменяет ранее выполненное списание: баланс возвращается,
// сумма списаний уменьшается, сумма начислений не меняется.
func refundDebit(acc *model.PointsAccount, points int64) error {
	if err := acc.AddPending(points); err != nil {
		return err
	}
	return acc.CancelPending(points)
}

// StartReorderWatch запускает фоновый процесс контроля остатков склада.
// Позиции, достигшие порога дозаказа, попадают в журнал предупреждений.
func (s *Service) StartReorderWatch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.checkReorderLevels(ctx)
			}
		}
	}()
}

func (s *Service) checkReorderLevels(ctx context.Context) {
	items, err := s.repo.ListInventoryBelowReorder(ctx)
	if err != nil {
		return
	}

	for _, item := range items {
		s.logger.Warn("inventory at or below reorder level",
			zap.Int64("productID", item.ProductID),
			zap.Int64("available", item.QuantityAvailable),
			zap.Int64("reserved", item.QuantityReserved),
			zap.Int64("reorderLevel", item.ReorderLevel),
		)
	}
}

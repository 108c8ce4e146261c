package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-system/internal/model"
	"github.com/mmeshcher/rewards-system/internal/repository"
)

// RedemptionResult содержит заявку и запись журнала, созданные сагой обмена.
type RedemptionResult struct {
	Redemption  *model.Redemption
	Transaction *model.PointsTransaction
}

// ProcessRedemption выполняет сагу обмена баллов на товар: проверяет баланс и
// остаток, резервирует товар, списывает баллы и создаёт заявку со статусом
// PENDING. При сбое любого шага уже выполненные шаги откатываются в обратном
// порядке, после чего ошибка возвращается вызывающему.
func (s *Service) ProcessRedemption(ctx context.Context, userID, productID, quantity int64) (*RedemptionResult, error) {
	if quantity < model.MinRedemptionQuantity || quantity > model.MaxRedemptionQuantity {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidQuantity, quantity)
	}

	// Порядок блокировок фиксирован: пользователь, затем товар.
	s.userLocks.Lock(userID)
	defer s.userLocks.Unlock(userID)
	s.productLocks.Lock(productID)
	defer s.productLocks.Unlock(productID)

	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, repository.ErrUserNotFound
	}

	hasPending, err := s.repo.HasPendingRedemption(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("check pending redemption: %w", err)
	}
	if hasPending {
		return nil, ErrDuplicateRedemption
	}

	if s.pricing == nil {
		return nil, errors.New("pricing system is not configured")
	}

	unitCost, err := s.pricing.GetCurrentUnitCost(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get unit cost: %w", err)
	}
	totalCost := unitCost * quantity

	acc, err := s.repo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.CurrentBalance < totalCost {
		return nil, &model.InsufficientBalanceError{Required: totalCost, Available: acc.CurrentBalance}
	}

	item, err := s.repo.GetInventory(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !item.HasAvailableStock(quantity) || quantity > item.QuantityAvailable-item.QuantityReserved {
		return nil, &model.InsufficientInventoryError{Requested: quantity, Available: item.QuantityAvailable}
	}

	// Компенсирующие действия выполняются в обратном порядке при сбое
	// любого последующего шага.
	var undo []func() error
	compensate := func(cause error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if cerr := undo[i](); cerr != nil {
				s.logger.Error("redemption saga compensation failed",
					zap.Error(cerr),
					zap.Int64("userID", userID),
					zap.Int64("productID", productID),
				)
			}
		}
		return cause
	}

	// Шаг 1: резерв товара.
	if err := item.ReserveStock(quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SaveInventory(ctx, item); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}
	undo = append(undo, func() error {
		if err := item.ReleaseReservation(quantity); err != nil {
			return err
		}
		return s.repo.SaveInventory(ctx, item)
	})

	// Шаг 2: списание баланса с пометкой расхода как ожидающего подтверждения.
	if err := acc.Debit(totalCost); err != nil {
		return nil, compensate(err)
	}
	if err := acc.AddPending(totalCost); err != nil {
		return nil, compensate(err)
	}
	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, compensate(fmt.Errorf("save account: %w", err))
	}
	undo = append(undo, func() error {
		if err := acc.CancelPending(totalCost); err != nil {
			return err
		}
		return s.repo.SaveAccount(ctx, acc)
	})

	// Шаг 3: создание заявки.
	red, err := model.NewRedemption(userID, productID, totalCost, quantity)
	if err != nil {
		return nil, compensate(err)
	}
	if err := s.repo.CreateRedemption(ctx, red); err != nil {
		return nil, compensate(fmt.Errorf("create redemption: %w", err))
	}
	undo = append(undo, func() error {
		if err := red.Cancel("redemption saga aborted"); err != nil {
			return err
		}
		return s.repo.UpdateRedemption(ctx, red)
	})

	// Шаг 4: запись в журнал операций.
	tx, err := model.NewPointsTransaction(userID, totalCost,
		model.TransactionCategoryRedeemed, model.TransactionOriginRedemption,
		red.ID.String(), fmt.Sprintf("redemption of product %d, quantity %d", productID, quantity),
		acc.CurrentBalance)
	if err != nil {
		return nil, compensate(err)
	}
	if err := s.repo.AddTransaction(ctx, tx); err != nil {
		return nil, compensate(fmt.Errorf("add transaction: %w", err))
	}

	return &RedemptionResult{Redemption: red, Transaction: tx}, nil
}

// lockRedemption загружает заявку и захватывает блокировки её пользователя и
// товара. Возвращённая функция освобождает блокировки; заявка перечитывается
// уже под ними.
func (s *Service) lockRedemption(ctx context.Context, id uuid.UUID) (*model.Redemption, func(), error) {
	red, err := s.repo.GetRedemption(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	userID, productID := red.UserID, red.ProductID
	s.userLocks.Lock(userID)
	s.productLocks.Lock(productID)
	unlock := func() {
		s.productLocks.Unlock(productID)
		s.userLocks.Unlock(userID)
	}

	red, err = s.repo.GetRedemption(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}

	return red, unlock, nil
}

// ApproveRedemption подтверждает заявку: ожидающие баллы считаются
// израсходованными, баланс остаётся уменьшенным.
func (s *Service) ApproveRedemption(ctx context.Context, id uuid.UUID, approverID string) (*model.Redemption, error) {
	red, unlock, err := s.lockRedemption(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := red.Approve(approverID); err != nil {
		return nil, err
	}

	acc, err := s.repo.GetOrCreateAccount(ctx, red.UserID)
	if err != nil {
		return nil, err
	}
	if err := acc.ReleasePending(red.PointsSpent); err != nil {
		return nil, err
	}
	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	if err := s.repo.UpdateRedemption(ctx, red); err != nil {
		cerr := acc.AddPending(red.PointsSpent)
		if cerr == nil {
			cerr = s.repo.SaveAccount(ctx, acc)
		}
		if cerr != nil {
			s.logger.Error("approve compensation failed", zap.Error(cerr), zap.String("redemptionID", id.String()))
		}
		return nil, fmt.Errorf("update redemption: %w", err)
	}

	return red, nil
}

// DeliverRedemption отмечает выдачу товара: зарезервированный остаток
// окончательно списывается со склада.
func (s *Service) DeliverRedemption(ctx context.Context, id uuid.UUID, delivererID string) (*model.Redemption, error) {
	red, unlock, err := s.lockRedemption(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := red.Deliver(delivererID); err != nil {
		return nil, err
	}

	item, err := s.repo.GetInventory(ctx, red.ProductID)
	if err != nil {
		return nil, err
	}
	if err := item.ConfirmFulfillment(red.Quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SaveInventory(ctx, item); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}

	if err := s.repo.UpdateRedemption(ctx, red); err != nil {
		// Восстанавливаем резерв: пополнение с немедленным повторным резервом
		// возвращает товар в зарезервированное состояние.
		cerr := item.AddStock(red.Quantity)
		if cerr == nil {
			cerr = item.ReserveStock(red.Quantity)
		}
		if cerr == nil {
			cerr = s.repo.SaveInventory(ctx, item)
		}
		if cerr != nil {
			s.logger.Error("deliver compensation failed", zap.Error(cerr), zap.String("redemptionID", id.String()))
		}
		return nil, fmt.Errorf("update redemption: %w", err)
	}

	return red, nil
}

// RejectRedemption отклоняет необработанную заявку администратором: резерв
// возвращается на склад, баллы возвращаются на баланс.
func (s *Service) RejectRedemption(ctx context.Context, id uuid.UUID, reason string) (*model.Redemption, error) {
	return s.terminateRedemption(ctx, id, reason, true)
}

// CancelRedemption отменяет заявку по инициативе пользователя: резерв
// возвращается на склад, баллы возвращаются на баланс.
func (s *Service) CancelRedemption(ctx context.Context, id uuid.UUID, reason string) (*model.Redemption, error) {
	return s.terminateRedemption(ctx, id, reason, false)
}

func (s *Service) terminateRedemption(ctx context.Context, id uuid.UUID, reason string, reject bool) (*model.Redemption, error) {
	red, unlock, err := s.lockRedemption(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	wasPending := red.Status == model.RedemptionStatusPending
	snapshot := *red

	if reject {
		err = red.Reject(reason)
	} else {
		err = red.Cancel(reason)
	}
	if err != nil {
		return nil, err
	}

	var undo []func() error
	compensate := func(cause error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if cerr := undo[i](); cerr != nil {
				s.logger.Error("redemption termination compensation failed",
					zap.Error(cerr), zap.String("redemptionID", id.String()))
			}
		}
		return cause
	}

	// Возврат резерва на склад.
	item, err := s.repo.GetInventory(ctx, red.ProductID)
	if err != nil {
		return nil, err
	}
	if err := item.ReleaseReservation(red.Quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SaveInventory(ctx, item); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}
	undo = append(undo, func() error {
		if err := item.ReserveStock(red.Quantity); err != nil {
			return err
		}
		return s.repo.SaveInventory(ctx, item)
	})

	// Возврат баллов на баланс.
	acc, err := s.repo.GetOrCreateAccount(ctx, red.UserID)
	if err != nil {
		return nil, compensate(err)
	}
	if wasPending {
		err = acc.CancelPending(red.PointsSpent)
	} else {
		// Заявка была подтверждена: ожидающих баллов уже нет, возвращаем
		// само списание.
		err = refundDebit(acc, red.PointsSpent)
	}
	if err != nil {
		return nil, compensate(err)
	}
	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, compensate(fmt.Errorf("save account: %w", err))
	}
	undo = append(undo, func() error {
		if err := acc.Debit(red.PointsSpent); err != nil {
			return err
		}
		if wasPending {
			if err := acc.AddPending(red.PointsSpent); err != nil {
				return err
			}
		}
		return s.repo.SaveAccount(ctx, acc)
	})

	// Смена статуса заявки фиксируется до записи в журнал: запись журнала
	// неизменяема и не имеет компенсации, поэтому выполняется последней.
	if err := s.repo.UpdateRedemption(ctx, red); err != nil {
		return nil, compensate(fmt.Errorf("update redemption: %w", err))
	}
	undo = append(undo, func() error {
		return s.repo.UpdateRedemption(ctx, &snapshot)
	})

	// Запись о возврате в журнале операций.
	tx, err := model.NewPointsTransaction(red.UserID, red.PointsSpent,
		model.TransactionCategoryEarned, model.TransactionOriginRedemption,
		red.ID.String(), fmt.Sprintf("refund for redemption %s: %s", red.ID, reason),
		acc.CurrentBalance)
	if err != nil {
		return nil, compensate(err)
	}
	if err := s.repo.AddTransaction(ctx, tx); err != nil {
		return nil, compensate(fmt.Errorf("add transaction: %w", err))
	}

	return red, nil
}

// Package model содержит доменные сущности платформы вознаграждений.
package model

import (
	"fmt"
	"time"
)

// PointsAccount представляет бонусный счёт пользователя.
// Инварианты: CurrentBalance >= 0 и PendingPoints >= 0 всегда.
// Изменяется только через методы Credit/Debit/AddPending/ReleasePending/CancelPending.
type PointsAccount struct {
	UserID         int64
	CurrentBalance int64
	PendingPoints  int64
	TotalEarned    int64
	TotalRedeemed  int64
	LastUpdatedAt  time.Time
}

// NewPointsAccount создаёт пустой счёт для пользователя. Счета создаются
// лениво при первой необходимости и никогда не удаляются.
func NewPointsAccount(userID int64) *PointsAccount {
	return &PointsAccount{
		UserID:        userID,
		LastUpdatedAt: time.Now(),
	}
}

// Credit начисляет баллы на счёт, увеличивая баланс и сумму всех начислений.
func (a *PointsAccount) Credit(points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	a.CurrentBalance += points
	a.TotalEarned += points
	a.LastUpdatedAt = time.Now()

	return nil
}

// Debit списывает баллы со счёта, увеличивая сумму всех списаний.
func (a *PointsAccount) Debit(points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}
	if points > a.CurrentBalance {
		return &InsufficientBalanceError{Required: points, Available: a.CurrentBalance}
	}

	a.CurrentBalance -= points
	a.TotalRedeemed += points
	a.LastUpdatedAt = time.Now()

	return nil
}

// AddPending помечает уже списанные баллы как ожидающие подтверждения обмена.
func (a *PointsAccount) AddPending(points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	a.PendingPoints += points
	a.LastUpdatedAt = time.Now()

	return nil
}

// ReleasePending подтверждает расход: ожидающие баллы снимаются, баланс не меняется.
func (a *PointsAccount) ReleasePending(points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}
	if points > a.PendingPoints {
		return fmt.Errorf("%w: release %d exceeds pending %d", ErrInvalidOperation, points, a.PendingPoints)
	}

	a.PendingPoints -= points
	a.LastUpdatedAt = time.Now()

	return nil
}

// CancelPending отменяет расход: ожидающие баллы снимаются и возвращаются на баланс.
func (a *PointsAccount) CancelPending(points int64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}
	if points > a.PendingPoints {
		return fmt.Errorf("%w: cancel %d exceeds pending %d", ErrInvalidOperation, points, a.PendingPoints)
	}

	a.PendingPoints -= points
	a.CurrentBalance += points
	a.TotalRedeemed -= points
	a.LastUpdatedAt = time.Now()

	return nil
}

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionCategory описывает направление движения баллов.
type TransactionCategory string

const (
	TransactionCategoryEarned   TransactionCategory = "EARNED"
	TransactionCategoryRedeemed TransactionCategory = "REDEEMED"
)

// TransactionOrigin описывает источник операции с баллами.
type TransactionOrigin string

const (
	TransactionOriginEvent      TransactionOrigin = "EVENT"
	TransactionOriginRedemption TransactionOrigin = "REDEMPTION"
	TransactionOriginAdminAward TransactionOrigin = "ADMIN_AWARD"
)

// PointsTransaction представляет запись журнала операций с баллами.
// Записи неизменяемы после создания и никогда не удаляются: упорядоченная
// последовательность записей пользователя воспроизводит историю его баланса.
type PointsTransaction struct {
	ID           uuid.UUID
	UserID       int64
	Points       int64
	Category     TransactionCategory
	Origin       TransactionOrigin
	SourceID     string
	Description  string
	BalanceAfter int64
	CreatedAt    time.Time
}

// NewPointsTransaction создаёт запись журнала с зафиксированным балансом после операции.
func NewPointsTransaction(userID, points int64, category TransactionCategory, origin TransactionOrigin, sourceID, description string, balanceAfter int64) (*PointsTransaction, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	if balanceAfter < 0 {
		return nil, fmt.Errorf("%w: negative balance snapshot %d", ErrInvalidOperation, balanceAfter)
	}

	return &PointsTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Points:       points,
		Category:     category,
		Origin:       origin,
		SourceID:     sourceID,
		Description:  description,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}, nil
}

// SignedPoints возвращает величину операции со знаком для воспроизведения баланса.
func (t *PointsTransaction) SignedPoints() int64 {
	if t.Category == TransactionCategoryRedeemed {
		return -t.Points
	}
	return t.Points
}

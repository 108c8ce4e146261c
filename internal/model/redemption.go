package model

import (
	"time"

	"github.com/google/uuid"
)

// RedemptionStatus описывает статус заявки на обмен баллов.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "PENDING"
	RedemptionStatusApproved  RedemptionStatus = "APPROVED"
	RedemptionStatusDelivered RedemptionStatus = "DELIVERED"
	RedemptionStatusCancelled RedemptionStatus = "CANCELLED"
)

// Границы количества товара в одной заявке.
const (
	MinRedemptionQuantity = 1
	MaxRedemptionQuantity = 10
)

// Redemption представляет заявку на обмен баллов на товар.
// Допустимые переходы: PENDING -> APPROVED -> DELIVERED,
// PENDING -> CANCELLED (отклонение либо отмена). DELIVERED и CANCELLED терминальны.
type Redemption struct {
	ID              uuid.UUID
	UserID          int64
	ProductID       int64
	PointsSpent     int64
	Quantity        int64
	Status          RedemptionStatus
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *string
	DeliveredAt     *time.Time
	DeliveredBy     *string
	RejectionReason *string
}

// NewRedemption создаёт заявку в статусе PENDING.
func NewRedemption(userID, productID, pointsSpent, quantity int64) (*Redemption, error) {
	if quantity < MinRedemptionQuantity || quantity > MaxRedemptionQuantity {
		return nil, ErrInvalidQuantity
	}
	if pointsSpent <= 0 {
		return nil, ErrInvalidAmount
	}

	return &Redemption{
		ID:          uuid.New(),
		UserID:      userID,
		ProductID:   productID,
		PointsSpent: pointsSpent,
		Quantity:    quantity,
		Status:      RedemptionStatusPending,
		RequestedAt: time.Now(),
	}, nil
}

// IsTerminal сообщает, находится ли заявка в терминальном статусе.
func (r *Redemption) IsTerminal() bool {
	return r.Status == RedemptionStatusDelivered || r.Status == RedemptionStatusCancelled
}

// Approve подтверждает заявку администратором.
func (r *Redemption) Approve(approverID string) error {
	if r.Status != RedemptionStatusPending {
		return &InvalidStateTransitionError{Current: string(r.Status), Expected: string(RedemptionStatusPending)}
	}

	now := time.Now()
	r.Status = RedemptionStatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &approverID

	return nil
}

// Reject отклоняет заявку администратором с указанием причины.
func (r *Redemption) Reject(reason string) error {
	if r.Status != RedemptionStatusPending {
		return &InvalidStateTransitionError{Current: string(r.Status), Expected: string(RedemptionStatusPending)}
	}

	r.Status = RedemptionStatusCancelled
	r.RejectionReason = &reason

	return nil
}

// Cancel отменяет заявку по инициативе пользователя с указанием причины.
func (r *Redemption) Cancel(reason string) error {
	if r.IsTerminal() {
		return &InvalidStateTransitionError{Current: string(r.Status), Expected: string(RedemptionStatusPending)}
	}

	r.Status = RedemptionStatusCancelled
	r.RejectionReason = &reason

	return nil
}

// Deliver отмечает выдачу товара по подтверждённой заявке.
func (r *Redemption) Deliver(delivererID string) error {
	if r.Status != RedemptionStatusApproved {
		return &InvalidStateTransitionError{Current: string(r.Status), Expected: string(RedemptionStatusApproved)}
	}

	now := time.Now()
	r.Status = RedemptionStatusDelivered
	r.DeliveredAt = &now
	r.DeliveredBy = &delivererID

	return nil
}

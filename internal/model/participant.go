package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus описывает статус участия пользователя в событии.
type AttendanceStatus string

const (
	AttendanceStatusRegistered AttendanceStatus = "REGISTERED"
	AttendanceStatusCheckedIn  AttendanceStatus = "CHECKED_IN"
	AttendanceStatusAttended   AttendanceStatus = "ATTENDED"
	AttendanceStatusNoShow     AttendanceStatus = "NO_SHOW"
	AttendanceStatusCancelled  AttendanceStatus = "CANCELLED"
)

// EventParticipant представляет участие пользователя в событии.
// Инвариант: баллы за событие начисляются не более одного раза.
type EventParticipant struct {
	ID            uuid.UUID
	EventID       int64
	UserID        int64
	Status        AttendanceStatus
	PointsAwarded *int64
	EventRank     *int
	RegisteredAt  time.Time
	CheckedInAt   *time.Time
	AwardedAt     *time.Time
	AwardedBy     *string
}

// NewEventParticipant регистрирует пользователя на событие.
func NewEventParticipant(eventID, userID int64) *EventParticipant {
	return &EventParticipant{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       userID,
		Status:       AttendanceStatusRegistered,
		RegisteredAt: time.Now(),
	}
}

// HasAward сообщает, были ли участнику уже начислены баллы.
func (p *EventParticipant) HasAward() bool {
	return p.PointsAwarded != nil
}

// CheckIn отмечает прибытие участника на событие.
func (p *EventParticipant) CheckIn() error {
	if p.Status != AttendanceStatusRegistered {
		return &InvalidStateTransitionError{Current: string(p.Status), Expected: string(AttendanceStatusRegistered)}
	}

	now := time.Now()
	p.Status = AttendanceStatusCheckedIn
	p.CheckedInAt = &now

	return nil
}

// AwardPoints начисляет участнику баллы события с указанием места и автора начисления.
// Участник в статусе CHECKED_IN автоматически переводится в ATTENDED.
func (p *EventParticipant) AwardPoints(points int64, rank *int, awardedBy string) error {
	if p.HasAward() {
		return fmt.Errorf("%w: participant %s", ErrDuplicatePointsAward, p.ID)
	}
	if p.Status != AttendanceStatusCheckedIn && p.Status != AttendanceStatusAttended {
		return &InvalidStateTransitionError{
			Current:  string(p.Status),
			Expected: fmt.Sprintf("%s or %s", AttendanceStatusCheckedIn, AttendanceStatusAttended),
		}
	}
	if points < 0 {
		return fmt.Errorf("%w: negative points", ErrInvalidOperation)
	}
	if rank != nil && *rank < 1 {
		return fmt.Errorf("%w: rank must be at least 1", ErrInvalidOperation)
	}

	now := time.Now()
	p.PointsAwarded = &points
	p.EventRank = rank
	p.AwardedAt = &now
	p.AwardedBy = &awardedBy

	if p.Status == AttendanceStatusCheckedIn {
		p.Status = AttendanceStatusAttended
	}

	return nil
}

// RevokeAward снимает ранее начисленные баллы и очищает сведения о начислении.
func (p *EventParticipant) RevokeAward() error {
	if !p.HasAward() {
		return fmt.Errorf("%w: no award to revoke", ErrInvalidOperation)
	}

	p.PointsAwarded = nil
	p.EventRank = nil
	p.AwardedAt = nil
	p.AwardedBy = nil

	return nil
}

// MarkNoShow отмечает неявку участника. Недопустимо после начисления баллов.
func (p *EventParticipant) MarkNoShow() error {
	if p.HasAward() {
		return fmt.Errorf("%w: points already awarded", ErrInvalidOperation)
	}
	if p.Status != AttendanceStatusRegistered && p.Status != AttendanceStatusCheckedIn {
		return &InvalidStateTransitionError{
			Current:  string(p.Status),
			Expected: fmt.Sprintf("%s or %s", AttendanceStatusRegistered, AttendanceStatusCheckedIn),
		}
	}

	p.Status = AttendanceStatusNoShow

	return nil
}

// Cancel отменяет участие. Недопустимо после начисления баллов.
func (p *EventParticipant) Cancel() error {
	if p.HasAward() {
		return fmt.Errorf("%w: points already awarded", ErrInvalidOperation)
	}
	if p.Status != AttendanceStatusRegistered && p.Status != AttendanceStatusCheckedIn {
		return &InvalidStateTransitionError{
			Current:  string(p.Status),
			Expected: fmt.Sprintf("%s or %s", AttendanceStatusRegistered, AttendanceStatusCheckedIn),
		}
	}

	p.Status = AttendanceStatusCancelled

	return nil
}

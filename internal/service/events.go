package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/rewards-system/internal/model"
	"github.com/mmeshcher/rewards-system/internal/repository"
)

// RegisterParticipant регистрирует пользователя на событие.
func (s *Service) RegisterParticipant(ctx context.Context, eventID, userID int64) (*model.EventParticipant, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, repository.ErrUserNotFound
	}

	p := model.NewEventParticipant(eventID, userID)
	if err := s.repo.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// CheckInParticipant отмечает прибытие участника на событие.
func (s *Service) CheckInParticipant(ctx context.Context, participantID uuid.UUID) (*model.EventParticipant, error) {
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	if err := p.CheckIn(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}

	return p, nil
}

// remainingBudget возвращает остаток месячного бюджета администратора.
func (s *Service) remainingBudget(ctx context.Context, awardedBy string, now time.Time) (int64, int64, error) {
	used, err := s.repo.SumAwardedPointsForMonth(ctx, awardedBy, now.Year(), now.Month())
	if err != nil {
		return 0, 0, fmt.Errorf("sum awarded points: %w", err)
	}

	return s.budget.MonthlyLimit - used, used, nil
}

// AwardEventPoints начисляет участнику баллы за событие с учётом месячного
// бюджета администратора: при жёстком лимите превышение отклоняется, при
// достижении порога предупреждения факт попадает в журнал.
func (s *Service) AwardEventPoints(ctx context.Context, participantID uuid.UUID, points int64, rank *int, awardedBy string) (*model.EventParticipant, error) {
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	s.userLocks.Lock(p.UserID)
	defer s.userLocks.Unlock(p.UserID)

	// Проверка и расход бюджета одного администратора сериализуются
	// отдельной блокировкой: начисления разным пользователям не должны
	// совместно превышать его жёсткий лимит.
	s.adminLocks.Lock(awardedBy)
	defer s.adminLocks.Unlock(awardedBy)

	p, err = s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	remaining, used, err := s.remainingBudget(ctx, awardedBy, now)
	if err != nil {
		return nil, err
	}
	if s.budget.HardLimit && points > remaining {
		return nil, &model.BudgetExceededError{Requested: points, Remaining: remaining}
	}
	if s.budget.MonthlyLimit > 0 && (used+points)*100 >= s.budget.MonthlyLimit*int64(s.budget.WarningPercent) {
		s.logger.Warn("monthly award budget threshold reached",
			zap.String("awardedBy", awardedBy),
			zap.Int64("used", used+points),
			zap.Int64("limit", s.budget.MonthlyLimit),
			zap.Int("warningPercent", s.budget.WarningPercent),
		)
	}

	if err := p.AwardPoints(points, rank, awardedBy); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}

	// Начисление нулевого приза фиксируется только на участнике,
	// журнал операций и баланс не затрагиваются.
	if points == 0 {
		return p, nil
	}

	acc, err := s.repo.GetOrCreateAccount(ctx, p.UserID)
	if err != nil {
		return nil, s.compensateAward(ctx, p, err)
	}
	if err := acc.Credit(points); err != nil {
		return nil, s.compensateAward(ctx, p, err)
	}
	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, s.compensateAward(ctx, p, fmt.Errorf("save account: %w", err))
	}

	tx, err := model.NewPointsTransaction(p.UserID, points,
		model.TransactionCategoryEarned, model.TransactionOriginEvent,
		fmt.Sprintf("%d", p.EventID), fmt.Sprintf("event reward awarded by %s", awardedBy),
		acc.CurrentBalance)
	if err == nil {
		err = s.repo.AddTransaction(ctx, tx)
	}
	if err != nil {
		// Откат начисления на счёт перед откатом участника.
		cerr := acc.Debit(points)
		if cerr == nil {
			cerr = s.repo.SaveAccount(ctx, acc)
		}
		if cerr != nil {
			s.logger.Error("event award compensation failed",
				zap.Error(cerr), zap.String("participantID", participantID.String()))
		}
		return nil, s.compensateAward(ctx, p, err)
	}

	return p, nil
}

// compensateAward откатывает начисление на участнике после сбоя
// последующего шага саги.
func (s *Service) compensateAward(ctx context.Context, p *model.EventParticipant, cause error) error {
	cerr := p.RevokeAward()
	if cerr == nil {
		cerr = s.repo.UpdateParticipant(ctx, p)
	}
	if cerr != nil {
		s.logger.Error("event award compensation failed",
			zap.Error(cerr), zap.String("participantID", p.ID.String()))
	}
	return cause
}

// RevokeEventPoints снимает ранее начисленные за событие баллы: счёт
// списывается на сумму приза, сведения о начислении очищаются.
func (s *Service) RevokeEventPoints(ctx context.Context, participantID uuid.UUID, revokedBy string) (*model.EventParticipant, error) {
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	s.userLocks.Lock(p.UserID)
	defer s.userLocks.Unlock(p.UserID)

	p, err = s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	if !p.HasAward() {
		return nil, fmt.Errorf("%w: no award to revoke", model.ErrInvalidOperation)
	}
	awarded := *p.PointsAwarded
	before := *p

	if err := p.RevokeAward(); err != nil {
		return nil, err
	}

	// Нулевой приз снимается без движения по счёту.
	if awarded == 0 {
		if err := s.repo.UpdateParticipant(ctx, p); err != nil {
			return nil, fmt.Errorf("update participant: %w", err)
		}
		return p, nil
	}

	acc, err := s.repo.GetOrCreateAccount(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := acc.Debit(awarded); err != nil {
		return nil, err
	}
	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	err = s.repo.UpdateParticipant(ctx, p)
	if err == nil {
		var tx *model.PointsTransaction
		tx, err = model.NewPointsTransaction(p.UserID, awarded,
			model.TransactionCategoryRedeemed, model.TransactionOriginEvent,
			fmt.Sprintf("%d", p.EventID), fmt.Sprintf("event reward revoked by %s", revokedBy),
			acc.CurrentBalance)
		if err == nil {
			err = s.repo.AddTransaction(ctx, tx)
		}
	}
	if err != nil {
		// Возврат списанного и восстановление сведений о начислении.
		cerr := refundDebit(acc, awarded)
		if cerr == nil {
			cerr = s.repo.SaveAccount(ctx, acc)
		}
		if cerr == nil {
			cerr = s.repo.UpdateParticipant(ctx, &before)
		}
		if cerr != nil {
			s.logger.Error("event revoke compensation failed",
				zap.Error(cerr), zap.String("participantID", participantID.String()))
		}
		return nil, err
	}

	return p, nil
}

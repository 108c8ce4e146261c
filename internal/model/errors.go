package model

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount возвращается при попытке операции с неположительным количеством баллов.
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidQuantity возвращается при количестве товара вне допустимых границ заявки.
	ErrInvalidQuantity = errors.New("quantity out of range")
	// ErrInvalidOperation возвращается при нарушении инварианта агрегата вне машины состояний.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInsufficientBalance возвращается при попытке списания суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientInventory возвращается при попытке резерва, превышающего доступный остаток.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrInvalidStateTransition возвращается при недопустимом переходе машины состояний.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrDuplicatePointsAward возвращается при повторном начислении баллов участнику события.
	ErrDuplicatePointsAward = errors.New("points already awarded")
	// ErrBudgetExceeded возвращается при превышении месячного бюджета администратора.
	ErrBudgetExceeded = errors.New("monthly budget exceeded")
)

// InsufficientBalanceError содержит требуемую и доступную сумму баллов.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InsufficientInventoryError содержит запрошенное и доступное количество товара.
type InsufficientInventoryError struct {
	Requested int64
	Available int64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

// InvalidStateTransitionError содержит текущий и ожидаемый статус агрегата.
type InvalidStateTransitionError struct {
	Current  string
	Expected string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: status %s, expected %s", e.Current, e.Expected)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// BudgetExceededError содержит запрошенную сумму и остаток месячного бюджета.
type BudgetExceededError struct {
	Requested int64
	Remaining int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("monthly budget exceeded: requested %d, remaining %d", e.Requested, e.Remaining)
}

func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

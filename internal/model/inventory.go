package model

import (
	"fmt"
	"time"
)

// InventoryItem представляет складской остаток одного товара.
// Инварианты: QuantityAvailable >= 0 и QuantityReserved >= 0 всегда.
type InventoryItem struct {
	ProductID         int64
	QuantityAvailable int64
	QuantityReserved  int64
	ReorderLevel      int64
	LastUpdated       time.Time
}

// NewInventoryItem создаёт позицию склада для товара.
func NewInventoryItem(productID, quantity, reorderLevel int64) (*InventoryItem, error) {
	if quantity < 0 || reorderLevel < 0 {
		return nil, fmt.Errorf("%w: negative quantity", ErrInvalidOperation)
	}

	return &InventoryItem{
		ProductID:         productID,
		QuantityAvailable: quantity,
		ReorderLevel:      reorderLevel,
		LastUpdated:       time.Now(),
	}, nil
}

// HasAvailableStock сообщает, достаточно ли свободного остатка для указанного количества.
func (i *InventoryItem) HasAvailableStock(qty int64) bool {
	return qty > 0 && qty <= i.QuantityAvailable
}

// NeedsReorder сообщает, что свободный остаток достиг порога дозаказа.
func (i *InventoryItem) NeedsReorder() bool {
	return i.QuantityAvailable <= i.ReorderLevel
}

// AddStock пополняет свободный остаток товара.
func (i *InventoryItem) AddStock(qty int64) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}

	i.QuantityAvailable += qty
	i.LastUpdated = time.Now()

	return nil
}

// ReserveStock переводит товар из свободного остатка в резерв.
func (i *InventoryItem) ReserveStock(qty int64) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}
	if qty > i.QuantityAvailable {
		return &InsufficientInventoryError{Requested: qty, Available: i.QuantityAvailable}
	}

	i.QuantityAvailable -= qty
	i.QuantityReserved += qty
	i.LastUpdated = time.Now()

	return nil
}

// ConfirmFulfillment окончательно списывает зарезервированный товар при выдаче.
func (i *InventoryItem) ConfirmFulfillment(qty int64) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}
	if qty > i.QuantityReserved {
		return fmt.Errorf("%w: confirm %d exceeds reserved %d", ErrInvalidOperation, qty, i.QuantityReserved)
	}

	i.QuantityReserved -= qty
	i.LastUpdated = time.Now()

	return nil
}

// ReleaseReservation возвращает зарезервированный товар в свободный остаток.
func (i *InventoryItem) ReleaseReservation(qty int64) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}
	if qty > i.QuantityReserved {
		return fmt.Errorf("%w: release %d exceeds reserved %d", ErrInvalidOperation, qty, i.QuantityReserved)
	}

	i.QuantityReserved -= qty
	i.QuantityAvailable += qty
	i.LastUpdated = time.Now()

	return nil
}

package model

import (
	"errors"
	"testing"
)

func TestInventoryItem_ReserveAndConfirm(t *testing.T) {
	item, err := NewInventoryItem(1, 5, 1)
	if err != nil {
		t.Fatalf("NewInventoryItem error: %v", err)
	}

	if err := item.ReserveStock(2); err != nil {
		t.Fatalf("ReserveStock error: %v", err)
	}
	if item.QuantityAvailable != 3 || item.QuantityReserved != 2 {
		t.Fatalf("after reserve: available = %d, reserved = %d", item.QuantityAvailable, item.QuantityReserved)
	}

	if err := item.ConfirmFulfillment(2); err != nil {
		t.Fatalf("ConfirmFulfillment error: %v", err)
	}
	if item.QuantityAvailable != 3 || item.QuantityReserved != 0 {
		t.Fatalf("after confirm: available = %d, reserved = %d", item.QuantityAvailable, item.QuantityReserved)
	}
}

func TestInventoryItem_ReleaseReservation(t *testing.T) {
	item, err := NewInventoryItem(1, 5, 0)
	if err != nil {
		t.Fatalf("NewInventoryItem error: %v", err)
	}

	if err := item.ReserveStock(3); err != nil {
		t.Fatalf("ReserveStock error: %v", err)
	}
	if err := item.ReleaseReservation(3); err != nil {
		t.Fatalf("ReleaseReservation error: %v", err)
	}

	// Резерв и последующий возврат сохраняют исходный остаток.
	if item.QuantityAvailable != 5 || item.QuantityReserved != 0 {
		t.Fatalf("after release: available = %d, reserved = %d", item.QuantityAvailable, item.QuantityReserved)
	}
}

func TestInventoryItem_ReserveOverAvailable(t *testing.T) {
	item, err := NewInventoryItem(1, 2, 0)
	if err != nil {
		t.Fatalf("NewInventoryItem error: %v", err)
	}

	rerr := item.ReserveStock(3)
	if !errors.Is(rerr, ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", rerr)
	}

	var ie *InsufficientInventoryError
	if !errors.As(rerr, &ie) {
		t.Fatalf("expected InsufficientInventoryError, got %T", rerr)
	}
	if ie.Requested != 3 || ie.Available != 2 {
		t.Fatalf("error numbers: requested = %d, available = %d", ie.Requested, ie.Available)
	}

	if item.QuantityAvailable != 2 || item.QuantityReserved != 0 {
		t.Fatalf("state changed after failed reserve: %+v", item)
	}
}

func TestInventoryItem_ConfirmOverReserved(t *testing.T) {
	item, err := NewInventoryItem(1, 5, 0)
	if err != nil {
		t.Fatalf("NewInventoryItem error: %v", err)
	}
	if err := item.ReserveStock(1); err != nil {
		t.Fatalf("ReserveStock error: %v", err)
	}

	if err := item.ConfirmFulfillment(2); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("confirm over reserved: expected ErrInvalidOperation, got %v", err)
	}
	if err := item.ReleaseReservation(2); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("release over reserved: expected ErrInvalidOperation, got %v", err)
	}
}

func TestInventoryItem_NeedsReorder(t *testing.T) {
	item, err := NewInventoryItem(1, 3, 2)
	if err != nil {
		t.Fatalf("NewInventoryItem error: %v", err)
	}

	if item.NeedsReorder() {
		t.Fatalf("available 3 with reorder level 2 must not need reorder")
	}

	if err := item.ReserveStock(1); err != nil {
		t.Fatalf("ReserveStock error: %v", err)
	}
	if !item.NeedsReorder() {
		t.Fatalf("available 2 with reorder level 2 must need reorder")
	}
}

func TestNewInventoryItem_NegativeValues(t *testing.T) {
	if _, err := NewInventoryItem(1, -1, 0); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("negative quantity: expected ErrInvalidOperation, got %v", err)
	}
	if _, err := NewInventoryItem(1, 0, -1); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("negative reorder level: expected ErrInvalidOperation, got %v", err)
	}
}

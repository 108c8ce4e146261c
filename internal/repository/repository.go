// Package repository содержит реализации доступа к данным платформы вознаграждений.
package repository

import "errors"

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInventoryNotFound возвращается, если позиция склада для товара не найдена.
	ErrInventoryNotFound = errors.New("inventory item not found")
	// ErrRedemptionNotFound возвращается, если заявка на обмен не найдена.
	ErrRedemptionNotFound = errors.New("redemption not found")
	// ErrParticipantNotFound возвращается, если участник события не найден.
	ErrParticipantNotFound = errors.New("event participant not found")
	// ErrParticipantExists возвращается при повторной регистрации пользователя на событие.
	ErrParticipantExists = errors.New("participant already registered")
)

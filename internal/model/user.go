package model

import "time"

// User представляет зарегистрированного пользователя платформы вознаграждений.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Balance содержит баланс пользователя в ответе API.
type Balance struct {
	Current       int64 `json:"current"`
	Pending       int64 `json:"pending"`
	TotalEarned   int64 `json:"total_earned"`
	TotalRedeemed int64 `json:"total_redeemed"`
}

// Package validation содержит функции валидации входных данных.
package validation

import "github.com/mmeshcher/rewards-system/internal/model"

// IsValidQuantity проверяет, что количество товара укладывается в границы одной заявки.
func IsValidQuantity(quantity int64) bool {
	return quantity >= model.MinRedemptionQuantity && quantity <= model.MaxRedemptionQuantity
}

// IsValidID проверяет корректность числового идентификатора.
func IsValidID(id int64) bool {
	return id > 0
}

// IsValidAwardPoints проверяет допустимость размера приза за событие.
func IsValidAwardPoints(points int64) bool {
	return points >= 0
}

// IsValidRank проверяет допустимость места участника.
func IsValidRank(rank int) bool {
	return rank >= 1
}

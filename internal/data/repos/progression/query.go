package progression

import (
	"errors"

	"gorm.io/gorm"
)

func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

package booking

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

// ListRecords 按 customer / car 过滤 + 分页（审计查询，只读）。
func (r *Repo) ListRecords(ctx context.Context, customerID, carID string, offset, limit int) ([]Record, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&Record{})
	if customerID != "" {
		q = q.Where("customer_id = ?", customerID)
	}
	if carID != "" {
		q = q.Where("car_id = ?", carID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []Record
	if err := q.Order("booked_at DESC").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

package company

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/CarRentChain/CarRentChain/internal/ledger"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// DB 暴露底层句柄，供 Service 开启事务。
func (r *Repo) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// GetCompany 按 id 查公司；不存在返回 NotFound 分类错误。
func GetCompany(tx *gorm.DB, id string) (*Company, error) {
	var c Company
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.Errf(ledger.KindNotFound, "company.GetCompany", "company %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}

func GetCustomer(tx *gorm.DB, id string) (*Customer, error) {
	var c Customer
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.Errf(ledger.KindNotFound, "company.GetCustomer", "customer %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}

func GetCar(tx *gorm.DB, id string) (*Car, error) {
	var c Car
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.Errf(ledger.KindNotFound, "company.GetCar", "car %s not found", id)
		}
		return nil, err
	}
	return &c, nil
}

// GetMemoByCar 取某公司给某辆车签发的 memo。
func GetMemoByCar(tx *gorm.DB, companyID, carID string) (*CarMemo, error) {
	var m CarMemo
	err := tx.Where("company_id = ? AND car_id = ?", companyID, carID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.Errf(ledger.KindNotFound, "company.GetMemoByCar", "no memo for car %s", carID)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func GetMemo(tx *gorm.DB, id string) (*CarMemo, error) {
	var m CarMemo
	if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.Errf(ledger.KindNotFound, "company.GetMemo", "memo %s not found", id)
		}
		return nil, err
	}
	return &m, nil
}

// ListCars 按公司 / 可用性过滤 + 分页。
func (r *Repo) ListCars(ctx context.Context, companyID string, onlyAvailable bool, offset, limit int) ([]Car, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Car{})
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	if onlyAvailable {
		q = q.Where("available = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var cars []Car
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&cars).Error; err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

func (r *Repo) ListCompanies(ctx context.Context, offset, limit int) ([]Company, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Company{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var companies []Company
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&companies).Error; err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

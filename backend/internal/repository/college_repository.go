package repository

import (
	"context"
	"errors"

	"paper-portal/backend/internal/apperr"
	"paper-portal/backend/internal/domain/college"

	"gorm.io/gorm"
)

// CollegeRepository 提供学院名册的只读访问。
type CollegeRepository struct {
	db *gorm.DB
}

// NewCollegeRepository 创建学院仓储。
func NewCollegeRepository(db *gorm.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// Create 写入学院记录，供种子数据与测试使用。
func (r *CollegeRepository) Create(ctx context.Context, c *college.College) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return apperr.Storage("college.create", err)
	}
	return nil
}

// List 返回全部学院，按 ID 升序。
func (r *CollegeRepository) List(ctx context.Context) ([]college.College, error) {
	var colleges []college.College
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&colleges).Error; err != nil {
		return nil, apperr.Storage("college.list", err)
	}
	return colleges, nil
}

// FindByID 根据主键查找学院。
func (r *CollegeRepository) FindByID(ctx context.Context, id uint) (*college.College, error) {
	var c college.College
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("college", uint64(id))
		}
		return nil, apperr.Storage("college.find", err)
	}
	return &c, nil
}

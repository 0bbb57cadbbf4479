package repository

import (
	"context"
	"errors"
	"time"

	"paper-portal/backend/internal/apperr"
	"paper-portal/backend/internal/domain/paper"

	"gorm.io/gorm"
)

// PaperRepository 负责论文与分类的读写，聚合统计依赖这里的计数查询。
type PaperRepository struct {
	db *gorm.DB
}

// NewPaperRepository 创建论文仓储。
func NewPaperRepository(db *gorm.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// CategoryCountRow 表示某个分类下的论文数量。
type CategoryCountRow struct {
	CategoryID uint   `gorm:"column:category_id"`
	Name       string `gorm:"column:name"`
	Count      int64  `gorm:"column:paper_count"`
}

// Create 写入论文记录。
func (r *PaperRepository) Create(ctx context.Context, p *paper.Paper) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperr.Storage("paper.create", err)
	}
	return nil
}

// CreateCategory 写入分类记录。
func (r *PaperRepository) CreateCategory(ctx context.Context, c *paper.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return apperr.Storage("category.create", err)
	}
	return nil
}

// FindByID 根据主键查找论文。
func (r *PaperRepository) FindByID(ctx context.Context, id uint) (*paper.Paper, error) {
	var p paper.Paper
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("paper", uint64(id))
		}
		return nil, apperr.Storage("paper.find", err)
	}
	return &p, nil
}

// CountByCategory 按分类统计论文数，内连接使得没有论文的分类不会出现，结果按分类 ID 升序。
func (r *PaperRepository) CountByCategory(ctx context.Context) ([]CategoryCountRow, error) {
	var rows []CategoryCountRow
	err := r.db.WithContext(ctx).
		Table("categories").
		Select("categories.id AS category_id, categories.name AS name, COUNT(papers.id) AS paper_count").
		Joins("JOIN papers ON papers.category_id = categories.id").
		Group("categories.id, categories.name").
		Order("categories.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("paper.count_by_category", err)
	}
	return rows, nil
}

// ListCreatedAt 返回全部论文的创建时间，年份分桶在调用方按 UTC 计算，避免依赖数据库的日期函数。
func (r *PaperRepository) ListCreatedAt(ctx context.Context) ([]time.Time, error) {
	var stamps []time.Time
	if err := r.db.WithContext(ctx).Model(&paper.Paper{}).Pluck("created_at", &stamps).Error; err != nil {
		return nil, apperr.Storage("paper.list_created_at", err)
	}
	return stamps, nil
}

// Count 返回论文总数。
func (r *PaperRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&paper.Paper{}).Count(&total).Error; err != nil {
		return 0, apperr.Storage("paper.count", err)
	}
	return total, nil
}

// CountCreatedBetween 统计 [from, to) 内创建的论文数。
func (r *PaperRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&paper.Paper{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&total).Error
	if err != nil {
		return 0, apperr.Storage("paper.count_created_between", err)
	}
	return total, nil
}

// CountCategories 返回分类总数。
func (r *PaperRepository) CountCategories(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&paper.Category{}).Count(&total).Error; err != nil {
		return 0, apperr.Storage("category.count", err)
	}
	return total, nil
}

// Update 按变更集更新论文：分类必须存在，arxiv_id 不得与其他论文冲突。
func (r *PaperRepository) Update(ctx context.Context, id uint, changes paper.Changes) (*paper.Paper, error) {
	var updated paper.Paper
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("paper", uint64(id))
			}
			return err
		}

		if changes.CategoryID != nil {
			var exists int64
			if err := tx.Model(&paper.Category{}).Where("id = ?", *changes.CategoryID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return apperr.NotFound("category", uint64(*changes.CategoryID))
			}
		}

		cols := changes.Columns()
		if arxiv, ok := cols["arxiv_id"].(string); ok {
			var clash int64
			if err := tx.Model(&paper.Paper{}).Where("arxiv_id = ? AND id <> ?", arxiv, id).Count(&clash).Error; err != nil {
				return err
			}
			if clash > 0 {
				return apperr.Integrity("paper", uint64(id), "arxiv_id already used by another paper")
			}
		}

		if err := tx.Model(&updated).Updates(cols).Error; err != nil {
			return err
		}
		return tx.First(&updated, id).Error
	})
	if err != nil {
		if apperr.IsNotFound(err) || apperr.IsIntegrity(err) {
			return nil, err
		}
		return nil, apperr.Storage("paper.update", err)
	}
	return &updated, nil
}

// DeleteWithClicks 在同一事务内删除论文及其全部点击，返回论文是否存在。
func (r *PaperRepository) DeleteWithClicks(ctx context.Context, id uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := NewClickRepository(tx).DeleteByPaper(ctx, id); err != nil {
			return err
		}
		result := tx.Delete(&paper.Paper{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, apperr.Storage("paper.delete", err)
	}
	return deleted, nil
}

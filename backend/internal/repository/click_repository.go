/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-02 11:20:45
 * @FilePath: \paper-portal\backend\internal\repository\click_repository.go
 * @LastEditTime: 2025-11-04 09:02:13
 */
package repository

import (
	"context"
	"iter"
	"time"

	"paper-portal/backend/internal/apperr"
	"paper-portal/backend/internal/domain/click"

	"gorm.io/gorm"
)

// ClickRepository 是点击事件的持久化存储，基于 GORM 实现。
type ClickRepository struct {
	db *gorm.DB
}

// NewClickRepository 创建点击事件仓储。
func NewClickRepository(db *gorm.DB) *ClickRepository {
	return &ClickRepository{db: db}
}

// ClickScanFilter 描述 Scan 的过滤条件，零值字段表示不过滤。
// UserIDs 非 nil 但为空时不会产生任何记录。
type ClickScanFilter struct {
	CollegeID   uint
	UserID      uint
	PaperID     uint
	UserIDs     []uint
	Since       time.Time // 含
	Until       time.Time // 不含
	NewestFirst bool
}

// Append 写入一条点击事件，失败时不重试。
func (r *ClickRepository) Append(ctx context.Context, event *click.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return apperr.Storage("click.append", err)
	}
	return nil
}

// FindRecent 查找 since 之后同一 (user, paper, college) 最新的一条点击，不存在时返回 nil, nil。
func (r *ClickRepository) FindRecent(ctx context.Context, userID, paperID, collegeID uint, since time.Time) (*click.Event, error) {
	var events []click.Event
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND paper_id = ? AND college_id = ? AND click_time >= ?", userID, paperID, collegeID, since).
		Order("click_time DESC").
		Order("click_id DESC").
		Limit(1).
		Find(&events).Error
	if err != nil {
		return nil, apperr.Storage("click.find_recent", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// Delete 仅当点击属于 owner 时删除，返回是否删除了记录。
func (r *ClickRepository) Delete(ctx context.Context, clickID uint64, owner uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("click_id = ? AND user_id = ?", clickID, owner).
		Delete(&click.Event{})
	if result.Error != nil {
		return false, apperr.Storage("click.delete", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteByUser 删除用户的全部点击，返回删除条数。
func (r *ClickRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&click.Event{})
	if result.Error != nil {
		return 0, apperr.Storage("click.delete_by_user", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByPaper 删除论文的全部点击，返回删除条数。
func (r *ClickRepository) DeleteByPaper(ctx context.Context, paperID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("paper_id = ?", paperID).Delete(&click.Event{})
	if result.Error != nil {
		return 0, apperr.Storage("click.delete_by_paper", result.Error)
	}
	return result.RowsAffected, nil
}

// ListByUser 按时间倒序返回用户的点击历史，limit <= 0 表示不限制。
func (r *ClickRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]click.Event, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("click_time DESC").
		Order("click_id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []click.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, apperr.Storage("click.list_by_user", err)
	}
	return events, nil
}

// Scan 返回惰性的点击序列，每次 range 都会重新执行查询，因此可以重复遍历。
// 游标在遍历结束、提前 break 或出错时都会关闭；出错时 yield 一次 StorageError 后终止。
func (r *ClickRepository) Scan(ctx context.Context, filter ClickScanFilter) iter.Seq2[click.Event, error] {
	return func(yield func(click.Event, error) bool) {
		if filter.UserIDs != nil && len(filter.UserIDs) == 0 {
			return
		}

		rows, err := r.scanQuery(ctx, filter).Rows()
		if err != nil {
			yield(click.Event{}, apperr.Storage("click.scan", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var event click.Event
			if err := r.db.ScanRows(rows, &event); err != nil {
				yield(click.Event{}, apperr.Storage("click.scan", err))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(click.Event{}, apperr.Storage("click.scan", err))
		}
	}
}

func (r *ClickRepository) scanQuery(ctx context.Context, filter ClickScanFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&click.Event{})
	if filter.CollegeID != 0 {
		query = query.Where("college_id = ?", filter.CollegeID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.PaperID != 0 {
		query = query.Where("paper_id = ?", filter.PaperID)
	}
	if len(filter.UserIDs) > 0 {
		query = query.Where("user_id IN ?", filter.UserIDs)
	}
	if !filter.Since.IsZero() {
		query = query.Where("click_time >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("click_time < ?", filter.Until)
	}
	if filter.NewestFirst {
		return query.Order("click_time DESC").Order("click_id DESC")
	}
	return query.Order("click_id ASC")
}

/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:39:17
 * @FilePath: \paper-portal\backend\internal\repository\user_repository.go
 * @LastEditTime: 2025-11-03 17:45:51
 */
package repository

import (
	"context"
	"errors"

	"paper-portal/backend/internal/apperr"
	"paper-portal/backend/internal/domain/user"

	"gorm.io/gorm"
)

// UserRepository 封装用户相关的数据访问方法，基于 GORM 实现。
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储实例，接收共享的 *gorm.DB。
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// StudentListFilter 描述学院学生列表的分页与搜索条件。
type StudentListFilter struct {
	CollegeID uint
	Query     string
	Limit     int
	Offset    int
}

// Create 写入用户记录。
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return apperr.Storage("user.create", err)
	}
	return nil
}

// FindByID 根据主键查找用户，不存在时返回 NotFoundError。
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", uint64(id))
		}
		return nil, apperr.Storage("user.find", err)
	}
	return &u, nil
}

// ListStudents 返回学院内全部学生，按 ID 升序。
func (r *UserRepository) ListStudents(ctx context.Context, collegeID uint) ([]user.User, error) {
	var students []user.User
	err := r.db.WithContext(ctx).
		Where("college_id = ? AND role = ?", collegeID, user.RoleStudent).
		Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, apperr.Storage("user.list_students", err)
	}
	return students, nil
}

// ListStudentsPage 分页返回学院学生，Query 同时匹配用户名与真实姓名。
func (r *UserRepository) ListStudentsPage(ctx context.Context, filter StudentListFilter) ([]user.User, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("college_id = ? AND role = ?", filter.CollegeID, user.RoleStudent)
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		base = base.Where("(username LIKE ? OR real_name LIKE ?)", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Storage("user.count_students", err)
	}

	query := base.Session(&gorm.Session{}).Order("id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var students []user.User
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, apperr.Storage("user.list_students_page", err)
	}
	return students, total, nil
}

// DeleteWithClicks 在同一事务内删除用户及其全部点击，返回用户是否存在。
func (r *UserRepository) DeleteWithClicks(ctx context.Context, id uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := NewClickRepository(tx).DeleteByUser(ctx, id); err != nil {
			return err
		}
		result := tx.Delete(&user.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, apperr.Storage("user.delete", err)
	}
	return deleted, nil
}

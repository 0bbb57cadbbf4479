package repository

import (
	"paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"

	"gorm.io/gorm"
)

// Models 返回需要自动迁移的全部实体。
func Models() []any {
	return []any{
		&college.College{},
		&user.User{},
		&paper.Category{},
		&paper.Paper{},
		&click.Event{},
	}
}

// AutoMigrate 创建或更新全部表结构与索引。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

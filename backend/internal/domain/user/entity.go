/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:38:45
 * @FilePath: \paper-portal\backend\internal\domain\user\entity.go
 * @LastEditTime: 2025-11-02 11:06:12
 */
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role 是封闭的角色集合，所有分支必须穷举这三个取值。
type Role string

const (
	RoleStudent         Role = "STUDENT"
	RoleCollegeAdmin    Role = "COLLEGE_ADMIN"
	RoleUniversityAdmin Role = "UNIVERSITY_ADMIN"
)

// ErrUnknownRole 表示角色字符串不属于已知集合。
var ErrUnknownRole = errors.New("unknown role")

// ParseRole 将外部输入（JWT claims、种子数据）解析为 Role，大小写不敏感。
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleCollegeAdmin:
		return RoleCollegeAdmin, nil
	case RoleUniversityAdmin:
		return RoleUniversityAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// Valid 判断角色是否属于已知集合。
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCollegeAdmin, RoleUniversityAdmin:
		return true
	default:
		return false
	}
}

// User 是门户用户，学生与管理员共用一张表。
type User struct {
	ID           uint      `gorm:"primaryKey" json:"user_id"`                  // 自增主键
	Username     string    `gorm:"size:64;uniqueIndex" json:"username"`        // 登录名（唯一）
	PasswordHash string    `gorm:"size:255" json:"-"`                          // 密码哈希，由外部认证服务维护
	RealName     string    `gorm:"size:64" json:"real_name"`                   // 真实姓名，可为空
	Role         Role      `gorm:"size:32;index;not null" json:"role"`         // STUDENT / COLLEGE_ADMIN / UNIVERSITY_ADMIN
	CollegeID    uint      `gorm:"index" json:"college_id"`                    // 所属学院，校级管理员可为 0
	CreatedAt    time.Time `json:"created_at"`                                 // 创建时间（gorm 自动维护）
}

// DisplayName 优先返回真实姓名，为空时回退为 "Student {id}"。
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.RealName); name != "" {
		return name
	}
	return fmt.Sprintf("Student %d", u.ID)
}

// Principal 描述一次请求的调用身份，由鉴权中间件构造后显式传入门面层。
type Principal struct {
	UserID    uint
	Role      Role
	CollegeID uint
}

// Validate 校验 Principal 的基本完整性，学生与院级管理员必须归属学院。
func (p Principal) Validate() error {
	if p.UserID == 0 {
		return errors.New("principal user id is required")
	}
	switch p.Role {
	case RoleStudent, RoleCollegeAdmin:
		if p.CollegeID == 0 {
			return fmt.Errorf("principal with role %s requires college id", p.Role)
		}
		return nil
	case RoleUniversityAdmin:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, p.Role)
	}
}

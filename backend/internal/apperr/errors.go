/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-02 10:14:21
 * @FilePath: \paper-portal\backend\internal\apperr\errors.go
 * @LastEditTime: 2025-11-02 10:14:25
 */
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError 表示调用参数在进入存储层之前即被拒绝。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError 表示引用的实体（用户、论文、学院、点击记录）不存在。
type NotFoundError struct {
	Kind string
	ID   uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// IntegrityError 表示实体存在但彼此关系不成立，例如用户不属于请求中的学院。
type IntegrityError struct {
	Kind   string
	ID     uint64
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Kind == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %d: %s", e.Kind, e.ID, e.Reason)
}

// StorageError 包装底层数据库错误，Op 标记失败的操作。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PermissionError 表示当前身份无权执行该操作。
type PermissionError struct {
	Action string
	Reason string
}

func (e *PermissionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("permission denied: %s", e.Action)
	}
	return fmt.Sprintf("permission denied: %s (%s)", e.Action, e.Reason)
}

// Validation 构造 ValidationError。
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFound 构造 NotFoundError。
func NotFound(kind string, id uint64) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Integrity 构造 IntegrityError。
func Integrity(kind string, id uint64, reason string) error {
	return &IntegrityError{Kind: kind, ID: id, Reason: reason}
}

// Storage 将 err 包装为 StorageError；err 为 nil 时返回 nil，已是 StorageError 的不重复包装。
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StorageError
	if errors.As(err, &existing) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Forbidden 构造 PermissionError。
func Forbidden(action, reason string) error {
	return &PermissionError{Action: action, Reason: reason}
}

// IsValidation 判断错误链中是否存在 ValidationError，其余 IsXxx 同理。
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

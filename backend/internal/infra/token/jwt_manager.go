/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:40:41
 * @FilePath: \paper-portal\backend\internal\infra\token\jwt_manager.go
 * @LastEditTime: 2025-11-04 15:09:27
 */
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"paper-portal/backend/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	claimRole      = "role"
	claimCollegeID = "college_id"
)

// ErrInvalidToken 表示令牌签名、有效期或 claims 不合法。
var ErrInvalidToken = errors.New("invalid token")

// JWTManager 基于对称密钥签发与解析访问令牌，claims 中携带 sub/role/college_id。
// 正式环境的令牌由外部认证服务签发，这里的 Issue 主要服务于本地调试与测试。
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager 创建 JWT 管理器，ttl <= 0 时使用 1 小时。
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

// Issue 为 Principal 签发访问令牌，返回令牌与过期时间。
func (m *JWTManager) Issue(p user.Principal) (string, time.Time, error) {
	if err := p.Validate(); err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	expiresAt := time.Now().Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":          strconv.FormatUint(uint64(p.UserID), 10),
		"exp":          expiresAt.Unix(),
		"iat":          time.Now().Unix(),
		"jti":          uuid.NewString(),
		claimRole:      string(p.Role),
		claimCollegeID: p.CollegeID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse 校验令牌并还原 Principal。
func (m *JWTManager) Parse(raw string) (user.Principal, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return m.secret, nil
	})
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return user.Principal{}, ErrInvalidToken
	}

	userID, err := uintClaim(claims["sub"])
	if err != nil || userID == 0 {
		return user.Principal{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	roleRaw, _ := claims[claimRole].(string)
	role, err := user.ParseRole(roleRaw)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var collegeID uint
	if rawCollege, ok := claims[claimCollegeID]; ok && rawCollege != nil {
		if collegeID, err = uintClaim(rawCollege); err != nil {
			return user.Principal{}, fmt.Errorf("%w: bad college_id", ErrInvalidToken)
		}
	}

	p := user.Principal{UserID: userID, Role: role, CollegeID: collegeID}
	if err := p.Validate(); err != nil {
		return user.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return p, nil
}

// uintClaim 兼容字符串、float64 与 json.Number 三种 claims 数值表示。
func uintClaim(v any) (uint, error) {
	var raw string
	switch val := v.(type) {
	case string:
		raw = val
	case float64:
		if val < 0 {
			return 0, errors.New("negative value")
		}
		raw = strconv.FormatFloat(val, 'f', 0, 64)
	case json.Number:
		raw = val.String()
	default:
		return 0, fmt.Errorf("unsupported claim type %T", v)
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

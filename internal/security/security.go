// Package security 提供API密钥校验和请求频率限制
package security

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAPIKey = errors.New("无效的API密钥")
	ErrExpiredAPIKey = errors.New("API密钥已过期或已撤销")
)

// 权限范围
const (
	ScopeAll   = "*"
	ScopePlan  = "planning" // 生成排班
	ScopeRead  = "read"     // 查询已保存的排班和规则
	ScopeAdmin = "admin"    // 发布、删除排班
)

// APIKey API密钥，只保存密钥摘要
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Prefix    string     `json:"prefix"` // 便于在日志中辨认
	Scopes    []string   `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Enabled   bool       `json:"enabled"`
}

// IsValid 检查密钥是否有效
func (k *APIKey) IsValid() bool {
	if !k.Enabled {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// HasScope 检查密钥是否有某权限
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == ScopeAll {
			return true
		}
	}
	return false
}

// APIKeyManager API密钥管理器
type APIKeyManager struct {
	keys map[[sha256.Size]byte]*APIKey
	mu   sync.RWMutex
}

// NewAPIKeyManager 创建密钥管理器
func NewAPIKeyManager() *APIKeyManager {
	return &APIKeyManager{
		keys: make(map[[sha256.Size]byte]*APIKey),
	}
}

// Register 登记配置中的静态密钥
func (m *APIKeyManager) Register(raw, name string, scopes ...string) *APIKey {
	if len(scopes) == 0 {
		scopes = []string{ScopeAll}
	}
	key := &APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		Prefix:    prefix(raw),
		Scopes:    scopes,
		CreatedAt: time.Now(),
		Enabled:   true,
	}
	m.mu.Lock()
	m.keys[sha256.Sum256([]byte(raw))] = key
	m.mu.Unlock()
	return key
}

// GenerateKey 生成新密钥，明文只在此处返回一次
func (m *APIKeyManager) GenerateKey(name string, scopes []string, expiresIn *time.Duration) (string, *APIKey, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", nil, err
	}
	raw := "mk_" + base64.RawURLEncoding.EncodeToString(b)

	key := m.Register(raw, name, scopes...)
	if expiresIn != nil {
		expiresAt := time.Now().Add(*expiresIn)
		m.mu.Lock()
		key.ExpiresAt = &expiresAt
		m.mu.Unlock()
	}
	return raw, key, nil
}

// Validate 验证密钥
func (m *APIKeyManager) Validate(raw string) (*APIKey, error) {
	m.mu.RLock()
	key, exists := m.keys[sha256.Sum256([]byte(raw))]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrInvalidAPIKey
	}
	if !key.IsValid() {
		return nil, ErrExpiredAPIKey
	}
	return key, nil
}

// Revoke 按标识撤销密钥
func (m *APIKeyManager) Revoke(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.keys {
		if key.ID == id {
			key.Enabled = false
			return true
		}
	}
	return false
}

// Len 已登记的密钥数
func (m *APIKeyManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// RateLimiter 滑动窗口请求频率限制器
type RateLimiter struct {
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewRateLimiter 创建频率限制器，limit<=0 时不限制
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow 检查是否允许请求，同时清理该键过期的记录
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)

	reqs := rl.requests[key]
	kept := reqs[:0]
	for _, t := range reqs {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rl.limit {
		rl.requests[key] = kept
		return false
	}
	rl.requests[key] = append(kept, now)
	return true
}

// ExtractAPIKey 从请求中提取API密钥
func ExtractAPIKey(r *http.Request) string {
	// 1. 从 Authorization header
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	// 2. 从 X-API-Key header
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	// 3. 从 query parameter
	if key := r.URL.Query().Get("api_key"); key != "" {
		return key
	}

	return ""
}

type keyCtx struct{}

// ContextWithKey 在上下文中记录已认证的密钥
func ContextWithKey(ctx context.Context, key *APIKey) context.Context {
	return context.WithValue(ctx, keyCtx{}, key)
}

// KeyFromContext 取出已认证的密钥
func KeyFromContext(ctx context.Context) (*APIKey, bool) {
	key, ok := ctx.Value(keyCtx{}).(*APIKey)
	return key, ok
}

func prefix(raw string) string {
	if len(raw) > 6 {
		return raw[:6]
	}
	return raw
}

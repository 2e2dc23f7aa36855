package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

// TokenCookieName 是认证服务写入令牌的 cookie 名
const TokenCookieName = "__mealbox_token"

// AuthClaims 由认证服务签发，Subject 为用户 ID
type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest 优先读取 cookie，其次读取 Authorization 头
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			h.unauthorized(w, r, "用户未登录")
			return
		}

		// 验证 token
		claims := &AuthClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			h.unauthorized(w, r, "无效的令牌")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			h.unauthorized(w, r, "无效的令牌")
			return
		}

		identity := domain.Identity{
			UserID: userID,
			Role:   domain.Role(claims.Role),
		}
		ctx := context.WithValue(r.Context(), IdentityCtx, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := r.Context().Value(IdentityCtx).(domain.Identity)
			if !slices.Contains(roles, identity.Role) {
				h.forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ownedSubscription 返回调用者有权操作的订阅，非管理员访问他人的订阅时按不存在处理
func (h *Handler) ownedSubscription(r *http.Request, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	identity := r.Context().Value(IdentityCtx).(domain.Identity)

	sub, err := h.scheduler.Subscription(r.Context(), subscriptionID)
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() && sub.UserID != identity.UserID {
		return nil, fmt.Errorf("%w: 订阅不存在", domain.ErrNotFound)
	}

	return sub, nil
}

func (h *Handler) recurringPattern(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		patternID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			h.badRequest(w, r, fmt.Errorf("%w: 周期配送ID无效", domain.ErrValidation))
			return
		}

		pattern, err := h.scheduler.RecurringPattern(r.Context(), patternID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				h.notFound(w, r, "周期配送不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		if _, err := h.ownedSubscription(r, pattern.SubscriptionID); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				h.notFound(w, r, "周期配送不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), RecurringPatternCtx, pattern)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

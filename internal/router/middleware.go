package router

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crm-next/internal/authz"
	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/constants"
	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"
	"github.com/crm-next/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const requestIDKey = handlershared.ContextKeyRequestID
const requestIDHeader = "X-Request-ID"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-Request-ID",
			"traceparent",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件，同时写入 request context 供 service 层日志使用
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

// TracingMiddleware 解析 W3C trace context 并为每个请求开启 server span
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.request_id", getRequestID(c)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "authorization header is missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", "authorization header must be Bearer <token>"
	}
	return strings.TrimSpace(parts[1]), ""
}

// AdminJWTAuthMiddleware 员工 JWT 鉴权中间件
func AdminJWTAuthMiddleware(secretKey string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || adminRepo == nil {
			response.Abort(c, response.CodeUnauthorized, "authentication is not configured")
			return
		}
		tokenString, problem := bearerToken(c)
		if problem != "" {
			response.Abort(c, response.CodeUnauthorized, problem)
			return
		}

		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		claims := &service.JWTClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid || claims.AdminID == 0 {
			response.Abort(c, response.CodeUnauthorized, "invalid or expired token")
			return
		}

		ctx := c.Request.Context()
		if cached, hit, cacheErr := cache.GetAuthState(ctx, cache.SubjectAdmin, claims.AdminID); cacheErr == nil && hit && cached != nil {
			if !cached.Active {
				response.Abort(c, response.CodeUnauthorized, service.ErrAccountDisabled.Error())
				return
			}
			if claims.TokenVersion != cached.TokenVersion || !isIssuedAfterInvalidBeforeUnix(claims.IssuedAt, cached.TokenInvalidBefore) {
				response.Abort(c, response.CodeUnauthorized, "token has been revoked")
				return
			}
			setAdminContext(c, claims.AdminID, cached.Role)
			c.Next()
			return
		}

		admin, err := adminRepo.GetByID(claims.AdminID)
		if err != nil || admin == nil {
			response.Abort(c, response.CodeUnauthorized, "invalid or expired token")
			return
		}
		if !admin.IsActive {
			response.Abort(c, response.CodeUnauthorized, service.ErrAccountDisabled.Error())
			return
		}
		if claims.TokenVersion != admin.TokenVersion || !isIssuedAfterInvalidBefore(claims.IssuedAt, admin.TokenInvalidBefore) {
			response.Abort(c, response.CodeUnauthorized, "token has been revoked")
			return
		}
		_ = cache.SetAuthState(ctx, cache.BuildAdminAuthState(admin))

		setAdminContext(c, admin.ID, admin.Role)
		c.Next()
	}
}

func setAdminContext(c *gin.Context, adminID uint, role string) {
	c.Set(handlershared.ContextKeyAdminID, adminID)
	c.Set(handlershared.ContextKeyRole, role)
}

// CustomerJWTAuthMiddleware 客户 JWT 鉴权中间件
func CustomerJWTAuthMiddleware(secretKey string, customerRepo repository.CustomerRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || customerRepo == nil {
			response.Abort(c, response.CodeUnauthorized, "authentication is not configured")
			return
		}
		tokenString, problem := bearerToken(c)
		if problem != "" {
			response.Abort(c, response.CodeUnauthorized, problem)
			return
		}

		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		claims := &service.CustomerJWTClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid || claims.CustomerID == 0 {
			response.Abort(c, response.CodeUnauthorized, "invalid or expired token")
			return
		}

		ctx := c.Request.Context()
		if cached, hit, cacheErr := cache.GetAuthState(ctx, cache.SubjectCustomer, claims.CustomerID); cacheErr == nil && hit && cached != nil {
			if !cached.Active {
				response.Abort(c, response.CodeUnauthorized, service.ErrAccountDisabled.Error())
				return
			}
			if claims.TokenVersion != cached.TokenVersion || !isIssuedAfterInvalidBeforeUnix(claims.IssuedAt, cached.TokenInvalidBefore) {
				response.Abort(c, response.CodeUnauthorized, "token has been revoked")
				return
			}
			setCustomerContext(c, claims.CustomerID)
			c.Next()
			return
		}

		customer, err := customerRepo.GetByID(claims.CustomerID)
		if err != nil || customer == nil {
			response.Abort(c, response.CodeUnauthorized, "invalid or expired token")
			return
		}
		if customer.Status != constants.CustomerStatusActive || !customer.CanLogin() {
			response.Abort(c, response.CodeUnauthorized, service.ErrAccountDisabled.Error())
			return
		}
		if claims.TokenVersion != customer.TokenVersion || !isIssuedAfterInvalidBefore(claims.IssuedAt, customer.TokenInvalidBefore) {
			response.Abort(c, response.CodeUnauthorized, "token has been revoked")
			return
		}
		_ = cache.SetAuthState(ctx, cache.BuildCustomerAuthState(customer))

		setCustomerContext(c, customer.ID)
		c.Next()
	}
}

func setCustomerContext(c *gin.Context, customerID uint) {
	c.Set(handlershared.ContextKeyCustomerID, customerID)
	c.Set(handlershared.ContextKeyRole, constants.RoleCustomer)
}

// RoleGateMiddleware 按角色对路由模板执行 Casbin 授权
func RoleGateMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("role_gate_service_unavailable")
			response.Abort(c, response.CodeForbidden, "access denied")
			return
		}

		role := c.GetString(handlershared.ContextKeyRole)
		if strings.TrimSpace(role) == "" {
			response.Abort(c, response.CodeUnauthorized, "unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceRole(role, resource, c.Request.Method)
		if err != nil {
			logger.Ctx(c.Request.Context()).Errorw("role_gate_enforce_failed",
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Abort(c, response.CodeForbidden, "access denied")
			return
		}
		if !allowed {
			logger.Ctx(c.Request.Context()).Warnw("role_gate_permission_denied",
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Abort(c, response.CodeForbidden, "insufficient permissions")
			return
		}

		c.Next()
	}
}

func isIssuedAfterInvalidBefore(issuedAt *jwt.NumericDate, invalidBefore *time.Time) bool {
	if invalidBefore == nil {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Time.Unix() >= invalidBefore.Unix()
}

func isIssuedAfterInvalidBeforeUnix(issuedAt *jwt.NumericDate, invalidBeforeUnix int64) bool {
	if invalidBeforeUnix <= 0 {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Time.Unix() >= invalidBeforeUnix
}

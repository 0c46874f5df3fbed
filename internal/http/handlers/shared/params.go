package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/crm-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParseIDParam 解析路径中的正整数 ID，失败时直接响应 400。
func ParseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// QueryUint 读取可选的正整数查询参数，空值返回 0。
func QueryUint(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "invalid "+key, nil)
		return 0, false
	}
	return uint(id), true
}

// QueryInt 读取可选的整数查询参数
func QueryInt(c *gin.Context, key string) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "invalid "+key, nil)
		return 0, false
	}
	return value, true
}

// QueryBool 读取可选的布尔查询参数
func QueryBool(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		RespondError(c, response.CodeBadRequest, "invalid "+key, nil)
		return nil, false
	}
	return &value, true
}

// QueryTime 读取可选的时间查询参数，支持 RFC3339 与 2006-01-02。
func QueryTime(c *gin.Context, key string) (*time.Time, bool) {
	value, err := ParseTimeNullable(c.Query(key))
	if err != nil {
		RespondError(c, response.CodeBadRequest, "invalid "+key, nil)
		return nil, false
	}
	return value, true
}

// ParseTimeNullable 解析可空时间
func ParseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseUintParam reads a numeric path parameter such as :id
func ParseUintParam(c *gin.Context, name string) (uint, error) {
	val, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || val == 0 {
		return 0, errors.ValidationError(name, "must be a positive integer")
	}
	return uint(val), nil
}

// Page is a limit/offset window over a listing
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads ?limit= and ?offset= with defaults and bounds
func ParsePage(c *gin.Context) Page {
	limit := ParseInt(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)), DefaultPageSize)
	offset := ParseInt(c.DefaultQuery("offset", "0"), 0)
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// PageResponse builds the envelope shared by every list endpoint
func PageResponse(results any, total int64, page Page) gin.H {
	return gin.H{
		"results":  results,
		"count":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
		"has_more": int64(page.Offset+page.Limit) < total,
	}
}

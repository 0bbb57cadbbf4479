/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-02 10:31:47
 * @FilePath: \paper-portal\backend\internal\domain\paper\entity.go
 * @LastEditTime: 2025-11-03 21:18:30
 */
package paper

import (
	"net/url"
	"strings"
	"time"

	"paper-portal/backend/internal/apperr"
)

// Category 是论文分类（如 cs.AI），由外部维护。
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"category_id"`
	Code string `gorm:"size:32;uniqueIndex" json:"code"`
	Name string `gorm:"size:128;not null" json:"name"`
}

// Paper 是论文元数据，CreatedAt 决定年度分布归属。
type Paper struct {
	ID         uint      `gorm:"primaryKey" json:"paper_id"`
	Title      string    `gorm:"size:512;not null" json:"title"`
	ArxivID    string    `gorm:"size:64;uniqueIndex" json:"arxiv_id"`
	DOI        string    `gorm:"size:128" json:"doi"`
	CategoryID uint      `gorm:"index" json:"category_id"`
	Abstract   string    `gorm:"type:text" json:"abstract"`
	PDFURL     string    `gorm:"size:512" json:"pdf_url"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	maxTitleLength   = 512
	maxArxivIDLength = 64
	maxDOILength     = 128
	maxPDFURLLength  = 512
)

// Changes 是论文更新的显式字段集合，nil 表示保持原值。
type Changes struct {
	Title      *string `json:"title"`
	ArxivID    *string `json:"arxiv_id"`
	DOI        *string `json:"doi"`
	CategoryID *uint   `json:"category_id"`
	Abstract   *string `json:"abstract"`
	PDFURL     *string `json:"pdf_url"`
}

// Empty 判断是否没有任何字段需要更新。
func (c Changes) Empty() bool {
	return c.Title == nil && c.ArxivID == nil && c.DOI == nil &&
		c.CategoryID == nil && c.Abstract == nil && c.PDFURL == nil
}

// Validate 逐字段校验，返回第一个不合法字段对应的 ValidationError。
func (c Changes) Validate() error {
	if c.Empty() {
		return apperr.Validation("changes", "at least one field is required")
	}
	if c.Title != nil {
		title := strings.TrimSpace(*c.Title)
		if title == "" {
			return apperr.Validation("title", "must not be empty")
		}
		if len(title) > maxTitleLength {
			return apperr.Validation("title", "too long")
		}
	}
	if c.ArxivID != nil {
		arxiv := strings.TrimSpace(*c.ArxivID)
		if arxiv == "" {
			return apperr.Validation("arxiv_id", "must not be empty")
		}
		if len(arxiv) > maxArxivIDLength {
			return apperr.Validation("arxiv_id", "too long")
		}
	}
	if c.DOI != nil && len(strings.TrimSpace(*c.DOI)) > maxDOILength {
		return apperr.Validation("doi", "too long")
	}
	if c.CategoryID != nil && *c.CategoryID == 0 {
		return apperr.Validation("category_id", "must be positive")
	}
	if c.PDFURL != nil {
		raw := strings.TrimSpace(*c.PDFURL)
		if len(raw) > maxPDFURLLength {
			return apperr.Validation("pdf_url", "too long")
		}
		if raw != "" {
			parsed, err := url.Parse(raw)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return apperr.Validation("pdf_url", "must be an http(s) url")
			}
		}
	}
	return nil
}

// Columns 将变更转换为 gorm Updates 可用的列映射。
func (c Changes) Columns() map[string]any {
	cols := make(map[string]any)
	if c.Title != nil {
		cols["title"] = strings.TrimSpace(*c.Title)
	}
	if c.ArxivID != nil {
		cols["arxiv_id"] = strings.TrimSpace(*c.ArxivID)
	}
	if c.DOI != nil {
		cols["doi"] = strings.TrimSpace(*c.DOI)
	}
	if c.CategoryID != nil {
		cols["category_id"] = *c.CategoryID
	}
	if c.Abstract != nil {
		cols["abstract"] = *c.Abstract
	}
	if c.PDFURL != nil {
		cols["pdf_url"] = strings.TrimSpace(*c.PDFURL)
	}
	return cols
}

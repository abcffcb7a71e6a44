// internal/models/work.go
package models

import "time"

// Chapter 章节，在作品内以下标作为标识
type Chapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChapterAssociation 已确认的章节关联结果
type ChapterAssociation struct {
	SelectedChapters   []int     `json:"selected_chapters"`
	IsAutoAssociate    bool      `json:"is_auto_associate"`
	AutoAssociateCount int       `json:"auto_associate_count"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Work 作品
type Work struct {
	ID           string              `json:"id"`
	OwnerID      string              `json:"owner_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Chapters     []Chapter           `json:"chapters"`
	IsDescending bool                `json:"is_descending"`
	Association  *ChapterAssociation `json:"association,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

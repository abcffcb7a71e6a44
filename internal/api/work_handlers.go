package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Corphon/ScribeNest/internal/services"
)

// CreateWorkRequest 创建作品请求
type CreateWorkRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	IsDescending bool   `json:"isDescending"`
}

// AddChapterRequest 追加章节请求
type AddChapterRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AssociateRequest 章节关联操作序列
type AssociateRequest struct {
	Ops []services.AssociationOp `json:"ops" binding:"dive"`
}

// ListWorks 列出当前用户的作品
func (h *Handler) ListWorks(c *gin.Context) {
	works, err := h.Works.ListWorks(currentUser(c).ID)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, works)
}

// CreateWork 创建作品
func (h *Handler) CreateWork(c *gin.Context) {
	var req CreateWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, MsgBadRequestBody)
		return
	}

	w, err := h.Works.CreateWork(currentUser(c).ID, req.Title, req.Description, req.IsDescending)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Created(c, w, "作品创建成功")
}

// GetWork 读取作品及章节关联窗口的行数据
func (h *Handler) GetWork(c *gin.Context) {
	userID := currentUser(c).ID
	w, err := h.Works.GetWork(userID, c.Param("id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	sel, err := h.Works.OpenSelector(userID, w.ID)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	h.Response.Success(c, gin.H{
		"work":    w,
		"rows":    sel.Rows(),
		"summary": sel.Summary(),
	})
}

// AddChapter 追加章节
func (h *Handler) AddChapter(c *gin.Context) {
	var req AddChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, MsgBadRequestBody)
		return
	}

	w, err := h.Works.AddChapter(currentUser(c).ID, c.Param("id"), req.Title, req.Content)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Created(c, w, "章节已添加")
}

// Associate 执行章节关联操作并保存确认结果
func (h *Handler) Associate(c *gin.Context) {
	var req AssociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, MsgBadRequestBody)
		return
	}

	d, err := h.Works.Associate(currentUser(c).ID, c.Param("id"), req.Ops)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, d, "章节关联已保存")
}

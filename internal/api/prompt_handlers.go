package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/ScribeNest/internal/models"
	"github.com/Corphon/ScribeNest/internal/prompts"
	"github.com/Corphon/ScribeNest/internal/services"
)

// ListPrompts 一次性列出提示词：按分类拉取、本地搜索，并展开到至少 limit 条
func (h *Handler) ListPrompts(c *gin.Context) {
	promptType := models.PromptType(c.DefaultQuery("type", string(models.PromptAIWriting)))
	if !promptType.Valid() {
		h.Response.BadRequest(c, "不支持的提示词类型")
		return
	}
	category := models.PromptCategory(c.DefaultQuery("category", string(models.CategoryRecommended)))

	browser := prompts.New(promptType, c.Query("selected"))
	req, err := browser.SetCategory(category)
	if err != nil {
		h.Response.BadRequest(c, "不支持的提示词分类")
		return
	}

	user := currentUser(c)
	loader := prompts.NewLoader(h.Prompts.ForUser(user.ID), 0, h.Logger)
	items, err := loader.Fetch(c.Request.Context(), req)
	browser.Complete(req, items, err)
	h.Metrics.Inc("prompt_loads_total")
	if browser.Status() == prompts.StatusError {
		h.Metrics.Inc("prompt_load_failures_total")
		h.Response.Error(c, http.StatusInternalServerError, ErrorPromptLoadFailed, browser.Error())
		return
	}

	browser.SetSearchTerm(c.Query("q"))
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		for browser.VisibleCount() < limit {
			if !browser.RequestMore() {
				break
			}
		}
	}
	h.Response.Success(c, browser.Snapshot())
}

// CreatePrompt 创建自己的提示词
func (h *Handler) CreatePrompt(c *gin.Context) {
	var in services.CreatePromptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.Response.BadRequest(c, MsgBadRequestBody)
		return
	}

	p, err := h.Prompts.Create(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Created(c, p, "提示词创建成功")
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anonboard/internal/chain"
	"github.com/d60-Lab/anonboard/internal/service"
	"github.com/d60-Lab/anonboard/pkg/response"
)

// Handler 帖子相关 HTTP 入口
type Handler struct {
	posts service.PostService
	token chain.Token
}

func NewHandler(posts service.PostService, token chain.Token) *Handler {
	return &Handler{posts: posts, token: token}
}

type createPostRequest struct {
	Text          string `json:"text"`
	AuthorAddress string `json:"authorAddress"`
}

type tipPostRequest struct {
	Amount *string `json:"amount"`
	TxHash string  `json:"txHash"`
}

// ListPosts 游标分页拉取帖子流
// @Summary 帖子流（倒序分页）
// @Tags 帖子
// @Param cursor query string false "上一页末条帖子 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	cursor := c.Query("cursor")
	posts, next, err := h.posts.List(c.Request.Context(), 0, cursor)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	var nextOut any
	if next != "" {
		nextOut = next
	}
	c.JSON(200, gin.H{"posts": shapePosts(posts, h.token), "nextCursor": nextOut})
}

// CreatePost 发帖
// @Summary 发帖（可选绑定打赏地址）
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body createPostRequest true "帖子内容"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Post text is required")
		return
	}
	post, err := h.posts.Create(c.Request.Context(), req.Text, req.AuthorAddress)
	if err != nil {
		if service.IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	c.JSON(200, gin.H{"post": shapePost(post, h.token)})
}

// GetPost 查询单帖
// @Summary 查询单帖
// @Tags 帖子
// @Param id path string true "帖子 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	c.JSON(200, gin.H{"post": shapePost(post, h.token)})
}

// TipPost 打赏确认后的链下入账
// @Summary 打赏入账
// @Tags 打赏
// @Accept json
// @Produce json
// @Param id path string true "帖子 ID"
// @Param request body tipPostRequest true "金额与可选交易哈希"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /posts/{id}/tip [post]
func (h *Handler) TipPost(c *gin.Context) {
	var req tipPostRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		response.BadRequest(c, "Tip amount is required")
		return
	}
	err := h.posts.RecordTip(c.Request.Context(), c.Param("id"), *req.Amount, req.TxHash)
	if err != nil {
		if service.IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		// 帖子不存在与存储失败一并按 500 处理
		response.InternalError(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true})
}

// LikePost 点赞
// @Summary 点赞
// @Tags 帖子
// @Param id path string true "帖子 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /posts/{id}/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	if err := h.posts.Like(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true})
}

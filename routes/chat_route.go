package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"chat_back_end_go/logger"
	"chat_back_end_go/models"
	"chat_back_end_go/services"

	"github.com/gin-gonic/gin"
)

type ChatService interface {
	CreateChat(ctx context.Context, req models.NewChat) (*models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)
	AppendMessage(ctx context.Context, chatID string, req models.NewMessage) (*models.Chat, error)
	UpdateChatProfile(ctx context.Context, chatID string, req models.ChatProfile) (*models.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	UpdateMessageText(ctx context.Context, chatID, messageID, text string) (*models.Chat, error)
}

type ReplyScheduler interface {
	Schedule(chatID, text string) *services.ScheduledReply
}

type ChatHandler struct {
	chats   ChatService
	replies ReplyScheduler
	log     *slog.Logger
}

func NewChatHandler(chats ChatService, replies ReplyScheduler, log *slog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, replies: replies, log: log}
}

func SetupChatRoutes(r *gin.Engine, h *ChatHandler) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to the Chat API!")
	})

	api := r.Group("/api/chats")
	api.GET("", h.ListChats)
	api.POST("", h.CreateChat)
	api.GET("/:id", h.GetChat)
	api.PATCH("/:id", h.UpdateChat)
	api.DELETE("/:id", h.DeleteChat)
	api.PATCH("/:id/messages", h.AppendMessage)
	api.PATCH("/:id/messages/:messageId", h.UpdateMessage)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, err := h.chats.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req models.NewChat
	if !h.bind(c, &req) {
		return
	}

	chat, err := h.chats.CreateChat(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *ChatHandler) UpdateChat(c *gin.Context) {
	var req models.ChatProfile
	if !h.bind(c, &req) {
		return
	}

	chat, err := h.chats.UpdateChatProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	if err := h.chats.DeleteChat(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted"})
}

// AppendMessage is the human-facing send path: it is the only caller that
// schedules an auto-reply.
func (h *ChatHandler) AppendMessage(c *gin.Context) {
	var req models.SendMessage
	if !h.bind(c, &req) {
		return
	}

	chatID := c.Param("id")
	chat, err := h.chats.AppendMessage(c.Request.Context(), chatID, req.NewMessage())
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.replies.Schedule(chat.ID.String(), *req.Text)
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) UpdateMessage(c *gin.Context) {
	var req models.MessageText
	if !h.bind(c, &req) {
		return
	}

	chat, err := h.chats.UpdateMessageText(c.Request.Context(), c.Param("id"), c.Param("messageId"), *req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Warn("invalid request body", slog.String("path", c.FullPath()), logger.Err(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return true
}

func (h *ChatHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "First name and last name are required"})
	case errors.Is(err, services.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Chat not found"})
	case errors.Is(err, services.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Message not found"})
	default:
		h.log.Error("request failed", slog.String("path", c.FullPath()), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}

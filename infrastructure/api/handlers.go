package api

import (
	"channel-chat/auth"
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"
	"channel-chat/services"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleIssueToken hands out development tokens, no credential is checked.
func (s *Server) handleIssueToken(c *gin.Context) {
	var req wire.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err))
		return
	}
	if err := auth.ValidateTokenRequest(req); err != nil {
		s.fail(c, err)
		return
	}
	identity := chat.Identity{ID: chat.UserID(req.UserID), DisplayName: req.DisplayName, Avatar: req.Avatar}
	if identity.DisplayName == "" {
		identity.DisplayName = req.UserID
	}
	token, err := s.issuer.GenerateToken(identity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.TokenResponse{Token: token})
}

func (s *Server) handleListChannels(c *gin.Context) {
	channels, err := s.service.ListChannels(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(channels, func(ch chat.Channel, _ int) wire.Channel { return wire.FromChannel(ch) }))
}

func (s *Server) handleCreateChannel(c *gin.Context) {
	var req wire.CreateChannelRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	identity, _ := auth.IdentityFrom(c)
	channel, err := s.service.CreateChannel(c.Request.Context(), identity, chat.Channel{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire.FromChannel(channel))
}

func (s *Server) handleGetChannel(c *gin.Context) {
	channel, err := s.service.GetChannel(c.Request.Context(), chat.ChannelID(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.FromChannel(channel))
}

func (s *Server) handleMessages(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	limit, err := queryInt(c, "limit", services.DefaultPageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	messages, err := s.service.Messages(c.Request.Context(), chat.ChannelID(c.Param("id")), page, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(m chat.Message, _ int) wire.Message { return wire.FromMessage(m) }))
}

func (s *Server) handlePostMessage(c *gin.Context) {
	var req wire.PostMessageRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	identity, _ := auth.IdentityFrom(c)
	message, err := s.service.Post(c.Request.Context(), identity, chat.PostMessageCommand{
		ChannelID: chat.ChannelID(c.Param("id")),
		Body:      req.Text,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire.FromMessage(message))
}

func (s *Server) handleDeleteMessage(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)
	err := s.service.Delete(c.Request.Context(), identity, chat.DeleteMessageCommand{
		MessageID: chat.MessageID(c.Param("id")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReact(c *gin.Context) {
	var req wire.ReactRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	identity, _ := auth.IdentityFrom(c)
	message, err := s.service.React(c.Request.Context(), identity, chat.ReactCommand{
		MessageID: chat.MessageID(c.Param("id")),
		Emoji:     req.Emoji,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.FromMessage(message))
}

func (s *Server) handleJoin(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)
	channel, err := s.service.Join(c.Request.Context(), identity, chat.ChannelID(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.FromChannel(channel))
}

func (s *Server) handleLeave(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)
	channel, err := s.service.Leave(c.Request.Context(), identity, chat.ChannelID(c.Param("id")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.FromChannel(channel))
}

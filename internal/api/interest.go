package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/model"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/pkg/metrics"
	"github.com/Joy-Ewatomi/Joyxora-landingpage-mvp-backend/internal/store"

	"github.com/gin-gonic/gin"
)

// waitlistRequest 加入候补名单的请求参数。
type waitlistRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Name   string `json:"name"`
	Source string `json:"source"` // 来源渠道，如 "landing" / "twitter"
}

// funderRequest 投资人线索的请求参数。
type funderRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Message      string `json:"message"`
}

type waitlistEntryResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

type funderLeadResponse struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// handleJoinWaitlist 处理加入候补名单的请求。
//
// POST /waitlist
//
// 重复加入按幂等处理：返回 200 和与首次加入相同的文案，不报错。
func (s *Server) handleJoinWaitlist(c *gin.Context) {
	var req waitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.WaitlistTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := model.WaitlistEntry{
		Email:  strings.TrimSpace(req.Email),
		Name:   strings.TrimSpace(req.Name),
		Source: strings.TrimSpace(req.Source),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.App.StoreTimeout)
	defer cancel()

	if err := s.interests.AddWaitlistEntry(ctx, &entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.WaitlistTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"message": "you are on the list"})
			return
		}
		s.logger.Error("add waitlist entry failed", slog.String("error", err.Error()))
		metrics.WaitlistTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	metrics.WaitlistTotal.WithLabelValues("created").Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "you are on the list"})
}

// handleFunderLead 处理投资人线索提交。
//
// POST /funders
func (s *Server) handleFunderLead(c *gin.Context) {
	var req funderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.FunderLeadTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead := model.FunderLead{
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
		Message:      strings.TrimSpace(req.Message),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.App.StoreTimeout)
	defer cancel()

	if err := s.interests.AddFunderLead(ctx, &lead); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.FunderLeadTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"message": "thanks, we already have your details"})
			return
		}
		s.logger.Error("add funder lead failed", slog.String("error", err.Error()))
		metrics.FunderLeadTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	metrics.FunderLeadTotal.WithLabelValues("created").Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "thanks, we will be in touch"})
}

// handleListWaitlist 返回最新的候补名单记录。
//
// GET /waitlist
func (s *Server) handleListWaitlist(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.App.StoreTimeout)
	defer cancel()

	entries, err := s.interests.ListWaitlist(ctx, s.cfg.App.MaxListLimit)
	if err != nil {
		s.logger.Error("list waitlist failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]waitlistEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, waitlistEntryResponse{
			ID:        e.ID,
			Email:     e.Email,
			Name:      e.Name,
			Source:    e.Source,
			CreatedAt: e.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"entries": resp, "count": len(resp)})
}

// handleListFunderLeads 返回最新的投资人线索。
//
// GET /funders
func (s *Server) handleListFunderLeads(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.App.StoreTimeout)
	defer cancel()

	leads, err := s.interests.ListFunderLeads(ctx, s.cfg.App.MaxListLimit)
	if err != nil {
		s.logger.Error("list funder leads failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]funderLeadResponse, 0, len(leads))
	for _, l := range leads {
		resp = append(resp, funderLeadResponse{
			ID:           l.ID,
			Email:        l.Email,
			Name:         l.Name,
			Organization: l.Organization,
			Message:      l.Message,
			CreatedAt:    l.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"entries": resp, "count": len(resp)})
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qlndemo/coffeerun/backend/internal/orders"
)

type orderItemPayload struct {
	ColleagueID    string `json:"colleague_id" binding:"required"`
	CoffeeOptionID string `json:"coffee_option_id" binding:"required"`
}

type orderCreatePayload struct {
	Items []orderItemPayload `json:"items"`
}

func (h *httpHandler) handleCreateOrder(c *gin.Context) {
	claims, ok := sessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var request orderCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	selections := make([]orders.Selection, 0, len(request.Items))
	for _, item := range request.Items {
		selections = append(selections, orders.Selection{
			ColleagueID:    item.ColleagueID,
			CoffeeOptionID: item.CoffeeOptionID,
		})
	}

	order, err := h.orders.Create(c.Request.Context(), claims.UserID(), selections)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *httpHandler) handleListOrders(c *gin.Context) {
	skip := parseIntQuery(c, "skip", 0)
	limit := parseIntQuery(c, "limit", 20)
	summaries, err := h.orders.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *httpHandler) handleGetOrder(c *gin.Context) {
	order, err := h.orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// sharedOrderPayload is what anonymous token holders see: the consolidated
// summary only, never the per-person breakdown. The underlying record is the
// same one the authed view serves; the restriction is serving-layer policy.
type sharedOrderPayload struct {
	ID           string                    `json:"id"`
	CreatedAt    time.Time                 `json:"created_at"`
	Consolidated []orders.ConsolidatedLine `json:"consolidated"`
}

func (h *httpHandler) handleGetSharedOrder(c *gin.Context) {
	token := c.Param("token")

	if h.sharedCache != nil {
		if payload, hit := h.sharedCache.Get(c.Request.Context(), token); hit {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
	}

	order, err := h.orders.GetByShareToken(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := sharedOrderPayload{
		ID:           order.ID,
		CreatedAt:    order.CreatedAt,
		Consolidated: order.Consolidated,
	}

	if h.sharedCache != nil {
		if payload, err := json.Marshal(response); err == nil {
			h.sharedCache.Set(c.Request.Context(), token, payload)
		} else {
			h.logger.Warn("shared order marshal for cache failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleStatsOverview(c *gin.Context) {
	overview, err := h.orders.StatsOverview(c.Request.Context(), parseIntQuery(c, "days", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *httpHandler) handleStatsDrinks(c *gin.Context) {
	stats, err := h.orders.StatsDrinks(c.Request.Context(),
		parseIntQuery(c, "days", 0), parseIntQuery(c, "limit", 10))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleStatsColleagues(c *gin.Context) {
	stats, err := h.orders.StatsColleagues(c.Request.Context(), parseIntQuery(c, "days", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

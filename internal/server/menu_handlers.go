package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qlndemo/coffeerun/backend/internal/catalog"
)

type catalogCreatePayload struct {
	Name         string `json:"name" binding:"required"`
	Abbreviation string `json:"abbreviation"`
	DisplayOrder int    `json:"display_order"`
}

type catalogUpdatePayload struct {
	Name         *string `json:"name"`
	Abbreviation *string `json:"abbreviation"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

func (p catalogUpdatePayload) toUpdate() catalog.ItemUpdate {
	return catalog.ItemUpdate{
		Name:         p.Name,
		Abbreviation: p.Abbreviation,
		DisplayOrder: p.DisplayOrder,
		IsActive:     p.IsActive,
	}
}

func (h *httpHandler) handleListDrinkTypes(c *gin.Context) {
	items, err := h.catalog.ListDrinkTypes(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *httpHandler) handleCreateDrinkType(c *gin.Context) {
	var request catalogCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	item, err := h.catalog.CreateDrinkType(c.Request.Context(), request.Name, request.DisplayOrder)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *httpHandler) handleUpdateDrinkType(c *gin.Context) {
	var request catalogUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	item, err := h.catalog.UpdateDrinkType(c.Request.Context(), c.Param("id"), request.toUpdate())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *httpHandler) handleDeactivateDrinkType(c *gin.Context) {
	if err := h.catalog.DeactivateDrinkType(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Drink type deactivated"})
}

func (h *httpHandler) handleListSizes(c *gin.Context) {
	items, err := h.catalog.ListSizes(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *httpHandler) handleCreateSize(c *gin.Context) {
	var request catalogCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	item, err := h.catalog.CreateSize(c.Request.Context(), request.Name, request.Abbreviation, request.DisplayOrder)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *httpHandler) handleUpdateSize(c *gin.Context) {
	var request catalogUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	item, err := h.catalog.UpdateSize(c.Request.Context(), c.Param("id"), request.toUpdate())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *httpHandler) handleDeactivateSize(c *gin.Context) {
	if err := h.catalog.DeactivateSize(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Size deactivated"})
}

func (h *httpHandler) handleListMilkOptions(c *gin.Context) {
	items, err := h.catalog.ListMilkOptions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *httpHandler) handleCreateMilkOption(c *gin.Context) {
	var request catalogCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	item, err := h.catalog.CreateMilkOption(c.Request.Context(), request.Name, request.DisplayOrder)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *httpHandler) handleUpdateMilkOption(c *gin.Context) {
	var request catalogUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	item, err := h.catalog.UpdateMilkOption(c.Request.Context(), c.Param("id"), request.toUpdate())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *httpHandler) handleDeactivateMilkOption(c *gin.Context) {
	if err := h.catalog.DeactivateMilkOption(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Milk option deactivated"})
}

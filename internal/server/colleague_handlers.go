package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qlndemo/coffeerun/backend/internal/roster"
)

func (h *httpHandler) handleListColleagues(c *gin.Context) {
	colleagues, err := h.roster.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, colleagues)
}

type colleagueCreatePayload struct {
	Name         string `json:"name" binding:"required"`
	UsuallyIn    *bool  `json:"usually_in"`
	DisplayOrder int    `json:"display_order"`
}

func (h *httpHandler) handleCreateColleague(c *gin.Context) {
	var request colleagueCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	usuallyIn := true
	if request.UsuallyIn != nil {
		usuallyIn = *request.UsuallyIn
	}
	colleague, err := h.roster.CreateColleague(c.Request.Context(), request.Name, usuallyIn, request.DisplayOrder)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, colleague)
}

type colleagueUpdatePayload struct {
	Name         *string `json:"name"`
	UsuallyIn    *bool   `json:"usually_in"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

func (h *httpHandler) handleUpdateColleague(c *gin.Context) {
	var request colleagueUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	colleague, err := h.roster.UpdateColleague(c.Request.Context(), c.Param("id"), roster.ColleagueUpdate{
		Name:         request.Name,
		UsuallyIn:    request.UsuallyIn,
		DisplayOrder: request.DisplayOrder,
		IsActive:     request.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, colleague)
}

func (h *httpHandler) handleDeactivateColleague(c *gin.Context) {
	if err := h.roster.DeactivateColleague(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Colleague deactivated"})
}

type coffeeOptionCreatePayload struct {
	DrinkTypeID  string  `json:"drink_type_id" binding:"required"`
	SizeID       string  `json:"size_id" binding:"required"`
	MilkOptionID *string `json:"milk_option_id"`
	Sugar        int     `json:"sugar" binding:"min=0,max=10"`
	Notes        string  `json:"notes"`
	IsDefault    bool    `json:"is_default"`
	DisplayOrder int     `json:"display_order"`
}

func (h *httpHandler) handleAddCoffeeOption(c *gin.Context) {
	var request coffeeOptionCreatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "drink_type_id and size_id are required, sugar must be 0-10"})
		return
	}
	option, err := h.roster.AddCoffeeOption(c.Request.Context(), c.Param("id"), roster.OptionInput{
		DrinkTypeID:  request.DrinkTypeID,
		SizeID:       request.SizeID,
		MilkOptionID: request.MilkOptionID,
		Sugar:        request.Sugar,
		Notes:        request.Notes,
		IsDefault:    request.IsDefault,
		DisplayOrder: request.DisplayOrder,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, option)
}

type coffeeOptionUpdatePayload struct {
	DrinkTypeID  *string `json:"drink_type_id"`
	SizeID       *string `json:"size_id"`
	MilkOptionID *string `json:"milk_option_id"`
	ClearMilk    bool    `json:"clear_milk"`
	Sugar        *int    `json:"sugar"`
	Notes        *string `json:"notes"`
	DisplayOrder *int    `json:"display_order"`
}

func (h *httpHandler) handleUpdateCoffeeOption(c *gin.Context) {
	var request coffeeOptionUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	option, err := h.roster.UpdateCoffeeOption(c.Request.Context(), c.Param("id"), roster.OptionUpdate{
		DrinkTypeID:  request.DrinkTypeID,
		SizeID:       request.SizeID,
		MilkOptionID: request.MilkOptionID,
		ClearMilk:    request.ClearMilk,
		Sugar:        request.Sugar,
		Notes:        request.Notes,
		DisplayOrder: request.DisplayOrder,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, option)
}

func (h *httpHandler) handleRemoveCoffeeOption(c *gin.Context) {
	if err := h.roster.RemoveCoffeeOption(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coffee option deleted"})
}

func (h *httpHandler) handleSetDefaultOption(c *gin.Context) {
	optionID := c.Param("id")
	detail, err := h.roster.ResolveCoffeeOption(c.Request.Context(), optionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	option, err := h.roster.SetDefaultOption(c.Request.Context(), detail.ColleagueID, optionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, option)
}

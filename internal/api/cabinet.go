package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediguide/backend/internal/service"
)

// CabinetHandler serves the medicine catalogue and the user's cabinet.
type CabinetHandler struct {
	cabinetService *service.CabinetService
}

func NewCabinetHandler(cabinetService *service.CabinetService) *CabinetHandler {
	return &CabinetHandler{cabinetService: cabinetService}
}

// RegisterPublicRoutes registers the catalogue routes, readable
// without a session.
func (h *CabinetHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	medicines := router.Group("/medicines")
	{
		medicines.GET("", h.ListMedicines)
		medicines.GET("/:id", h.GetMedicine)
	}
}

// RegisterRoutes registers the cabinet routes; the caller must attach
// the auth middleware to the group.
func (h *CabinetHandler) RegisterRoutes(router *gin.RouterGroup) {
	cabinet := router.Group("/cabinet")
	{
		cabinet.GET("", h.ListCabinet)
		cabinet.POST("/:id", h.AddToCabinet)
		cabinet.DELETE("/:entryID", h.RemoveFromCabinet)
		cabinet.POST("/:id/schedules", h.AddSchedule)
	}
}

func (h *CabinetHandler) ListMedicines(c *gin.Context) {
	medicines, err := h.cabinetService.ListMedicines(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list medicines"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": medicines})
}

func (h *CabinetHandler) GetMedicine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicine id"})
		return
	}

	medicine, err := h.cabinetService.GetMedicine(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load medicine"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicine": medicine})
}

func (h *CabinetHandler) ListCabinet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entries, err := h.cabinetService.ListCabinet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cabinet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *CabinetHandler) AddToCabinet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	medicineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medicine id"})
		return
	}

	entry, err := h.cabinetService.AddToCabinet(c.Request.Context(), userID, medicineID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyInCabinet):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "medicine not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add medicine"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (h *CabinetHandler) RemoveFromCabinet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entryID, err := uuid.Parse(c.Param("entryID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	if err := h.cabinetService.RemoveFromCabinet(c.Request.Context(), userID, entryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cabinet entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove medicine"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type addScheduleRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Times     string `json:"times" binding:"required"`
	Dose      string `json:"dose" binding:"required"`
}

func (h *CabinetHandler) AddSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	var req addScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.cabinetService.AddSchedule(c.Request.Context(), userID, entryID,
		req.StartDate, req.EndDate, req.Times, req.Dose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cabinet entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create schedule"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": schedule})
}

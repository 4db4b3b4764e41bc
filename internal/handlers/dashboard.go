package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"babylog-backend/internal/database"
	"babylog-backend/internal/models"
)

type DashboardHandler struct {
	store *database.Store
}

func NewDashboardHandler(store *database.Store) *DashboardHandler {
	return &DashboardHandler{store: store}
}

func (h *DashboardHandler) Get(c *gin.Context) {
	fromDate := c.Query("from_date")
	if fromDate == "" {
		fromDate = time.Now().AddDate(0, 0, -7).Format(dateLayout)
	}
	toDate := c.Query("to_date")
	if toDate == "" {
		toDate = time.Now().Format(dateLayout)
	}

	days, err := h.store.DashboardDays(c.Request.Context(), fromDate, toDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to aggregate entries", Message: err.Error()})
		return
	}
	if days == nil {
		days = []database.DashboardDay{}
	}

	latestWeight, err := h.store.LatestWeight(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get latest weight", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.DashboardResponse{
		FromDate:     fromDate,
		ToDate:       toDate,
		Days:         days,
		LatestWeight: latestWeight,
	})
}

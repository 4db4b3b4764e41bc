package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"babylog-backend/internal/database"
	"babylog-backend/internal/models"
)

type EntriesHandler struct {
	store *database.Store
}

func NewEntriesHandler(store *database.Store) *EntriesHandler {
	return &EntriesHandler{store: store}
}

const dateLayout = "2006-01-02"

func (h *EntriesHandler) List(c *gin.Context) {
	// Default to the last 7 days.
	fromDate := c.Query("from_date")
	if fromDate == "" {
		fromDate = time.Now().AddDate(0, 0, -7).Format(dateLayout)
	}
	toDate := c.Query("to_date")
	if toDate == "" {
		toDate = time.Now().Format(dateLayout)
	}

	entries, err := h.store.ListEntries(c.Request.Context(), database.EntryFilter{
		Type:     c.Query("type"),
		FromDate: fromDate,
		ToDate:   toDate,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list entries", Message: err.Error()})
		return
	}
	if entries == nil {
		entries = []database.Entry{}
	}
	c.JSON(http.StatusOK, models.EntryListResponse{Entries: entries})
}

func (h *EntriesHandler) Create(c *gin.Context) {
	var req models.EntryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	entry, err := h.store.InsertEntry(c.Request.Context(), database.NewEntry{
		EntryType:  req.EntryType,
		Subtype:    req.Subtype,
		OccurredAt: req.OccurredAt,
		Value:      req.Value,
		Notes:      req.Notes,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create entry", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *EntriesHandler) Update(c *gin.Context) {
	entryID, ok := parseID(c)
	if !ok {
		return
	}

	var req models.EntryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	entry, err := h.store.UpdateEntry(c.Request.Context(), entryID, database.EntryPatch{
		EntryType:  req.EntryType,
		Subtype:    req.Subtype,
		OccurredAt: req.OccurredAt,
		Value:      req.Value,
		Notes:      req.Notes,
		Confidence: req.Confidence,
		Confirmed:  req.Confirmed,
	})
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "entry not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update entry", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *EntriesHandler) Delete(c *gin.Context) {
	entryID, ok := parseID(c)
	if !ok {
		return
	}

	err := h.store.DeleteEntry(c.Request.Context(), entryID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "entry not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete entry", Message: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"babylog-backend/internal/database"
	"babylog-backend/internal/models"
	"babylog-backend/internal/pipeline"
)

// maxUploadSize bounds one photographed log page.
const maxUploadSize = 10 << 20

type UploadsHandler struct {
	store     *database.Store
	processor *pipeline.Processor
}

func NewUploadsHandler(store *database.Store, processor *pipeline.Processor) *UploadsHandler {
	return &UploadsHandler{
		store:     store,
		processor: processor,
	}
}

func (h *UploadsHandler) Create(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "file missing", Message: err.Error()})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "file too large (max 10MB)"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to open upload", Message: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read upload", Message: err.Error()})
		return
	}

	upload, err := h.processor.Submit(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to store upload", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, upload)
}

func (h *UploadsHandler) List(c *gin.Context) {
	uploads, err := h.store.ListUploads(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list uploads", Message: err.Error()})
		return
	}
	if uploads == nil {
		uploads = []database.UploadSummary{}
	}
	c.JSON(http.StatusOK, models.UploadListResponse{Uploads: uploads})
}

func (h *UploadsHandler) Get(c *gin.Context) {
	uploadID, ok := parseID(c)
	if !ok {
		return
	}

	upload, err := h.store.GetUpload(c.Request.Context(), uploadID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "upload not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get upload", Message: err.Error()})
		return
	}

	entries, err := h.store.ListEntriesByUpload(c.Request.Context(), uploadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get entries", Message: err.Error()})
		return
	}
	if entries == nil {
		entries = []database.Entry{}
	}

	c.JSON(http.StatusOK, models.UploadDetailResponse{Upload: *upload, Entries: entries})
}

func (h *UploadsHandler) Reprocess(c *gin.Context) {
	uploadID, ok := parseID(c)
	if !ok {
		return
	}

	err := h.processor.Reprocess(c.Request.Context(), uploadID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "upload not found"})
		return
	}
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "upload is already being processed", Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to reprocess upload", Message: err.Error()})
		return
	}

	upload, err := h.store.GetUpload(c.Request.Context(), uploadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get upload", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, upload)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

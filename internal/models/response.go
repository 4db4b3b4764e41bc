package models

import "babylog-backend/internal/database"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type UploadListResponse struct {
	Uploads []database.UploadSummary `json:"uploads"`
}

type UploadDetailResponse struct {
	database.Upload
	Entries []database.Entry `json:"entries"`
}

type EntryListResponse struct {
	Entries []database.Entry `json:"entries"`
}

type DashboardResponse struct {
	FromDate     string                  `json:"from_date"`
	ToDate       string                  `json:"to_date"`
	Days         []database.DashboardDay `json:"days"`
	LatestWeight *database.LatestWeight  `json:"latest_weight,omitempty"`
}

package models

type EntryCreateRequest struct {
	EntryType  string   `json:"entry_type" binding:"required,oneof=feeding diaper weight"`
	Subtype    *string  `json:"subtype"`
	OccurredAt string   `json:"occurred_at" binding:"required,min=10"`
	Value      *float64 `json:"value"`
	Notes      *string  `json:"notes"`
}

type EntryUpdateRequest struct {
	EntryType  *string  `json:"entry_type" binding:"omitempty,oneof=feeding diaper weight"`
	Subtype    *string  `json:"subtype"`
	OccurredAt *string  `json:"occurred_at" binding:"omitempty,min=10"`
	Value      *float64 `json:"value"`
	Notes      *string  `json:"notes"`
	Confidence *string  `json:"confidence" binding:"omitempty,oneof=low medium high"`
	Confirmed  *bool    `json:"confirmed"`
}

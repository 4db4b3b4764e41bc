package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Upload lifecycle statuses. An upload only ever moves
// pending -> processing -> done|failed, and terminal statuses may be
// rewound to pending by a reprocess.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// ErrConflict is returned when a reprocess is requested for an upload that
// is not in a terminal status.
var ErrConflict = errors.New("upload is not in a terminal status")

type Upload struct {
	ID           int64      `json:"id"`
	Filename     string     `json:"filename"`
	StoragePath  string     `json:"storage_path"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// UploadSummary is an Upload plus the number of entries it produced.
type UploadSummary struct {
	Upload
	EntryCount int64 `json:"entry_count"`
}

type Entry struct {
	ID         int64     `json:"id"`
	UploadID   *int64    `json:"upload_id,omitempty"`
	EntryType  string    `json:"entry_type"`
	Subtype    *string   `json:"subtype,omitempty"`
	OccurredAt string    `json:"occurred_at"`
	Date       string    `json:"date"`
	Value      *float64  `json:"value,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	Confidence *string   `json:"confidence,omitempty"`
	RawText    *string   `json:"raw_text,omitempty"`
	Confirmed  bool      `json:"confirmed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewEntry is the insert shape for an entry. Date is always derived from
// OccurredAt inside the store, never supplied by callers.
type NewEntry struct {
	UploadID   *int64
	EntryType  string
	Subtype    *string
	OccurredAt string
	Value      *float64
	Notes      *string
	Confidence *string
	RawText    *string
}

// EntryPatch carries a partial update; nil fields are left untouched.
type EntryPatch struct {
	EntryType  *string
	Subtype    *string
	OccurredAt *string
	Value      *float64
	Notes      *string
	Confidence *string
	Confirmed  *bool
}

type EntryFilter struct {
	Type     string
	FromDate string
	ToDate   string
}

type Store struct {
	db *sql.DB
}

func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// deriveDate projects the calendar day out of an "YYYY-MM-DD HH:MM"
// timestamp. Every write path goes through this so date and occurred_at
// can never disagree.
func deriveDate(occurredAt string) string {
	if len(occurredAt) < 10 {
		return occurredAt
	}
	return occurredAt[:10]
}

const uploadColumns = "id, filename, storage_path, status, error_message, created_at, processed_at"

func scanUpload(row *sql.Row) (*Upload, error) {
	var u Upload
	err := row.Scan(&u.ID, &u.Filename, &u.StoragePath, &u.Status, &u.ErrorMessage, &u.CreatedAt, &u.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUpload(ctx context.Context, filename, storagePath string) (*Upload, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO uploads (filename, storage_path, status)
		VALUES ($1, $2, $3)
		RETURNING `+uploadColumns+`
	`, filename, storagePath, StatusPending)

	upload, err := scanUpload(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}
	return upload, nil
}

func (s *Store) GetUpload(ctx context.Context, uploadID int64) (*Upload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+uploadColumns+`
		FROM uploads
		WHERE id = $1
	`, uploadID)

	upload, err := scanUpload(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload %d: %w", uploadID, err)
	}
	return upload, nil
}

func (s *Store) ListUploads(ctx context.Context) ([]UploadSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.filename, u.storage_path, u.status, u.error_message, u.created_at, u.processed_at,
		       COUNT(e.id) AS entry_count
		FROM uploads u
		LEFT JOIN entries e ON e.upload_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []UploadSummary
	for rows.Next() {
		var u UploadSummary
		err := rows.Scan(&u.ID, &u.Filename, &u.StoragePath, &u.Status, &u.ErrorMessage,
			&u.CreatedAt, &u.ProcessedAt, &u.EntryCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}

	return uploads, rows.Err()
}

// MarkProcessing persists the processing transition immediately so the
// in-flight state is observable regardless of how the run ends.
func (s *Store) MarkProcessing(ctx context.Context, uploadID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET status = $1
		WHERE id = $2
	`, StatusProcessing, uploadID)
	return err
}

// FinishUpload inserts the extracted entries and marks the upload done in
// one transaction: a done upload can never be observed with a partial
// entry set.
func (s *Store) FinishUpload(ctx context.Context, uploadID int64, entries []NewEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (upload_id, entry_type, subtype, occurred_at, date, value, notes, confidence, raw_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uploadID, e.EntryType, e.Subtype, e.OccurredAt, deriveDate(e.OccurredAt), e.Value, e.Notes, e.Confidence, e.RawText)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE uploads
		SET status = $1, error_message = NULL, processed_at = NOW()
		WHERE id = $2
	`, StatusDone, uploadID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to mark upload done: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload %d: %w", uploadID, err)
	}
	return nil
}

func (s *Store) FailUpload(ctx context.Context, uploadID int64, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET status = $1, error_message = $2, processed_at = NOW()
		WHERE id = $3
	`, StatusFailed, message, uploadID)
	return err
}

// ResetForReprocess purges the upload's entries and rewinds it to pending
// in one transaction. Only terminal uploads may be reset; anything else
// returns ErrConflict.
func (s *Store) ResetForReprocess(ctx context.Context, uploadID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var status string
	if err := tx.QueryRowContext(ctx, `
		SELECT status FROM uploads WHERE id = $1 FOR UPDATE
	`, uploadID).Scan(&status); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to get upload %d: %w", uploadID, err)
	}

	if status != StatusDone && status != StatusFailed {
		tx.Rollback()
		return fmt.Errorf("cannot reprocess upload %d with status %q: %w", uploadID, status, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM entries WHERE upload_id = $1
	`, uploadID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete entries for upload %d: %w", uploadID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE uploads
		SET status = $1, error_message = NULL, processed_at = NULL
		WHERE id = $2
	`, StatusPending, uploadID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reset upload %d: %w", uploadID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset of upload %d: %w", uploadID, err)
	}
	return nil
}

// RecoverStuck rewinds uploads left in processing by a crashed run back to
// pending. It must run at startup before any new run is scheduled.
func (s *Store) RecoverStuck(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET status = $1
		WHERE status = $2
	`, StatusPending, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to recover stuck uploads: %w", err)
	}
	return res.RowsAffected()
}

const entryColumns = "id, upload_id, entry_type, subtype, occurred_at, date, value, notes, confidence, raw_text, confirmed, created_at, updated_at"

func scanEntry(row *sql.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UploadID, &e.EntryType, &e.Subtype, &e.OccurredAt, &e.Date,
		&e.Value, &e.Notes, &e.Confidence, &e.RawText, &e.Confirmed, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) InsertEntry(ctx context.Context, e NewEntry) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO entries (upload_id, entry_type, subtype, occurred_at, date, value, notes, confidence, raw_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+entryColumns+`
	`, e.UploadID, e.EntryType, e.Subtype, e.OccurredAt, deriveDate(e.OccurredAt), e.Value, e.Notes, e.Confidence, e.RawText)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return entry, nil
}

func (s *Store) GetEntry(ctx context.Context, entryID int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id = $1
	`, entryID)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %d: %w", entryID, err)
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE date >= $1 AND date <= $2
	`
	args := []any{filter.FromDate, filter.ToDate}
	if filter.Type != "" {
		query += " AND entry_type = $3"
		args = append(args, filter.Type)
	}
	query += " ORDER BY occurred_at ASC"

	return s.queryEntries(ctx, query, args...)
}

func (s *Store) ListEntriesByUpload(ctx context.Context, uploadID int64) ([]Entry, error) {
	return s.queryEntries(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE upload_id = $1
		ORDER BY occurred_at ASC
	`, uploadID)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.UploadID, &e.EntryType, &e.Subtype, &e.OccurredAt, &e.Date,
			&e.Value, &e.Notes, &e.Confidence, &e.RawText, &e.Confirmed, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Store) UpdateEntry(ctx context.Context, entryID int64, patch EntryPatch) (*Entry, error) {
	sets, args := patchAssignments(patch)
	if len(sets) == 0 {
		return s.GetEntry(ctx, entryID)
	}

	args = append(args, entryID)
	query := fmt.Sprintf(`
		UPDATE entries
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING `+entryColumns,
		strings.Join(sets, ", "), len(args))

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update entry %d: %w", entryID, err)
	}
	return entry, nil
}

// patchAssignments turns the non-nil patch fields into SET fragments with
// positional placeholders. A patched occurred_at always rewrites date with
// it so the two columns cannot disagree.
func patchAssignments(patch EntryPatch) ([]string, []any) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.EntryType != nil {
		add("entry_type", *patch.EntryType)
	}
	if patch.Subtype != nil {
		add("subtype", *patch.Subtype)
	}
	if patch.OccurredAt != nil {
		add("occurred_at", *patch.OccurredAt)
		add("date", deriveDate(*patch.OccurredAt))
	}
	if patch.Value != nil {
		add("value", *patch.Value)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Confidence != nil {
		add("confidence", *patch.Confidence)
	}
	if patch.Confirmed != nil {
		add("confirmed", *patch.Confirmed)
	}
	return sets, args
}

func (s *Store) DeleteEntry(ctx context.Context, entryID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entries WHERE id = $1
	`, entryID)
	if err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", entryID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("failed to delete entry %d: %w", entryID, sql.ErrNoRows)
	}
	return nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// Supabase stores blobs in a Supabase Storage bucket.
type Supabase struct {
	client *storage.Client
	bucket string
}

func NewSupabase(supabaseURL, serviceKey, bucket string) (*Supabase, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &Supabase{
		client: client,
		bucket: bucket,
	}, nil
}

func (s *Supabase) Write(_ context.Context, path string, data []byte) error {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return nil
}

func (s *Supabase) Read(_ context.Context, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		// storage-go surfaces a missing object only through the error text.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not_found") || strings.Contains(msg, "not found") || strings.Contains(msg, "404") {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	return data, nil
}

func (s *Supabase) Delete(_ context.Context, path string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{path})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

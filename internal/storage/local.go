// Package storage keeps invoice image blobs on local disk under generated filenames.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"fueldelivery/internal/apperror"

	"github.com/google/uuid"
)

const MaxFileSize = 10 * 1024 * 1024 // 10 MB

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType = errors.New("file type is not allowed")
	ErrInvalidName     = errors.New("invalid file name")
)

// AllowedMimeTypes maps accepted content types to the extension used on disk.
var AllowedMimeTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

var namePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]{3,4}$`)

// Blob describes a stored file.
type Blob struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// BlobStore stores, retrieves and deletes blobs by generated filename.
type BlobStore interface {
	Save(ctx context.Context, r io.Reader) (Blob, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, Blob, error)
	Delete(ctx context.Context, filename string) error
}

type localStore struct {
	baseDir string
}

// NewLocalStore returns a BlobStore rooted at baseDir, creating it if needed.
func NewLocalStore(baseDir string) (BlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localStore{baseDir: baseDir}, nil
}

// Save sniffs the content type from the first 512 bytes and writes r under a fresh uuid name.
func (s *localStore) Save(ctx context.Context, r io.Reader) (Blob, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Blob{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return Blob{}, apperror.Validationf("image", ErrEmptyFile)
	}
	head = head[:n]

	mimeType := strings.Split(http.DetectContentType(head), ";")[0]
	ext, ok := AllowedMimeTypes[mimeType]
	if !ok {
		return Blob{}, apperror.Validationf("image", fmt.Errorf("%w: %s", ErrInvalidMimeType, mimeType))
	}

	filename := uuid.New().String() + ext
	absPath := filepath.Join(s.baseDir, filename)
	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to create file: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(dst, io.LimitReader(body, MaxFileSize+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		_ = os.Remove(absPath)
		return Blob{}, fmt.Errorf("failed to write file: %w", err)
	case closeErr != nil:
		_ = os.Remove(absPath)
		return Blob{}, fmt.Errorf("failed to write file: %w", closeErr)
	case written > MaxFileSize:
		_ = os.Remove(absPath)
		return Blob{}, apperror.Validationf("image", ErrFileTooLarge)
	}

	return Blob{Filename: filename, ContentType: mimeType, Size: written}, nil
}

// Open fails with apperror.ErrNotFound when the blob does not exist.
func (s *localStore) Open(ctx context.Context, filename string) (io.ReadCloser, Blob, error) {
	absPath, err := s.path(filename)
	if err != nil {
		return nil, Blob{}, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Blob{}, fmt.Errorf("%w: file %s", apperror.ErrNotFound, filename)
		}
		return nil, Blob{}, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Blob{}, fmt.Errorf("failed to stat file: %w", err)
	}

	return f, Blob{Filename: filename, ContentType: contentTypeFor(filename), Size: info.Size()}, nil
}

// Delete is a no-op for a blob that is already gone.
func (s *localStore) Delete(ctx context.Context, filename string) error {
	absPath, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *localStore) path(filename string) (string, error) {
	if !namePattern.MatchString(filename) {
		return "", apperror.Validationf("filename", ErrInvalidName)
	}
	return filepath.Join(s.baseDir, filename), nil
}

func contentTypeFor(filename string) string {
	ext := filepath.Ext(filename)
	for mimeType, e := range AllowedMimeTypes {
		if e == ext {
			return mimeType
		}
	}
	return "application/octet-stream"
}

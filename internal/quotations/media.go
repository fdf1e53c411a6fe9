package quotations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// FileStore is the public disk the uploads live on.
type FileStore interface {
	Put(key string, r io.Reader) (int64, error)
	PutThumbnail(key string, data []byte) error
	Open(key string) (io.ReadSeekCloser, error)
	Delete(key string) error
}

// allowedUploads maps accepted extensions to the sniffed content types they
// may carry and the mime type that is stored.
var allowedUploads = map[string]struct {
	sniffed []string
	mime    string
}{
	".pdf":  {[]string{"application/pdf"}, "application/pdf"},
	".png":  {[]string{"image/png"}, "image/png"},
	".jpg":  {[]string{"image/jpeg"}, "image/jpeg"},
	".jpeg": {[]string{"image/jpeg"}, "image/jpeg"},
	".docx": {[]string{"application/zip"}, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".xlsx": {[]string{"application/zip"}, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	".txt":  {[]string{"text/plain"}, "text/plain; charset=utf-8"},
}

// DetectUploadType checks data against the extension of name and returns the
// mime type to store.
func DetectUploadType(name string, data []byte) (string, bool) {
	rule, ok := allowedUploads[strings.ToLower(path.Ext(name))]
	if !ok {
		return "", false
	}
	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	for _, want := range rule.sniffed {
		if sniffed == want {
			return rule.mime, true
		}
	}
	return "", false
}

// Upload stores a file for an editable quotation. The file is removed again
// when the database insert fails.
func (s *Service) Upload(ctx context.Context, user *shared.CurrentUser, id int64, fileName string, data []byte) (Media, error) {
	q, err := s.Get(ctx, user, id)
	if err != nil {
		return Media{}, err
	}
	if !q.Editable {
		return Media{}, ErrNotEditable
	}
	fileName = path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	switch {
	case len(data) == 0:
		return Media{}, shared.FormErrors{"file": "is required"}
	case int64(len(data)) > s.cfg.UploadMaxBytes:
		return Media{}, shared.FormErrors{"file": fmt.Sprintf("must be at most %d MB", s.cfg.UploadMaxBytes>>20)}
	}
	mimeType, ok := DetectUploadType(fileName, data)
	if !ok {
		return Media{}, shared.FormErrors{"file": "must be a PDF, PNG, JPEG, DOCX, XLSX or TXT file"}
	}
	return s.storeMedia(ctx, q.ID, user.ID, fileName, mimeType, data)
}

func (s *Service) storeMedia(ctx context.Context, quotationID, uploadedBy int64, fileName, mimeType string, data []byte) (Media, error) {
	if s.deps.Files == nil {
		return Media{}, fmt.Errorf("quotations: file store not configured")
	}
	name := uuid.NewString()
	dir := "quotations/" + strconv.FormatInt(quotationID, 10)
	m := Media{
		QuotationID: quotationID,
		FileName:    fileName,
		MimeType:    mimeType,
		StoragePath: dir + "/" + name + strings.ToLower(path.Ext(fileName)),
		UploadedBy:  uploadedBy,
	}
	size, err := s.deps.Files.Put(m.StoragePath, bytes.NewReader(data))
	if err != nil {
		return Media{}, err
	}
	m.SizeBytes = size
	if m.IsImage() {
		thumb := dir + "/thumbs/" + name + ".jpg"
		if err := s.deps.Files.PutThumbnail(thumb, data); err != nil {
			s.deps.Logger.Warn("create thumbnail", slog.String("path", m.StoragePath), slog.Any("error", err))
		} else {
			m.ThumbnailPath = thumb
		}
	}
	stored, err := s.repo.InsertMedia(ctx, m)
	if err != nil {
		s.deleteFile(m.StoragePath)
		s.deleteFile(m.ThumbnailPath)
		return Media{}, fmt.Errorf("insert media: %w", err)
	}
	return stored, nil
}

// OpenMedia returns the media row with a reader for its file, or for its
// thumbnail when thumb is set and the upload has one.
func (s *Service) OpenMedia(ctx context.Context, user *shared.CurrentUser, id, mediaID int64, thumb bool) (Media, io.ReadSeekCloser, error) {
	if _, err := s.Get(ctx, user, id); err != nil {
		return Media{}, nil, err
	}
	m, err := s.repo.GetMedia(ctx, id, mediaID)
	if err != nil {
		return Media{}, nil, err
	}
	if s.deps.Files == nil {
		return Media{}, nil, ErrNotFound
	}
	key := m.StoragePath
	if thumb {
		if m.ThumbnailPath == "" {
			return Media{}, nil, ErrNotFound
		}
		key = m.ThumbnailPath
	}
	f, err := s.deps.Files.Open(key)
	if err != nil {
		return Media{}, nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return m, f, nil
}

// DeleteMedia removes an attachment from an editable quotation.
func (s *Service) DeleteMedia(ctx context.Context, user *shared.CurrentUser, id, mediaID int64) error {
	q, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}
	if !q.Editable {
		return ErrNotEditable
	}
	m, err := s.repo.GetMedia(ctx, id, mediaID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMedia(ctx, id, mediaID); err != nil {
		return err
	}
	s.removeFiles(ctx, m)
	return nil
}

// removeFiles deletes the files of m unless a revision still references them.
func (s *Service) removeFiles(ctx context.Context, m Media) {
	used, err := s.repo.MediaPathInUse(ctx, m.StoragePath)
	if err != nil {
		s.deps.Logger.Warn("check media references", slog.String("path", m.StoragePath), slog.Any("error", err))
		return
	}
	if used {
		return
	}
	s.deleteFile(m.StoragePath)
	s.deleteFile(m.ThumbnailPath)
}

func (s *Service) deleteFile(key string) {
	if key == "" || s.deps.Files == nil {
		return
	}
	if err := s.deps.Files.Delete(key); err != nil {
		s.deps.Logger.Warn("delete file", slog.String("path", key), slog.Any("error", err))
	}
}

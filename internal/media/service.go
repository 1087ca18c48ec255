package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backend-snsapp/internal/db"
	"backend-snsapp/internal/logger"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrEmpty           = errors.New("image is empty")
)

// allowed maps sniffed content types to the extension files are stored with.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Object struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

type Options struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

type Service struct {
	db   db.Querier
	opts Options
	log  *logger.Logger
}

func NewService(db db.Querier, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Service{db: db, opts: opts, log: log}
}

func (s *Service) Dir() string {
	return s.opts.Dir
}

// Upload stores an image under Dir with a fresh id and records it in
// media_objects. The returned URL is what posts reference.
func (s *Service) Upload(ctx context.Context, userID string, fh *multipart.FileHeader) (Object, error) {
	if fh.Size == 0 {
		return Object{}, ErrEmpty
	}
	if s.opts.MaxBytes > 0 && fh.Size > s.opts.MaxBytes {
		return Object{}, ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	contentType, err := sniff(src)
	if err != nil {
		return Object{}, err
	}
	ext, ok := allowed[contentType]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	obj := Object{
		ID:          uuid.NewString(),
		UserID:      userID,
		ContentType: contentType,
		SizeBytes:   fh.Size,
		CreatedAt:   time.Now().UTC(),
	}
	name := obj.ID + ext
	obj.URL = s.opts.BaseURL + "/" + name

	path := filepath.Join(s.opts.Dir, name)
	if err := writeFile(path, src); err != nil {
		return Object{}, err
	}
	if err := s.SaveObject(ctx, obj); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.log.Warnf("remove orphaned upload %s: %v", path, rmErr)
		}
		return Object{}, err
	}

	s.log.WithFields(logger.Fields{"user_id": userID, "media_id": obj.ID}).Info("image uploaded")
	return obj, nil
}

func (s *Service) SaveObject(ctx context.Context, obj Object) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO media_objects (id, user_id, url, content_type, size_bytes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, obj.ID, obj.UserID, obj.URL, obj.ContentType, obj.SizeBytes, obj.CreatedAt)
	if err != nil {
		return fmt.Errorf("save media object: %w", err)
	}
	return nil
}

func sniff(f multipart.File) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

func writeFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write media file: %w", err)
	}
	return dst.Close()
}

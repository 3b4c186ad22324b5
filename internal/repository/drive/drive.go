package drive

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/dimasfr/gudangbot/internal/config"
)

var fileIDPattern = regexp.MustCompile(`/file/d/([^/]+)`)

// Repository stores record photos in Google Drive and hands back shareable
// view links.
type Repository struct {
	service *driveapi.Service
	logger  *zap.Logger
}

// NewRepository builds a Drive backed photo store. It reuses the same
// service-account credentials file as the sheets repository.
func NewRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := driveapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(driveapi.DriveScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive client: %w", err)
	}

	return &Repository{service: service, logger: logger}, nil
}

// Upload stores the photo bytes under the given folder, makes the file
// link-readable, and returns the view URL that goes into the sheet.
func (r *Repository) Upload(ctx context.Context, data []byte, name, folderID string) (string, error) {
	meta := &driveapi.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	file, err := r.service.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", name, err)
	}

	perm := &driveapi.Permission{Type: "anyone", Role: "reader"}
	if _, err := r.service.Permissions.Create(file.Id, perm).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("share file %s: %w", file.Id, err)
	}

	r.logger.Debug("photo uploaded", zap.String("name", name), zap.String("file_id", file.Id))
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", file.Id), nil
}

// Delete removes a stored photo by file id.
func (r *Repository) Delete(ctx context.Context, blobID string) error {
	if err := r.service.Files.Delete(blobID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete file %s: %w", blobID, err)
	}
	r.logger.Debug("photo deleted", zap.String("file_id", blobID))
	return nil
}

// ExtractID pulls the file id back out of a stored view URL. Returns ""
// when the URL does not look like a Drive link.
func (r *Repository) ExtractID(url string) string {
	m := fileIDPattern.FindStringSubmatch(url)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

package repository

import (
	"context"
	"time"

	"intranet_chat/pkg/database"
	errprocess "intranet_chat/pkg/err"
)

// AttachmentRepository 聊天附件
type AttachmentRepository interface {
	// Upload 寫入 object storage 並回傳可下載的 URL
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

type minioAttachmentRepository struct {
	client *database.MinIOClient
	urlTTL time.Duration
}

// NewMinIOAttachmentRepository create a AttachmentRepository
func NewMinIOAttachmentRepository(client *database.MinIOClient, urlTTL time.Duration) AttachmentRepository {
	if urlTTL <= 0 {
		urlTTL = 7 * 24 * time.Hour
	}
	return &minioAttachmentRepository{client: client, urlTTL: urlTTL}
}

func (r *minioAttachmentRepository) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := r.client.UploadBytes(ctx, path, data, contentType); err != nil {
		return "", errprocess.Wrap(errprocess.ErrTransient, "upload attachment", err)
	}
	return r.client.PresignGetURL(ctx, path, r.urlTTL)
}

package attachments

import (
	"time"

	"taskhub/internal/domain"
)

type RenameRequest struct {
	FileName string `json:"file_name" binding:"required,min=1,max=255"`
}

// AttachmentResponse is the API shape of an attachment row. The storage
// path stays server-side; clients get a URL they can actually use.
type AttachmentResponse struct {
	ID        int64           `json:"id"`
	FileName  string          `json:"file_name"`
	FileSize  int64           `json:"file_size"`
	HumanSize string          `json:"human_size"`
	MimeType  string          `json:"mime_type"`
	Disk      domain.DiskName `json:"disk"`
	IsImage   bool            `json:"is_image"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"created_at"`
}

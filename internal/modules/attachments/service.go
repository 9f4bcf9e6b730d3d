package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/storage"
)

type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Attachment) error
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)
	Delete(ctx context.Context, id int64) error
	UpdateFileName(ctx context.Context, id int64, name string) error
	ListForTarget(ctx context.Context, ref domain.TargetRef) ([]domain.Attachment, error)
	LatestForTarget(ctx context.Context, ref domain.TargetRef) (*domain.Attachment, error)
}

type targetResolver interface {
	ResolveTarget(ctx context.Context, ref domain.TargetRef) (any, error)
}

type authorizer interface {
	Authorize(ctx context.Context, sub policy.Subject, action policy.Action, resource any) policy.Decision
}

type emitter interface {
	Emit(ctx context.Context, t events.Type, payload any) error
}

type Service struct {
	attachments AttachmentRepositoryInterface
	store       *storage.Store
	resolver    targetResolver
	authz       authorizer
	emitter     emitter
}

func NewService(attachments AttachmentRepositoryInterface, store *storage.Store, resolver targetResolver, authz authorizer, em emitter) *Service {
	return &Service{attachments: attachments, store: store, resolver: resolver, authz: authz, emitter: em}
}

// UploadInput carries one incoming file. Size is what the transport
// reported; the stored byte count is what Write actually saw.
type UploadInput struct {
	FileName   string
	MimeType   string
	Disk       domain.DiskName
	Body       io.Reader
	Operations []string
}

// Upload stores the blob first and records the row second. A failed
// row insert removes the blob again, so the database never references
// bytes that were not written; an orphaned blob is merely invisible.
func (s *Service) Upload(ctx context.Context, sub policy.Subject, ref domain.TargetRef, in UploadInput) (*AttachmentResponse, error) {
	if !domain.AttachableKinds[ref.Kind] {
		return nil, ErrInvalidTarget
	}
	if in.Disk == "" {
		in.Disk = domain.DiskPrivate
	}
	if !in.Disk.Valid() {
		return nil, ErrInvalidDisk
	}
	if _, err := s.resolver.ResolveTarget(ctx, ref); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionAddAttachment, nil); !d.Allowed {
		return nil, ErrForbidden
	}

	disk, err := s.store.Disk(in.Disk)
	if err != nil {
		return nil, err
	}

	blobPath := path.Join(
		"attachments",
		string(ref.Kind),
		fmt.Sprintf("%d", ref.ID),
		uuid.NewString()+strings.ToLower(filepath.Ext(in.FileName)),
	)

	// The stored mime type comes from the bytes, not the client's
	// headers. Only an inconclusive sniff trusts the declared type.
	head := make([]byte, 512)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	head = head[:n]
	mimeType := http.DetectContentType(head)
	if mimeType == "application/octet-stream" && in.MimeType != "" {
		mimeType = in.MimeType
	}

	written, err := disk.Write(blobPath, io.MultiReader(bytes.NewReader(head), in.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	att := &domain.Attachment{
		Path:     blobPath,
		Disk:     in.Disk,
		FileName: in.FileName,
		FileSize: written,
		MimeType: mimeType,
		Owner:    ref,
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		if delErr := disk.Delete(blobPath); delErr != nil {
			log.Printf("rollback of blob %s after failed insert: %v", blobPath, delErr)
		}
		return nil, err
	}

	if err := s.emitter.Emit(ctx, events.TypeAttachmentUploaded, events.AttachmentUploaded{
		AttachmentID: att.ID,
		Operations:   in.Operations,
	}); err != nil {
		log.Printf("emit attachment.uploaded for id=%d failed: %v", att.ID, err)
	}

	resp := s.toResponse(att)
	return &resp, nil
}

// Download opens the stored blob for an attachment the subject may view.
func (s *Service) Download(ctx context.Context, sub policy.Subject, id int64) (*domain.Attachment, io.ReadCloser, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionViewAttachment, att); !d.Allowed {
		return nil, nil, ErrForbidden
	}

	disk, err := s.store.Disk(att.Disk)
	if err != nil {
		return nil, nil, err
	}

	// The recorded size drifting from the blob is worth noticing but
	// not worth failing the download over.
	if size, err := disk.Size(att.Path); err == nil && size != att.FileSize {
		log.Printf("attachment id=%d size drift: row=%d blob=%d", att.ID, att.FileSize, size)
	}

	rc, err := disk.Open(att.Path)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return att, rc, nil
}

// Delete removes the row first, then the blob best-effort. A blob that
// cannot be removed is logged and left behind; the row is already gone
// and nothing references it.
func (s *Service) Delete(ctx context.Context, sub policy.Subject, id int64) error {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionDeleteAttachment, att); !d.Allowed {
		return ErrForbidden
	}

	if err := s.attachments.Delete(ctx, id); err != nil {
		return err
	}

	disk, err := s.store.Disk(att.Disk)
	if err != nil {
		log.Printf("attachment id=%d: %v", id, err)
		return nil
	}
	if err := disk.Delete(att.Path); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		log.Printf("attachment id=%d: blob delete failed: %v", id, err)
	}
	return nil
}

// Rename changes the display name. The stored blob path never changes.
func (s *Service) Rename(ctx context.Context, sub policy.Subject, id int64, newName string) (*AttachmentResponse, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionUpdateAttachment, att); !d.Allowed {
		return nil, ErrForbidden
	}

	if err := s.attachments.UpdateFileName(ctx, id, newName); err != nil {
		return nil, err
	}
	att.FileName = newName

	resp := s.toResponse(att)
	return &resp, nil
}

func (s *Service) ListForTarget(ctx context.Context, sub policy.Subject, ref domain.TargetRef) ([]AttachmentResponse, error) {
	if !domain.AttachableKinds[ref.Kind] {
		return nil, ErrInvalidTarget
	}

	// One delegation check against the target covers every attachment
	// on it; they all share the same owner.
	probe := &domain.Attachment{Owner: ref}
	if d := s.authz.Authorize(ctx, sub, policy.ActionViewAttachment, probe); !d.Allowed {
		return nil, ErrForbidden
	}

	items, err := s.attachments.ListForTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := make([]AttachmentResponse, 0, len(items))
	for i := range items {
		out = append(out, s.toResponse(&items[i]))
	}
	return out, nil
}

func (s *Service) LatestForTarget(ctx context.Context, sub policy.Subject, ref domain.TargetRef) (*AttachmentResponse, error) {
	if !domain.AttachableKinds[ref.Kind] {
		return nil, ErrInvalidTarget
	}

	att, err := s.attachments.LatestForTarget(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionViewAttachment, att); !d.Allowed {
		return nil, ErrForbidden
	}

	resp := s.toResponse(att)
	return &resp, nil
}

// AccessURL derives how a client reaches the bytes: a direct URL for
// public-disk blobs, the authenticated download route otherwise.
func (s *Service) AccessURL(att *domain.Attachment) string {
	if disk, err := s.store.Disk(att.Disk); err == nil {
		if u := disk.URL(att.Path); u != "" {
			return u
		}
	}
	return fmt.Sprintf("/api/attachments/%d/download", att.ID)
}

func (s *Service) toResponse(att *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        att.ID,
		FileName:  att.FileName,
		FileSize:  att.FileSize,
		HumanSize: att.HumanSize(),
		MimeType:  att.MimeType,
		Disk:      att.Disk,
		IsImage:   att.IsImage(),
		URL:       s.AccessURL(att),
		CreatedAt: att.CreatedAt,
	}
}

package attachments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/policy"
	"taskhub/internal/storage"
)

type mockAttachmentRepo struct {
	mock.Mock
}

func (m *mockAttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAttachmentRepo) UpdateFileName(ctx context.Context, id int64, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *mockAttachmentRepo) ListForTarget(ctx context.Context, ref domain.TargetRef) ([]domain.Attachment, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).([]domain.Attachment), args.Error(1)
}

func (m *mockAttachmentRepo) LatestForTarget(ctx context.Context, ref domain.TargetRef) (*domain.Attachment, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveTarget(ctx context.Context, ref domain.TargetRef) (any, error) {
	args := m.Called(ctx, ref)
	return args.Get(0), args.Error(1)
}

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) Emit(ctx context.Context, t events.Type, payload any) error {
	args := m.Called(ctx, t, payload)
	return args.Error(0)
}

// newFixture wires a service over real local disks in a temp dir so the
// write/rollback behavior is exercised against the filesystem.
func newFixture(t *testing.T, repo *mockAttachmentRepo, resolver *mockResolver, em *mockEmitter) (*Service, *storage.Store, string) {
	t.Helper()

	root := t.TempDir()
	store := storage.NewStore()
	store.Mount(domain.DiskPublic, storage.NewLocalDisk(filepath.Join(root, "public"), "/storage"))
	store.Mount(domain.DiskPrivate, storage.NewLocalDisk(filepath.Join(root, "private"), ""))

	engine := policy.NewEngine(policy.DefaultGrants(), resolver)
	return NewService(repo, store, resolver, engine, em), store, root
}

func managerSubject() policy.Subject {
	return policy.Subject{ID: 1, Roles: []string{domain.RoleProjectManager}}
}

func taskRef(id int64) domain.TargetRef {
	return domain.TargetRef{Kind: domain.KindTask, ID: id}
}

func countBlobs(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	assert.NoError(t, err)
	return n
}

func TestUploadStoresBlobAndRow(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, root := newFixture(t, repo, resolver, em)

	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 1}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.FileSize == int64(len("file body")) &&
			a.Disk == domain.DiskPrivate &&
			strings.HasSuffix(a.Path, ".txt") &&
			a.Owner == taskRef(1)
	})).Return(nil)
	em.On("Emit", mock.Anything, events.TypeAttachmentUploaded, mock.Anything).Return(nil)

	resp, err := svc.Upload(context.Background(), managerSubject(), taskRef(1), UploadInput{
		FileName: "notes.TXT",
		MimeType: "text/plain",
		Body:     strings.NewReader("file body"),
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(len("file body")), resp.FileSize)
	assert.Equal(t, 1, countBlobs(t, root))
}

func TestUploadSniffsMimeTypeFromContent(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 1}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.MimeType == "image/png"
	})).Return(nil)
	em.On("Emit", mock.Anything, events.TypeAttachmentUploaded, mock.Anything).Return(nil)

	// A PNG signature wins over whatever the client declared.
	resp, err := svc.Upload(context.Background(), managerSubject(), taskRef(1), UploadInput{
		FileName: "shot.png",
		MimeType: "application/octet-stream",
		Body:     bytes.NewReader([]byte("\x89PNG\r\n\x1a\n")),
	})
	assert.NoError(t, err)
	assert.Equal(t, "image/png", resp.MimeType)
}

func TestUploadKeepsDeclaredMimeWhenSniffInconclusive(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 1}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.MimeType == "application/x-custom"
	})).Return(nil)
	em.On("Emit", mock.Anything, events.TypeAttachmentUploaded, mock.Anything).Return(nil)

	resp, err := svc.Upload(context.Background(), managerSubject(), taskRef(1), UploadInput{
		FileName: "blob.bin",
		MimeType: "application/x-custom",
		Body:     bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}),
	})
	assert.NoError(t, err)
	assert.Equal(t, "application/x-custom", resp.MimeType)
}

func TestUploadRollsBackBlobOnInsertFailure(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, root := newFixture(t, repo, resolver, em)

	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 1}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	_, err := svc.Upload(context.Background(), managerSubject(), taskRef(1), UploadInput{
		FileName: "notes.txt",
		MimeType: "text/plain",
		Body:     strings.NewReader("file body"),
	})
	assert.Error(t, err)
	assert.Equal(t, 0, countBlobs(t, root), "blob must be removed when the row insert fails")
	em.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadRejectsUnknownDisk(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	_, err := svc.Upload(context.Background(), managerSubject(), taskRef(1), UploadInput{
		FileName: "notes.txt",
		Disk:     "s3",
		Body:     strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrInvalidDisk)
}

func TestUploadRejectsUnattachableKind(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	_, err := svc.Upload(context.Background(), managerSubject(), domain.TargetRef{Kind: "studio", ID: 1}, UploadInput{
		FileName: "notes.txt",
		Body:     strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestDownloadStreamsBlob(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, store, _ := newFixture(t, repo, resolver, em)

	disk, err := store.Disk(domain.DiskPrivate)
	assert.NoError(t, err)
	_, err = disk.Write("attachments/task/1/blob.txt", strings.NewReader("hello"))
	assert.NoError(t, err)

	att := &domain.Attachment{
		ID: 7, Path: "attachments/task/1/blob.txt", Disk: domain.DiskPrivate,
		FileName: "notes.txt", FileSize: 5, Owner: taskRef(1),
	}
	repo.On("GetByID", mock.Anything, int64(7)).Return(att, nil)
	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 1}, nil)

	got, rc, err := svc.Download(context.Background(), managerSubject(), 7)
	assert.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "notes.txt", got.FileName)
}

func TestDeleteToleratesMissingBlob(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	att := &domain.Attachment{
		ID: 7, Path: "attachments/task/1/gone.txt", Disk: domain.DiskPrivate, Owner: taskRef(1),
	}
	repo.On("GetByID", mock.Anything, int64(7)).Return(att, nil)
	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 1}, nil)
	repo.On("Delete", mock.Anything, int64(7)).Return(nil)

	err := svc.Delete(context.Background(), managerSubject(), 7)
	assert.NoError(t, err)
	repo.AssertCalled(t, "Delete", mock.Anything, int64(7))
}

func TestDeleteDeniedForForeignTask(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	att := &domain.Attachment{ID: 7, Path: "attachments/task/1/blob.txt", Disk: domain.DiskPrivate, Owner: taskRef(1)}
	repo.On("GetByID", mock.Anything, int64(7)).Return(att, nil)
	resolver.On("ResolveTarget", mock.Anything, taskRef(1)).Return(&domain.Task{ID: 1, CreatedBy: 99}, nil)

	err := svc.Delete(context.Background(), managerSubject(), 7)
	assert.ErrorIs(t, err, ErrForbidden)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAccessURL(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	public := &domain.Attachment{ID: 3, Path: "attachments/task/1/pic.png", Disk: domain.DiskPublic}
	assert.Equal(t, "/storage/attachments/task/1/pic.png", svc.AccessURL(public))

	private := &domain.Attachment{ID: 3, Path: "attachments/task/1/pic.png", Disk: domain.DiskPrivate}
	assert.Equal(t, "/api/attachments/3/download", svc.AccessURL(private))
}

func TestResponseCarriesHumanSize(t *testing.T) {
	repo := new(mockAttachmentRepo)
	resolver := new(mockResolver)
	em := new(mockEmitter)
	svc, _, _ := newFixture(t, repo, resolver, em)

	att := &domain.Attachment{ID: 3, FileName: "pic.png", FileSize: 2 * 1024 * 1024, MimeType: "image/png", Disk: domain.DiskPrivate}
	resp := svc.toResponse(att)
	assert.Equal(t, "2 MB", resp.HumanSize)
	assert.True(t, resp.IsImage)
}

package main

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"taskhub/internal/config"
	"taskhub/internal/database"
	"taskhub/internal/domain"
	"taskhub/internal/repository"
	"taskhub/internal/storage"
)

// Periodic maintenance: recompute the stored overdue flags and reap
// attachments whose owner reference was never finalized. Both passes
// are idempotent, so running the sweeper twice is harmless.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	store := storage.NewStore()
	store.Mount(domain.DiskPublic, storage.NewLocalDisk(filepath.Join(cfg.StorageRoot, "public"), cfg.PublicBaseURL))
	store.Mount(domain.DiskPrivate, storage.NewLocalDisk(filepath.Join(cfg.StorageRoot, "private"), ""))

	ctx := context.Background()
	taskRepo := repository.NewTaskRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	marked, cleared, err := taskRepo.SweepOverdue(ctx, time.Now())
	if err != nil {
		log.Fatalf("overdue sweep: %v", err)
	}
	log.Printf("overdue sweep: %d marked, %d cleared", marked, cleared)

	cutoff := time.Now().Add(-cfg.AttachmentRetention)
	stale, err := attachmentRepo.ListStaleUnowned(ctx, cutoff)
	if err != nil {
		log.Fatalf("stale attachment scan: %v", err)
	}

	removed := 0
	for _, att := range stale {
		if err := attachmentRepo.Delete(ctx, att.ID); err != nil {
			log.Printf("attachment id=%d: row delete failed: %v", att.ID, err)
			continue
		}
		disk, err := store.Disk(att.Disk)
		if err != nil {
			log.Printf("attachment id=%d: %v", att.ID, err)
			continue
		}
		if err := disk.Delete(att.Path); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			log.Printf("attachment id=%d: blob delete failed: %v", att.ID, err)
		}
		removed++
	}
	log.Printf("stale attachment sweep: %d of %d removed (cutoff %s)", removed, len(stale), cutoff.Format(time.RFC3339))
}

package domain

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// DiskName selects the blob store disk an attachment lives on.
type DiskName string

const (
	DiskPublic  DiskName = "public"
	DiskPrivate DiskName = "private"
)

func (d DiskName) Valid() bool {
	return d == DiskPublic || d == DiskPrivate
}

// Attachment is the metadata row for a stored blob. The blob itself is
// addressed by (Disk, Path) in the blob store.
type Attachment struct {
	ID        int64     `json:"id"`
	Path      string    `json:"-"`
	Disk      DiskName  `json:"disk"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	Owner     TargetRef `json:"owner" gorm:"embedded;embeddedPrefix:attachable_"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AttachableKinds is the closed set of kinds an attachment may attach to.
var AttachableKinds = map[TargetKind]bool{
	KindTask:    true,
	KindProject: true,
	KindComment: true,
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// HumanSize renders the byte size with base-1024 units ("2 MB" for 2 MiB).
func (a *Attachment) HumanSize() string {
	bytes := float64(a.FileSize)
	if bytes < 1 {
		return "0 B"
	}
	unit := int(math.Floor(math.Log(bytes) / math.Log(1024)))
	if unit >= len(sizeUnits) {
		unit = len(sizeUnits) - 1
	}
	value := bytes / math.Pow(1024, float64(unit))
	rounded := math.Round(value*100) / 100
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", rounded), "0"), ".") + " " + sizeUnits[unit]
}

// Extension returns the file name suffix without the dot.
func (a *Attachment) Extension() string {
	return strings.TrimPrefix(filepath.Ext(a.FileName), ".")
}

// IsImage reports whether the stored blob is an image by mime type.
func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Folder struct {
	bun.BaseModel `bun:"table:folders,alias:fo"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	ParentID  *int      `json:"parent_id,omitempty"`
	Name      string    `bun:",nullzero" json:"name"`
	// Path is relative to the library path root; "" for the root folder.
	Path string `json:"path"`
	// ManuallyCreated folders are never removed by a sync run, even when
	// they contain no comics.
	ManuallyCreated bool `json:"manually_created"`
	// Completed is the aggregate read state of the contained comics.
	Completed bool `json:"completed"`

	Comics []*Comic `bun:"rel:has-many,join:id=folder_id" json:"comics,omitempty"`
}

// IsRoot reports whether this folder is a library path root.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Comic type classification. WesternManga is right-to-left art with
// left-to-right reading order; Yonkoma is 4-panel vertical strips.
const (
	ComicTypeComic        = "comic"
	ComicTypeManga        = "manga"
	ComicTypeWesternManga = "western_manga"
	ComicTypeWebComic     = "webcomic"
	ComicTypeYonkoma      = "yonkoma"
)

const (
	ReadStatusUnread = "unread"
	ReadStatusOpened = "opened"
	ReadStatusRead   = "read"
)

const (
	CreatorRoleWriter      = "writer"
	CreatorRolePenciller   = "penciller"
	CreatorRoleInker       = "inker"
	CreatorRoleColorist    = "colorist"
	CreatorRoleLetterer    = "letterer"
	CreatorRoleCoverArtist = "cover_artist"
	CreatorRoleEditor      = "editor"
)

// Provenance of the scraped metadata block.
const (
	MetadataSourceComicInfo = "comicinfo"
	MetadataSourceCatalog   = "catalog"
	MetadataSourceManual    = "manual"
)

type Comic struct {
	bun.BaseModel `bun:"table:comics,alias:c"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	// FolderID is nil for comics that sit directly in a library path
	// root rather than inside a subfolder.
	FolderID *int    `json:"folder_id,omitempty"`
	Folder   *Folder `bun:"rel:belongs-to" json:"folder,omitempty"`

	// Fingerprint is the content-derived identity; it is stable across
	// renames and moves and unique within a library. Path is not identity.
	Fingerprint   string    `bun:",nullzero" json:"fingerprint"`
	Path          string    `bun:",nullzero" json:"path"`
	FilesizeBytes int64     `json:"filesize_bytes"`
	FileModTime   time.Time `json:"file_mod_time"`
	PageCount     int       `json:"page_count"`
	CoverPage     *int      `json:"cover_page,omitempty"`
	// ScanError records why the archive could not be opened during the last
	// sync; creation with a scan error leaves PageCount at zero and is
	// retried on later runs.
	ScanError *string `json:"scan_error,omitempty"`

	Type string `bun:",nullzero,default:'comic'" json:"type"`

	// Per-user state; preserved across moves and renames.
	ReadStatus  string `bun:",nullzero,default:'unread'" json:"read_status"`
	CurrentPage int    `json:"current_page"`
	Rating      *int   `json:"rating,omitempty"`
	Completed   bool   `json:"completed"`

	// Scraped metadata, unset until matched against a catalog or imported
	// from ComicInfo.xml.
	Title          *string    `json:"title,omitempty"`
	Series         *string    `json:"series,omitempty"`
	Number         *string    `json:"number,omitempty"`
	Volume         *string    `json:"volume,omitempty"`
	StoryArc       *string    `json:"story_arc,omitempty"`
	Publisher      *string    `json:"publisher,omitempty"`
	ReleaseDate    *time.Time `json:"release_date,omitempty"`
	Synopsis       *string    `json:"synopsis,omitempty"`
	Tags           *string    `json:"tags,omitempty"`
	MetadataSource *string    `json:"metadata_source,omitempty"`

	Creators []*ComicCreator `bun:"rel:has-many,join:id=comic_id" json:"creators,omitempty"`
}

type ComicCreator struct {
	bun.BaseModel `bun:"table:comic_creators,alias:cc"`

	ID        int    `bun:",pk,nullzero" json:"id"`
	ComicID   int    `bun:",nullzero" json:"comic_id"`
	Role      string `bun:",nullzero" json:"role"`
	Name      string `bun:",nullzero" json:"name"`
	SortOrder int    `json:"sort_order"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ReadingList struct {
	bun.BaseModel `bun:"table:reading_lists,alias:rl"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	Name      string    `bun:",nullzero" json:"name"`
	IsOrdered bool      `json:"is_ordered"`

	ReadingListComics []*ReadingListComic `bun:"rel:has-many,join:id=reading_list_id" json:"reading_list_comics,omitempty"`
}

type ReadingListComic struct {
	bun.BaseModel `bun:"table:reading_list_comics,alias:rlc"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	ReadingListID int       `bun:",nullzero" json:"reading_list_id"`
	ComicID       int       `bun:",nullzero" json:"comic_id"`
	Comic         *Comic    `bun:"rel:belongs-to,join:comic_id=id" json:"comic,omitempty"`
	AddedAt       time.Time `json:"added_at"`
	SortOrder     *int      `json:"sort_order,omitempty"`
}

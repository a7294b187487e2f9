package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Label colors, matching the reader UI palette.
const (
	LabelColorRed    = "red"
	LabelColorOrange = "orange"
	LabelColorYellow = "yellow"
	LabelColorGreen  = "green"
	LabelColorCyan   = "cyan"
	LabelColorBlue   = "blue"
	LabelColorViolet = "violet"
	LabelColorPurple = "purple"
	LabelColorPink   = "pink"
	LabelColorWhite  = "white"
	LabelColorLight  = "light"
	LabelColorDark   = "dark"
)

type Label struct {
	bun.BaseModel `bun:"table:labels,alias:lb"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	Name      string    `bun:",nullzero" json:"name"`
	Color     string    `bun:",nullzero" json:"color"`

	ComicLabels []*ComicLabel `bun:"rel:has-many,join:id=label_id" json:"comic_labels,omitempty"`
}

type ComicLabel struct {
	bun.BaseModel `bun:"table:comic_labels,alias:cl"`

	ID      int       `bun:",pk,nullzero" json:"id"`
	LabelID int       `bun:",nullzero" json:"label_id"`
	ComicID int       `bun:",nullzero" json:"comic_id"`
	Comic   *Comic    `bun:"rel:belongs-to,join:comic_id=id" json:"comic,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

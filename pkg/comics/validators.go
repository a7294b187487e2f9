package comics

type ListComicsQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID  *int    `query:"library_id" json:"library_id,omitempty"`
	FolderID   *int    `query:"folder_id" json:"folder_id,omitempty"`
	Series     *string `query:"series" json:"series,omitempty"`
	Type       *string `query:"type" json:"type,omitempty" validate:"omitempty,oneof=comic manga western_manga webcomic yonkoma"`
	ReadStatus *string `query:"read_status" json:"read_status,omitempty" validate:"omitempty,oneof=unread opened read"`
}

type UpdateComicPayload struct {
	Type        *string `json:"type,omitempty" validate:"omitempty,oneof=comic manga western_manga webcomic yonkoma"`
	ReadStatus  *string `json:"read_status,omitempty" validate:"omitempty,oneof=unread opened read"`
	CurrentPage *int    `json:"current_page,omitempty" validate:"omitempty,min=0"`
	Rating      *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`

	Title     *string                `json:"title,omitempty" validate:"omitempty,max=500"`
	Series    *string                `json:"series,omitempty" validate:"omitempty,max=500"`
	Number    *string                `json:"number,omitempty" validate:"omitempty,max=50"`
	Volume    *string                `json:"volume,omitempty" validate:"omitempty,max=50"`
	StoryArc  *string                `json:"story_arc,omitempty" validate:"omitempty,max=500"`
	Publisher *string                `json:"publisher,omitempty" validate:"omitempty,max=500"`
	Synopsis  *string                `json:"synopsis,omitempty"`
	Tags      *string                `json:"tags,omitempty"`
	Creators  []UpdateCreatorPayload `json:"creators,omitempty" validate:"omitempty,dive"`
}

type UpdateCreatorPayload struct {
	Role string `json:"role" validate:"required,oneof=writer penciller inker colorist letterer cover_artist editor"`
	Name string `json:"name" validate:"required,max=500"`
}

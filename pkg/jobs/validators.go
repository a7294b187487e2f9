package jobs

type CreateJobPayload struct {
	Type      string `json:"type" validate:"required,oneof=library_sync"`
	LibraryID *int   `json:"library_id" validate:"required"`
}

type ListJobsQuery struct {
	Limit     int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status    []string `query:"status" json:"status,omitempty" validate:"dive,oneof=pending in_progress completed failed cancelled"`
	Type      *string  `query:"type" json:"type,omitempty" validate:"omitempty,oneof=library_sync"`
	LibraryID *int     `query:"library_id" json:"library_id,omitempty"`
}

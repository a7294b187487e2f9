package settings

type UpdateSettingsPayload struct {
	UpdateLibrariesPeriodically *bool `json:"update_libraries_periodically,omitempty"`
	SyncIntervalMinutes         *int  `json:"sync_interval_minutes,omitempty" validate:"omitempty,min=5,max=1440"`
	ImportComicInfoMetadata     *bool `json:"import_comic_info_metadata,omitempty"`
}

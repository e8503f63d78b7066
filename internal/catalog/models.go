package catalog

import "time"

// MediaItem is one cataloged video, keyed by its unique library code.
type MediaItem struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	NFOPath      string    `json:"-"`
	VideoPath    string    `json:"-"`
	VideoType    string    `json:"videoType,omitempty"`
	FileSize     int64     `json:"fileSize"`
	FileMTime    time.Time `json:"fileMtime"`
	Rating       float64   `json:"rating,omitempty"`
	Year         int       `json:"year,omitempty"`
	Runtime      int       `json:"runtime,omitempty"`
	Studio       string    `json:"studio,omitempty"`
	ActorsJSON   string    `json:"-"`
	Genres       []string  `json:"genres,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	IsFavorite   bool      `json:"isFavorite,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasVideo reports whether a co-located media file was found for this item.
func (m *MediaItem) HasVideo() bool {
	return m.VideoPath != ""
}

// VocabularyEntry is a genre or tag name with its usage count.
type VocabularyEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Favorite marks a cataloged item as favorited.
type Favorite struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"itemId"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListOptions controls item listing.
type ListOptions struct {
	Query    string
	Genre    string
	Tag      string
	Page     int
	PageSize int
}

// ListResult is one page of items.
type ListResult struct {
	Items      []MediaItem `json:"items"`
	Query      string      `json:"query,omitempty"`
	TotalItems int         `json:"totalItems"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// SyncStats summarizes the most recent synchronization run.
type SyncStats struct {
	Processed    int       `json:"processed"`
	Skipped      int       `json:"skipped"`
	LastSynced   time.Time `json:"lastSynced"`
	SyncDuration string    `json:"syncDuration"`
}

package recordings

import "time"

// Recording represents one uploaded speech recording artifact.
type Recording struct {
	ID           string    `json:"id"`
	SessionToken string    `json:"sessionToken"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	LanguageCode string    `json:"languageCode"`
	StorageKey   string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

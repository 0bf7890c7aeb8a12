package models

// Image is a single stock image result.
type Image struct {
	URL  string `json:"url"`
	Tags string `json:"tags"`
}

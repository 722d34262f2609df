package dto

type UploadedFile struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	// ThumbnailURL есть только у JPEG/PNG
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type UploadResponse struct {
	URLs  []string       `json:"urls"`
	Files []UploadedFile `json:"files"`
}

package dto

type MediaUploadResponse struct {
	ObjectName  string `json:"object_name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

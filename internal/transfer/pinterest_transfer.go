package transfer

type PinterestError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type PinterestMediaUploadRequest struct {
	MediaType string `json:"media_type"`
}

type PinterestMediaUpload struct {
	MediaID          string            `json:"media_id"`
	MediaType        string            `json:"media_type"`
	UploadURL        string            `json:"upload_url"`
	UploadParameters map[string]string `json:"upload_parameters"`
}

type PinterestMediaStatus struct {
	MediaID   string `json:"media_id"`
	MediaType string `json:"media_type"`
	Status    string `json:"status"` // registered, processing, succeeded, failed
}

type PinterestMediaSource struct {
	SourceType    string `json:"source_type"`
	URL           string `json:"url,omitempty"`
	MediaID       string `json:"media_id,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	KeyFrameTime  *int64 `json:"cover_image_key_frame_time,omitempty"`
}

type PinterestPinRequest struct {
	BoardID     string               `json:"board_id"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Link        string               `json:"link,omitempty"`
	AltText     string               `json:"alt_text,omitempty"`
	MediaSource PinterestMediaSource `json:"media_source"`
}

type PinterestPin struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
}

type PinterestUserAccount struct {
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
}

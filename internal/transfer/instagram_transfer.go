package transfer

// GraphErrorResponse is the error envelope shared by the Instagram and Facebook Graph APIs.
type GraphErrorResponse struct {
	Error *struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

type InstagramIDResponse struct {
	ID string `json:"id"`
}

type InstagramContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"` // EXPIRED, ERROR, FINISHED, IN_PROGRESS, PUBLISHED
	Status     string `json:"status"`
}

type InstagramPermalink struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
}

type InstagramRefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type InstagramUserInfo struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

package model

// UploadResponse 上传响应
type UploadResponse struct {
	Message string   `json:"message"`
	Results []Region `json:"results"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// RelayFailureResponse 转发失败时仍然带上检测结果，没有结果时为 []
type RelayFailureResponse struct {
	Error   string   `json:"error"`
	Results []Region `json:"results"`
}

// DetectionsResponse 按 MD5 查询缓存的响应
type DetectionsResponse struct {
	MD5       string   `json:"md5"`
	Results   []Region `json:"results"`
	Timestamp int64    `json:"timestamp"`
}

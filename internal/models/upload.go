package models

// UploadChallenge is the ephemeral payload sealed inside an upload challenge
// token. It is never persisted; its whole lifecycle is the encrypted string.
type UploadChallenge struct {
	TargetPath   string `json:"targetPath"`
	ContentType  string `json:"contentType"`
	MaxSizeBytes uint64 `json:"maxSizeBytes"`
	ExpiresAt    int64  `json:"expiresAt"` // unix milliseconds
}

// VerificationResult is the outcome of an upload verification call.
type VerificationResult struct {
	Success   bool   `json:"success"`
	PublicURL string `json:"publicUrl,omitempty"`
	Message   string `json:"message"`
}

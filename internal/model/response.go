package model

// AuditRequest is the body accepted by POST /audit.
type AuditRequest struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuditResponse is the JSON shape returned on a completed audit.
// NotificationsQueued reports whether the emailed report was accepted for
// delivery, not whether it has been sent.
type AuditResponse struct {
	Success             bool          `json:"success"`
	Results             *AuditResults `json:"results"`
	NotificationsQueued bool          `json:"notificationsQueued"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string              `json:"error"`
	StatusCode int                 `json:"status_code"`
	Message    string              `json:"message"`
	Details    map[string][]string `json:"details,omitempty"`
}

package models

// LoginRequest accepts either a Firebase identity ({uid, email}) or
// credentials ({email, password}).
type LoginRequest struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a credential-based account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// CheckoutRequestBody is the body of POST /payment/checkout.
type CheckoutRequestBody struct {
	Plan     string `json:"plan" binding:"required"`
	Currency string `json:"currency"`
}

// DocumentRequest is the body shared by the resume and cover letter endpoints.
// Resume clients send resumeData, cover letter clients send coverLetterData.
type DocumentRequest struct {
	ResumeData      map[string]interface{} `json:"resumeData"`
	CoverLetterData map[string]interface{} `json:"coverLetterData"`
	Lang            string                 `json:"lang"`
}

// Payload returns the document payload for the given kind, never nil.
func (r DocumentRequest) Payload(kind DocumentKind) map[string]interface{} {
	var p map[string]interface{}
	if kind == KindCoverLetter {
		p = r.CoverLetterData
	} else {
		p = r.ResumeData
	}
	if p == nil {
		p = map[string]interface{}{}
	}
	return p
}

// UpdateUserFields enumerates the user fields an administrator may change.
// Server-managed fields (subscription, billingCustomerRef, passwordHash) are
// deliberately absent; handlers decode with unknown fields disallowed.
type UpdateUserFields struct {
	DisplayName *string `json:"displayName,omitempty"`
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (f UpdateUserFields) IsEmpty() bool {
	return f.DisplayName == nil && f.Username == nil && f.Email == nil && f.Role == nil
}

// AdminDocumentRequest identifies the collection for admin document operations
// and optionally carries replacement content.
type AdminDocumentRequest struct {
	Type    string                 `json:"type"`
	Content map[string]interface{} `json:"content,omitempty"`
}

// WebhookRegistrationRequest is the body of POST /admin/webhooks.
type WebhookRegistrationRequest struct {
	Type string `json:"type" binding:"required"`
	URL  string `json:"url" binding:"required,url"`
}

package model

import (
	"strings"
	"time"
)

// SubmissionType identifies which form produced a submission.
type SubmissionType string

const (
	SubmissionTypePetSurvey SubmissionType = "pet-survey"
	SubmissionTypeReferral  SubmissionType = "referral"
)

// OncePerEmail reports whether only one submission per email is accepted for the type.
func (t SubmissionType) OncePerEmail() bool {
	return t == SubmissionTypePetSurvey || t == SubmissionTypeReferral
}

// SubmissionStatus is the review state set by administrators.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusVerified SubmissionStatus = "verified"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Valid reports whether s is a known submission status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusVerified, SubmissionStatusRejected:
		return true
	}
	return false
}

// Submission is a stored form response. Answers holds the form-specific fields.
type Submission struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Type       SubmissionType   `json:"type"`
	ReferredBy *string          `json:"referredBy"`
	Status     SubmissionStatus `json:"status"`
	City       string           `json:"city,omitempty"`
	Answers    map[string]any   `json:"answers"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// SubmitFormRequest is the normalized body of POST /api/submit-form.
type SubmitFormRequest struct {
	Type       string `validate:"required,notblank,max=64"`
	Email      string `validate:"required,notblank,max=255"`
	Name       string `validate:"required,notblank,max=255"`
	ReferredBy string `validate:"max=128"`
	City       string `validate:"max=255"`
	Answers    map[string]any
}

// knownFormFields are lifted out of the raw body; everything else lands in Answers.
var knownFormFields = map[string]bool{
	"type": true, "email": true, "name": true, "referredBy": true, "city": true,
	"status": true, "createdAt": true, "id": true,
}

// NewSubmitFormRequest builds a request from a decoded JSON body.
// Non-string values for the known fields are treated as absent.
func NewSubmitFormRequest(body map[string]any) *SubmitFormRequest {
	str := func(key string) string {
		v, _ := body[key].(string)
		return strings.TrimSpace(v)
	}

	req := &SubmitFormRequest{
		Type:       str("type"),
		Email:      str("email"),
		Name:       str("name"),
		ReferredBy: str("referredBy"),
		City:       str("city"),
		Answers:    map[string]any{},
	}
	for k, v := range body {
		if !knownFormFields[k] {
			req.Answers[k] = v
		}
	}
	return req
}

// SubmitFormResponse is returned on a successful submission.
type SubmitFormResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// UpdateSubmissionRequest is the DTO for PATCH /dashboard/admin/submissions/:id.
// Nil fields are left untouched.
type UpdateSubmissionRequest struct {
	Name   *string           `json:"name" validate:"omitempty,notblank,max=255"`
	Email  *string           `json:"email" validate:"omitempty,notblank,max=255"`
	City   *string           `json:"city" validate:"omitempty,max=255"`
	Status *SubmissionStatus `json:"status" validate:"omitempty,oneof=pending verified rejected"`
}

// Empty reports whether the request changes nothing.
func (r UpdateSubmissionRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.City == nil && r.Status == nil
}

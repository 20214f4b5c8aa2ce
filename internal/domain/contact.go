package domain

import "context"

// ContactFormMessage is the raw, untrusted contact form submission. Every
// field may be absent; pointer fields distinguish "missing" from "empty".
type ContactFormMessage struct {
	Name            *string `json:"name"`
	Email           *string `json:"email" validate:"required"`
	Subject         *string `json:"subject" validate:"required"`
	Body            *string `json:"body" validate:"required"`
	Language        *string `json:"language" validate:"required"`
	CaptchaSolution *string `json:"frc-captcha-solution" validate:"required"`
}

// ValidatedContactMessage is a ContactFormMessage whose required fields have
// been confirmed present. It is only constructed by successful validation.
type ValidatedContactMessage struct {
	Name            *string
	Email           string
	Subject         string
	Body            string
	Language        string
	CaptchaSolution string
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// ProcessMessage validates and relays a contact form message, returning
	// the submission's language on success so the caller can pick the
	// localized success page.
	ProcessMessage(ctx context.Context, msg *ContactFormMessage) (string, error)
}

package domain

import "fmt"

// ClientError is a failure the submitter can fix: missing fields, a malformed
// email address, or a rejected captcha solution. It maps to a 400 response.
type ClientError struct {
	Description string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: %s", e.Description)
}

// InternalError is a failure the submitter cannot fix. It retains the
// original subject, body and language so a diagnostic page can reproduce the
// message without the sender having to retype it.
type InternalError struct {
	Description string
	Subject     string
	Body        string
	Language    string
	Err         error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Description)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

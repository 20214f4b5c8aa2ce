// Package captcha verifies FriendlyCaptcha puzzle solutions against the
// siteverify endpoint.
//
// The verifier deliberately fails open when its own dependencies misbehave:
// if the credentials cannot be fetched, the endpoint is unreachable, or the
// response cannot be parsed, the request is allowed through unverified and a
// warning is logged. Accepting occasional spam was judged preferable to
// locking legitimate users out of the contact form during an outage. Only a
// rejected solution or a confirmed bad secret fails closed.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"contact-form-backend/pkg/lazy"
	"contact-form-backend/pkg/logger"
	"contact-form-backend/pkg/secrets"
)

// Verdict is the outcome of a verification that did not reject the solution.
type Verdict int

const (
	// VerdictVerified means the solution was confirmed valid.
	VerdictVerified Verdict = iota
	// VerdictDegraded means verification could not be performed and the
	// request passes unverified (fail-open).
	VerdictDegraded
)

// ErrIncorrectSecret indicates the configured API secret was rejected by the
// verification service. This is an operator problem, never the submitter's.
var ErrIncorrectSecret = errors.New("incorrect FriendlyCaptcha secret")

// SolutionError reports a solution the verification service rejected.
type SolutionError struct {
	Reason string
}

func (e *SolutionError) Error() string {
	return e.Reason
}

// RequestError reports a client-error status from the verification service,
// which means the verification request itself was malformed.
type RequestError struct {
	Status int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("FriendlyCaptcha rejected the verification request with status %d", e.Status)
}

// UnrecognizedError carries error codes this package does not know how to
// classify.
type UnrecognizedError struct {
	Codes []string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognised FriendlyCaptcha errors: %v", e.Codes)
}

// Credentials is the sitekey/secret pair stored as a single JSON secret.
type Credentials struct {
	Sitekey string `json:"FRIENDLYCAPTCHA_SITEKEY"`
	Secret  string `json:"FRIENDLYCAPTCHA_SECRET"`
}

type verifyPayload struct {
	Solution string `json:"solution"`
	Secret   string `json:"secret"`
	Sitekey  string `json:"sitekey"`
}

type verifyResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// FriendlyCaptchaVerifier holds the lazily fetched credentials and a reusable
// HTTP client. Safe for concurrent use.
type FriendlyCaptchaVerifier struct {
	secrets     secrets.Repository
	client      *http.Client
	verifyURL   string
	secretName  string
	credentials lazy.Cell[Credentials]
}

func NewFriendlyCaptchaVerifier(repo secrets.Repository, verifyURL, secretName string) *FriendlyCaptchaVerifier {
	return &FriendlyCaptchaVerifier{
		secrets:    repo,
		client:     &http.Client{},
		verifyURL:  verifyURL,
		secretName: secretName,
	}
}

// Verify checks a puzzle solution. It returns VerdictDegraded with a nil
// error when verification could not be carried out (see the package comment),
// and a non-nil error only when the request must be rejected.
func (v *FriendlyCaptchaVerifier) Verify(ctx context.Context, solution string) (Verdict, error) {
	creds, err := v.credentials.Get(ctx, v.fetchCredentials)
	if err != nil {
		logger.Log.Warn("Could not retrieve FriendlyCaptcha credentials; letting request pass without verification",
			"secret", v.secretName, "error", err.Error())
		return VerdictDegraded, nil
	}

	resp, err := v.sendSolution(ctx, verifyPayload{
		Solution: solution,
		Secret:   creds.Secret,
		Sitekey:  creds.Sitekey,
	})
	if err != nil {
		logger.Log.Warn("Error verifying FriendlyCaptcha solution; letting request pass without verification",
			"error", err.Error())
		return VerdictDegraded, nil
	}
	defer resp.Body.Close()

	return v.processResponse(resp)
}

func (v *FriendlyCaptchaVerifier) fetchCredentials(ctx context.Context) (Credentials, error) {
	var creds Credentials
	if err := v.secrets.GetSecret(ctx, v.secretName, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (v *FriendlyCaptchaVerifier) sendSolution(ctx context.Context, payload verifyPayload) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding verification payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return v.client.Do(req)
}

func (v *FriendlyCaptchaVerifier) processResponse(resp *http.Response) (Verdict, error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The service rejected our secret. Failing open here would mask an
		// operator misconfiguration indefinitely.
		return 0, ErrIncorrectSecret
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return 0, &RequestError{Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		logger.Log.Warn("FriendlyCaptcha returned a server error; letting request pass without verification",
			"status", resp.StatusCode)
		return VerdictDegraded, nil
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logger.Log.Warn("Error decoding FriendlyCaptcha response; letting request pass without verification",
			"error", err.Error())
		return VerdictDegraded, nil
	}

	switch {
	case body.Success:
		return VerdictVerified, nil
	case slices.Contains(body.Errors, "solution_invalid"):
		return 0, &SolutionError{Reason: "Invalid FriendlyCaptcha solution"}
	case slices.Contains(body.Errors, "solution_timeout_or_duplicate"):
		return 0, &SolutionError{Reason: "FriendlyCaptcha solution timeout or duplicate"}
	default:
		return 0, &UnrecognizedError{Codes: body.Errors}
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"contact-form-backend/internal/domain"
	"contact-form-backend/pkg/captcha"
	"contact-form-backend/pkg/email"
	"contact-form-backend/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Verifier confirms a captcha solution. *captcha.FriendlyCaptchaVerifier is
// the production implementation.
type Verifier interface {
	Verify(ctx context.Context, solution string) (captcha.Verdict, error)
}

// Dispatcher relays one outbound message. *email.Mailer is the production
// implementation.
type Dispatcher interface {
	Send(ctx context.Context, msg email.Message) error
}

type contactUsecase struct {
	verifier Verifier
	mailer   Dispatcher
	validate *validator.Validate
	from     mail.Address
	to       mail.Address
}

// NewContactUsecase creates the contact pipeline. The from and to mailboxes
// come from configuration and are parsed once here.
func NewContactUsecase(verifier Verifier, mailer Dispatcher, validate *validator.Validate, from, to string) (domain.ContactUsecase, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parsing From address %q: %w", from, err)
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parsing To address %q: %w", to, err)
	}
	return &contactUsecase{
		verifier: verifier,
		mailer:   mailer,
		validate: validate,
		from:     *fromAddr,
		to:       *toAddr,
	}, nil
}

// ProcessMessage runs the pipeline: validate, verify the captcha solution,
// build the outbound message, dispatch. It stops at the first failure, which
// is always a *domain.ClientError or *domain.InternalError.
func (uc *contactUsecase) ProcessMessage(ctx context.Context, msg *domain.ContactFormMessage) (string, error) {
	validated, err := uc.validateMessage(msg)
	if err != nil {
		return "", err
	}
	if err := uc.verifyCaptcha(ctx, validated); err != nil {
		return "", err
	}
	outbound, err := uc.buildMessage(validated)
	if err != nil {
		return "", err
	}
	if err := uc.mailer.Send(ctx, outbound); err != nil {
		return "", &domain.InternalError{
			Description: fmt.Sprintf("Error sending message: %v", err),
			Subject:     validated.Subject,
			Body:        validated.Body,
			Language:    validated.Language,
			Err:         err,
		}
	}
	return validated.Language, nil
}

func (uc *contactUsecase) validateMessage(msg *domain.ContactFormMessage) (*domain.ValidatedContactMessage, error) {
	if err := uc.validate.Struct(msg); err != nil {
		return nil, &domain.ClientError{Description: "Missing fields in request"}
	}
	return &domain.ValidatedContactMessage{
		Name:            msg.Name,
		Email:           *msg.Email,
		Subject:         *msg.Subject,
		Body:            *msg.Body,
		Language:        *msg.Language,
		CaptchaSolution: *msg.CaptchaSolution,
	}, nil
}

func (uc *contactUsecase) verifyCaptcha(ctx context.Context, validated *domain.ValidatedContactMessage) error {
	verdict, err := uc.verifier.Verify(ctx, validated.CaptchaSolution)
	if err != nil {
		return uc.translateCaptchaError(err, validated)
	}
	if verdict == captcha.VerdictDegraded {
		logger.Log.Warn("Captcha verification degraded; accepting message unverified")
	}
	return nil
}

// translateCaptchaError maps verifier failures onto the pipeline's two error
// categories. Rejected solutions and malformed verification requests are the
// caller's to fix; everything else is operator-visible.
func (uc *contactUsecase) translateCaptchaError(err error, validated *domain.ValidatedContactMessage) error {
	internal := func(description string) error {
		return &domain.InternalError{
			Description: description,
			Subject:     validated.Subject,
			Body:        validated.Body,
			Language:    validated.Language,
			Err:         err,
		}
	}

	var solutionErr *captcha.SolutionError
	var requestErr *captcha.RequestError
	var unrecognized *captcha.UnrecognizedError
	switch {
	case errors.As(err, &solutionErr):
		return &domain.ClientError{Description: solutionErr.Reason}
	case errors.As(err, &requestErr):
		return &domain.ClientError{Description: requestErr.Error()}
	case errors.Is(err, captcha.ErrIncorrectSecret):
		return internal("Incorrect FriendlyCaptcha secret")
	case errors.As(err, &unrecognized):
		return internal(fmt.Sprintf("FriendlyCaptcha error: %v", unrecognized.Codes))
	default:
		return internal(fmt.Sprintf("FriendlyCaptcha error: %v", err))
	}
}

func (uc *contactUsecase) buildMessage(validated *domain.ValidatedContactMessage) (email.Message, error) {
	// A line break in the subject would end up as a raw header line in the
	// relayed mail.
	if strings.ContainsAny(validated.Subject, "\r\n") {
		return email.Message{}, &domain.ClientError{Description: "Invalid subject"}
	}
	replyTo := validated.Email
	if validated.Name != nil {
		replyTo = fmt.Sprintf("%s <%s>", *validated.Name, validated.Email)
	}
	replyToAddr, err := mail.ParseAddress(replyTo)
	if err != nil {
		return email.Message{}, &domain.ClientError{
			Description: fmt.Sprintf("Invalid email address %s", validated.Email),
		}
	}
	return email.Message{
		From:    uc.from,
		To:      uc.to,
		ReplyTo: *replyToAddr,
		Subject: validated.Subject,
		Body:    validated.Body,
	}, nil
}

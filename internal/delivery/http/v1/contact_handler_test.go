package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contact-form-backend/config"
	v1 "contact-form-backend/internal/delivery/http/v1"
	"contact-form-backend/internal/testsupport"
	"contact-form-backend/internal/usecase"
	"contact-form-backend/pkg/captcha"
	"contact-form-backend/pkg/email"
	"contact-form-backend/pkg/errorpage"
	"contact-form-backend/pkg/secrets"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fakeSitekey     = "arbitrary sitekey"
	fakeSecret      = "arbitrary secret"
	correctSolution = "correct captcha solution"
	baseHost        = "example.com"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	smtp   *testsupport.FakeSMTPServer
	repo   *secrets.InMemoryRepository
}

type fixtureOptions struct {
	captcha      *testsupport.FakeFriendlyCaptcha
	poisonedSMTP bool
	smtpURL      string
	secrets      map[string]string
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	fake := opts.captcha
	if fake == nil {
		fake = testsupport.NewFakeFriendlyCaptcha(fakeSitekey, fakeSecret).RequireSolution(correctSolution)
	}
	captchaServer := httptest.NewServer(fake.Handler())
	t.Cleanup(captchaServer.Close)

	var smtpServer *testsupport.FakeSMTPServer
	var err error
	if opts.poisonedSMTP {
		smtpServer, err = testsupport.StartPoisonedSMTPServer()
	} else {
		smtpServer, err = testsupport.StartFakeSMTPServer()
	}
	require.NoError(t, err)
	t.Cleanup(smtpServer.Close)

	secretValues := opts.secrets
	if secretValues == nil {
		secretValues = map[string]string{
			"friendlycaptcha-data": `{
				"FRIENDLYCAPTCHA_SITEKEY": "` + fakeSitekey + `",
				"FRIENDLYCAPTCHA_SECRET": "` + fakeSecret + `"
			}`,
			"smtp-ses-credentials": `{"SMTP_USERNAME": "user", "SMTP_PASSWORD": "pass"}`,
		}
	}
	repo := secrets.NewInMemoryRepository(secretValues)

	smtpURL := opts.smtpURL
	if smtpURL == "" {
		smtpURL = smtpServer.URL()
	}

	verifier := captcha.NewFriendlyCaptchaVerifier(repo, captchaServer.URL, "friendlycaptcha-data")
	mailer := email.NewMailer(repo, smtpURL, "smtp-ses-credentials")
	contactUC, err := usecase.NewContactUsecase(verifier, mailer, validator.New(),
		"Web contact form <noreply@example.com>", "Site owner <contact@example.com>")
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterDeps{
		ContactUC: contactUC,
		Pages:     errorpage.NewPresenter(baseHost),
		Config:    &config.Config{BaseHost: baseHost},
	})

	return &fixture{router: router, smtp: smtpServer, repo: repo}
}

type payload struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Subject  string  `json:"subject"`
	Body     string  `json:"body"`
	Language string  `json:"language"`
	Solution *string `json:"frc-captcha-solution,omitempty"`
}

func arbitraryPayload() payload {
	solution := correctSolution
	return payload{
		Name:     "Arbitrary sender",
		Email:    "email@example.com",
		Subject:  "Test",
		Body:     "Test message",
		Language: "en",
		Solution: &solution,
	}
}

func (p payload) withSolution(solution string) payload {
	p.Solution = &solution
	return p
}

func (f *fixture) submit(t *testing.T, p payload) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(p)
	require.NoError(t, err)
	return f.post(t, body)
}

func (f *fixture) post(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitContactSendsMailAndRedirects(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	rec := f.submit(t, arbitraryPayload())

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://example.com/email-sent.html", rec.Header().Get("Location"))

	content, err := f.smtp.LastMail(time.Second)
	require.NoError(t, err)
	assert.Contains(t, content, "Subject: Test")
	assert.Contains(t, content, "Test message")
	assert.Contains(t, content, "Arbitrary sender")
	assert.Contains(t, content, "<email@example.com>")
}

func TestSubmitContactRedirectsToLocalizedSuccessPage(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	p := arbitraryPayload()
	p.Language = "de"

	rec := f.submit(t, p)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://example.com/email-sent.de.html", rec.Header().Get("Location"))
}

func TestSubmitContactReturns400WhenSolutionDoesNotValidate(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	rec := f.submit(t, arbitraryPayload().withSolution("incorrect captcha solution"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Client error")
	_, err := f.smtp.LastMail(100 * time.Millisecond)
	assert.Error(t, err)
}

func TestSubmitContactReturns400WhenSolutionIsMissing(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	p := arbitraryPayload()
	p.Solution = nil

	rec := f.submit(t, p)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := f.smtp.LastMail(100 * time.Millisecond)
	assert.Error(t, err)
}

func TestSubmitContactSendsMailWhenVerifierResponseIsUnparseable(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		captcha: testsupport.NewFakeFriendlyCaptcha(fakeSitekey, fakeSecret).ReturnInvalidResponse(),
	})

	rec := f.submit(t, arbitraryPayload())

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err := f.smtp.LastMail(time.Second)
	assert.NoError(t, err)
}

func TestSubmitContactDoesNotSendMailOnSolutionTimeout(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		captcha: testsupport.NewFakeFriendlyCaptcha(fakeSitekey, fakeSecret).ReturnSolutionTimeout(),
	})

	rec := f.submit(t, arbitraryPayload())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := f.smtp.LastMail(100 * time.Millisecond)
	assert.Error(t, err)
}

func TestSubmitContactSendsMailWhenCaptchaSecretIsMissing(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		secrets: map[string]string{
			"smtp-ses-credentials": `{"SMTP_USERNAME": "user", "SMTP_PASSWORD": "pass"}`,
		},
	})

	rec := f.submit(t, arbitraryPayload().withSolution("incorrect captcha solution"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err := f.smtp.LastMail(time.Second)
	assert.NoError(t, err)
}

// Once the captcha secret appears, verification resumes: the same invalid
// solution that passed unverified is now rejected.
func TestSubmitContactRejectsSolutionAfterSecretAppears(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		secrets: map[string]string{
			"smtp-ses-credentials": `{"SMTP_USERNAME": "user", "SMTP_PASSWORD": "pass"}`,
		},
	})

	rec := f.submit(t, arbitraryPayload().withSolution("incorrect captcha solution"))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	f.repo.AddSecret("friendlycaptcha-data", `{
		"FRIENDLYCAPTCHA_SITEKEY": "`+fakeSitekey+`",
		"FRIENDLYCAPTCHA_SECRET": "`+fakeSecret+`"
	}`)

	rec = f.submit(t, arbitraryPayload().withSolution("incorrect captcha solution"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitContactRendersErrorPageOnBadSitekey(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		captcha: testsupport.NewFakeFriendlyCaptcha("a different sitekey", fakeSecret),
	})

	rec := f.submit(t, arbitraryPayload())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestSubmitContactRendersErrorPageWhenSMTPFails(t *testing.T) {
	f := newFixture(t, fixtureOptions{poisonedSMTP: true})
	p := arbitraryPayload()
	p.Subject = "Message subject"
	p.Body = "Message body"

	rec := f.submit(t, p)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.Contains(t, rec.Body.String(), "Message subject")
	assert.Contains(t, rec.Body.String(), "Message body")
}

func TestSubmitContactRendersGermanErrorPage(t *testing.T) {
	f := newFixture(t, fixtureOptions{poisonedSMTP: true})
	p := arbitraryPayload()
	p.Language = "de"

	rec := f.submit(t, p)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Leider ist etwas schiefgelaufen")
}

func TestSubmitContactRendersErrorPageWhenSMTPSecretIsMissing(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		smtpURL: "smtps://localhost:2465",
		secrets: map[string]string{
			"friendlycaptcha-data": `{
				"FRIENDLYCAPTCHA_SITEKEY": "` + fakeSitekey + `",
				"FRIENDLYCAPTCHA_SECRET": "` + fakeSecret + `"
			}`,
		},
	})

	rec := f.submit(t, arbitraryPayload())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	_, err := f.smtp.LastMail(100 * time.Millisecond)
	assert.Error(t, err)
}

func TestSubmitContactRendersErrorPageOnMissingPayload(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	rec := f.post(t, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "(Unable to retrieve)")
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "System operational")
}

package v1

import (
	"errors"
	"fmt"
	"net/http"

	"contact-form-backend/internal/domain"
	"contact-form-backend/pkg/errorpage"
	"contact-form-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
	pages     *errorpage.Presenter
	baseHost  string
}

// NewContactHandler registers the contact routes (public, no auth required)
func NewContactHandler(public *gin.RouterGroup, contactUC domain.ContactUsecase, pages *errorpage.Presenter, baseHost string) {
	handler := &ContactHandler{
		contactUC: contactUC,
		pages:     pages,
		baseHost:  baseHost,
	}

	public.POST("/contact", handler.SubmitContact)
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Relay a contact form message by email after captcha verification. This is a public endpoint.
// @Tags         contact
// @Accept       json
// @Produce      html
// @Param        contact  body      domain.ContactFormMessage  true  "Contact Form Data"
// @Success      303      "Redirect to the localized success page"
// @Failure      400      {string}  string  "Client error description"
// @Failure      500      {string}  string  "Localized HTML page reproducing the message"
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var msg domain.ContactFormMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		// The payload itself could not be read, so there is no message text
		// to carry onto the diagnostic page.
		h.respondError(c, &domain.InternalError{
			Description: fmt.Sprintf("Missing event payload: %v", err),
			Subject:     "(Unable to retrieve)",
			Body:        "(Unable to retrieve)",
			Language:    "en",
			Err:         err,
		})
		return
	}

	language, err := h.contactUC.ProcessMessage(c.Request.Context(), &msg)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, h.successURL(language))
}

func (h *ContactHandler) respondError(c *gin.Context, err error) {
	var clientErr *domain.ClientError
	var internalErr *domain.InternalError
	switch {
	case errors.As(err, &clientErr):
		logger.Log.Warn("Client error sending contact form email", "error", clientErr.Description)
		c.String(http.StatusBadRequest, "Client error: %s", clientErr.Description)
	case errors.As(err, &internalErr):
		logger.Log.Error("Internal error sending contact form email", "error", internalErr.Description)
		page := h.pages.Render(internalErr.Subject, internalErr.Body, internalErr.Language)
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte(page))
	default:
		// The pipeline only emits the two domain errors; anything else goes
		// through the generic JSON error middleware.
		_ = c.Error(err)
	}
}

func (h *ContactHandler) successURL(language string) string {
	if language == "en" {
		return fmt.Sprintf("https://%s/email-sent.html", h.baseHost)
	}
	return fmt.Sprintf("https://%s/email-sent.%s.html", h.baseHost, language)
}

package errorpage_test

import (
	"testing"

	"contact-form-backend/pkg/errorpage"

	"github.com/stretchr/testify/assert"
)

const maliciousContent = "<script>doEvil();</script>"

func TestEscapesUserInputInSubject(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render(maliciousContent, "A body", "en")

	assert.NotContains(t, output, maliciousContent)
}

func TestEscapesUserInputInBody(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render("A subject", maliciousContent, "en")

	assert.NotContains(t, output, maliciousContent)
}

func TestRendersParagraphsInBody(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render("A subject", "A paragraph\n\nAnother paragraph", "en")

	assert.Contains(t, output, "<p>A paragraph</p><p>Another paragraph</p>")
}

func TestRendersEnglishByDefault(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render("A subject", "A body", "en")

	assert.Contains(t, output, "Something went wrong")
}

func TestRendersEnglishForUnknownLanguage(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render("A subject", "A body", "fr")

	assert.Contains(t, output, "Something went wrong")
}

func TestRendersGermanWhenRequested(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render("A subject", "A body", "de")

	assert.Contains(t, output, "Leider ist etwas schiefgelaufen")
}

func TestLinksBackToSiteRoot(t *testing.T) {
	presenter := errorpage.NewPresenter("example.com")

	output := presenter.Render("A subject", "A body", "en")

	assert.Contains(t, output, `href="https://example.com/"`)
}

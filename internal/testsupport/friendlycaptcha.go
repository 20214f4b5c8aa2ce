package testsupport

import (
	"encoding/json"
	"net/http"
)

type fakeCaptchaMode int

const (
	captchaModeNormal fakeCaptchaMode = iota
	captchaModeInvalidResponse
	captchaModeSolutionTimeout
)

// FakeFriendlyCaptcha mimics the FriendlyCaptcha siteverify endpoint. Wrap
// Handler in an httptest.Server and point the verifier's URL at it.
type FakeFriendlyCaptcha struct {
	sitekey          string
	secret           string
	requiredSolution string
	mode             fakeCaptchaMode
}

func NewFakeFriendlyCaptcha(sitekey, secret string) *FakeFriendlyCaptcha {
	return &FakeFriendlyCaptcha{sitekey: sitekey, secret: secret}
}

// RequireSolution makes the endpoint reject any other solution as invalid.
func (f *FakeFriendlyCaptcha) RequireSolution(solution string) *FakeFriendlyCaptcha {
	f.requiredSolution = solution
	return f
}

// ReturnInvalidResponse makes the endpoint answer with a non-JSON body.
func (f *FakeFriendlyCaptcha) ReturnInvalidResponse() *FakeFriendlyCaptcha {
	f.mode = captchaModeInvalidResponse
	return f
}

// ReturnSolutionTimeout makes the endpoint report every solution as timed out
// or duplicated.
func (f *FakeFriendlyCaptcha) ReturnSolutionTimeout() *FakeFriendlyCaptcha {
	f.mode = captchaModeSolutionTimeout
	return f
}

func (f *FakeFriendlyCaptcha) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.mode == captchaModeInvalidResponse {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("this is not JSON"))
			return
		}

		var payload struct {
			Solution string `json:"solution"`
			Secret   string `json:"secret"`
			Sitekey  string `json:"sitekey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		switch {
		case payload.Secret != f.secret:
			writeVerifyResponse(w, http.StatusUnauthorized, false, "secret_invalid")
		case payload.Sitekey != f.sitekey:
			writeVerifyResponse(w, http.StatusOK, false, "sitekey_unknown")
		case f.mode == captchaModeSolutionTimeout:
			writeVerifyResponse(w, http.StatusOK, false, "solution_timeout_or_duplicate")
		case f.requiredSolution != "" && payload.Solution != f.requiredSolution:
			writeVerifyResponse(w, http.StatusOK, false, "solution_invalid")
		default:
			writeVerifyResponse(w, http.StatusOK, true)
		}
	})
}

func writeVerifyResponse(w http.ResponseWriter, status int, success bool, errorCodes ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"errors":  errorCodes,
	})
}

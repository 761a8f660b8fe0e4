package auth

import "strings"

// SignInOutcome tells the browser shell what to do after a popup sign-in fails.
type SignInOutcome string

const (
	FallbackRedirect SignInOutcome = "redirect"
	ShowMessage      SignInOutcome = "message"
)

const signInFailedPrefix = "No se pudo iniciar sesión: "

type SignInDecision struct {
	Code    string        `json:"code"`
	Outcome SignInOutcome `json:"outcome"`
	Message string        `json:"message,omitempty"`
}

// ClassifySignInError maps an identity-provider error code to the shell's
// recovery path. Unknown and empty codes surface a message.
func ClassifySignInError(code string) SignInDecision {
	code = strings.TrimSpace(code)
	switch code {
	case "auth/popup-blocked",
		"auth/popup-closed-by-user",
		"auth/operation-not-supported-in-this-environment":
		// a full-page redirect recovers from these popup failures
		return SignInDecision{Code: code, Outcome: FallbackRedirect}
	}
	return SignInDecision{
		Code:    code,
		Outcome: ShowMessage,
		Message: signInFailedPrefix + code,
	}
}

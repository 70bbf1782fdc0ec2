package handlers

import (
	"net/http"

	"github.com/crmhub/crm-platform-services/api/services"
)

// Login handles authentication requests.
func Login(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.LoginService(w, r)
	}
}

// RespondToChallenge handles forced password change completions.
func RespondToChallenge(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.RespondToChallengeService(w, r)
	}
}

// RefreshToken handles token refresh requests.
func RefreshToken(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.RefreshTokenService(w, r)
	}
}

// Logout handles logout requests.
func Logout(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.LogoutService(w, r)
	}
}

// ForgotPassword handles password reset initiation.
func ForgotPassword(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.ForgotPasswordService(w, r)
	}
}

// ConfirmForgotPassword handles password reset completion.
func ConfirmForgotPassword(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.ConfirmForgotPasswordService(w, r)
	}
}

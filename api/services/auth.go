package services

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/internal/directory"
	"github.com/crmhub/crm-platform-services/models"
)

// invalidCredentialsMessage is deliberately the same for a wrong password and
// an unknown email, so login responses cannot be used to enumerate accounts.
const invalidCredentialsMessage = "Invalid email or password"

// LoginService authenticates a user. A directory challenge is passed through
// as a 200 with the challenge descriptor instead of tokens.
func (s *Service) LoginService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := s.Directory.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		de := directory.AsError(err)
		switch de.Kind {
		case directory.KindUnauthorized, directory.KindNotFound:
			logger.Warn().Str("email", req.Email).Msg("login rejected")
			WriteError(w, http.StatusUnauthorized, invalidCredentialsMessage)
		case directory.KindUnconfirmed, directory.KindResetRequired, directory.KindRateLimited:
			WriteError(w, http.StatusBadRequest, de.Message)
		default:
			logger.Error().Err(err).Msg("login failed")
			WriteError(w, http.StatusInternalServerError, de.Message)
		}
		return
	}

	if outcome.Challenge != nil {
		logger.Info().Str("email", req.Email).Str("challenge", outcome.Challenge.Name).
			Msg("login interrupted by challenge")
		WriteResponse(w, http.StatusOK, models.LoginResponse{
			Message:             "Password change required before login can complete",
			Challenge:           outcome.Challenge.Name,
			Session:             outcome.Challenge.Session,
			ChallengeParameters: outcome.Challenge.Parameters,
			Code:                http.StatusOK,
		})
		return
	}

	logger.Info().Str("email", req.Email).Msg("login successful")
	WriteResponse(w, http.StatusOK, models.LoginResponse{
		Message:      "Login successful",
		AccessToken:  outcome.Tokens.AccessToken,
		IDToken:      outcome.Tokens.IDToken,
		RefreshToken: outcome.Tokens.RefreshToken,
		ExpiresIn:    outcome.Tokens.ExpiresIn,
		TokenType:    outcome.Tokens.TokenType,
		Code:         http.StatusOK,
	})
}

// RespondToChallengeService completes the forced password change issued at
// first login.
func (s *Service) RespondToChallengeService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req models.RespondToChallengeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := s.Directory.RespondToChallenge(r.Context(), req.Email, req.Session, req.NewPassword)
	if err != nil {
		de := directory.AsError(err)
		switch de.Kind {
		case directory.KindUnauthorized:
			WriteError(w, http.StatusUnauthorized, "Invalid password or session expired")
		case directory.KindCredentialPolicy, directory.KindValidation, directory.KindRateLimited:
			WriteError(w, http.StatusBadRequest, de.Message)
		default:
			logger.Error().Err(err).Msg("challenge response failed")
			WriteError(w, http.StatusInternalServerError, de.Message)
		}
		return
	}

	if outcome.Challenge != nil {
		logger.Warn().Str("challenge", outcome.Challenge.Name).
			Msg("directory chained an unexpected challenge")
		WriteError(w, http.StatusBadRequest, "Unexpected additional challenge")
		return
	}

	logger.Info().Str("email", req.Email).Msg("challenge completed")
	WriteResponse(w, http.StatusOK, models.RespondToChallengeResponse{
		Message:      "Password changed and login successful",
		AccessToken:  outcome.Tokens.AccessToken,
		IDToken:      outcome.Tokens.IDToken,
		RefreshToken: outcome.Tokens.RefreshToken,
		ExpiresIn:    outcome.Tokens.ExpiresIn,
		TokenType:    outcome.Tokens.TokenType,
		Code:         http.StatusOK,
	})
}

// RefreshTokenService exchanges a refresh token for fresh access and ID
// tokens.
func (s *Service) RefreshTokenService(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := s.Directory.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		de := directory.AsError(err)
		if de.Kind == directory.KindUnauthorized || de.Kind == directory.KindNotFound {
			WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("token refresh failed")
		WriteError(w, http.StatusInternalServerError, de.Message)
		return
	}

	zerolog.Ctx(r.Context()).Info().Msg("token refreshed")
	WriteResponse(w, http.StatusOK, models.RefreshTokenResponse{
		Message:     "Token refreshed successfully",
		AccessToken: tokens.AccessToken,
		IDToken:     tokens.IDToken,
		ExpiresIn:   tokens.ExpiresIn,
		TokenType:   tokens.TokenType,
		Code:        http.StatusOK,
	})
}

// LogoutService revokes every token issued to the caller.
func (s *Service) LogoutService(w http.ResponseWriter, r *http.Request) {
	var req models.LogoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.Directory.Logout(r.Context(), req.AccessToken); err != nil {
		de := directory.AsError(err)
		if de.Kind == directory.KindUnauthorized {
			WriteError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("logout failed")
		WriteError(w, http.StatusInternalServerError, de.Message)
		return
	}

	zerolog.Ctx(r.Context()).Info().Msg("user logged out")
	WriteResponse(w, http.StatusOK, models.LogoutResponse{
		Message: "Logged out successfully",
		Code:    http.StatusOK,
	})
}

// ForgotPasswordService starts a password reset. An unknown email gets the
// same 200 as a known one, so the reset flow cannot enumerate accounts.
func (s *Service) ForgotPasswordService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req models.ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	const sentMessage = "If an account exists, a password reset code has been sent"

	delivery, err := s.Directory.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		de := directory.AsError(err)
		switch de.Kind {
		case directory.KindNotFound:
			logger.Debug().Str("email", req.Email).Msg("password reset for unknown email")
			WriteResponse(w, http.StatusOK, models.ForgotPasswordResponse{
				Message: sentMessage,
				Code:    http.StatusOK,
			})
		case directory.KindRateLimited:
			WriteError(w, http.StatusBadRequest, de.Message)
		default:
			logger.Error().Err(err).Msg("password reset request failed")
			WriteError(w, http.StatusInternalServerError, de.Message)
		}
		return
	}

	logger.Info().Str("email", req.Email).Msg("password reset code sent")
	WriteResponse(w, http.StatusOK, models.ForgotPasswordResponse{
		Message:     sentMessage,
		Destination: delivery.Destination,
		Code:        http.StatusOK,
	})
}

// ConfirmForgotPasswordService completes a password reset with the emailed
// code.
func (s *Service) ConfirmForgotPasswordService(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.Directory.ConfirmForgotPassword(r.Context(), req.Email, req.ConfirmationCode, req.NewPassword); err != nil {
		de := directory.AsError(err)
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("email", req.Email).
			Msg("password reset confirmation rejected")
		WriteError(w, statusForKind(de.Kind), de.Message)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("email", req.Email).Msg("password reset completed")
	WriteResponse(w, http.StatusOK, models.ConfirmForgotPasswordResponse{
		Message: "Password has been reset successfully",
		Code:    http.StatusOK,
	})
}

package services

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/crmhub/crm-platform-services/internal/directory"
	"github.com/crmhub/crm-platform-services/models"
)

// CreateUserService creates a new directory user. A directory-side parameter
// complaint maps to 500: the request already passed local validation, so the
// directory disagreeing means our rules drifted from the pool's.
func (s *Service) CreateUserService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req models.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.Directory.CreateUser(r.Context(), req)
	if err != nil {
		de := directory.AsError(err)
		status := statusForKind(de.Kind)
		if de.Kind == directory.KindValidation {
			status = http.StatusInternalServerError
		}
		logger.Error().Err(err).Str("email", req.Email).Msg("failed to create user")
		WriteError(w, status, de.Message)
		return
	}

	s.recordAudit(r.Context(), "Create", "user", "", user.Email, "")
	WriteResponse(w, http.StatusCreated, models.CreateUserResponse{
		Message: "User created successfully",
		User:    user,
		Code:    http.StatusCreated,
	})
}

// GetUsersService lists one page of users. Limit defaults to the directory's
// page maximum; the pagination token is opaque.
func (s *Service) GetUsersService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	req := models.GetUsersRequest{
		Limit:           60,
		PaginationToken: r.URL.Query().Get("pagination_token"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if err := validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed", fieldErrors(err)...)
		return
	}

	page, err := s.Directory.ListUsers(r.Context(), int32(req.Limit), req.PaginationToken)
	if err != nil {
		de := directory.AsError(err)
		logger.Error().Err(err).Msg("failed to list users")
		WriteError(w, statusForKind(de.Kind), de.Message)
		return
	}

	logger.Info().Int("count", len(page.Users)).Msg("users listed")
	WriteResponse(w, http.StatusOK, models.GetUsersResponse{
		Users:           page.Users,
		PaginationToken: page.PaginationToken,
		Message:         "Users retrieved successfully",
		Code:            http.StatusOK,
	})
}

// EnableUserService re-enables a disabled user.
func (s *Service) EnableUserService(w http.ResponseWriter, r *http.Request) {
	var req models.EnableUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	s.setUserState(w, r, req.Email, true)
}

// DisableUserService disables a user, which blocks new logins immediately.
func (s *Service) DisableUserService(w http.ResponseWriter, r *http.Request) {
	var req models.DisableUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	s.setUserState(w, r, req.Email, false)
}

func (s *Service) setUserState(w http.ResponseWriter, r *http.Request, email string, enable bool) {
	logger := zerolog.Ctx(r.Context())

	var err error
	action, message := "disable", "User disabled successfully"
	if enable {
		action, message = "enable", "User enabled successfully"
		err = s.Directory.EnableUser(r.Context(), email)
	} else {
		err = s.Directory.DisableUser(r.Context(), email)
	}
	if err != nil {
		de := directory.AsError(err)
		logger.Error().Err(err).Str("email", email).Msgf("failed to %s user", action)
		WriteError(w, statusForKind(de.Kind), de.Message)
		return
	}

	s.recordAudit(r.Context(), "Update", "enabled", strconv.FormatBool(!enable), strconv.FormatBool(enable), email)
	WriteResponse(w, http.StatusOK, models.UserStateResponse{
		Success: true,
		Email:   email,
		Message: message,
		Code:    http.StatusOK,
	})
}

// UpdateUserService updates name attributes and role in two phases. When the
// attribute phase succeeded but the role phase failed, the response says
// exactly which half went through so the caller can retry the rest.
func (s *Service) UpdateUserService(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req models.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !req.HasFields() {
		WriteError(w, http.StatusBadRequest, "At least one of first_name, last_name or role must be provided")
		return
	}

	user, err := s.Directory.UpdateUser(r.Context(), req)
	if err != nil {
		var partial *directory.PartialUpdateError
		if errors.As(err, &partial) {
			logger.Error().Err(err).Str("email", req.Email).
				Msg("user update left in partial state")
			WriteResponse(w, http.StatusInternalServerError, models.UpdatePartialFailure{
				Message:           "User attributes were updated but the role change failed",
				AttributesUpdated: true,
				RoleUpdated:       false,
				Code:              http.StatusInternalServerError,
			})
			return
		}

		de := directory.AsError(err)
		logger.Error().Err(err).Str("email", req.Email).Msg("failed to update user")
		WriteError(w, statusForKind(de.Kind), de.Message)
		return
	}

	s.recordAudit(r.Context(), "Update", "user", "", user.Email, user.Email)
	WriteResponse(w, http.StatusOK, models.UpdateUserResponse{
		Message: "User updated successfully",
		User:    user,
		Code:    http.StatusOK,
	})
}

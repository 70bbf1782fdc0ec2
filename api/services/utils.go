package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/crmhub/crm-platform-services/internal/directory"
	"github.com/crmhub/crm-platform-services/models"
)

var validate = validator.New()

// WriteResponse writes a JSON response with appropriate headers
func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "max-age=0")

	if len(location) > 0 {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)
	if response != nil {
		json.NewEncoder(w).Encode(response)
	}
}

// WriteError writes the generic error body.
func WriteError(w http.ResponseWriter, statusCode int, message string, fieldErrors ...models.FieldError) {
	WriteResponse(w, statusCode, models.ErrorResponse{
		Message: message,
		Errors:  fieldErrors,
		Code:    statusCode,
	})
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. On failure the 400 response is already written and false is
// returned, so no downstream call is made for an invalid request.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed", fieldErrors(err)...)
		return false
	}
	return true
}

func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed %q validation", fe.Tag()),
		})
	}
	return fields
}

// statusForKind is the default directory error to HTTP status mapping.
// Individual services override it where an operation needs a different shape,
// such as the identical 401 for bad credentials and unknown users.
func statusForKind(kind directory.Kind) int {
	switch kind {
	case directory.KindValidation, directory.KindCredentialPolicy,
		directory.KindUnconfirmed, directory.KindResetRequired,
		directory.KindRateLimited, directory.KindCodeMismatch,
		directory.KindCodeExpired:
		return http.StatusBadRequest
	case directory.KindConflict:
		return http.StatusBadRequest
	case directory.KindNotFound:
		return http.StatusNotFound
	case directory.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

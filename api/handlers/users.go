package handlers

import (
	"net/http"

	"github.com/crmhub/crm-platform-services/api/services"
)

// CreateUser handles user creation requests.
func CreateUser(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.CreateUserService(w, r)
	}
}

// GetUsers handles paged user listing requests.
func GetUsers(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.GetUsersService(w, r)
	}
}

// EnableUser handles user enable requests.
func EnableUser(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.EnableUserService(w, r)
	}
}

// DisableUser handles user disable requests.
func DisableUser(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.DisableUserService(w, r)
	}
}

// UpdateUser handles user update requests.
func UpdateUser(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.UpdateUserService(w, r)
	}
}

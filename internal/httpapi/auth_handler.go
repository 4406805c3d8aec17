package httpapi

import (
	"net/http"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/utils"

	"github.com/gorilla/mux"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type themeRequest struct {
	ThemePreference account.Theme `json:"themePreference"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type roleRequest struct {
	Role account.Role `json:"role"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, session)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		writeError(w, r, apperr.Invalid("email and password are required"))
		return
	}

	session, err := h.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, session)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.PrincipalFrom(r.Context())
	acct, err := h.accounts.Me(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, acct)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in account.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p, _ := utils.PrincipalFrom(r.Context())
	acct, err := h.accounts.UpdateProfile(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, acct)
}

func (h *handler) updateTheme(w http.ResponseWriter, r *http.Request) {
	var in themeRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p, _ := utils.PrincipalFrom(r.Context())
	acct, err := h.accounts.UpdateTheme(r.Context(), p, in.ThemePreference)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, acct)
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p, _ := utils.PrincipalFrom(r.Context())
	if err := h.accounts.ChangePassword(r.Context(), p, in.CurrentPassword, in.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	var filter account.Filter
	if v := r.URL.Query().Get("role"); v != "" {
		role := account.Role(v)
		filter.Role = &role
	}

	p, _ := utils.PrincipalFrom(r.Context())
	users, err := h.accounts.ListUsers(r.Context(), p, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []account.Account{}
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

func (h *handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var in roleRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p, _ := utils.PrincipalFrom(r.Context())
	acct, err := h.accounts.UpdateRole(r.Context(), p, mux.Vars(r)["id"], in.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, acct)
}

package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type shareRequest struct {
	UserEmail       string               `json:"user_email"`
	PermissionLevel core.PermissionLevel `json:"permission_level"`
}

type shareResponse struct {
	Message     string           `json:"message"`
	Permissions core.Permissions `json:"permissions"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in services.NewAccount
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	a, err := s.svc.Accounts.Create(r.Context(), principal(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.ListOwned(r.Context(), principal(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(accounts))
}

func (s *Server) handleListSharedAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.ListShared(r.Context(), principal(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(accounts))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Authorize(r.Context(), principal(r.Context()).ID, id, core.PermissionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd core.AccountUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	if upd.Name != nil {
		name := sanitizeInput(*upd.Name)
		upd.Name = &name
	}
	a, err := s.svc.Accounts.Update(r.Context(), principal(r.Context()).ID, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accounts.Delete(r.Context(), principal(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.svc.Accounts.Summarize(r.Context(), principal(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleShareAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in shareRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	perms, err := s.svc.Accounts.Share(r.Context(), principal(r.Context()).ID, id, in.UserEmail, in.PermissionLevel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		Message:     "account shared with " + core.NormalizeEmail(in.UserEmail) + " with '" + string(in.PermissionLevel) + "' permission",
		Permissions: perms,
	})
}

func (s *Server) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	grantee, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	perms, err := s.svc.Accounts.Revoke(r.Context(), principal(r.Context()).ID, id, grantee)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{Message: "access revoked", Permissions: perms})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package http

import (
	"mime"
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.Registration
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	u, err := s.svc.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleToken implements the OAuth2 password grant: a form with username
// (the email) and password. A JSON body with the same fields is accepted.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var username, password string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var in struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		username, password = in.Username, in.Password
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, r, errMalformedBody)
			return
		}
		username, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	}
	if strings.TrimSpace(username) == "" || password == "" {
		writeError(w, r, core.ErrInvalidCredentials)
		return
	}

	token, err := s.svc.Users.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principal(r.Context()))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd core.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	if upd.Name != nil {
		name := sanitizeInput(*upd.Name)
		upd.Name = &name
	}
	u, err := s.svc.Users.UpdateProfile(r.Context(), principal(r.Context()).ID, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

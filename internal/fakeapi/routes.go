package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        any    `json:"user"`
}

func (s *Server) routes() {
	mux := http.NewServeMux()
	p := Prefix

	mux.HandleFunc("POST "+p+"/auth/login/json", s.handleLogin)
	mux.HandleFunc("POST "+p+"/auth/register", s.handleRegister)
	mux.HandleFunc("POST "+p+"/auth/logout", s.withAuth(s.handleLogout))
	mux.HandleFunc("GET "+p+"/auth/me", s.withAuth(s.handleMe))
	mux.HandleFunc("POST "+p+"/auth/refresh-token", s.withAuth(s.handleRefresh))
	mux.HandleFunc("POST "+p+"/auth/password/change", s.withAuth(s.handleChangePassword))
	mux.HandleFunc("POST "+p+"/auth/set-password", s.withAuth(s.handleSetPassword))
	mux.HandleFunc("GET "+p+"/auth/login-history", s.withAuth(s.handleLoginHistory))
	mux.HandleFunc("POST "+p+"/auth/otp/request", s.handleOTPRequest)
	mux.HandleFunc("POST "+p+"/auth/otp/verify", s.handleOTPVerify)
	mux.HandleFunc("GET "+p+"/auth/oauth/google/redirect", s.handleOAuthRedirect)

	mux.HandleFunc("POST "+p+"/upload/image", s.withAuth(s.handleUpload))
	mux.HandleFunc("DELETE "+p+"/upload/image", s.withAuth(s.handleDeleteUpload))

	for _, route := range []string{"/generation/", "/grading/"} {
		mux.HandleFunc("POST "+p+route+"{action}", s.withAuth(s.handleEcho))
	}
	mux.HandleFunc(p+"/", s.withAuth(s.handleResource))

	s.mux = mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		writeValidation(w, "email", "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(in.Email)]
	if !ok || u.password == "" || u.password != in.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !u.IsActive {
		writeDetail(w, http.StatusForbidden, "Inactive user")
		return
	}
	s.recordLoginLocked(u.ID, "password", r)
	s.writeGrantLocked(w, http.StatusOK, u, *u)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := decode(r, &in); err != nil || !strings.Contains(in.Email, "@") {
		writeValidation(w, "email", "value is not a valid email address")
		return
	}
	if utf8.RuneCountInString(in.Password) < 6 {
		writeValidation(w, "password", "String should have at least 6 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(in.Email)]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := s.addUserLocked(in.Name, in.Email, in.Password, "student", LearnerRoleID)
	s.writeGrantLocked(w, http.StatusCreated, u, *u)
}

func (s *Server) writeGrantLocked(w http.ResponseWriter, status int, u *User, view any) {
	token, err := s.issueLocked(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, status, tokenResponse{AccessToken: token, TokenType: "bearer", User: view})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, u *User, token string) {
	s.Revoke(token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, u *User, token string) {
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, u *User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	partial := map[string]any{"id": u.ID, "name": u.Name, "email": u.Email}
	s.writeGrantLocked(w, http.StatusOK, u, partial)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, u *User, token string) {
	var in struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decode(r, &in); err != nil {
		writeValidation(w, "new_password", "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.users[u.Email]
	if stored.password != in.OldPassword {
		writeDetail(w, http.StatusBadRequest, "Incorrect password")
		return
	}
	if utf8.RuneCountInString(in.NewPassword) < 6 {
		writeValidation(w, "new_password", "String should have at least 6 characters")
		return
	}
	stored.password = in.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request, u *User, token string) {
	var in struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decode(r, &in); err != nil {
		writeValidation(w, "password", "invalid body")
		return
	}
	if in.Password != in.ConfirmPassword {
		writeDetail(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.users[u.Email]
	if stored.password != "" {
		writeDetail(w, http.StatusBadRequest, "Password already set")
		return
	}
	stored.password = in.Password
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password set successfully"})
}

func (s *Server) handleLoginHistory(w http.ResponseWriter, r *http.Request, u *User, token string) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	s.mu.Lock()
	all := s.history[u.ID]
	s.mu.Unlock()

	page := []loginActivity{}
	for i := len(all) - 1 - skip; i >= 0 && len(page) < limit; i-- {
		page = append(page, all[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(all), "skip": skip, "limit": limit, "data": page})
}

func (s *Server) recordLoginLocked(userID int64, provider string, r *http.Request) {
	s.nextID++
	s.history[userID] = append(s.history[userID], loginActivity{
		ID:        s.nextID,
		Provider:  provider,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Succeeded: true,
		CreatedAt: s.opts.Now().UTC(),
	})
}

func (s *Server) handleOTPRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Channel     string `json:"channel"`
		Destination string `json:"destination"`
		Email       string `json:"email"`
		Purpose     string `json:"purpose"`
	}
	if err := decode(r, &in); err != nil || in.Destination == "" {
		writeValidation(w, "destination", "field required")
		return
	}
	if in.Channel != "email" {
		writeDetail(w, http.StatusBadRequest, "Unsupported channel")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(in.Email)]; exists && in.Purpose == "register" {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	s.otps[in.Destination] = "123456"
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "OTP sent to your email"})
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Destination string `json:"destination"`
		OTPCode     string `json:"otp_code"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		Purpose     string `json:"purpose"`
	}
	if err := decode(r, &in); err != nil {
		writeValidation(w, "otp_code", "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.otps[in.Destination]
	if !ok {
		writeDetail(w, http.StatusBadRequest, "OTP not found or expired")
		return
	}
	if code != in.OTPCode {
		writeDetail(w, http.StatusBadRequest, "Incorrect OTP")
		return
	}
	delete(s.otps, in.Destination)

	if in.Purpose != "register" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "OTP verified"})
		return
	}
	u := s.addUserLocked(strings.Split(in.Email, "@")[0], in.Email, in.Password, "student", LearnerRoleID)
	token, err := s.issueLocked(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Verified",
		"access_token": token,
		"token_type":   "bearer",
		"user":         map[string]any{"id": u.ID, "name": u.Name, "email": u.Email, "is_active": u.IsActive},
	})
}

// handleOAuthRedirect skips the provider round trip and lands on the frontend
// callback directly, the way the backend does after Google answers.
func (s *Server) handleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("simulate_error"); code != "" {
		http.Redirect(w, r, strings.TrimRight(s.opts.FrontendURL, "/")+"/login?error="+url.QueryEscape(code), http.StatusFound)
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		email = s.opts.OAuthEmail
	}
	if email == "" {
		email = "google.user@example.com"
	}

	s.mu.Lock()
	u, exists := s.users[strings.ToLower(email)]
	if !exists {
		u = s.addUserLocked(strings.Split(email, "@")[0], email, "", "student", LearnerRoleID)
	}
	s.recordLoginLocked(u.ID, "google", r)
	token, err := s.issueLocked(u)
	s.mu.Unlock()
	if err != nil {
		http.Redirect(w, r, strings.TrimRight(s.opts.FrontendURL, "/")+"/login?error=oauth_error", http.StatusFound)
		return
	}

	roleID := ""
	if u.RoleID != nil {
		roleID = strconv.FormatInt(*u.RoleID, 10)
	}
	http.Redirect(w, r, s.callbackURL(url.Values{
		"token":       {token},
		"user_id":     {strconv.FormatInt(u.ID, 10)},
		"user_name":   {u.Name},
		"user_email":  {u.Email},
		"role_id":     {roleID},
		"role":        {u.Role},
		"is_new_user": {strconv.FormatBool(!exists)},
	}), http.StatusFound)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, u *User, token string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, "file", "field required")
		return
	}
	defer file.Close()
	n, err := io.Copy(io.Discard, file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	name := uuid.NewString() + extension(header.Filename)
	s.mu.Lock()
	s.uploads[name] = int(n)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": name,
		"url":      "/static/uploads/" + name,
		"size":     n,
	})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request, u *User, token string) {
	name := r.URL.Query().Get("filename")
	s.mu.Lock()
	_, ok := s.uploads[name]
	delete(s.uploads, name)
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request, u *User, token string) {
	var in json.RawMessage
	if err := decode(r, &in); err != nil {
		writeValidation(w, "body", "invalid body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": r.PathValue("action"), "input": in})
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return strings.ToLower(name[i:])
	}
	return ""
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"quillpress/internal/middleware"
	"quillpress/internal/models"
	"quillpress/internal/session"
	"quillpress/internal/store"
)

// totpIssuer is the issuer label shown in authenticator apps.
const totpIssuer = "QuillPress"

// Auth serves login, logout, and the TOTP enrollment and verification
// endpoints. Sessions start with 2FA pending; the admin API stays closed
// until the code is verified.
type Auth struct {
	users    *store.UserStore
	sessions *session.Store
	logger   *slog.Logger
}

// NewAuth creates the auth handler group.
func NewAuth(users *store.UserStore, sessions *session.Store, logger *slog.Logger) *Auth {
	return &Auth{users: users, sessions: sessions, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userPayload projects a user to the fields returned by the auth endpoints.
func userPayload(u *models.User) map[string]any {
	return map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"role":         u.Role,
	}
}

// Login checks credentials and opens a session with 2FA still pending.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.FindByUsername(req.Username)
	if err != nil {
		h.logger.Error("find user", "error", err)
		writeError(w, http.StatusInternalServerError, "could not sign in")
		return
	}
	if user == nil || !h.users.CheckPassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	data := &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		TwoFADone:   false,
		CreatedAt:   time.Now(),
	}
	if _, err := h.sessions.Create(r.Context(), w, data); err != nil {
		h.logger.Error("create session", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	h.logger.Info("user signed in", "user", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":            userPayload(user),
		"needs_2fa_setup": user.Needs2FASetup(),
	})
}

// Logout destroys the current session.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.logger.Warn("destroy session", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me returns the signed-in user.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.FindByID(sess.UserID)
	if err != nil {
		h.logger.Error("find user", "id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load account")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	payload := userPayload(user)
	payload["totp_enabled"] = user.TOTPEnabled
	payload["two_fa_done"] = sess.TwoFADone
	writeJSON(w, http.StatusOK, map[string]any{"user": payload})
}

// TwoFASetup generates a fresh TOTP secret for the signed-in user and
// returns the otpauth URL with a QR code for authenticator apps. Allowed
// until the first successful verification locks the secret in.
func (h *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.FindByID(sess.UserID)
	if err != nil || user == nil {
		h.logger.Error("find user", "id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start 2FA setup")
		return
	}
	if user.TOTPEnabled {
		writeError(w, http.StatusConflict, "two-factor authentication is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		h.logger.Error("generate totp key", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start 2FA setup")
		return
	}
	if err := h.users.SetTOTPSecret(user.ID, key.Secret()); err != nil {
		h.logger.Error("store totp secret", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start 2FA setup")
		return
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("encode qr code", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start 2FA setup")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_png":      base64.StdEncoding.EncodeToString(png),
	})
}

type twoFAVerifyRequest struct {
	Code string `json:"code"`
}

// TwoFAVerify checks a TOTP code, enables 2FA on first success, and marks
// the session as fully authenticated.
func (h *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req twoFAVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.FindByID(sess.UserID)
	if err != nil || user == nil {
		h.logger.Error("find user", "id", sess.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not verify code")
		return
	}
	if user.TOTPSecret == nil {
		writeError(w, http.StatusConflict, "two-factor setup has not been started")
		return
	}

	if !totp.Validate(req.Code, *user.TOTPSecret) {
		writeError(w, http.StatusUnauthorized, "invalid verification code")
		return
	}

	if !user.TOTPEnabled {
		if err := h.users.EnableTOTP(user.ID); err != nil {
			h.logger.Error("enable totp", "user", user.Username, "error", err)
			writeError(w, http.StatusInternalServerError, "could not verify code")
			return
		}
	}

	sess.TwoFADone = true
	if err := h.sessions.Update(r.Context(), r, sess); err != nil {
		h.logger.Error("update session", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not verify code")
		return
	}

	h.logger.Info("2fa verified", "user", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{"user": userPayload(user)})
}

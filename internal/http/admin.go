package httpx

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"topicspin-api/internal/admin"
	"topicspin-api/internal/models"
	jwtx "topicspin-api/pkg/jwt"
)

type AdminService interface {
	List(ctx context.Context, f admin.Filter) admin.Listing
	Stats(ctx context.Context) admin.Stats
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Credentials is the single organizer account. Hash, when set, is a bcrypt
// hash and takes precedence over Passphrase.
type Credentials struct {
	User       string
	Passphrase string
	Hash       string
}

func (c Credentials) check(user, pass string) bool {
	if c.User == "" || (c.Passphrase == "" && c.Hash == "") {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	if c.Hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(pass)) == nil && userOK
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(c.Passphrase)) == 1 && userOK
}

type adminAPI struct {
	svc    AdminService
	creds  Credentials
	issuer *jwtx.Issuer
	now    func() time.Time
}

type loginRequest struct {
	Username   string `json:"username"`
	Passphrase string `json:"passphrase"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *adminAPI) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeInvalidInput, "bad json")
		return
	}
	if a.issuer == nil || !a.creds.check(req.Username, req.Passphrase) {
		log.Warn().Str("user", req.Username).Str("ip", r.RemoteAddr).Msg("admin login rejected")
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
		return
	}
	tok, exp, err := a.issuer.Issue(req.Username, "admin")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	log.Info().Str("user", req.Username).Time("expires", exp).Msg("admin login")
	writeJSON(w, http.StatusOK, loginResponse{Token: tok, ExpiresAt: exp})
}

func (a *adminAPI) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.List(r.Context(), admin.ParseFilter(r.URL.Query())))
}

func (a *adminAPI) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Stats(r.Context()))
}

func (a *adminAPI) exportCSV(w http.ResponseWriter, r *http.Request) {
	a.export(w, r, "csv", admin.ContentTypeCSV, admin.WriteCSV)
}

func (a *adminAPI) exportXLSX(w http.ResponseWriter, r *http.Request) {
	a.export(w, r, "xlsx", admin.ContentTypeXLSX, admin.WriteXLSX)
}

// export buffers the file so a write failure can still become a JSON error.
func (a *adminAPI) export(w http.ResponseWriter, r *http.Request, ext, ctype string, write func(io.Writer, []models.Assignment) error) {
	rows := a.svc.List(r.Context(), admin.ParseFilter(r.URL.Query())).Assignments
	var buf bytes.Buffer
	if err := write(&buf, rows); err != nil {
		log.Error().Err(err).Str("format", ext).Msg("export")
		WriteError(w, http.StatusInternalServerError, CodeInternal, "export failed")
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", "attachment; filename="+admin.FileName(a.now(), ext))
	_, _ = w.Write(buf.Bytes())
}

func (a *adminAPI) remove(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *adminAPI) clear(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Clear(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

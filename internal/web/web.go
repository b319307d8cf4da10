package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/local/manualrebuild/internal/filetype"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	sessionCookie = "session"
	sessionTTL    = 12 * time.Hour
)

// Reconstructor turns one page image into display-ready HTML.
type Reconstructor interface {
	ReconstructManualPage(ctx context.Context, imageBase64, mimeType, pageRange string) (string, error)
}

// Publisher stores a reconstructed page; an empty key picks the next version.
type Publisher interface {
	PublishPage(ctx context.Context, key, pageRange, html string) (string, string, error)
}

type Options struct {
	Username     string
	PasswordHash string // bcrypt
	Client       Reconstructor
	Detector     *filetype.Detector
	Publisher    Publisher // optional
	MaxUploadMB  int
}

type Web struct {
	tpl          *template.Template
	username     string
	passwordHash []byte
	client       Reconstructor
	detector     *filetype.Detector
	publisher    Publisher
	maxUpload    int64

	mu       sync.Mutex
	sessions map[string]time.Time
}

func New(opts Options) *Web {
	tpl := template.Must(template.ParseFS(templatesFS, "templates/*.html"))
	det := opts.Detector
	if det == nil {
		det = filetype.New()
	}
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 25
	}
	return &Web{
		tpl:          tpl,
		username:     opts.Username,
		passwordHash: []byte(opts.PasswordHash),
		client:       opts.Client,
		detector:     det,
		publisher:    opts.Publisher,
		maxUpload:    int64(maxMB) << 20,
		sessions:     make(map[string]time.Time),
	}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/web/login", w.handleLogin)
	mux.HandleFunc("/web/logout", w.handleLogout)
	mux.HandleFunc("/web/", w.requireAuth(w.handleUploadForm))
	mux.HandleFunc("/web/reconstruct", w.requireAuth(w.handleReconstruct))
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
	wr.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := w.tpl.ExecuteTemplate(wr, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		if w.username == "" || len(w.passwordHash) == 0 {
			http.Error(wr, "WEB_USERNAME/WEB_PASSWORD_HASH not set", http.StatusForbidden)
			return
		}
		c, err := r.Cookie(sessionCookie)
		if err != nil || !w.validSession(c.Value) {
			http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
			return
		}
		next(wr, r)
	}
}

func (w *Web) validSession(token string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	exp, ok := w.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(w.sessions, token)
		return false
	}
	return true
}

// sweepExpired drops sessions past their expiry. Callers hold w.mu.
func (w *Web) sweepExpired(now time.Time) {
	for token, exp := range w.sessions {
		if now.After(exp) {
			delete(w.sessions, token)
		}
	}
}

func (w *Web) checkCredentials(username, password string) bool {
	if w.username == "" || len(w.passwordHash) == 0 || username != w.username {
		return false
	}
	return bcrypt.CompareHashAndPassword(w.passwordHash, []byte(password)) == nil
}

func (w *Web) handleLogin(wr http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.render(wr, "login.html", map[string]any{"Error": r.URL.Query().Get("error")})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Redirect(wr, r, "/web/login?error=invalid+form", http.StatusSeeOther)
			return
		}
		if !w.checkCredentials(r.Form.Get("username"), r.Form.Get("password")) {
			log.Warn().Str("username", r.Form.Get("username")).Msg("web login rejected")
			http.Redirect(wr, r, "/web/login?error=invalid+credentials", http.StatusSeeOther)
			return
		}
		token := uuid.NewString()
		now := time.Now()
		w.mu.Lock()
		w.sweepExpired(now)
		w.sessions[token] = now.Add(sessionTTL)
		w.mu.Unlock()
		http.SetCookie(wr, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
		http.Redirect(wr, r, "/web/", http.StatusSeeOther)
	default:
		wr.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (w *Web) handleLogout(wr http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		w.mu.Lock()
		delete(w.sessions, c.Value)
		w.mu.Unlock()
	}
	http.SetCookie(wr, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
}

func (w *Web) handleUploadForm(wr http.ResponseWriter, r *http.Request) {
	w.render(wr, "upload.html", map[string]any{
		"Username":   w.username,
		"CanPublish": w.publisher != nil,
	})
}

// handleReconstruct takes a multipart page image and responds with the
// reconstructed page itself, ready to view in the browser.
func (w *Web) handleReconstruct(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		wr.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(wr, r.Body, w.maxUpload)
	if err := r.ParseMultipartForm(w.maxUpload); err != nil {
		http.Error(wr, "invalid multipart form", http.StatusBadRequest)
		return
	}
	pageRange := strings.TrimSpace(r.FormValue("page_range"))
	if pageRange == "" {
		http.Error(wr, "missing page range", http.StatusBadRequest)
		return
	}

	file, hdr, err := r.FormFile("image")
	if err != nil {
		http.Error(wr, "missing image", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(wr, "upload error", http.StatusBadRequest)
		return
	}
	b64, mimeType, err := w.detector.Encode(data)
	if err != nil {
		http.Error(wr, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	log.Info().Str("filename", hdr.Filename).Str("mime", mimeType).Str("page_range", pageRange).Msg("web reconstruct requested")
	html, err := w.client.ReconstructManualPage(r.Context(), b64, mimeType, pageRange)
	if err != nil {
		http.Error(wr, err.Error(), http.StatusBadGateway)
		return
	}

	if w.publisher != nil && r.FormValue("publish") != "" {
		key, _, err := w.publisher.PublishPage(r.Context(), "", pageRange, html)
		if err != nil {
			log.Error().Err(err).Str("page_range", pageRange).Msg("publish failed")
		} else {
			wr.Header().Set("X-Published-Key", key)
		}
	}

	wr.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(wr, html)
}

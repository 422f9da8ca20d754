package www

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"gasflow/store"
)

const sessionName = "gasflow-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "gasflow-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *Handlers) isAuthenticated(r *http.Request) bool {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	auth, ok := session.Values["authenticated"].(bool)
	return ok && auth
}

// requireAuth sends browsers to the login page and API clients a 401.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAuthenticated(r) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				h.jsonError(w, "authentication required", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) getUsername(r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return ""
	}
	username, _ := session.Values["username"].(string)
	return username
}

// flash queues a one-shot message shown on the next rendered page.
func (h *Handlers) flash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return
	}
	session.AddFlash(kind+"|"+msg)
	if err := session.Save(r, w); err != nil {
		log.Printf("www: flash save error: %v", err)
	}
}

type flashMessage struct {
	Kind string
	Text string
}

func (h *Handlers) popFlashes(w http.ResponseWriter, r *http.Request) []flashMessage {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	session.Save(r, w)
	out := make([]flashMessage, 0, len(raw))
	for _, f := range raw {
		s, _ := f.(string)
		kind, text, ok := strings.Cut(s, "|")
		if !ok {
			kind, text = "info", s
		}
		out = append(out, flashMessage{Kind: kind, Text: text})
	}
	return out
}

func (h *Handlers) ensureDefaultAdmin(ctx context.Context, db *store.DB) {
	exists, err := db.AdminUserExists(ctx)
	if err != nil || exists {
		return
	}
	hash, err := hashPassword("admin")
	if err != nil {
		return
	}
	if err := db.CreateAdminUser(ctx, "admin", hash); err != nil {
		log.Printf("www: create default admin: %v", err)
		return
	}
	log.Printf("www: created default admin user")
}

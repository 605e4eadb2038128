package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/diewo77/sheet-invoices/i18n"
)

const flashSession = "flash"

// Flash categories, used as CSS classes by the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

var flashKinds = []string{FlashSuccess, FlashError, FlashInfo}

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Flasher keeps flash messages in a signed cookie.
type Flasher struct {
	store sessions.Store
}

// NewFlasher creates a cookie-backed flash store signed with secret.
func NewFlasher(secret string, secure bool) *Flasher {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Flasher{store: store}
}

// Add queues an already formatted message.
func (f *Flasher) Add(w http.ResponseWriter, r *http.Request, kind, msg string) {
	sess, err := f.store.Get(r, flashSession)
	if err != nil {
		// A cookie signed with an old secret; start over.
		log.Debugf("flash: discarding unreadable session: %v", err)
	}
	sess.AddFlash(msg, kind)
	if err := sess.Save(r, w); err != nil {
		log.Errorf("flash: save: %v", err)
	}
}

// Code queues the translation of code in the request language.
func (f *Flasher) Code(w http.ResponseWriter, r *http.Request, kind, code string, args ...any) {
	f.Add(w, r, kind, i18n.Tf(LangFrom(r), code, args...))
}

// Pop returns and clears the pending messages.
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) []FlashMessage {
	sess, err := f.store.Get(r, flashSession)
	if err != nil || sess.IsNew {
		return nil
	}
	var out []FlashMessage
	for _, kind := range flashKinds {
		for _, v := range sess.Flashes(kind) {
			if s, ok := v.(string); ok {
				out = append(out, FlashMessage{Kind: kind, Message: s})
			}
		}
	}
	if len(out) > 0 {
		if err := sess.Save(r, w); err != nil {
			log.Errorf("flash: save: %v", err)
		}
	}
	return out
}

package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/crypto"
	"github.com/harrylevesque/forgaile/internal/files"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/session"
	"github.com/harrylevesque/forgaile/internal/web"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Hub        *session.Hub
	Notifier   notify.Notifier
	Acks       files.AckStore
	Signer     *crypto.Signer
	Background background.Config
	Logger     *zap.Logger
	// SecureCookies marks the visitor cookie Secure; set it when serving TLS.
	SecureCookies bool
}

type handler struct {
	Deps
	log *zap.Logger
}

func NewRouter(d Deps) *mux.Router {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{Deps: d, log: log.Named("api")}

	r := mux.NewRouter()
	r.Use(tracing, h.logging)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/", web.Index).Methods("GET")
	r.HandleFunc("/index.html", web.Index).Methods("GET")
	r.PathPrefix("/static/").Handler(web.Assets()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/notify", h.Notify).Methods("POST")
	api.HandleFunc("/background", h.GetBackground).Methods("GET")
	api.HandleFunc("/ack", h.GetAck).Methods("GET")
	api.HandleFunc("/ack", h.ResetAck).Methods("DELETE")
	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/events", h.PostEvent).Methods("POST")
	api.HandleFunc("/sessions/{id}/stream", h.Stream).Methods("GET")
	return r
}

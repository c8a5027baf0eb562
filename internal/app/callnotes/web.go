package callnotes

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	oidc "github.com/coreos/go-oidc"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//RecipientStore keeps registered chat users
type RecipientStore interface {
	Get(userID string) (*api.Recipient, error)
	Save(r *api.Recipient) error
	List() ([]*api.Recipient, error)
}

//NoteSender sends a pre-built card to a user
type NoteSender interface {
	SendToUser(ctx context.Context, userID string, card interface{}) error
}

//TokenVerifier validates inbound bearer tokens
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

//StatusProvider reports the processing loop state
type StatusProvider interface {
	Running() bool
}

type serviceMetric struct {
	responseDur prometheus.ObserverVec
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Port       int
	Recipients RecipientStore
	Sender     NoteSender
	Verifier   TokenVerifier
	Status     StatusProvider

	health  healthcheck.Handler
	metrics serviceMetric
	now     func() time.Time
}

//StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      90 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter()
	router.Methods("GET").Path("/").Handler(data.instrument(healthHandler{data: data}))
	router.Methods("GET").Path("/health").Handler(data.instrument(healthHandler{data: data}))
	router.Methods("GET").Path("/api/users").Handler(data.instrument(usersHandler{data: data}))
	router.Methods("POST").Path("/api/send-note").Handler(data.instrument(sendNoteHandler{data: data}))
	router.Methods("POST").Path("/api/messages").Handler(data.instrument(messagesHandler{data: data}))
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if data.health != nil {
		router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
		router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	}
	return router
}

func (data *ServiceData) instrument(h http.Handler) http.Handler {
	if data.metrics.responseDur == nil {
		return h
	}
	return promhttp.InstrumentHandlerDuration(data.metrics.responseDur, h)
}

func (data *ServiceData) timeNow() time.Time {
	if data.now != nil {
		return data.now()
	}
	return time.Now()
}

type healthResult struct {
	Status     string `json:"status"`
	Registered int    `json:"registered_users"`
	Processor  string `json:"processor"`
}

type healthHandler struct {
	data *ServiceData
}

func (h healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs, err := h.data.Recipients.List()
	if err != nil {
		cmdapp.Log.Error(err)
		writeError(w, "Can't read registry", http.StatusInternalServerError)
		return
	}
	res := healthResult{Status: "healthy", Registered: len(rs), Processor: "stopped"}
	if h.data.Status != nil && h.data.Status.Running() {
		res.Processor = "running"
	}
	writeJSON(w, http.StatusOK, res)
}

type userResult struct {
	UserID  string    `json:"user_id"`
	Name    string    `json:"name"`
	Updated time.Time `json:"updated"`
}

type usersResult struct {
	Users []userResult `json:"users"`
	Count int          `json:"count"`
}

type usersHandler struct {
	data *ServiceData
}

func (h usersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs, err := h.data.Recipients.List()
	if err != nil {
		cmdapp.Log.Error(err)
		writeError(w, "Can't read registry", http.StatusInternalServerError)
		return
	}
	res := usersResult{Users: make([]userResult, 0, len(rs))}
	for _, rc := range rs {
		res.Users = append(res.Users, userResult{UserID: rc.UserID, Name: rc.Name, Updated: rc.Updated})
	}
	res.Count = len(res.Users)
	writeJSON(w, http.StatusOK, res)
}

type sendNoteInput struct {
	UserID string          `json:"user_aad_id"`
	Card   json.RawMessage `json:"card"`
}

type sendNoteHandler struct {
	data *ServiceData
}

func (h sendNoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in sendNoteInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		cmdapp.Log.Error(errors.Wrap(err, "Can't decode input"))
		writeError(w, "Wrong input", http.StatusBadRequest)
		return
	}
	if in.UserID == "" || len(in.Card) == 0 || string(in.Card) == "null" {
		writeError(w, "No user_aad_id or card", http.StatusBadRequest)
		return
	}
	rc, err := h.data.Recipients.Get(in.UserID)
	if err != nil {
		cmdapp.Log.Error(err)
		writeError(w, "Can't read registry", http.StatusInternalServerError)
		return
	}
	if rc == nil {
		writeError(w, "User not registered", http.StatusNotFound)
		return
	}
	if err := h.data.Sender.SendToUser(r.Context(), in.UserID, in.Card); err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "Can't send note to %s", in.UserID))
		writeError(w, "Can't send note", http.StatusInternalServerError)
		return
	}
	cmdapp.Log.Infof("Sent note to %s", in.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type activity struct {
	Type string `json:"type"`
	From struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AADObjectID string `json:"aadObjectId"`
	} `json:"from"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
}

type messagesHandler struct {
	data *ServiceData
}

func (h messagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.data.Verifier == nil {
		writeError(w, "Bot endpoint not configured", http.StatusServiceUnavailable)
		return
	}
	raw := bearer(r.Header.Get("Authorization"))
	if raw == "" {
		writeError(w, "No token", http.StatusUnauthorized)
		return
	}
	if _, err := h.data.Verifier.Verify(r.Context(), raw); err != nil {
		cmdapp.Log.Warn(errors.Wrap(err, "Wrong bot token"))
		writeError(w, "Wrong token", http.StatusUnauthorized)
		return
	}
	var a activity
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&a); err != nil {
		writeError(w, "Wrong activity", http.StatusBadRequest)
		return
	}
	if a.From.AADObjectID == "" {
		cmdapp.Log.Infof("Activity '%s' without aadObjectId, ignoring", a.Type)
		w.WriteHeader(http.StatusOK)
		return
	}
	rc, err := h.data.Recipients.Get(a.From.AADObjectID)
	if err != nil {
		cmdapp.Log.Warn(err)
	}
	if rc == nil {
		rc = &api.Recipient{UserID: a.From.AADObjectID}
	}
	rc.Name = a.From.Name
	rc.ConversationID = a.Conversation.ID
	rc.Updated = h.data.timeNow()
	if err := h.data.Recipients.Save(rc); err != nil {
		cmdapp.Log.Error(err)
		writeError(w, "Can't save user", http.StatusInternalServerError)
		return
	}
	cmdapp.Log.Infof("Registered %s", rc.Name)
	w.WriteHeader(http.StatusOK)
}

func bearer(h string) string {
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cmdapp.Log.Error(errors.Wrap(err, "Can't write response"))
	}
}

func writeError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

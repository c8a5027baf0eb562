package token

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"bitbucket.org/airenas/callnotes/internal/pkg/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

//DefaultScopes are delegated permissions needed for chat and channel posts
var DefaultScopes = []string{"Chat.Create", "ChatMessage.Send", "ChannelMessage.Send", "User.Read", "offline_access"}

const (
	defaultSkew     = 60 * time.Second
	defaultLifetime = time.Hour
)

//Store persists the refresh token
type Store interface {
	Load() (string, error)
	Save(token string) error
}

//Manager owns access and refresh token lifecycle
type Manager struct {
	cfg        *oauth2.Config
	store      Store
	httpClient *http.Client
	skew       time.Duration
	now        func() time.Time

	lock    sync.Mutex
	current  *oauth2.Token
	pending  string
	rejected error
}

//NewConfig prepares oauth2 config for the Microsoft identity platform from app config
func NewConfig() (*oauth2.Config, error) {
	authURL, err := utils.GetURLFromConfigOrDefault("graph.authURL", "https://login.microsoftonline.com")
	if err != nil {
		return nil, err
	}
	tenant, err := utils.GetStringFromConfig("graph.tenantID")
	if err != nil {
		return nil, err
	}
	res := &oauth2.Config{}
	res.ClientID, err = utils.GetStringFromConfig("graph.clientID")
	if err != nil {
		return nil, err
	}
	res.ClientSecret, err = utils.GetStringFromConfig("graph.clientSecret")
	if err != nil {
		return nil, err
	}
	res.Endpoint = oauth2.Endpoint{
		AuthURL:   utils.URLJoin(authURL, tenant, "oauth2/v2.0/authorize"),
		TokenURL:  utils.URLJoin(authURL, tenant, "oauth2/v2.0/token"),
		AuthStyle: oauth2.AuthStyleInParams,
	}
	res.Scopes = DefaultScopes
	if s := cmdapp.Config.GetStringSlice("graph.scopes"); len(s) > 0 {
		res.Scopes = s
	}
	return res, nil
}

//NewManager creates token manager
func NewManager(cfg *oauth2.Config, store Store) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("No oauth2 config")
	}
	if store == nil {
		return nil, errors.New("No token store")
	}
	res := &Manager{cfg: cfg, store: store, skew: defaultSkew, now: time.Now}
	res.httpClient = &http.Client{Transport: &scopeTransport{scopes: strings.Join(cfg.Scopes, " "), next: http.DefaultTransport},
		Timeout: 60 * time.Second}
	return res, nil
}

//Token returns a valid access token, refreshes it if it is missing or about to expire
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	// a rejected refresh token stays rejected until the store changes or a new code is exchanged
	if m.rejected != nil {
		return "", m.rejected
	}
	if m.current == nil || !m.now().Before(m.current.Expiry.Add(-m.skew)) {
		if err := m.refresh(ctx); err != nil {
			if errors.Is(err, errc.ErrUnrecoverableAuth) {
				m.rejected = err
			}
			return "", err
		}
	}
	return m.current.AccessToken, nil
}

//Invalidate drops the held access token and a remembered rejection, next call refreshes it
func (m *Manager) Invalidate() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.current = nil
	m.rejected = nil
}

func (m *Manager) refresh(ctx context.Context) error {
	rt, err := m.refreshToken()
	if err != nil {
		return err
	}
	cmdapp.Log.Info("Refreshing access token")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tk, err := m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return classify(err)
	}
	if tk.RefreshToken != "" && tk.RefreshToken != rt {
		// the old token is dead from now on, keep the new one until it is stored
		m.pending = tk.RefreshToken
		if err := m.store.Save(tk.RefreshToken); err != nil {
			return errors.Wrap(err, "Can't persist rotated refresh token")
		}
		m.pending = ""
		cmdapp.Log.Info("Saved rotated refresh token")
	}
	if tk.Expiry.IsZero() {
		tk.Expiry = m.now().Add(defaultLifetime)
	}
	m.current = tk
	cmdapp.Log.Infof("Access token valid till %s", tk.Expiry.Format(time.RFC3339))
	return nil
}

func (m *Manager) refreshToken() (string, error) {
	if m.pending != "" {
		if err := m.store.Save(m.pending); err != nil {
			return "", errors.Wrap(err, "Can't persist rotated refresh token")
		}
		m.pending = ""
	}
	rt, err := m.store.Load()
	if err != nil {
		return "", errors.Wrap(err, "Can't load refresh token")
	}
	if rt == "" {
		return "", errc.Configuration("No refresh token available, run the auth setup")
	}
	return rt, nil
}

func classify(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		code := re.Response.StatusCode
		if code == http.StatusBadRequest || code == http.StatusUnauthorized {
			return errc.UnrecoverableAuth(trim(string(re.Body)))
		}
		if code == http.StatusTooManyRequests || code >= 500 {
			return errc.Transient(trim(err.Error()))
		}
		return errors.Wrap(err, "Can't refresh token")
	}
	return errc.Transient(err.Error())
}

func trim(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

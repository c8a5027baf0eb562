package token

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

//AuthCodeURL returns the consent page URL
func (m *Manager) AuthCodeURL(state, redirectURL string) string {
	return m.withRedirect(redirectURL).AuthCodeURL(state, oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"))
}

//Exchange trades the authorization code for tokens and stores the refresh token
func (m *Manager) Exchange(ctx context.Context, code, redirectURL string) error {
	if code == "" {
		return errors.New("No authorization code")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tk, err := m.withRedirect(redirectURL).Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(classify(err), "Can't exchange code")
	}
	if tk.RefreshToken == "" {
		return errors.New("No refresh token in response, is offline_access granted?")
	}
	if err := m.store.Save(tk.RefreshToken); err != nil {
		return errors.Wrap(err, "Can't save refresh token")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.current = tk
	m.pending = ""
	m.rejected = nil
	return nil
}

func (m *Manager) withRedirect(redirectURL string) *oauth2.Config {
	res := *m.cfg
	res.RedirectURL = redirectURL
	return &res
}

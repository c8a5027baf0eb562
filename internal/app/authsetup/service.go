package authsetup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

//CodeExchanger trades the authorization code for a stored refresh token
type CodeExchanger interface {
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) error
}

//ServiceData keeps data required for the callback listener
type ServiceData struct {
	Exchanger   CodeExchanger
	RedirectURL string
	State       string
	Result      chan error
}

//NewRouter creates the callback router
func NewRouter(data *ServiceData) (*mux.Router, error) {
	u, err := url.Parse(data.RedirectURL)
	if err != nil {
		return nil, errors.Wrapf(err, "Wrong redirect url '%s'", data.RedirectURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	router := mux.NewRouter()
	router.Methods("GET").Path(path).Handler(&callbackHandler{data: data})
	return router, nil
}

type callbackHandler struct {
	data *ServiceData
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.finish(w, http.StatusBadRequest, errors.Errorf("Authorization failed: %s %s", e, q.Get("error_description")))
		return
	}
	if q.Get("state") != h.data.State {
		h.finish(w, http.StatusBadRequest, errors.New("State mismatch"))
		return
	}
	if err := h.data.Exchanger.Exchange(r.Context(), q.Get("code"), h.data.RedirectURL); err != nil {
		h.finish(w, http.StatusInternalServerError, err)
		return
	}
	h.finish(w, http.StatusOK, nil)
}

func (h *callbackHandler) finish(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if err != nil {
		cmdapp.Log.Error(err)
		fmt.Fprintf(w, "Failed: %v\n", err)
	} else {
		fmt.Fprintln(w, "Authorization complete, the refresh token is saved. You can close this window.")
	}
	select {
	case h.data.Result <- err:
	default:
	}
}

package store

import (
	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"bitbucket.org/airenas/callnotes/internal/pkg/mongo"
	"github.com/pkg/errors"
)

//Store kinds
const (
	KindFile  = "file"
	KindMongo = "mongo"
)

//TokenStore keeps the refresh token
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}

//RecipientStore keeps registered chat users
type RecipientStore interface {
	Get(userID string) (*api.Recipient, error)
	Save(r *api.Recipient) error
	List() ([]*api.Recipient, error)
}

//Factory creates stores selected by token.store and recipients.store
type Factory struct {
	session *mongo.SessionProvider
	closers []func()
}

//NewFactory creates store factory
func NewFactory() *Factory {
	return &Factory{}
}

//TokenStore returns configured token store
func (f *Factory) TokenStore() (TokenStore, error) {
	switch k := cmdapp.StringOrDefault("token.store", KindFile); k {
	case KindFile:
		res, err := NewTokenFile(cmdapp.StringOrDefault("token.file", "ms_refresh_token.txt"))
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, res.Close)
		return res, nil
	case KindMongo:
		sp, err := f.mongoSession()
		if err != nil {
			return nil, err
		}
		return mongo.NewTokenStore(sp)
	default:
		return nil, errc.Configuration("Unknown token.store '" + k + "'")
	}
}

//RecipientStore returns configured recipient store
func (f *Factory) RecipientStore() (RecipientStore, error) {
	switch k := cmdapp.StringOrDefault("recipients.store", KindFile); k {
	case KindFile:
		return NewRecipientFile(cmdapp.StringOrDefault("recipients.file", "conversation_references.json"))
	case KindMongo:
		sp, err := f.mongoSession()
		if err != nil {
			return nil, err
		}
		return mongo.NewRecipientStore(sp)
	default:
		return nil, errc.Configuration("Unknown recipients.store '" + k + "'")
	}
}

//Mongo returns the shared session provider if any store uses mongo
func (f *Factory) Mongo() *mongo.SessionProvider {
	return f.session
}

func (f *Factory) mongoSession() (*mongo.SessionProvider, error) {
	if f.session != nil {
		return f.session, nil
	}
	sp, err := mongo.NewSessionProvider()
	if err != nil {
		return nil, errors.Wrap(err, "Can't init mongo")
	}
	f.session = sp
	f.closers = append(f.closers, sp.Close)
	return sp, nil
}

//Close closes opened resources
func (f *Factory) Close() {
	for i := len(f.closers) - 1; i >= 0; i-- {
		f.closers[i]()
	}
	f.closers = nil
}

//Seed saves the seed token if the store is empty, the stored value wins otherwise
func Seed(ts TokenStore, seed string) (bool, error) {
	if seed == "" {
		return false, nil
	}
	v, err := ts.Load()
	if err != nil {
		return false, errors.Wrap(err, "Can't load token")
	}
	if v != "" {
		return false, nil
	}
	if err := ts.Save(seed); err != nil {
		return false, errors.Wrap(err, "Can't save seed token")
	}
	return true, nil
}

package mongo

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"bitbucket.org/airenas/callnotes/internal/pkg/utils"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultDB = "callnotes"

//SessionProvider connects and provides client for mongo DB
type SessionProvider struct {
	client *mongo.Client
	URL    string
	DB     string
	m      sync.Mutex
}

//NewSessionProvider creates Mongo session provider
func NewSessionProvider() (*SessionProvider, error) {
	url := cmdapp.Config.GetString("mongo.url")
	if url == "" {
		return nil, errors.New("No Mongo url provided")
	}
	return &SessionProvider{URL: url, DB: cmdapp.StringOrDefault("mongo.db", defaultDB)}, nil
}

//Close closes mongo client
func (sp *SessionProvider) Close() {
	sp.m.Lock()
	defer sp.m.Unlock()
	if sp.client != nil {
		ctx, cf := context.WithTimeout(context.Background(), 10*time.Second)
		defer cf()
		cmdapp.LogIf(sp.client.Disconnect(ctx))
		sp.client = nil
	}
}

//Collection returns collection, connects on first use
func (sp *SessionProvider) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	sp.m.Lock()
	defer sp.m.Unlock()

	if sp.client == nil {
		cmdapp.Log.Info("Dial mongo: " + utils.URLToLog(sp.URL))
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sp.URL))
		if err != nil {
			return nil, errors.Wrap(err, "Can't dial to mongo")
		}
		sp.client = client
	}
	return sp.client.Database(sp.DB).Collection(name), nil
}

//Healthy pings the DB
func (sp *SessionProvider) Healthy() error {
	ctx, cf := context.WithTimeout(context.Background(), 5*time.Second)
	defer cf()
	if _, err := sp.Collection(ctx, tokenTable); err != nil {
		return err
	}
	sp.m.Lock()
	c := sp.client
	sp.m.Unlock()
	if c == nil {
		return errors.New("No mongo client")
	}
	return c.Ping(ctx, readpref.Primary())
}

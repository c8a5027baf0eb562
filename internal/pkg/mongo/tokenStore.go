package mongo

import (
	"context"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type tokenRecord struct {
	ID      string    `bson:"_id"`
	Value   string    `bson:"value"`
	Updated time.Time `bson:"updated"`
}

//TokenStore keeps refresh token in mongo
type TokenStore struct {
	sessionProvider *SessionProvider
}

//NewTokenStore creates TokenStore instance
func NewTokenStore(sessionProvider *SessionProvider) (*TokenStore, error) {
	if sessionProvider == nil {
		return nil, errors.New("No session provider")
	}
	return &TokenStore{sessionProvider: sessionProvider}, nil
}

//Load returns stored token or ""
func (ts *TokenStore) Load() (string, error) {
	ctx, cf := context.WithTimeout(context.Background(), opTimeout*time.Second)
	defer cf()
	c, err := ts.sessionProvider.Collection(ctx, tokenTable)
	if err != nil {
		return "", err
	}
	var res tokenRecord
	err = c.FindOne(ctx, bson.M{"_id": graphTokenID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "Can't load token")
	}
	return res.Value, nil
}

//Save upserts the token
func (ts *TokenStore) Save(token string) error {
	cmdapp.Log.Info("Saving refresh token to mongo")
	ctx, cf := context.WithTimeout(context.Background(), opTimeout*time.Second)
	defer cf()
	c, err := ts.sessionProvider.Collection(ctx, tokenTable)
	if err != nil {
		return err
	}
	_, err = c.ReplaceOne(ctx, bson.M{"_id": graphTokenID},
		tokenRecord{ID: graphTokenID, Value: token, Updated: time.Now()}, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "Can't save token")
}

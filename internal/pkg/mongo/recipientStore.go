package mongo

import (
	"context"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

//RecipientStore keeps registered recipients in mongo
type RecipientStore struct {
	sessionProvider *SessionProvider
}

//NewRecipientStore creates RecipientStore instance
func NewRecipientStore(sessionProvider *SessionProvider) (*RecipientStore, error) {
	if sessionProvider == nil {
		return nil, errors.New("No session provider")
	}
	return &RecipientStore{sessionProvider: sessionProvider}, nil
}

//Get returns recipient or nil
func (rs *RecipientStore) Get(userID string) (*api.Recipient, error) {
	ctx, cf := context.WithTimeout(context.Background(), opTimeout*time.Second)
	defer cf()
	c, err := rs.sessionProvider.Collection(ctx, recipientTable)
	if err != nil {
		return nil, err
	}
	var res api.Recipient
	err = c.FindOne(ctx, bson.M{"_id": userID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't load recipient")
	}
	return &res, nil
}

//Save upserts the recipient
func (rs *RecipientStore) Save(r *api.Recipient) error {
	if r == nil || r.UserID == "" {
		return errors.New("No recipient user id")
	}
	ctx, cf := context.WithTimeout(context.Background(), opTimeout*time.Second)
	defer cf()
	c, err := rs.sessionProvider.Collection(ctx, recipientTable)
	if err != nil {
		return err
	}
	_, err = c.ReplaceOne(ctx, bson.M{"_id": r.UserID}, r, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "Can't save recipient")
}

//List returns all recipients
func (rs *RecipientStore) List() ([]*api.Recipient, error) {
	ctx, cf := context.WithTimeout(context.Background(), opTimeout*time.Second)
	defer cf()
	c, err := rs.sessionProvider.Collection(ctx, recipientTable)
	if err != nil {
		return nil, err
	}
	cursor, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "Can't list recipients")
	}
	res := make([]*api.Recipient, 0)
	if err := cursor.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "Can't decode recipients")
	}
	return res, nil
}

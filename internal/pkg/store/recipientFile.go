package store

import (
	"encoding/json"
	"sort"
	"sync"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

//RecipientFile keeps registered recipients in a JSON file keyed by user id
type RecipientFile struct {
	path string

	lock sync.Mutex
	data map[string]*api.Recipient
}

//NewRecipientFile creates the registry and loads existing entries
func NewRecipientFile(path string) (*RecipientFile, error) {
	if path == "" {
		return nil, errors.New("No recipients file")
	}
	res := &RecipientFile{path: path, data: map[string]*api.Recipient{}}
	b, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &res.data); err != nil {
			return nil, errors.Wrapf(err, "Can't decode %s", path)
		}
	}
	cmdapp.Log.Infof("Loaded %d recipients from %s", len(res.data), path)
	return res, nil
}

//Get returns recipient or nil if not registered
func (rf *RecipientFile) Get(userID string) (*api.Recipient, error) {
	rf.lock.Lock()
	defer rf.lock.Unlock()
	r, ok := rf.data[userID]
	if !ok {
		return nil, nil
	}
	res := *r
	return &res, nil
}

//Save adds or replaces the recipient
func (rf *RecipientFile) Save(r *api.Recipient) error {
	if r == nil || r.UserID == "" {
		return errors.New("No recipient user id")
	}
	rf.lock.Lock()
	defer rf.lock.Unlock()
	c := *r
	old := rf.data[r.UserID]
	rf.data[r.UserID] = &c
	b, err := json.MarshalIndent(rf.data, "", "  ")
	if err == nil {
		err = writeFile(rf.path, b, 0o600)
	}
	if err != nil {
		if old == nil {
			delete(rf.data, r.UserID)
		} else {
			rf.data[r.UserID] = old
		}
		return errors.Wrap(err, "Can't save recipients")
	}
	return nil
}

//List returns all recipients sorted by user id
func (rf *RecipientFile) List() ([]*api.Recipient, error) {
	rf.lock.Lock()
	defer rf.lock.Unlock()
	res := make([]*api.Recipient, 0, len(rf.data))
	for _, r := range rf.data {
		c := *r
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res, nil
}

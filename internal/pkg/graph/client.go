package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"bitbucket.org/airenas/callnotes/internal/pkg/utils"
	"github.com/pkg/errors"
)

//Transports
const (
	TransportChannel = "channel"
	TransportChat    = "chat"
)

const (
	cardContentType = "application/vnd.microsoft.card.adaptive"
	attachmentID    = "ac1"
	memberType      = "#microsoft.graph.aadUserConversationMember"
)

//ErrNotFound indicates 404 from graph
var ErrNotFound = errors.New("Not found")

//TokenProvider returns bearer token
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

//ChatRegistry caches chat ids per user
type ChatRegistry interface {
	Get(userID string) (*api.Recipient, error)
	Save(r *api.Recipient) error
}

//Client posts cards via Microsoft Graph
type Client struct {
	httpclient *http.Client
	url        string
	senderID   string
	teamID     string
	tokens     TokenProvider
	registry   ChatRegistry
	now        func() time.Time
}

//NewClient creates graph client from config
func NewClient(tokens TokenProvider, registry ChatRegistry) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("No token provider")
	}
	if registry == nil {
		return nil, errors.New("No chat registry")
	}
	res := Client{tokens: tokens, registry: registry, now: time.Now}
	var err error
	res.url, err = utils.GetURLFromConfigOrDefault("graph.url", "https://graph.microsoft.com/v1.0")
	if err != nil {
		return nil, err
	}
	res.senderID, err = utils.GetStringFromConfig("graph.senderUserID")
	if err != nil {
		return nil, err
	}
	res.teamID = cmdapp.Config.GetString("graph.teamID")
	res.httpclient = &http.Client{Timeout: cmdapp.DurationOrDefault("graph.timeout", 60*time.Second)}
	cmdapp.Log.Infof("Graph url: %s, team set: %t", res.url, res.teamID != "")
	return &res, nil
}

//TeamID returns configured parent team id
func (c *Client) TeamID() string {
	return c.teamID
}

//SelectTransport picks channel only if both channel and team ids are known
func SelectTransport(channelID, teamID string) string {
	if channelID != "" && teamID != "" {
		return TransportChannel
	}
	return TransportChat
}

//Deliver sends the card to the consultant, returns the transport used
func (c *Client) Deliver(ctx context.Context, consultant *api.Consultant, card interface{}) (string, error) {
	tr := SelectTransport(consultant.ChannelID, c.teamID)
	if tr == TransportChannel {
		cmdapp.Log.Infof("Sending to channel of %s", consultant.Name)
		return tr, c.PostToChannel(ctx, c.teamID, consultant.ChannelID, card)
	}
	if consultant.DirectoryUserID == "" {
		return tr, errors.New("No directory user id")
	}
	cmdapp.Log.Infof("Sending 1:1 chat to %s", consultant.Name)
	return tr, c.SendToUser(ctx, consultant.DirectoryUserID, card)
}

//SendToUser posts the card into the 1:1 chat, creates the chat if it is not cached
func (c *Client) SendToUser(ctx context.Context, userID string, card interface{}) error {
	r, err := c.registry.Get(userID)
	if err != nil {
		cmdapp.Log.Warnf("Can't read chat registry: %v", err)
	}
	if r != nil && r.ChatID != "" {
		err := c.PostToChat(ctx, r.ChatID, card)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return err
		}
		cmdapp.Log.Warnf("Cached chat not found, recreating")
	}
	chatID, err := c.CreateChat(ctx, userID)
	if err != nil {
		return err
	}
	c.remember(r, userID, chatID)
	return c.PostToChat(ctx, chatID, card)
}

func (c *Client) remember(r *api.Recipient, userID, chatID string) {
	if r == nil {
		r = &api.Recipient{UserID: userID}
	}
	r.ChatID = chatID
	r.Updated = c.now()
	if err := c.registry.Save(r); err != nil {
		cmdapp.Log.Warnf("Can't save chat id: %v", err)
	}
}

type member struct {
	Type  string   `json:"@odata.type"`
	Roles []string `json:"roles"`
	Bind  string   `json:"user@odata.bind"`
}

type chatRequest struct {
	ChatType string   `json:"chatType"`
	Members  []member `json:"members"`
}

//CreateChat creates or returns existing 1:1 chat between sender and user
func (c *Client) CreateChat(ctx context.Context, userID string) (string, error) {
	req := chatRequest{ChatType: "oneOnOne", Members: []member{c.member(c.senderID), c.member(userID)}}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, utils.URLJoin(c.url, "chats"), req, &resp); err != nil {
		return "", errors.Wrap(err, "Can't create chat")
	}
	if resp.ID == "" {
		return "", errors.New("No chat id in response")
	}
	return resp.ID, nil
}

func (c *Client) member(id string) member {
	return member{Type: memberType, Roles: []string{"owner"}, Bind: utils.URLJoin(c.url, "users", id)}
}

//PostToChat posts card to chat
func (c *Client) PostToChat(ctx context.Context, chatID string, card interface{}) error {
	msg, err := newMessage(card)
	if err != nil {
		return err
	}
	if err := c.post(ctx, utils.URLJoin(c.url, "chats", chatID, "messages"), msg, nil); err != nil {
		return errors.Wrap(err, "Can't post to chat")
	}
	cmdapp.Log.Infof("Message sent to chat")
	return nil
}

//PostToChannel posts card to team channel
func (c *Client) PostToChannel(ctx context.Context, teamID, channelID string, card interface{}) error {
	msg, err := newMessage(card)
	if err != nil {
		return err
	}
	if err := c.post(ctx, utils.URLJoin(c.url, "teams", teamID, "channels", channelID, "messages"), msg, nil); err != nil {
		return errors.Wrap(err, "Can't post to channel")
	}
	cmdapp.Log.Infof("Message sent to channel")
	return nil
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type attachment struct {
	ID          string  `json:"id"`
	ContentType string  `json:"contentType"`
	ContentURL  *string `json:"contentUrl"`
	Content     string  `json:"content"`
}

type message struct {
	Body        itemBody     `json:"body"`
	Attachments []attachment `json:"attachments"`
}

func newMessage(card interface{}) (*message, error) {
	if card == nil {
		return nil, errors.New("No card")
	}
	b, err := json.Marshal(card)
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal card")
	}
	return &message{
		Body:        itemBody{ContentType: "html", Content: `<attachment id="` + attachmentID + `"></attachment>`},
		Attachments: []attachment{{ID: attachmentID, ContentType: cardContentType, Content: string(b)}},
	}, nil
}

func (c *Client) post(ctx context.Context, url string, data, result interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "Can't marshal request")
	}
	tk, err := c.tokens.Token(ctx)
	if err != nil {
		return errors.Wrap(err, "Can't get access token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "Can't create request")
	}
	req.Header.Set("Authorization", "Bearer "+tk)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Can't call graph")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrap(ErrNotFound, url)
	}
	if err := utils.ValidateResponse(resp); err != nil {
		return err
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.Wrap(err, "Can't decode response")
		}
	}
	return nil
}

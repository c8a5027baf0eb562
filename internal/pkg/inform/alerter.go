package inform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/badoux/checkmail"
	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
)

const authSubject = "Call notes: re-authorization required"

//Sender sends an email
type Sender interface {
	Send(*email.Email) error
}

//Alerter notifies the operator about a rejected refresh token once per failure period
type Alerter struct {
	sender Sender
	to     string
	from   string
	now    func() time.Time

	m    sync.Mutex
	sent bool
}

//NewAlerter creates alerter, from defaults to smtp.username
func NewAlerter(sender Sender, to, from string) (*Alerter, error) {
	if sender == nil {
		return nil, errors.New("No email sender")
	}
	if err := checkmail.ValidateFormat(to); err != nil {
		return nil, errc.Configuration(fmt.Sprintf("Wrong alert.email '%s': %v", to, err))
	}
	if from == "" {
		from = to
	}
	return &Alerter{sender: sender, to: to, from: from, now: time.Now}, nil
}

//AuthFailed sends the alert if not sent already
func (a *Alerter) AuthFailed(ctx context.Context, cause error) error {
	a.m.Lock()
	defer a.m.Unlock()
	if a.sent {
		return nil
	}
	if err := a.sender.Send(a.make(cause)); err != nil {
		return errors.Wrap(err, "Can't send alert")
	}
	cmdapp.Log.Warnf("Sent re-authorization alert to %s", a.to)
	a.sent = true
	return nil
}

//Recovered resets the alert state
func (a *Alerter) Recovered() {
	a.m.Lock()
	defer a.m.Unlock()
	a.sent = false
}

func (a *Alerter) make(cause error) *email.Email {
	r := email.NewEmail()
	r.From = a.from
	r.To = []string{a.to}
	r.Subject = authSubject
	r.Text = []byte(fmt.Sprintf("Microsoft Graph rejected the stored refresh token at %s.\n\n%v\n\n"+
		"Run authSetupService to sign in again. Deliveries fail until then.\n",
		a.now().Format("2006-01-02 15:04:05"), cause))
	return r
}

package inform

import (
	"net/smtp"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/jordan-wright/email"
)

//SimpleEmailSender sends emails via a smtp pool
type SimpleEmailSender struct {
	sendPool *email.Pool
	timeout  time.Duration
}

//NewSimpleEmailSender creates sender from smtp.* config
func NewSimpleEmailSender() (*SimpleEmailSender, error) {
	host := cmdapp.Config.GetString("smtp.host")
	if host == "" {
		return nil, errc.Configuration("No smtp.host")
	}
	r := SimpleEmailSender{timeout: cmdapp.DurationOrDefault("smtp.timeout", 10*time.Second)}
	var err error
	r.sendPool, err = email.NewPool(host+":"+cmdapp.StringOrDefault("smtp.port", "587"), 1,
		smtp.PlainAuth("", cmdapp.Config.GetString("smtp.username"), cmdapp.Config.GetString("smtp.password"), host))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

//Send sends the email
func (s *SimpleEmailSender) Send(email *email.Email) error {
	return s.sendPool.Send(email, s.timeout)
}

//Close closes the pool
func (s *SimpleEmailSender) Close() {
	s.sendPool.Close()
}

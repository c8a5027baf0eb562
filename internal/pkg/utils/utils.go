package utils

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/pkg/errors"
)

//URLJoin joins urls with '/'
func URLJoin(urls ...string) string {
	u, err := url.Parse(urls[0])
	if err != nil || u.Host == "" {
		return strings.Join(urls, "/")
	}
	u.Path = path.Join(u.Path, path.Join(urls[1:]...))
	return u.String()
}

//GetURLFromConfigOrDefault retrieves URL from config, uses def if not set
func GetURLFromConfigOrDefault(name, def string) (string, error) {
	return validateConfigURL(cmdapp.StringOrDefault(name, def), name)
}

func validateConfigURL(urlStr, settingName string) (string, error) {
	if urlStr == "" {
		return "", errc.Configuration("No " + settingName + " setting provided")
	}
	url, err := url.Parse(urlStr)
	if err != nil {
		return "", errors.Wrap(err, "Can't parse url "+urlStr)
	}
	return url.String(), nil
}

//GetStringFromConfig returns the setting or a configuration error if it is empty
func GetStringFromConfig(name string) (string, error) {
	res := strings.TrimSpace(cmdapp.Config.GetString(name))
	if res == "" {
		return "", errc.Configuration("No " + name + " setting provided")
	}
	return res, nil
}

//ErrWrongHTTPCall indicates failure due wrong http call
var ErrWrongHTTPCall = errors.New("Wrong http call")

//ValidateResponse returns error if code is not in [200, 299].
//5xx and 429 codes are reported as transient errors.
func ValidateResponse(resp *http.Response) error {
	if !(resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		trimS := ""
		if len(bodyBytes) > 200 {
			bodyBytes = bodyBytes[:200]
			trimS = "..."
		}
		msg := fmt.Sprintf("Wrong response code from server. Code: %d\n%s",
			resp.StatusCode, string(bodyBytes)+trimS)
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			return errors.Wrap(ErrWrongHTTPCall, msg)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return errc.Transient(msg)
		}
		return errors.New(msg)
	}
	return nil
}

//URLToLog removes pass from URL
func URLToLog(link string) string {
	u, err := url.Parse(link)
	if err == nil {
		if u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "----")
			}
		}
		return u.String()
	}
	return ""
}

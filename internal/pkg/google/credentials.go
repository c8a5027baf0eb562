package google

import (
	"context"
	"encoding/base64"
	"os"
	"strings"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/pkg/errors"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

//ClientOptions prepares service account options from config.
//google.credentials.json may hold raw or base64 encoded JSON, google.credentials.file a path.
func ClientOptions() ([]option.ClientOption, error) {
	b, err := credentialsJSON(cmdapp.Config.GetString("google.credentials.json"),
		cmdapp.Config.GetString("google.credentials.file"))
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithCredentialsJSON(b),
		option.WithScopes(drive.DriveScope, sheets.SpreadsheetsScope)}, nil
}

func credentialsJSON(value, file string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		if strings.HasPrefix(value, "{") {
			return []byte(value), nil
		}
		b, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, errors.Wrap(err, "Can't decode google.credentials.json")
		}
		return b, nil
	}
	if file == "" {
		return nil, errc.Configuration("No google.credentials.json or google.credentials.file")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read %s", file)
	}
	return b, nil
}

//NewServices creates Drive and Sheets services
func NewServices(ctx context.Context, opts ...option.ClientOption) (*drive.Service, *sheets.Service, error) {
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't init drive")
	}
	ss, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't init sheets")
	}
	return ds, ss, nil
}

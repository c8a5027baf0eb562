package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/pkg/errors"
	"google.golang.org/api/sheets/v4"
)

const (
	consultantsRange = "Consultants!A:F"
	promptsRange     = "Prompts!A:B"
	skippedRange     = "Skipped_Calls!A:E"
	errorsRange      = "Processing_Errors!A:F"
)

//Sheet reads the directory and appends audit rows in a spreadsheet
type Sheet struct {
	srv *sheets.Service
	id  string
}

//NewSheet creates spreadsheet backed directory and audit log
func NewSheet(srv *sheets.Service, spreadsheetID string) (*Sheet, error) {
	if srv == nil {
		return nil, errors.New("No sheets service")
	}
	if spreadsheetID == "" {
		return nil, errc.Configuration("No sheets.spreadsheetID")
	}
	return &Sheet{srv: srv, id: spreadsheetID}, nil
}

//Consultants loads consultants keyed by lower case name
func (s *Sheet) Consultants(ctx context.Context) (api.Consultants, error) {
	rows, err := s.rows(ctx, consultantsRange)
	if err != nil {
		return nil, err
	}
	res := api.Consultants{}
	for _, row := range skipHeader(rows) {
		if len(row) < 4 {
			continue
		}
		c := &api.Consultant{
			Name:            strings.TrimSpace(cell(row, 0)),
			Email:           strings.TrimSpace(cell(row, 1)),
			Desk:            strings.TrimSpace(cell(row, 2)),
			DirectoryUserID: strings.TrimSpace(cell(row, 3)),
			Active:          strings.EqualFold(strings.TrimSpace(cell(row, 4)), "TRUE"),
			ChannelID:       strings.TrimSpace(cell(row, 5)),
		}
		if c.Name == "" {
			continue
		}
		res[strings.ToLower(c.Name)] = c
	}
	return res, nil
}

//Prompts loads desk templates
func (s *Sheet) Prompts(ctx context.Context) (api.Prompts, error) {
	rows, err := s.rows(ctx, promptsRange)
	if err != nil {
		return nil, err
	}
	res := api.Prompts{}
	for _, row := range skipHeader(rows) {
		if len(row) < 2 {
			continue
		}
		res[strings.TrimSpace(cell(row, 0))] = cell(row, 1)
	}
	return res, nil
}

//Skipped appends a skipped file row
func (s *Sheet) Skipped(ctx context.Context, e *api.SkipEntry) error {
	return s.append(ctx, skippedRange, []interface{}{e.FileName, formatTime(e.Time), e.WordCount, e.Reason, e.Consultant})
}

//Failed appends a processing error row
func (s *Sheet) Failed(ctx context.Context, e *api.ErrorEntry) error {
	return s.append(ctx, errorsRange, []interface{}{e.FileName, formatTime(e.Time), e.Error, e.Stage, "FALSE", e.Consultant})
}

//Ping checks the spreadsheet is reachable
func (s *Sheet) Ping(ctx context.Context) error {
	_, err := s.srv.Spreadsheets.Get(s.id).Fields("spreadsheetId").Context(ctx).Do()
	return errors.Wrap(err, "Can't reach spreadsheet")
}

func (s *Sheet) rows(ctx context.Context, rng string) ([][]interface{}, error) {
	vr, err := s.srv.Spreadsheets.Values.Get(s.id, rng).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read %s", rng)
	}
	return vr.Values, nil
}

func (s *Sheet) append(ctx context.Context, rng string, row []interface{}) error {
	_, err := s.srv.Spreadsheets.Values.Append(s.id, rng, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "Can't append to %s", rng)
	}
	cmdapp.Log.Infof("Logged to %s: %v", rng, row[0])
	return nil
}

func skipHeader(rows [][]interface{}) [][]interface{} {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return fmt.Sprint(row[i])
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

package google

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/pkg/errors"
	"google.golang.org/api/drive/v3"
)

const maxFileSize = 100 << 20

//FileStore lists, downloads and marks transcript PDFs in a Drive folder
type FileStore struct {
	srv      *drive.Service
	folderID string
	prefix   string
	after    time.Time
	maxSize  int64
}

//NewFileStore creates Drive file store
func NewFileStore(srv *drive.Service, folderID, prefix string, after time.Time) (*FileStore, error) {
	if srv == nil {
		return nil, errors.New("No drive service")
	}
	if folderID == "" {
		return nil, errc.Configuration("No drive.folderID")
	}
	if prefix == "" {
		return nil, errc.Configuration("No processed prefix")
	}
	return &FileStore{srv: srv, folderID: folderID, prefix: prefix, after: after, maxSize: maxFileSize}, nil
}

//Query returns Drive search query for unprocessed files
func (fs *FileStore) Query() string {
	res := fmt.Sprintf("'%s' in parents and mimeType='application/pdf' and not name contains '%s' and trashed=false",
		escape(fs.folderID), escape(fs.prefix))
	if !fs.after.IsZero() {
		res += fmt.Sprintf(" and createdTime > '%s'", fs.after.UTC().Format("2006-01-02T15:04:05"))
	}
	return res
}

//List returns unprocessed files, newest first
func (fs *FileStore) List(ctx context.Context) ([]*api.SourceFile, error) {
	res := make([]*api.SourceFile, 0)
	call := fs.srv.Files.List().Q(fs.Query()).Fields("nextPageToken, files(id, name, createdTime)").
		OrderBy("createdTime desc").PageSize(100).SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
	err := call.Pages(ctx, func(fl *drive.FileList) error {
		for _, f := range fl.Files {
			ct, err := time.Parse(time.RFC3339, f.CreatedTime)
			if err != nil && f.CreatedTime != "" {
				cmdapp.Log.Warnf("Can't parse createdTime '%s' of %s", f.CreatedTime, f.Name)
			}
			res = append(res, &api.SourceFile{ID: f.Id, Name: f.Name, CreatedTime: ct})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't list files")
	}
	return res, nil
}

//Download returns file bytes
func (fs *FileStore) Download(ctx context.Context, f *api.SourceFile) ([]byte, error) {
	resp, err := fs.srv.Files.Get(f.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't download %s", f.ID)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, fs.maxSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read %s", f.ID)
	}
	if int64(len(b)) > fs.maxSize {
		return nil, errors.Errorf("File %s is larger than %d bytes", f.ID, fs.maxSize)
	}
	return b, nil
}

//MarkProcessed renames the file adding the processed prefix
func (fs *FileStore) MarkProcessed(ctx context.Context, f *api.SourceFile) error {
	name := fs.prefix + f.Name
	_, err := fs.srv.Files.Update(f.ID, &drive.File{Name: name}).SupportsAllDrives(true).Fields("id, name").
		Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "Can't rename %s", f.ID)
	}
	cmdapp.Log.Infof("Renamed file to: %s", name)
	return nil
}

func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

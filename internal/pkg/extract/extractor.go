package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	rpdf "rsc.io/pdf"
)

//Strategy converts document bytes to text
type Strategy struct {
	Name string
	Run  func(data []byte) (string, error)
}

//Extractor tries strategies in order until one yields non blank text
type Extractor struct {
	strategies []Strategy
}

//NewExtractor creates PDF extractor: ledongthuc/pdf plain text first, rsc.io/pdf content as fallback
func NewExtractor() *Extractor {
	return &Extractor{strategies: []Strategy{
		{Name: "plain", Run: plainText},
		{Name: "content", Run: contentText},
	}}
}

//Extract returns the document text or "" if no strategy succeeds
func (e *Extractor) Extract(data []byte) *api.Transcript {
	for _, s := range e.strategies {
		text, err := safeRun(s, data)
		if err != nil {
			cmdapp.Log.Warnf("Extraction '%s' failed: %v", s.Name, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return &api.Transcript{Text: text, WordCount: CountWords(text)}
		}
		cmdapp.Log.Warnf("Extraction '%s' returned no text", s.Name)
	}
	return &api.Transcript{}
}

//CountWords counts whitespace separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func safeRun(s Strategy, data []byte) (res string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Run(data)
}

func plainText(data []byte) (string, error) {
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "Can't open pdf")
	}
	tr, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "Can't get text")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, tr); err != nil {
		return "", errors.Wrap(err, "Can't read text")
	}
	return buf.String(), nil
}

func contentText(data []byte) (string, error) {
	r, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "Can't open pdf")
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		writePage(&sb, p.Content().Text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func writePage(sb *strings.Builder, texts []rpdf.Text) {
	var prev *rpdf.Text
	for i := range texts {
		t := &texts[i]
		if prev != nil {
			if t.Y != prev.Y {
				sb.WriteString("\n")
			} else if t.X > prev.X+prev.W+t.FontSize*0.2 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(t.S)
		prev = t
	}
}

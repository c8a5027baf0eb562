package filename

import (
	"regexp"
	"strings"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
)

const (
	tripleSep = "___"
	dashSep   = " - "
)

var (
	lettersRegexp  = regexp.MustCompile(`[A-Za-z]{2,}`)
	bracketsRegexp = regexp.MustCompile(`\[.*?\]`)
	trailingRegexp = regexp.MustCompile(`[\+\d\-\(\)\s]+$`)
	dateRegexp     = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	phoneRegexp    = regexp.MustCompile(`[\+]?[\d\s\-]{10,}`)
)

//Parse extracts best effort metadata from the file name.
//The call date falls back to the now's date when the name has no date.
func Parse(name string, now time.Time) *api.CallMetadata {
	return &api.CallMetadata{
		ConsultantName: consultantName(name),
		CandidateName:  candidateName(name),
		CallDate:       callDate(name, now),
	}
}

func consultantName(name string) string {
	if i := strings.Index(name, tripleSep); i > -1 {
		return strings.TrimSpace(strings.ReplaceAll(name[:i], "_", " "))
	}
	if !strings.Contains(name, dashSep) {
		return ""
	}
	for _, part := range strings.Split(name, dashSep) {
		if !lettersRegexp.MatchString(part) {
			continue
		}
		res := strings.TrimSpace(bracketsRegexp.ReplaceAllString(part, ""))
		res = strings.TrimSpace(trailingRegexp.ReplaceAllString(res, ""))
		if res != "" {
			return res
		}
	}
	return ""
}

func candidateName(name string) string {
	return strings.TrimSpace(phoneRegexp.FindString(name))
}

func callDate(name string, now time.Time) string {
	if m := dateRegexp.FindStringSubmatch(name); len(m) > 1 {
		return m[1]
	}
	return now.Format("2006-01-02")
}

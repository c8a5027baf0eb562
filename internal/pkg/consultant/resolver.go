package consultant

import (
	"sort"
	"strings"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
)

//Policy names
const (
	PolicyExact     = "exact"
	PolicySubstring = "substring"
)

//Resolver finds the consultant of a file
type Resolver interface {
	Resolve(fileName string, meta *api.CallMetadata, consultants api.Consultants) (*api.Consultant, string)
}

//NewResolver creates resolver by policy name, empty name selects substring policy
func NewResolver(policy string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicySubstring:
		return &Substring{}, nil
	case PolicyExact:
		return &Exact{}, nil
	}
	return nil, errc.Configuration("Unknown consultant match policy '" + policy + "'")
}

//Exact looks up the parsed consultant name in the directory
type Exact struct{}

//Resolve returns consultant and its directory name
func (e *Exact) Resolve(fileName string, meta *api.CallMetadata, consultants api.Consultants) (*api.Consultant, string) {
	if meta == nil || meta.ConsultantName == "" {
		return nil, ""
	}
	if c, ok := consultants[strings.ToLower(meta.ConsultantName)]; ok && c != nil {
		return c, c.Name
	}
	return nil, ""
}

//Substring finds the longest consultant name contained in the file name
type Substring struct{}

//Resolve returns consultant and its directory name
func (s *Substring) Resolve(fileName string, meta *api.CallMetadata, consultants api.Consultants) (*api.Consultant, string) {
	lower := strings.ToLower(fileName)
	for _, k := range longestFirst(consultants) {
		if strings.Contains(lower, k) {
			c := consultants[k]
			return c, c.Name
		}
	}
	return nil, ""
}

func longestFirst(consultants api.Consultants) []string {
	res := make([]string, 0, len(consultants))
	for k, c := range consultants {
		if k != "" && c != nil {
			res = append(res, k)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if len(res[i]) != len(res[j]) {
			return len(res[i]) > len(res[j])
		}
		return res[i] < res[j]
	})
	return res
}

//HasTarget checks if a consultant can be delivered to
func HasTarget(c *api.Consultant, teamID string) bool {
	return c.DirectoryUserID != "" || (c.ChannelID != "" && teamID != "")
}

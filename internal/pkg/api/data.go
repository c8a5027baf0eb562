package api

import "time"

//SourceFile is a transcript document in the watched store
type SourceFile struct {
	ID          string
	Name        string
	CreatedTime time.Time
}

//Transcript is an extracted document text
type Transcript struct {
	Text      string
	WordCount int
}

//CallMetadata is a best effort info parsed from the file name
type CallMetadata struct {
	ConsultantName string
	CandidateName  string
	CallDate       string
}

//Consultant is a summary recipient record from the directory
type Consultant struct {
	Name            string
	Email           string
	Desk            string
	DirectoryUserID string
	Active          bool
	ChannelID       string
}

//Consultants is a map of consultants keyed by lower case name
type Consultants map[string]*Consultant

//Prompts maps desk to the prompt template
type Prompts map[string]string

//Recipient is a registered chat user
type Recipient struct {
	UserID         string    `json:"userId" bson:"_id"`
	Name           string    `json:"name,omitempty" bson:"name,omitempty"`
	ConversationID string    `json:"conversationId,omitempty" bson:"conversationId,omitempty"`
	ChatID         string    `json:"chatId,omitempty" bson:"chatId,omitempty"`
	Updated        time.Time `json:"updated" bson:"updated"`
}

//SkipEntry is an audit row for a skipped file
type SkipEntry struct {
	FileName   string
	Time       time.Time
	WordCount  int
	Reason     string
	Consultant string
}

//ErrorEntry is an audit row for a failed file
type ErrorEntry struct {
	FileName   string
	Time       time.Time
	Error      string
	Stage      string
	Consultant string
}

//Outcome statuses
const (
	StatusDelivered = "delivered"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

//Skip reasons
const (
	ReasonTooShort          = "Too short"
	ReasonUnknownConsultant = "Unknown consultant"
	ReasonInactive          = "Inactive consultant"
	ReasonNoTarget          = "No delivery target"
)

//Outcome is a result of one file processing
type Outcome struct {
	ID         string    `json:"id"`
	CycleID    string    `json:"cycleId"`
	FileID     string    `json:"fileId"`
	FileName   string    `json:"file"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Consultant string    `json:"consultant,omitempty"`
	WordCount  int       `json:"words"`
	Time       time.Time `json:"time"`
}

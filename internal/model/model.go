package model

import "time"

// Person is a participant in the export. A person is created either from the
// roster in the settings file or on the fly during conversation resolution,
// and is mutated in place as more identifiers are discovered. Once created it
// is reachable by at least one of phone, full name, conversation id or
// service id.
type Person struct {
	Slug           string `yaml:"slug"`
	FirstName      string `yaml:"first_name"`
	LastName       string `yaml:"last_name"`
	FullName       string `yaml:"full_name,omitempty"`
	Mobile         string `yaml:"mobile,omitempty"`
	ConversationID string `yaml:"-"`
	ServiceID      string `yaml:"-"`
}

// Group is a group thread. Groups are discoverable by conversation id only
// and are never modeled as a Person.
type Group struct {
	Slug           string `yaml:"slug"`
	Name           string `yaml:"name,omitempty"`
	ConversationID string `yaml:"conversation_id"`
}

// Message is one normalized message from the export. A message is retained in
// the output set only if it has a resolved sender and a non-empty body or at
// least one attachment.
type Message struct {
	ID        string
	Timestamp int64     // seconds since epoch
	Time      time.Time // local calendar form of Timestamp
	Body      string
	FromSlug  string
	ToSlugs   []string
	GroupSlug string // set only for group messages

	Attachments []Attachment
	Reactions   []Reaction
	Quote       *Quote
}

// Attachment is the metadata for one message attachment. ID is derived from
// the trailing segment of the storage path, not the source row's own id:
// filenames collide, storage ids do not.
type Attachment struct {
	ID       string
	Type     string // MIME content type
	FileName string
	Size     int64
	Width    int
	Height   int
}

// Reaction is an emoji reaction to a message, stored by the export alongside
// the message it reacted to.
type Reaction struct {
	Emoji          string
	Timestamp      int64 // when the reaction was made
	TargetTimeSent int64 // sent time of the reacted-to message
	FromSlug       string
}

// Quote is a reply's reference to the message it replies to.
type Quote struct {
	ID   int64 // timestamp of the original quoted message
	Text string
}

package importer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Napageneral/sigmd/internal/directory"
	"github.com/Napageneral/sigmd/internal/fieldmap"
	"github.com/Napageneral/sigmd/internal/logging"
	"github.com/Napageneral/sigmd/internal/model"
)

// MessagesFilename is the messages export inside the source folder.
const MessagesFilename = "messages.csv"

// Recognized columns of messages.csv. sourceServiceId exists at the top level
// only in some schema versions; otherwise it is read from the embedded json.
const (
	msgRowID           = "rowid"
	msgID              = "id"
	msgJSON            = "json"
	msgSentAt          = "sent_at"
	msgConversationID  = "conversationId"
	msgSource          = "source"
	msgHasAttachments  = "hasAttachments"
	msgType            = "type"
	msgBody            = "body"
	msgSourceServiceID = "sourceServiceId"
)

var messageFields = []string{
	msgRowID, msgID, msgJSON, msgSentAt, msgConversationID,
	msgSource, msgHasAttachments, msgType, msgBody, msgSourceServiceID,
}

// Only these row types carry person-to-person content. Everything else
// (friend requests, timer changes, call history, ...) is discarded outright.
const (
	typeIncoming = "incoming"
	typeOutgoing = "outgoing"
)

// messageJSON is the embedded json column of a message row. Every field is
// optional; absence never aborts the row.
type messageJSON struct {
	Timestamp       int64            `json:"timestamp"`
	Attachments     []attachmentJSON `json:"attachments"`
	ID              string           `json:"id"`
	ConversationID  string           `json:"conversationId"`
	Source          string           `json:"source"`
	Reactions       []reactionJSON   `json:"reactions"`
	SourceServiceID string           `json:"sourceServiceId"`
	Quote           *quoteJSON       `json:"quote"`
}

type reactionJSON struct {
	Emoji           string `json:"emoji"`
	FromID          string `json:"fromId"`
	TargetTimestamp int64  `json:"targetTimestamp"`
	Timestamp       int64  `json:"timestamp"`
}

type attachmentJSON struct {
	ContentType string `json:"contentType"`
	FileName    string `json:"fileName"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

type quoteJSON struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// MessageStats summarizes one messages import pass. Dropped rows still count
// as processed so the totals reconcile against the export.
type MessageStats struct {
	Rows            int `json:"rows"`
	Eligible        int `json:"eligible"`
	Retained        int `json:"retained"`
	DroppedNoSender int `json:"dropped_no_sender"`
	DroppedEmpty    int `json:"dropped_empty"`
	Reactions       int `json:"reactions"`
	Attachments     int `json:"attachments"`
}

// MessageImporter normalizes message rows into model.Messages, resolving
// sender and recipient against the directory the conversation pass populated.
type MessageImporter struct {
	Dir *directory.Directory
	Me  *model.Person
	Log logging.Logger
}

// ImportFile reads messages.csv from folder. A missing or unreadable file is
// fatal to this stage only; bad rows are logged and skipped.
func (mi *MessageImporter) ImportFile(folder string) ([]*model.Message, MessageStats, error) {
	var stats MessageStats
	var messages []*model.Message

	err := forEachRow(folder, MessagesFilename, messageFields, mi.Log, func(fm *fieldmap.Map, row []string) {
		stats.Rows++
		if m := mi.normalizeRow(fm, row, &stats); m != nil {
			messages = append(messages, m)
			stats.Retained++
		}
	})
	return messages, stats, err
}

// normalizeRow turns one CSV row into a Message, or nil when the row is not
// an eligible type, its sender cannot be resolved, or it carries neither body
// nor attachments.
func (mi *MessageImporter) normalizeRow(fm *fieldmap.Map, row []string, stats *MessageStats) *model.Message {
	typ := fm.Value(row, msgType)
	if typ != typeIncoming && typ != typeOutgoing {
		return nil
	}
	stats.Eligible++

	m := &model.Message{
		ID:   fm.Value(row, msgID),
		Body: fm.Value(row, msgBody),
	}

	var mj messageJSON
	if raw := fm.Value(row, msgJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mj); err != nil {
			mi.Log.Warn("message json did not parse", "message_id", m.ID, "error", err)
		}
	}

	serviceID := fm.Value(row, msgSourceServiceID)
	if serviceID == "" {
		serviceID = mj.SourceServiceID
	}

	conversationID := fm.Value(row, msgConversationID)
	m.GroupSlug = mi.Dir.GroupSlugByConversationID(conversationID)

	// Recipient: incoming messages are addressed to me. For outgoing direct
	// messages the conversation id names the other party; for group-like ids
	// a failed lookup is expected and must stay quiet.
	var to *model.Person
	if typ == typeIncoming {
		to = mi.Me
	} else if m.GroupSlug == "" {
		to = mi.Dir.FindByConversationID(conversationID)
	}
	if to != nil && to.Slug != "" {
		m.ToSlugs = append(m.ToSlugs, to.Slug)
	}

	// Sender: outgoing messages are from me. Incoming senders resolve by
	// service id, the only key the export carries reliably for group
	// messages; the row's source phone field is not trustworthy there.
	var from *model.Person
	if typ == typeOutgoing {
		from = mi.Me
	} else {
		from = mi.Dir.FindByServiceID(serviceID)
	}

	mi.parseReactions(mj.Reactions, m, stats)
	mi.parseAttachments(mj.Attachments, m, stats)
	if mj.Quote != nil && (mj.Quote.ID != 0 || mj.Quote.Text != "") {
		m.Quote = &model.Quote{ID: mj.Quote.ID, Text: mj.Quote.Text}
	}

	if from == nil || from.Slug == "" {
		stats.DroppedNoSender++
		mi.Log.Warn("message dropped: sender unresolved",
			"message_id", m.ID, "service_id", serviceID, "type", typ)
		return nil
	}
	m.FromSlug = from.Slug

	mi.parseTime(fm, row, m)

	if m.Body == "" && len(m.Attachments) == 0 {
		stats.DroppedEmpty++
		return nil
	}
	return m
}

// parseReactions resolves each reactor by conversation id. Reactions whose
// reactor is unknown are dropped, not retried.
func (mi *MessageImporter) parseReactions(reactions []reactionJSON, m *model.Message, stats *MessageStats) {
	for _, r := range reactions {
		reactor := mi.Dir.FindByConversationID(r.FromID)
		if reactor == nil || reactor.Slug == "" {
			mi.Log.Debug("reaction dropped: reactor unresolved",
				"message_id", m.ID, "from_id", r.FromID)
			continue
		}
		m.Reactions = append(m.Reactions, model.Reaction{
			Emoji:          r.Emoji,
			Timestamp:      r.Timestamp,
			TargetTimeSent: r.TargetTimestamp,
			FromSlug:       reactor.Slug,
		})
		stats.Reactions++
	}
}

// parseAttachments keeps an attachment only when both a storage id and a
// content type could be extracted.
func (mi *MessageImporter) parseAttachments(attachments []attachmentJSON, m *model.Message, stats *MessageStats) {
	for _, a := range attachments {
		id := attachmentStorageID(a.Path)
		if id == "" || a.ContentType == "" {
			mi.Log.Debug("attachment dropped: no storage id or content type",
				"message_id", m.ID, "path", a.Path)
			continue
		}
		m.Attachments = append(m.Attachments, model.Attachment{
			ID:       id,
			Type:     a.ContentType,
			FileName: a.FileName,
			Size:     a.Size,
			Width:    a.Width,
			Height:   a.Height,
		})
		stats.Attachments++
	}
}

// parseTime converts the sent_at epoch-milliseconds column to epoch seconds
// and the local calendar form. An unparseable timestamp leaves the zero time
// rather than dropping the row.
func (mi *MessageImporter) parseTime(fm *fieldmap.Map, row []string, m *model.Message) {
	raw := fm.Value(row, msgSentAt)
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		mi.Log.Warn("message sent_at did not parse", "message_id", m.ID, "sent_at", raw)
		return
	}
	sec := ms / 1000
	m.Timestamp = sec
	m.Time = time.Unix(sec, 0)
}

// attachmentStorageID extracts the trailing segment of a backslash-separated
// storage path. The storage id is collision-safe where the original file name
// is not. A path without a backslash is returned unchanged.
func attachmentStorageID(path string) string {
	if i := strings.LastIndex(path, `\`); i != -1 {
		return path[i+1:]
	}
	return path
}

package importer

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/Napageneral/sigmd/internal/fieldmap"
	"github.com/Napageneral/sigmd/internal/logging"
	"github.com/Napageneral/sigmd/internal/model"
)

// AttachmentsFilename is the attachment metadata export inside the source
// folder. The actual attachment bytes live encrypted on disk elsewhere; this
// file only carries metadata.
const AttachmentsFilename = "message_attachments.csv"

// Recognized columns of message_attachments.csv. The export has dozens of
// columns; the rest are ignored.
const (
	attMessageID      = "messageId"
	attConversationID = "conversationId"
	attContentType    = "contentType"
	attSize           = "size"
	attHeight         = "height"
	attWidth          = "width"
)

var attachmentFields = []string{
	attMessageID, attConversationID, attContentType,
	attSize, attHeight, attWidth,
}

// AttachmentStats summarizes one attachment import pass.
type AttachmentStats struct {
	Rows      int `json:"rows"`
	Attached  int `json:"attached"`
	NoMessage int `json:"no_message"`
	Skipped   int `json:"skipped"`
}

// AttachmentImporter joins the secondary attachment export onto already
// loaded messages by exact message id.
//
// Unlike the embedded-json path this file carries no storage path or original
// file name, so records get a synthesized placeholder id and filename. To
// avoid doubling up, messages that already received attachments from their
// embedded json are left alone.
type AttachmentImporter struct {
	Log logging.Logger
}

// ImportFile reads message_attachments.csv from folder and attaches metadata
// to messages. A missing or unreadable file is fatal to this stage only; bad
// rows are logged and skipped.
func (ai *AttachmentImporter) ImportFile(folder string, messages []*model.Message) (AttachmentStats, error) {
	var stats AttachmentStats

	// Messages whose attachments came from the embedded json keep those;
	// the json-derived records carry real storage ids, these do not.
	fromJSON := make(map[string]bool, len(messages))
	for _, m := range messages {
		if len(m.Attachments) > 0 {
			fromJSON[m.ID] = true
		}
	}

	err := forEachRow(folder, AttachmentsFilename, attachmentFields, ai.Log, func(fm *fieldmap.Map, row []string) {
		stats.Rows++
		ai.attachRow(fm, row, messages, fromJSON, &stats)
	})
	return stats, err
}

func (ai *AttachmentImporter) attachRow(fm *fieldmap.Map, row []string, messages []*model.Message, fromJSON map[string]bool, stats *AttachmentStats) {
	messageID := fm.Value(row, attMessageID)

	var msg *model.Message
	for _, m := range messages {
		if m.ID == messageID {
			msg = m
			break
		}
	}
	if msg == nil {
		stats.NoMessage++
		ai.Log.Debug("attachment row has no matching message", "message_id", messageID)
		return
	}
	if fromJSON[messageID] {
		stats.Skipped++
		ai.Log.Debug("attachment row skipped: message already has json-derived attachments",
			"message_id", messageID)
		return
	}

	// Numeric columns may arrive as floating-point strings ("123.0").
	size, err := looseInt(fm.Value(row, attSize))
	if err != nil {
		stats.Skipped++
		ai.Log.Warn("attachment size did not parse", "message_id", messageID, "error", err)
		return
	}
	height, err := looseInt(fm.Value(row, attHeight))
	if err != nil {
		stats.Skipped++
		ai.Log.Warn("attachment height did not parse", "message_id", messageID, "error", err)
		return
	}
	width, err := looseInt(fm.Value(row, attWidth))
	if err != nil {
		stats.Skipped++
		ai.Log.Warn("attachment width did not parse", "message_id", messageID, "error", err)
		return
	}

	msg.Attachments = append(msg.Attachments, model.Attachment{
		// This export cannot yield a real storage id or original name.
		ID:       uuid.NewString(),
		FileName: "unknown",
		Type:     fm.Value(row, attContentType),
		Size:     size,
		Width:    int(width),
		Height:   int(height),
	})
	stats.Attached++
}

// looseInt parses an integer that may be serialized as a float, truncating
// any fractional part.
func looseInt(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

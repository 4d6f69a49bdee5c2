// Package importer turns the three CSV files of a Signal desktop export into
// normalized messages with resolved identities. Conversations must be imported
// before messages: message resolution depends on the conversation pass having
// populated conversation ids and service ids in the directory.
package importer

import (
	"encoding/json"

	"github.com/Napageneral/sigmd/internal/directory"
	"github.com/Napageneral/sigmd/internal/fieldmap"
	"github.com/Napageneral/sigmd/internal/logging"
	"github.com/Napageneral/sigmd/internal/model"
)

// ConversationsFilename is the conversations export inside the source folder.
const ConversationsFilename = "conversations.csv"

// Recognized columns of conversations.csv, 2024 schema.
const (
	convID              = "id"
	convJSON            = "json"
	convActiveAt        = "active_at"
	convType            = "type"
	convMembers         = "members"
	convName            = "name"
	convProfileName     = "profileName"
	convProfileFamily   = "profileFamilyName"
	convProfileFullName = "profileFullName"
	convE164            = "e164"
	convServiceID       = "serviceId"
	convGroupID         = "groupId"
	convProfileFetched  = "profileLastFetchedAt"
)

var conversationFields = []string{
	convID, convJSON, convActiveAt, convType, convMembers,
	convName, convProfileName, convProfileFamily, convProfileFullName,
	convE164, convServiceID, convGroupID, convProfileFetched,
}

// conversationJSON is the slice of the embedded json column we care about.
// The serviceId actually used lives here, not in the top-level column.
type conversationJSON struct {
	ServiceID string `json:"serviceId"`
}

// ConversationStats summarizes one conversations import pass.
type ConversationStats struct {
	Rows     int `json:"rows"`
	Resolved int `json:"resolved"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
}

// ConversationImporter resolves each conversation row to a Person in the
// directory, creating people on the fly when enabled.
type ConversationImporter struct {
	Dir          *directory.Directory
	CreatePeople bool
	Log          logging.Logger
}

// ImportFile reads conversations.csv from folder. A missing or unreadable
// file is fatal to this stage only: the error is returned and the directory
// is left untouched. Individual bad rows are logged and skipped.
func (ci *ConversationImporter) ImportFile(folder string) (ConversationStats, error) {
	var stats ConversationStats
	err := forEachRow(folder, ConversationsFilename, conversationFields, ci.Log, func(fm *fieldmap.Map, row []string) {
		stats.Rows++
		ci.resolveRow(fm, row, &stats)
	})
	return stats, err
}

// resolveRow implements the resolution order: phone, then full name, then
// on-the-fly creation. Whatever the outcome, a resolved person gets its
// conversation id, full name and service id refreshed from this row.
func (ci *ConversationImporter) resolveRow(fm *fieldmap.Map, row []string, stats *ConversationStats) {
	e164 := fm.Value(row, convE164)
	id := fm.Value(row, convID)
	profileName := fm.Value(row, convProfileName)
	fullName := fm.Value(row, convProfileFullName)

	p := ci.Dir.FindByPhone(e164)
	if p == nil && fullName != "" {
		p = ci.Dir.FindByFullName(fullName)
	}
	created := false
	if p == nil && ci.CreatePeople {
		if p = ci.createPerson(e164, profileName, fullName); p != nil {
			stats.Created++
			created = true
		}
	}

	if p == nil {
		stats.Skipped++
		if slug := ci.Dir.GroupSlugByConversationID(id); slug != "" {
			ci.Log.Debug("conversation is a known group", "conversation_id", id, "group", slug)
			return
		}
		ci.Log.Warn("could not resolve conversation to a person",
			"conversation_id", id, "phone", e164, "full_name", fullName)
		return
	}

	p.ConversationID = id
	p.FullName = fullName

	// Groups and some contacts carry no serviceId in their json; that is
	// expected and not an error.
	var cj conversationJSON
	if raw := fm.Value(row, convJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cj); err != nil {
			ci.Log.Warn("conversation json did not parse", "conversation_id", id, "error", err)
		}
	}
	if cj.ServiceID != "" {
		p.ServiceID = cj.ServiceID
	}

	if !created {
		stats.Resolved++
	}
}

// createPerson synthesizes a Person from the profile name fields. The full
// profile name is preferred as slug source, falling back to the short profile
// name. Rows with neither produce no person.
func (ci *ConversationImporter) createPerson(e164, profileName, fullName string) *model.Person {
	source := fullName
	if source == "" {
		source = profileName
	}

	slug := directory.Slug(source)
	if slug == "" {
		ci.Log.Error("cannot create person: no usable name",
			"phone", e164, "full_name", fullName)
		return nil
	}

	first := directory.FirstName(source)
	last := directory.LastName(source)
	full := first
	if last != "" {
		full = first + " " + last
	}

	p := &model.Person{
		Slug:      slug,
		FirstName: first,
		LastName:  last,
		FullName:  full,
	}
	if e164 != "" {
		p.Mobile = e164
	}

	ci.Dir.Register(p)
	ci.Log.Info("created person on the fly", "slug", slug, "phone", e164)
	return p
}

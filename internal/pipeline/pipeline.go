// Package pipeline orchestrates the import stages in dependency order:
// conversations populate the identity directory, messages resolve against it,
// and the secondary attachment export joins onto the loaded messages. The
// result is handed to a Renderer collaborator.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/Napageneral/sigmd/internal/config"
	"github.com/Napageneral/sigmd/internal/directory"
	"github.com/Napageneral/sigmd/internal/importer"
	"github.com/Napageneral/sigmd/internal/logging"
	"github.com/Napageneral/sigmd/internal/model"
)

// Context carries the shared state of one pipeline run: settings, the
// identity directory, the self person and the run's logger. It is constructed
// once at pipeline start and passed into every stage; nothing here is global.
type Context struct {
	Config *config.Config
	Dir    *directory.Directory
	Me     *model.Person
	Log    logging.Logger
	RunID  string
}

// NewContext builds the run context from the settings: the directory is
// seeded from the roster and "me" is resolved in it.
func NewContext(cfg *config.Config, log logging.Logger) (*Context, error) {
	dir := cfg.BuildDirectory()
	me, err := cfg.MePerson(dir)
	if err != nil {
		return nil, err
	}
	return &Context{
		Config: cfg,
		Dir:    dir,
		Me:     me,
		Log:    log,
		RunID:  uuid.NewString(),
	}, nil
}

// Renderer is the external collaborator that turns the normalized messages
// into whatever the user reads. The reactions list is part of the boundary
// contract but currently always empty: reactions are carried on the messages
// themselves.
type Renderer interface {
	Render(messages []*model.Message, reactions []model.Reaction, ctx *Context) error
}

// Stats aggregates the per-stage statistics of one run.
type Stats struct {
	Conversations importer.ConversationStats `json:"conversations"`
	Messages      importer.MessageStats      `json:"messages"`
	Attachments   importer.AttachmentStats   `json:"attachments"`
}

// Run executes the import stages in order and returns the retained messages.
// A stage whose source file cannot be opened contributes nothing but never
// stops the stages after it; the failure is logged.
func Run(ctx *Context) ([]*model.Message, Stats) {
	var stats Stats
	folder := ctx.Config.SourceFolder

	ci := &importer.ConversationImporter{
		Dir:          ctx.Dir,
		CreatePeople: ctx.Config.CreatePeople,
		Log:          ctx.Log,
	}
	cs, err := ci.ImportFile(folder)
	if err != nil {
		ctx.Log.Error("conversations import failed", "error", err)
	}
	stats.Conversations = cs

	mi := &importer.MessageImporter{Dir: ctx.Dir, Me: ctx.Me, Log: ctx.Log}
	messages, ms, err := mi.ImportFile(folder)
	if err != nil {
		ctx.Log.Error("messages import failed", "error", err)
	}
	stats.Messages = ms

	// Older exports have no message_attachments.csv; its absence only costs
	// the secondary attachment metadata.
	ai := &importer.AttachmentImporter{Log: ctx.Log}
	as, err := ai.ImportFile(folder, messages)
	if err != nil {
		ctx.Log.Error("attachments import failed", "error", err)
	}
	stats.Attachments = as

	ctx.Log.Info("pipeline finished",
		"people", len(ctx.Dir.People()),
		"messages_retained", ms.Retained,
		"reactions", ms.Reactions,
		"attachments", ms.Attachments+as.Attached)

	return messages, stats
}

// Export runs the pipeline and hands the result to the renderer.
func Export(ctx *Context, r Renderer) ([]*model.Message, Stats, error) {
	messages, stats := Run(ctx)
	if err := r.Render(messages, nil, ctx); err != nil {
		return messages, stats, err
	}
	return messages, stats, nil
}

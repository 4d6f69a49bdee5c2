// Package render writes the normalized messages as per-person markdown logs:
// one folder per person or group, one file per day.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Napageneral/sigmd/internal/model"
	"github.com/Napageneral/sigmd/internal/pipeline"
)

// Markdown is the default Renderer collaborator.
type Markdown struct {
	OutputFolder string
}

// logKey decides which folder a message belongs to: the group slug for group
// messages, otherwise the conversation counterpart (the sender for incoming,
// the recipient for outgoing).
func logKey(m *model.Message, meSlug string) string {
	if m.GroupSlug != "" {
		return m.GroupSlug
	}
	if m.FromSlug != meSlug {
		return m.FromSlug
	}
	if len(m.ToSlugs) > 0 {
		return m.ToSlugs[0]
	}
	return ""
}

// Render groups messages per person/group and per day and writes
// <output>/<slug>/<YYYY-MM-DD>.md. Messages that cannot be filed anywhere
// (outgoing with no resolved recipient) are skipped with a log line.
func (r *Markdown) Render(messages []*model.Message, _ []model.Reaction, ctx *pipeline.Context) error {
	type fileKey struct {
		slug string
		day  string
	}
	files := make(map[fileKey]*strings.Builder)
	var order []fileKey

	sorted := make([]*model.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	for _, m := range sorted {
		slug := logKey(m, ctx.Me.Slug)
		if slug == "" {
			ctx.Log.Debug("message has no log destination", "message_id", m.ID)
			continue
		}

		key := fileKey{slug: slug, day: m.Time.Format("2006-01-02")}
		b, ok := files[key]
		if !ok {
			b = &strings.Builder{}
			fmt.Fprintf(b, "# %s — %s\n", displayName(ctx, slug), key.day)
			files[key] = b
			order = append(order, key)
		}
		r.writeMessage(b, m, ctx)
	}

	for _, key := range order {
		folder := filepath.Join(r.OutputFolder, key.slug)
		if err := os.MkdirAll(folder, 0755); err != nil {
			return fmt.Errorf("failed to create output folder: %w", err)
		}
		path := filepath.Join(folder, key.day+".md")
		if err := os.WriteFile(path, []byte(files[key].String()), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	ctx.Log.Info("rendered markdown", "files", len(order), "folder", r.OutputFolder)
	return nil
}

func (r *Markdown) writeMessage(b *strings.Builder, m *model.Message, ctx *pipeline.Context) {
	fmt.Fprintf(b, "\n**%s %s:**", m.Time.Format("15:04"), displayName(ctx, m.FromSlug))
	if m.Body != "" {
		fmt.Fprintf(b, " %s", m.Body)
	}
	b.WriteString("\n")

	if m.Quote != nil && m.Quote.Text != "" {
		fmt.Fprintf(b, "> %s\n", m.Quote.Text)
	}
	for _, a := range m.Attachments {
		name := a.FileName
		if name == "" {
			name = a.ID
		}
		fmt.Fprintf(b, "- 📎 %s (%s, %d bytes)\n", name, a.Type, a.Size)
	}
	for _, re := range m.Reactions {
		fmt.Fprintf(b, "- %s from %s\n", re.Emoji, displayName(ctx, re.FromSlug))
	}
}

// displayName prefers the full name from the directory, falling back to the
// slug for people the roster never learned a name for.
func displayName(ctx *pipeline.Context, slug string) string {
	if p := ctx.Dir.FindBySlug(slug); p != nil && p.FullName != "" {
		return p.FullName
	}
	for _, g := range ctx.Dir.Groups() {
		if g.Slug == slug && g.Name != "" {
			return g.Name
		}
	}
	return slug
}

package importer

import (
	"path/filepath"
	"testing"

	"github.com/Napageneral/sigmd/internal/directory"
	"github.com/Napageneral/sigmd/internal/logging"
	"github.com/Napageneral/sigmd/internal/model"
)

var messagesHeader = []string{
	"rowid", "id", "json", "sent_at", "conversationId", "source",
	"hasAttachments", "type", "body",
}

func messageRow(id, jsonBlob, sentAt, conversationID, source, typ, body string) []string {
	return []string{"1", id, jsonBlob, sentAt, conversationID, source, "0", typ, body}
}

// testDirectory builds the directory state the conversation pass would have
// produced: me plus one contact, plus one group.
func testDirectory() (*directory.Directory, *model.Person) {
	dir := directory.New()
	me := &model.Person{Slug: "bob_smith", FullName: "Bob Smith"}
	ana := &model.Person{
		Slug:           "ana",
		FullName:       "Ana Ruiz",
		ConversationID: "conv-ana",
		ServiceID:      "svc-ana",
	}
	dir.Register(me)
	dir.Register(ana)
	dir.AddGroup(model.Group{Slug: "the_gang", ConversationID: "conv-g"})
	return dir, me
}

func importMessages(t *testing.T, dir *directory.Directory, me *model.Person, rows [][]string) ([]*model.Message, MessageStats) {
	t.Helper()
	folder := t.TempDir()
	writeCSVFile(t, filepath.Join(folder, MessagesFilename), append([][]string{messagesHeader}, rows...))
	mi := &MessageImporter{Dir: dir, Me: me, Log: logging.NewNopLogger()}
	msgs, stats, err := mi.ImportFile(folder)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	return msgs, stats
}

func TestIncomingMessageResolvesSenderByServiceID(t *testing.T) {
	dir, me := testDirectory()
	msgs, stats := importMessages(t, dir, me, [][]string{
		messageRow("m1", `{"sourceServiceId":"svc-ana"}`, "1703540110922", "conv-ana", "+15145550000", "incoming", "hello"),
	})

	if len(msgs) != 1 {
		t.Fatalf("retained %d messages, want 1 (stats=%+v)", len(msgs), stats)
	}
	m := msgs[0]
	if m.FromSlug != "ana" {
		t.Errorf("FromSlug=%q want ana", m.FromSlug)
	}
	if len(m.ToSlugs) != 1 || m.ToSlugs[0] != "bob_smith" {
		t.Errorf("ToSlugs=%v want [bob_smith]", m.ToSlugs)
	}
	if m.Timestamp != 1703540110 {
		t.Errorf("Timestamp=%d want 1703540110", m.Timestamp)
	}
	if m.Time.Unix() != 1703540110 {
		t.Errorf("Time=%v", m.Time)
	}
	if m.GroupSlug != "" {
		t.Errorf("GroupSlug=%q want empty", m.GroupSlug)
	}
}

func TestOutgoingMessageRecipientByConversationID(t *testing.T) {
	dir, me := testDirectory()
	msgs, _ := importMessages(t, dir, me, [][]string{
		messageRow("m2", `{}`, "1703540110922", "conv-ana", "", "outgoing", "hi ana"),
	})

	if len(msgs) != 1 {
		t.Fatalf("retained %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.FromSlug != "bob_smith" {
		t.Errorf("FromSlug=%q want bob_smith", m.FromSlug)
	}
	if len(m.ToSlugs) != 1 || m.ToSlugs[0] != "ana" {
		t.Errorf("ToSlugs=%v want [ana]", m.ToSlugs)
	}
}

func TestGroupMessageSemantics(t *testing.T) {
	dir, me := testDirectory()
	msgs, _ := importMessages(t, dir, me, [][]string{
		// incoming group message: sender only via service id, recipient me
		messageRow("m3", `{"sourceServiceId":"svc-ana"}`, "1703540110922", "conv-g", "", "incoming", "group hello"),
		// outgoing group message: no recipient lookup for the group id
		messageRow("m4", `{}`, "1703540110922", "conv-g", "", "outgoing", "group reply"),
	})

	if len(msgs) != 2 {
		t.Fatalf("retained %d messages, want 2", len(msgs))
	}
	in, out := msgs[0], msgs[1]
	if in.GroupSlug != "the_gang" || out.GroupSlug != "the_gang" {
		t.Errorf("GroupSlug=%q/%q want the_gang", in.GroupSlug, out.GroupSlug)
	}
	if in.FromSlug != "ana" {
		t.Errorf("incoming FromSlug=%q want ana", in.FromSlug)
	}
	if len(out.ToSlugs) != 0 {
		t.Errorf("outgoing group ToSlugs=%v want empty", out.ToSlugs)
	}
}

func TestNonEligibleTypesAreDiscarded(t *testing.T) {
	dir, me := testDirectory()
	msgs, stats := importMessages(t, dir, me, [][]string{
		messageRow("m5", `{}`, "1703540110922", "conv-ana", "", "friend-request", "add me"),
		messageRow("m6", `{}`, "1703540110922", "conv-ana", "", "timer-notification", ""),
	})

	if len(msgs) != 0 {
		t.Fatalf("retained %d messages, want 0", len(msgs))
	}
	if stats.Rows != 2 || stats.Eligible != 0 {
		t.Errorf("stats=%+v", stats)
	}
}

func TestAttachmentOnlyMessageIsRetained(t *testing.T) {
	dir, me := testDirectory()
	blob := `{"sourceServiceId":"svc-ana","attachments":[{"contentType":"image/jpeg","fileName":"cat.jpg","path":"97\\977e7e5f43d0c935ad785b290023d1455631351772b2f8c53e5ced4a5f8ffb81","size":12345,"width":640,"height":480}]}`
	msgs, stats := importMessages(t, dir, me, [][]string{
		messageRow("m7", blob, "1703540110922", "conv-ana", "", "incoming", ""),
	})

	if len(msgs) != 1 {
		t.Fatalf("retained %d messages, want 1 (stats=%+v)", len(msgs), stats)
	}
	m := msgs[0]
	if len(m.ToSlugs) != 1 || m.ToSlugs[0] != "bob_smith" {
		t.Errorf("ToSlugs=%v want [bob_smith]", m.ToSlugs)
	}
	if len(m.Attachments) != 1 {
		t.Fatalf("attachments=%d want 1", len(m.Attachments))
	}
	a := m.Attachments[0]
	if a.ID != "977e7e5f43d0c935ad785b290023d1455631351772b2f8c53e5ced4a5f8ffb81" {
		t.Errorf("attachment ID=%q", a.ID)
	}
	if a.FileName != "cat.jpg" || a.Type != "image/jpeg" || a.Size != 12345 || a.Width != 640 || a.Height != 480 {
		t.Errorf("attachment=%+v", a)
	}
}

func TestEmptyMessageWithoutAttachmentsIsDropped(t *testing.T) {
	dir, me := testDirectory()
	msgs, stats := importMessages(t, dir, me, [][]string{
		messageRow("m8", `{"sourceServiceId":"svc-ana"}`, "1703540110922", "conv-ana", "", "incoming", ""),
	})
	if len(msgs) != 0 || stats.DroppedEmpty != 1 {
		t.Errorf("msgs=%d stats=%+v", len(msgs), stats)
	}
}

func TestUnresolvedSenderDropsMessageButCountsIt(t *testing.T) {
	dir, me := testDirectory()
	msgs, stats := importMessages(t, dir, me, [][]string{
		messageRow("m9", `{"sourceServiceId":"svc-stranger"}`, "1703540110922", "conv-ana", "", "incoming", "who dis"),
	})
	if len(msgs) != 0 {
		t.Fatalf("retained %d messages, want 0", len(msgs))
	}
	if stats.Eligible != 1 || stats.DroppedNoSender != 1 {
		t.Errorf("stats=%+v", stats)
	}
}

func TestReactionsResolveReactorByConversationID(t *testing.T) {
	dir, me := testDirectory()
	blob := `{"sourceServiceId":"svc-ana","reactions":[` +
		`{"emoji":"😮","fromId":"conv-ana","targetTimestamp":1703540110922,"timestamp":1703543026900},` +
		`{"emoji":"🤣","fromId":"conv-unknown","targetTimestamp":1,"timestamp":2}]}`
	msgs, stats := importMessages(t, dir, me, [][]string{
		messageRow("m10", blob, "1703540110922", "conv-ana", "", "incoming", "funny"),
	})

	if len(msgs) != 1 {
		t.Fatalf("retained %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	// the unresolvable reactor is dropped without error
	if len(m.Reactions) != 1 || stats.Reactions != 1 {
		t.Fatalf("reactions=%v stats=%+v", m.Reactions, stats)
	}
	r := m.Reactions[0]
	if r.FromSlug != "ana" || r.Emoji != "😮" {
		t.Errorf("reaction=%+v", r)
	}
	if r.TargetTimeSent != 1703540110922 || r.Timestamp != 1703543026900 {
		t.Errorf("reaction times=%+v", r)
	}
}

func TestQuoteIsParsed(t *testing.T) {
	dir, me := testDirectory()
	blob := `{"sourceServiceId":"svc-ana","quote":{"id":1661091484671,"text":"who is toby"}}`
	msgs, _ := importMessages(t, dir, me, [][]string{
		messageRow("m11", blob, "1703540110922", "conv-ana", "", "incoming", "a reply"),
	})

	if len(msgs) != 1 {
		t.Fatalf("retained %d messages, want 1", len(msgs))
	}
	q := msgs[0].Quote
	if q == nil || q.ID != 1661091484671 || q.Text != "who is toby" {
		t.Errorf("quote=%+v", q)
	}
}

func TestTopLevelSourceServiceIDColumnWins(t *testing.T) {
	dir, me := testDirectory()
	header := append(append([]string{}, messagesHeader...), "sourceServiceId")
	row := append(messageRow("m12", `{}`, "1703540110922", "conv-ana", "", "incoming", "newer schema"), "svc-ana")

	folder := t.TempDir()
	writeCSVFile(t, filepath.Join(folder, MessagesFilename), [][]string{header, row})
	mi := &MessageImporter{Dir: dir, Me: me, Log: logging.NewNopLogger()}
	msgs, _, err := mi.ImportFile(folder)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if len(msgs) != 1 || msgs[0].FromSlug != "ana" {
		t.Fatalf("msgs=%v", msgs)
	}
}

func TestMalformedMessageJSONKeepsRow(t *testing.T) {
	dir, me := testDirectory()
	header := append(append([]string{}, messagesHeader...), "sourceServiceId")
	row := append(messageRow("m13", `{broken`, "1703540110922", "conv-ana", "", "incoming", "still here"), "svc-ana")

	folder := t.TempDir()
	writeCSVFile(t, filepath.Join(folder, MessagesFilename), [][]string{header, row})
	mi := &MessageImporter{Dir: dir, Me: me, Log: logging.NewNopLogger()}
	msgs, _, err := mi.ImportFile(folder)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "still here" {
		t.Fatalf("msgs=%v", msgs)
	}
}

func TestAttachmentStorageID(t *testing.T) {
	cases := map[string]string{
		`97\977e7e5f43d0c935ad785b290023d1455631351772b2f8c53e5ced4a5f8ffb81`: "977e7e5f43d0c935ad785b290023d1455631351772b2f8c53e5ced4a5f8ffb81",
		`a\b\c`:       "c",
		"no-backslash": "no-backslash",
		"":             "",
	}
	for in, want := range cases {
		if got := attachmentStorageID(in); got != want {
			t.Errorf("attachmentStorageID(%q)=%q want %q", in, got, want)
		}
	}
}

func TestMessagesMissingFileIsStageError(t *testing.T) {
	dir, me := testDirectory()
	mi := &MessageImporter{Dir: dir, Me: me, Log: logging.NewNopLogger()}
	if _, _, err := mi.ImportFile(t.TempDir()); err == nil {
		t.Fatal("expected error for missing messages.csv")
	}
}

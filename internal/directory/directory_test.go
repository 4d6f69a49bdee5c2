package directory

import (
	"testing"

	"github.com/Napageneral/sigmd/internal/model"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Bob Smith":     "bob_smith",
		"MarcAndré":     "marc_andré",
		"Ana/Maria Ruiz": "ana_maria_ruiz",
		"bob":           "bob",
		"  Bob  Smith ": "bob_smith",
		"":              "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFirstName(t *testing.T) {
	cases := map[string]string{
		"marc-andre dupont": "Marc-Andre",
		"Bob Smith":         "Bob",
		"bob":               "Bob",
		"":                  "",
	}
	for in, want := range cases {
		if got := FirstName(in); got != want {
			t.Errorf("FirstName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLastName(t *testing.T) {
	cases := map[string]string{
		"Bob Smith":        "Smith",
		"Bob":              "",
		"marc-andre dupont": "Dupont",
		"":                 "",
	}
	for in, want := range cases {
		if got := LastName(in); got != want {
			t.Errorf("LastName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFindByPhoneMatchesTrailingDigits(t *testing.T) {
	d := New()
	bob := &model.Person{Slug: "bob_smith", Mobile: "+12894005633"}
	d.Register(bob)

	for _, phone := range []string{"+12894005633", "2894005633", "(289) 400-5633"} {
		if got := d.FindByPhone(phone); got != bob {
			t.Errorf("FindByPhone(%q)=%v want bob_smith", phone, got)
		}
	}
	if got := d.FindByPhone("2894005634"); got != nil {
		t.Errorf("FindByPhone(miss)=%v want nil", got)
	}
	if got := d.FindByPhone(""); got != nil {
		t.Errorf("FindByPhone(empty)=%v want nil", got)
	}
}

func TestFindByPhoneRegisteredWithoutCountryCode(t *testing.T) {
	d := New()
	bob := &model.Person{Slug: "bob_smith", Mobile: "2894005633"}
	d.Register(bob)

	if got := d.FindByPhone("+12894005633"); got != bob {
		t.Errorf("FindByPhone(international)=%v want bob_smith", got)
	}
}

func TestLookups(t *testing.T) {
	d := New()
	bob := &model.Person{
		Slug:           "bob_smith",
		FullName:       "Bob Smith",
		ConversationID: "conv-1",
		ServiceID:      "svc-1",
	}
	d.Register(bob)
	d.AddGroup(model.Group{Slug: "the_gang", ConversationID: "conv-g"})

	if d.FindByFullName("Bob Smith") != bob {
		t.Error("FindByFullName failed")
	}
	if d.FindByFullName("Bob") != nil {
		t.Error("FindByFullName should be an exact match")
	}
	if d.FindByConversationID("conv-1") != bob {
		t.Error("FindByConversationID failed")
	}
	if d.FindByServiceID("svc-1") != bob {
		t.Error("FindByServiceID failed")
	}
	if d.FindBySlug("bob_smith") != bob {
		t.Error("FindBySlug failed")
	}
	if got := d.GroupSlugByConversationID("conv-g"); got != "the_gang" {
		t.Errorf("GroupSlugByConversationID=%q want the_gang", got)
	}
	if got := d.GroupSlugByConversationID("conv-1"); got != "" {
		t.Errorf("GroupSlugByConversationID(person id)=%q want empty", got)
	}
}

func TestRegisteredPersonIsMutatedInPlace(t *testing.T) {
	d := New()
	d.Register(&model.Person{Slug: "bob_smith", Mobile: "2894005633"})

	p := d.FindByPhone("2894005633")
	p.ConversationID = "conv-9"

	if d.FindByConversationID("conv-9") == nil {
		t.Error("mutation through lookup result should be visible in the directory")
	}
}

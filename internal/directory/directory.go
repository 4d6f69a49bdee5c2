// Package directory is the central registry of the people and groups known to
// a pipeline run. It is populated once from the settings roster, grown during
// conversation resolution, and afterwards only read, so the pipeline needs no
// locking as long as that ordering holds.
package directory

import "github.com/Napageneral/sigmd/internal/model"

// phoneTail is how many trailing digits participate in phone matching.
// Collisions across differing country codes with the same tail are an
// accepted tradeoff at contact-list scale.
const phoneTail = 10

// Directory indexes Persons by phone, full name, conversation id and service
// id, and Groups by conversation id. Lookups are linear scans; the data is a
// personal contact list, thousands of entries at most.
type Directory struct {
	people []*model.Person
	groups []model.Group
}

func New() *Directory {
	return &Directory{}
}

// Register appends a person to the roster. Callers are expected to have
// checked for duplicates with the Find methods first; Register itself does
// not deduplicate.
func (d *Directory) Register(p *model.Person) {
	d.people = append(d.people, p)
}

// AddGroup makes a group discoverable by its conversation id.
func (d *Directory) AddGroup(g model.Group) {
	d.groups = append(d.groups, g)
}

// People returns the live roster. Mutating the returned persons mutates the
// directory.
func (d *Directory) People() []*model.Person {
	return d.people
}

// Groups returns the known groups.
func (d *Directory) Groups() []model.Group {
	return d.groups
}

// FindByPhone matches on the trailing digits of the phone number, see
// phoneTail. Returns nil when phone has no digits or nothing matches.
func (d *Directory) FindByPhone(phone string) *model.Person {
	tail := lastDigits(phone, phoneTail)
	if tail == "" {
		return nil
	}
	for _, p := range d.people {
		if p.Mobile == "" {
			continue
		}
		if lastDigits(p.Mobile, phoneTail) == tail {
			return p
		}
	}
	return nil
}

// FindByFullName matches on the exact full name.
func (d *Directory) FindByFullName(name string) *model.Person {
	if name == "" {
		return nil
	}
	for _, p := range d.people {
		if p.FullName == name {
			return p
		}
	}
	return nil
}

// FindByConversationID returns the person whose 1:1 thread has this id.
func (d *Directory) FindByConversationID(id string) *model.Person {
	if id == "" {
		return nil
	}
	for _, p := range d.people {
		if p.ConversationID == id {
			return p
		}
	}
	return nil
}

// FindByServiceID returns the person with this service id. The service id is
// the authoritative sender key for incoming group messages, where the export
// carries no usable phone number.
func (d *Directory) FindByServiceID(id string) *model.Person {
	if id == "" {
		return nil
	}
	for _, p := range d.people {
		if p.ServiceID == id {
			return p
		}
	}
	return nil
}

// FindBySlug returns the person with this slug.
func (d *Directory) FindBySlug(slug string) *model.Person {
	if slug == "" {
		return nil
	}
	for _, p := range d.people {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

// GroupSlugByConversationID returns the slug of the group thread with this
// conversation id, or "" if the id does not belong to a known group.
func (d *Directory) GroupSlugByConversationID(id string) string {
	if id == "" {
		return ""
	}
	for _, g := range d.groups {
		if g.ConversationID == id {
			return g.Slug
		}
	}
	return ""
}

// Package domain defines the genealogical entities, ledger records, and
// persistence contracts shared by every store backend in genealogycore.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the read model.
type EntityType string

// Supported entity type identifiers used in ledger entries and persistence tables.
const (
	// EntityPerson identifies an individual.
	EntityPerson EntityType = "person"
	// EntityPersonName identifies a name variant owned by a person.
	EntityPersonName EntityType = "person_name"
	// EntityFamily identifies a partnership with optional children.
	EntityFamily EntityType = "family"
	// EntityFamilyChild identifies a child link. Links are not independently
	// versioned; they only appear in the ledger as linked/unlinked entries.
	EntityFamilyChild EntityType = "family_child"
	// EntitySource identifies a bibliographic source.
	EntitySource EntityType = "source"
	// EntityCitation identifies a citation of a source for a fact.
	EntityCitation EntityType = "citation"
	// EntityMedia identifies a media attachment.
	EntityMedia EntityType = "media"
	// EntityEvent identifies a dated life event of a person or family.
	EntityEvent EntityType = "event"
	// EntityAttribute identifies a person attribute (occupation, religion, ...).
	EntityAttribute EntityType = "attribute"
)

// VersionedTypes lists entity types that carry their own version counter.
func VersionedTypes() []EntityType {
	return []EntityType{
		EntityPerson,
		EntityPersonName,
		EntityFamily,
		EntitySource,
		EntityCitation,
		EntityMedia,
		EntityEvent,
		EntityAttribute,
	}
}

// IsVersioned reports whether records of the type are independently versioned.
func (t EntityType) IsVersioned() bool {
	for _, kind := range VersionedTypes() {
		if kind == t {
			return true
		}
	}
	return false
}

// Base contains the bookkeeping fields shared by all versioned records.
type Base struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta returns the bookkeeping fields.
func (b Base) Meta() Base { return b }

// Entity is implemented by every independently versioned record. All
// implementations are plain value types so copies never share state.
type Entity interface {
	Meta() Base
	Kind() EntityType
	DisplayName() string
	WithMeta(Base) Entity
}

// Gender values accepted for a person.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Person represents an individual in the tree.
type Person struct {
	Base
	GivenName     string `json:"given_name"`
	Surname       string `json:"surname"`
	FullName      string `json:"full_name"`
	Gender        Gender `json:"gender" validate:"omitempty,oneof=male female unknown"`
	BirthDate     string `json:"birth_date"`
	BirthDateSort string `json:"birth_date_sort"`
	BirthPlace    string `json:"birth_place"`
	DeathDate     string `json:"death_date"`
	DeathDateSort string `json:"death_date_sort"`
	DeathPlace    string `json:"death_place"`
	Notes         string `json:"notes"`
}

func (p Person) Kind() EntityType { return EntityPerson }

// DisplayName prefers the cached full name and falls back to the ID.
func (p Person) DisplayName() string {
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	if name := joinName(p.GivenName, p.Surname); name != "" {
		return name
	}
	return p.ID
}

func (p Person) WithMeta(b Base) Entity { p.Base = b; return p }

// Normalize recomputes the cached full name and sortable dates.
func (p Person) Normalize() Person {
	p.GivenName = strings.TrimSpace(p.GivenName)
	p.Surname = strings.TrimSpace(p.Surname)
	p.FullName = joinName(p.GivenName, p.Surname)
	p.BirthDateSort = NormalizeDate(p.BirthDate)
	p.DeathDateSort = NormalizeDate(p.DeathDate)
	return p
}

// NameType classifies a name variant.
type NameType string

const (
	NameBirth   NameType = "birth"
	NameMarried NameType = "married"
	NameAlias   NameType = "aka"
	NameOther   NameType = "other"
)

// PersonName is an alternative or historical name of a person.
type PersonName struct {
	Base
	PersonID  string   `json:"person_id" validate:"required"`
	GivenName string   `json:"given_name"`
	Surname   string   `json:"surname"`
	NameType  NameType `json:"name_type" validate:"omitempty,oneof=birth married aka other"`
	Primary   bool     `json:"primary"`
}

func (n PersonName) Kind() EntityType { return EntityPersonName }

func (n PersonName) DisplayName() string {
	if name := joinName(n.GivenName, n.Surname); name != "" {
		return name
	}
	return n.ID
}

func (n PersonName) WithMeta(b Base) Entity { n.Base = b; return n }

// RelationshipType classifies a family partnership.
type RelationshipType string

const (
	RelationshipMarried   RelationshipType = "married"
	RelationshipUnmarried RelationshipType = "unmarried"
	RelationshipPartners  RelationshipType = "partners"
	RelationshipUnknown   RelationshipType = "unknown"
)

// Family groups up to two partners and their children. Partner names and the
// child count are cached projections filled in on read.
type Family struct {
	Base
	Partner1ID       string           `json:"partner1_id"`
	Partner1Name     string           `json:"partner1_name"`
	Partner2ID       string           `json:"partner2_id"`
	Partner2Name     string           `json:"partner2_name"`
	RelationshipType RelationshipType `json:"relationship_type" validate:"omitempty,oneof=married unmarried partners unknown"`
	MarriageDate     string           `json:"marriage_date"`
	MarriagePlace    string           `json:"marriage_place"`
	ChildCount       int              `json:"child_count"`
}

func (f Family) Kind() EntityType { return EntityFamily }

func (f Family) DisplayName() string {
	first, second := strings.TrimSpace(f.Partner1Name), strings.TrimSpace(f.Partner2Name)
	switch {
	case first != "" && second != "":
		return first + " & " + second
	case first != "":
		return first
	case second != "":
		return second
	}
	return f.ID
}

func (f Family) WithMeta(b Base) Entity { f.Base = b; return f }

// ChildRelationship classifies how a child belongs to a family.
type ChildRelationship string

const (
	ChildBiological ChildRelationship = "biological"
	ChildAdopted    ChildRelationship = "adopted"
	ChildFoster     ChildRelationship = "foster"
	ChildStep       ChildRelationship = "step"
	ChildUnknown    ChildRelationship = "unknown"
)

// FamilyChild links a person to a family as a child. Its lifecycle is bound to
// the family: deleting the family removes every link.
type FamilyChild struct {
	FamilyID         string            `json:"family_id" validate:"required"`
	PersonID         string            `json:"person_id" validate:"required"`
	RelationshipType ChildRelationship `json:"relationship_type" validate:"omitempty,oneof=biological adopted foster step unknown"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Key returns the composite key of the link.
func (c FamilyChild) Key() string { return LinkEntityID(c.FamilyID, c.PersonID) }

// PedigreeEdge stores a person's parents as resolved from the family they were
// linked into, so ancestor walks do not revisit family records.
type PedigreeEdge struct {
	PersonID   string `json:"person_id"`
	FamilyID   string `json:"family_id"`
	FatherID   string `json:"father_id"`
	FatherName string `json:"father_name"`
	MotherID   string `json:"mother_id"`
	MotherName string `json:"mother_name"`
}

// Source is a bibliographic record that citations point at.
type Source struct {
	Base
	SourceType string `json:"source_type"`
	Title      string `json:"title" validate:"required"`
	Author     string `json:"author"`
	Publisher  string `json:"publisher"`
	Notes      string `json:"notes"`
}

func (s Source) Kind() EntityType { return EntitySource }

func (s Source) DisplayName() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	return s.ID
}

func (s Source) WithMeta(b Base) Entity { s.Base = b; return s }

// CitationQuality grades the reliability of a citation.
type CitationQuality string

const (
	QualityPrimary      CitationQuality = "primary"
	QualitySecondary    CitationQuality = "secondary"
	QualityQuestionable CitationQuality = "questionable"
	QualityUnreliable   CitationQuality = "unreliable"
)

// Citation ties a source to a fact identified by (FactType, FactOwnerID).
// Several citations may corroborate the same fact.
type Citation struct {
	Base
	SourceID      string          `json:"source_id" validate:"required"`
	FactType      string          `json:"fact_type" validate:"required"`
	FactOwnerID   string          `json:"fact_owner_id" validate:"required"`
	Page          string          `json:"page"`
	Quality       CitationQuality `json:"quality" validate:"omitempty,oneof=primary secondary questionable unreliable"`
	InformantType string          `json:"informant_type"`
	EvidenceType  string          `json:"evidence_type"`
	QuotedText    string          `json:"quoted_text"`
	Analysis      string          `json:"analysis"`
}

func (c Citation) Kind() EntityType { return EntityCitation }

func (c Citation) DisplayName() string {
	if page := strings.TrimSpace(c.Page); page != "" {
		return c.FactType + ": " + page
	}
	return c.FactType
}

func (c Citation) WithMeta(b Base) Entity { c.Base = b; return c }

// Media describes an attachment. Binary payloads live in the blob store and
// are only returned by the dedicated "with data" read path.
type Media struct {
	Base
	OwnerType    EntityType `json:"owner_type" validate:"required"`
	OwnerID      string     `json:"owner_id" validate:"required"`
	FileName     string     `json:"file_name" validate:"required"`
	MimeType     string     `json:"mime_type"`
	Caption      string     `json:"caption"`
	FileSize     int64      `json:"file_size"`
	Checksum     string     `json:"checksum"`
	FileKey      string     `json:"file_key"`
	ThumbnailKey string     `json:"thumbnail_key"`
}

func (m Media) Kind() EntityType { return EntityMedia }

func (m Media) DisplayName() string {
	if caption := strings.TrimSpace(m.Caption); caption != "" {
		return caption
	}
	return m.FileName
}

func (m Media) WithMeta(b Base) Entity { m.Base = b; return m }

// MediaWithData bundles media metadata with its binary payloads.
type MediaWithData struct {
	Media
	File      []byte `json:"file,omitempty"`
	Thumbnail []byte `json:"thumbnail,omitempty"`
}

// Event is a dated fact of a person or a family (birth, marriage, census ...).
type Event struct {
	Base
	OwnerType   EntityType `json:"owner_type" validate:"required,oneof=person family"`
	OwnerID     string     `json:"owner_id" validate:"required"`
	FactType    string     `json:"fact_type" validate:"required"`
	Date        string     `json:"date"`
	DateSort    string     `json:"date_sort"`
	Place       string     `json:"place"`
	Description string     `json:"description"`
}

func (e Event) Kind() EntityType { return EntityEvent }

func (e Event) DisplayName() string {
	if date := strings.TrimSpace(e.Date); date != "" {
		return e.FactType + " " + date
	}
	return e.FactType
}

func (e Event) WithMeta(b Base) Entity { e.Base = b; return e }

// Attribute is an undated or loosely dated characteristic of a person.
type Attribute struct {
	Base
	PersonID string `json:"person_id" validate:"required"`
	FactType string `json:"fact_type" validate:"required"`
	Value    string `json:"value"`
	Date     string `json:"date"`
	Place    string `json:"place"`
}

func (a Attribute) Kind() EntityType { return EntityAttribute }

func (a Attribute) DisplayName() string {
	if value := strings.TrimSpace(a.Value); value != "" {
		return a.FactType + ": " + value
	}
	return a.FactType
}

func (a Attribute) WithMeta(b Base) Entity { a.Base = b; return a }

// Normalize fills derived fields of the entity before it is stored.
func Normalize(e Entity) Entity {
	switch v := e.(type) {
	case Person:
		return v.Normalize()
	case PersonName:
		v.GivenName = strings.TrimSpace(v.GivenName)
		v.Surname = strings.TrimSpace(v.Surname)
		return v
	case Family:
		v.Partner1Name, v.Partner2Name, v.ChildCount = "", "", 0
		return v
	case Event:
		v.DateSort = NormalizeDate(v.Date)
		return v
	}
	return e
}

func joinName(given, surname string) string {
	return strings.TrimSpace(strings.TrimSpace(given) + " " + strings.TrimSpace(surname))
}

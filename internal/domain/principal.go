package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type Contact struct {
	Phone       string `bson:"phone"       json:"phone"`
	Email       string `bson:"email"       json:"email"`
	Address     string `bson:"address"     json:"address"`
	Institution string `bson:"institution" json:"institution"`
	City        string `bson:"city"        json:"city"`
	Country     string `bson:"country"     json:"country"`
}

// Image points at an object in the image store; URL is resolved on read.
type Image struct {
	ID          string `bson:"id"           json:"id"`
	URL         string `bson:"url"          json:"url"`
	ContentType string `bson:"content_type" json:"contentType"`
	Size        int64  `bson:"size"         json:"size"`
}

// Principal is the account record and the whole portfolio aggregate in one document.
type Principal struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"   json:"id"`
	Email        string             `bson:"email"           json:"email"`
	PasswordHash string             `bson:"password_hash"   json:"-"`
	Role         Role               `bson:"role"            json:"role"`

	Name           string  `bson:"name"                      json:"name"`
	Title          string  `bson:"title"                     json:"title"`
	Summary        string  `bson:"summary"                   json:"summary"`
	Contact        Contact `bson:"contact"                   json:"contact"`
	ProfilePicture *Image  `bson:"profile_picture,omitempty" json:"profilePicture,omitempty"`

	Experiences  []Experience  `bson:"experiences"  json:"experiences"`
	Skills       []Skill       `bson:"skills"       json:"skills"`
	Educations   []Education   `bson:"educations"   json:"educations"`
	Languages    []Language    `bson:"languages"    json:"languages"`
	Certificates []Certificate `bson:"certificates" json:"certificates"`
	Awards       []Award       `bson:"awards"       json:"awards"`
	Publications []Publication `bson:"publications" json:"publications"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EnsureCollections replaces nil collections with empty ones so they encode as [] and $push
// always targets an array.
func (p *Principal) EnsureCollections() {
	if p.Experiences == nil {
		p.Experiences = []Experience{}
	}
	if p.Skills == nil {
		p.Skills = []Skill{}
	}
	if p.Educations == nil {
		p.Educations = []Education{}
	}
	if p.Languages == nil {
		p.Languages = []Language{}
	}
	if p.Certificates == nil {
		p.Certificates = []Certificate{}
	}
	if p.Awards == nil {
		p.Awards = []Award{}
	}
	if p.Publications == nil {
		p.Publications = []Publication{}
	}
}

// ProfileUpdate is a partial update of the top-level profile fields. Nil means untouched.
type ProfileUpdate struct {
	Email    *string  `json:"email"`
	Password *string  `json:"password"`
	Name     *string  `json:"name"`
	Title    *string  `json:"title"`
	Summary  *string  `json:"summary"`
	Contact  *Contact `json:"contact"`
}

func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.Password == nil && u.Name == nil &&
		u.Title == nil && u.Summary == nil && u.Contact == nil
}

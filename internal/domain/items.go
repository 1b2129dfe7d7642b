package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names an embedded sub-document array of the principal document.
type Collection string

const (
	Experiences  Collection = "experiences"
	Skills       Collection = "skills"
	Educations   Collection = "educations"
	Languages    Collection = "languages"
	Certificates Collection = "certificates"
	Awards       Collection = "awards"
	Publications Collection = "publications"
)

var Collections = []Collection{Experiences, Skills, Educations, Languages, Certificates, Awards, Publications}

func (c Collection) Valid() bool {
	for _, k := range Collections {
		if k == c {
			return true
		}
	}
	return false
}

var (
	ErrBadDate        = errors.New("invalid date")
	ErrEndBeforeStart = errors.New("endDate is before startDate")
	dateLayouts       = []string{"2006-01-02", time.RFC3339, "2006-01"}
)

// Item is implemented by every sub-document type. The store assigns the id on append.
type Item interface {
	ItemID() primitive.ObjectID
	SetItemID(primitive.ObjectID)
	Validate() error
}

type Experience struct {
	ID          primitive.ObjectID `bson:"_id"                json:"id"`
	Position    string             `bson:"position"           json:"position"    binding:"required"`
	Institution string             `bson:"institution"        json:"institution" binding:"required"`
	Location    string             `bson:"location"           json:"location"`
	StartDate   string             `bson:"start_date"         json:"startDate"   binding:"required"`
	EndDate     *string            `bson:"end_date,omitempty" json:"endDate"`
	Description string             `bson:"description"        json:"description"`
}

func (e *Experience) ItemID() primitive.ObjectID      { return e.ID }
func (e *Experience) SetItemID(id primitive.ObjectID) { e.ID = id }

// Validate checks date syntax and that a present endDate is not before startDate.
// A nil or empty endDate means the position is current.
func (e *Experience) Validate() error {
	start, err := ParseDate(e.StartDate)
	if err != nil {
		return fmt.Errorf("startDate: %w", err)
	}
	if e.EndDate == nil || *e.EndDate == "" {
		e.EndDate = nil
		return nil
	}
	end, err := ParseDate(*e.EndDate)
	if err != nil {
		return fmt.Errorf("endDate: %w", err)
	}
	if end.Before(start) {
		return ErrEndBeforeStart
	}
	return nil
}

type Skill struct {
	ID    primitive.ObjectID `bson:"_id"   json:"id"`
	Skill string             `bson:"skill" json:"skill" binding:"required"`
	Level string             `bson:"level" json:"level" binding:"required,oneof=Beginner Intermediate Advanced Expert"`
}

func (s *Skill) ItemID() primitive.ObjectID      { return s.ID }
func (s *Skill) SetItemID(id primitive.ObjectID) { s.ID = id }
func (s *Skill) Validate() error                 { return nil }

type Education struct {
	ID             primitive.ObjectID `bson:"_id"             json:"id"`
	Degree         string             `bson:"degree"          json:"degree"         binding:"required"`
	Field          string             `bson:"field"           json:"field"`
	Institution    string             `bson:"institution"     json:"institution"    binding:"required"`
	Location       string             `bson:"location"        json:"location"`
	GraduationDate string             `bson:"graduation_date" json:"graduationDate"`
	GPA            float64            `bson:"gpa"             json:"gpa"            binding:"gte=0,lte=4"`
	Thesis         string             `bson:"thesis"          json:"thesis"`
}

func (e *Education) ItemID() primitive.ObjectID      { return e.ID }
func (e *Education) SetItemID(id primitive.ObjectID) { e.ID = id }

func (e *Education) Validate() error {
	if e.GraduationDate == "" {
		return nil
	}
	if _, err := ParseDate(e.GraduationDate); err != nil {
		return fmt.Errorf("graduationDate: %w", err)
	}
	return nil
}

type Language struct {
	ID          primitive.ObjectID `bson:"_id"         json:"id"`
	Language    string             `bson:"language"    json:"language"    binding:"required"`
	Proficiency string             `bson:"proficiency" json:"proficiency" binding:"required,oneof=Beginner Intermediate Advanced Native"`
}

func (l *Language) ItemID() primitive.ObjectID      { return l.ID }
func (l *Language) SetItemID(id primitive.ObjectID) { l.ID = id }
func (l *Language) Validate() error                 { return nil }

type Certificate struct {
	ID          primitive.ObjectID `bson:"_id"         json:"id"`
	Title       string             `bson:"title"       json:"title"       binding:"required"`
	Institution string             `bson:"institution" json:"institution" binding:"required"`
	Date        string             `bson:"date"        json:"date"`
	Description string             `bson:"description" json:"description"`
}

func (c *Certificate) ItemID() primitive.ObjectID      { return c.ID }
func (c *Certificate) SetItemID(id primitive.ObjectID) { c.ID = id }

func (c *Certificate) Validate() error {
	if c.Date == "" {
		return nil
	}
	if _, err := ParseDate(c.Date); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return nil
}

type Award struct {
	ID          primitive.ObjectID `bson:"_id"         json:"id"`
	Title       string             `bson:"title"       json:"title"       binding:"required"`
	Institution string             `bson:"institution" json:"institution" binding:"required"`
	Year        int                `bson:"year"        json:"year"        binding:"gte=0"`
	Description string             `bson:"description" json:"description"`
}

func (a *Award) ItemID() primitive.ObjectID      { return a.ID }
func (a *Award) SetItemID(id primitive.ObjectID) { a.ID = id }
func (a *Award) Validate() error                 { return nil }

type Publication struct {
	ID      primitive.ObjectID `bson:"_id"     json:"id"`
	Title   string             `bson:"title"   json:"title"   binding:"required"`
	Journal string             `bson:"journal" json:"journal"`
	Volume  string             `bson:"volume"  json:"volume"`
	Pages   string             `bson:"pages"   json:"pages"`
	Year    int                `bson:"year"    json:"year"    binding:"gte=0"`
	URL     string             `bson:"url"     json:"url"`
	DOI     string             `bson:"doi"     json:"doi"`
}

func (p *Publication) ItemID() primitive.ObjectID      { return p.ID }
func (p *Publication) SetItemID(id primitive.ObjectID) { p.ID = id }
func (p *Publication) Validate() error                 { return nil }

func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadDate
}

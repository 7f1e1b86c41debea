package notion

import (
	"strconv"
	"strings"
	"time"
)

// Page is a database row as returned by the workspace API.
type Page struct {
	Object         string     `json:"object"`
	ID             string     `json:"id"`
	CreatedTime    time.Time  `json:"created_time"`
	LastEditedTime time.Time  `json:"last_edited_time"`
	Archived       bool       `json:"archived"`
	InTrash        bool       `json:"in_trash"`
	URL            string     `json:"url"`
	Cover          *File      `json:"cover"`
	Properties     Properties `json:"properties"`
}

// Properties is a record's property bag keyed by the workspace's display name.
type Properties map[string]Property

// Property holds one property value. Only the field matching Type is set
// by the API; the accessors below also tolerate records where Type is empty.
type Property struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Text        *string        `json:"text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	Status      *SelectOption  `json:"status,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Email       *string        `json:"email,omitempty"`
	PhoneNumber *string        `json:"phone_number,omitempty"`
	Files       []File         `json:"files,omitempty"`
	People      []Person       `json:"people,omitempty"`
	CreatedTime *time.Time     `json:"created_time,omitempty"`
	Formula     *Formula       `json:"formula,omitempty"`
}

// RichText is one run of formatted text.
type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        *string      `json:"href,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

type Annotations struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Strikethrough bool `json:"strikethrough"`
	Code          bool `json:"code"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// File is either hosted by the workspace (signed, expiring URL) or external.
type File struct {
	Name     string        `json:"name,omitempty"`
	Type     string        `json:"type"`
	File     *HostedFile   `json:"file,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
}

type HostedFile struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

type ExternalFile struct {
	URL string `json:"url"`
}

// URL returns the file's address regardless of hosting.
func (f File) URL() string {
	if f.External != nil && f.External.URL != "" {
		return f.External.URL
	}
	if f.File != nil {
		return f.File.URL
	}
	return ""
}

type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Formula struct {
	Type    string     `json:"type"`
	String  *string    `json:"string,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Boolean *bool      `json:"boolean,omitempty"`
	Date    *DateValue `json:"date,omitempty"`
}

// PlainText concatenates the plain text of every run.
func PlainText(runs []RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

// PlainText returns the property's text-like value, trimmed. Non-text
// shapes that have a natural string form (select, url, formula...) are
// included so a field may move between property types without breaking.
func (p Property) PlainText() string {
	switch {
	case len(p.Title) > 0:
		return strings.TrimSpace(PlainText(p.Title))
	case len(p.RichText) > 0:
		return strings.TrimSpace(PlainText(p.RichText))
	case p.Text != nil:
		return strings.TrimSpace(*p.Text)
	case p.Select != nil:
		return strings.TrimSpace(p.Select.Name)
	case p.Status != nil:
		return strings.TrimSpace(p.Status.Name)
	case len(p.MultiSelect) > 0:
		return strings.TrimSpace(p.MultiSelect[0].Name)
	case p.URL != nil:
		return strings.TrimSpace(*p.URL)
	case p.Email != nil:
		return strings.TrimSpace(*p.Email)
	case p.PhoneNumber != nil:
		return strings.TrimSpace(*p.PhoneNumber)
	case len(p.People) > 0:
		return strings.TrimSpace(p.People[0].Name)
	case p.Formula != nil:
		return p.Formula.text()
	}
	return ""
}

func (f Formula) text() string {
	switch {
	case f.String != nil:
		return strings.TrimSpace(*f.String)
	case f.Number != nil:
		return strconv.FormatFloat(*f.Number, 'f', -1, 64)
	case f.Boolean != nil:
		return strconv.FormatBool(*f.Boolean)
	case f.Date != nil:
		return f.Date.Start
	}
	return ""
}

// Bool returns the checkbox (or boolean formula) value.
func (p Property) Bool() (bool, bool) {
	if p.Checkbox != nil {
		return *p.Checkbox, true
	}
	if p.Formula != nil && p.Formula.Boolean != nil {
		return *p.Formula.Boolean, true
	}
	return false, false
}

// Num returns a numeric value; numeric text is accepted as well.
func (p Property) Num() (float64, bool) {
	if p.Number != nil {
		return *p.Number, true
	}
	if p.Formula != nil && p.Formula.Number != nil {
		return *p.Formula.Number, true
	}
	if s := p.PlainText(); s != "" {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Time returns a date, created_time, or date formula value.
func (p Property) Time() (time.Time, bool) {
	if p.Date != nil {
		return ParseDate(p.Date.Start)
	}
	if p.CreatedTime != nil && !p.CreatedTime.IsZero() {
		return *p.CreatedTime, true
	}
	if p.Formula != nil && p.Formula.Date != nil {
		return ParseDate(p.Formula.Date.Start)
	}
	return time.Time{}, false
}

// URLs returns every file URL, or the url value, in order.
func (p Property) URLs() []string {
	var out []string
	for _, f := range p.Files {
		if u := strings.TrimSpace(f.URL()); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 && p.URL != nil && strings.TrimSpace(*p.URL) != "" {
		out = append(out, strings.TrimSpace(*p.URL))
	}
	return out
}

// ParseDate accepts the workspace's date-only and RFC 3339 forms.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

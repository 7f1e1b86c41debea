package notion

import (
	"strings"
	"time"
)

// Field is an ordered list of candidate property names for one logical
// field. Accessors return the first non-empty value; names are matched
// exactly.
type Field []string

// Texts returns the non-empty text of every present candidate, in order.
func (f Field) Texts(ps Properties) []string {
	var out []string
	for _, n := range f {
		if p, ok := ps[n]; ok {
			if s := p.PlainText(); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (f Field) Text(ps Properties) (string, bool) {
	for _, n := range f {
		p, ok := ps[n]
		if !ok {
			continue
		}
		if s := p.PlainText(); s != "" {
			return s, true
		}
	}
	return "", false
}

// Bool accepts checkboxes, boolean formulas and "true"/"yes" text.
func (f Field) Bool(ps Properties) (bool, bool) {
	for _, n := range f {
		p, ok := ps[n]
		if !ok {
			continue
		}
		if v, ok := p.Bool(); ok {
			return v, true
		}
		switch strings.ToLower(p.PlainText()) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

func (f Field) Number(ps Properties) (float64, bool) {
	for _, n := range f {
		p, ok := ps[n]
		if !ok {
			continue
		}
		if v, ok := p.Num(); ok {
			return v, true
		}
	}
	return 0, false
}

func (f Field) Time(ps Properties) (time.Time, bool) {
	for _, n := range f {
		p, ok := ps[n]
		if !ok {
			continue
		}
		if t, ok := p.Time(); ok {
			return t, true
		}
		if t, ok := ParseDate(p.PlainText()); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// URL returns the first file or url value.
func (f Field) URL(ps Properties) (string, bool) {
	if us := f.URLs(ps); len(us) > 0 {
		return us[0], true
	}
	return "", false
}

// URLs returns every URL of the first field that has any. Text holding an
// absolute http(s) URL counts.
func (f Field) URLs(ps Properties) []string {
	for _, n := range f {
		p, ok := ps[n]
		if !ok {
			continue
		}
		if us := p.URLs(); len(us) > 0 {
			return us
		}
		if s := p.PlainText(); strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			return []string{s}
		}
	}
	return nil
}

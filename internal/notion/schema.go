package notion

import (
	"math"
	"strings"
	"time"

	"studysync/internal/models"
)

const dateLayout = "2006-01-02"

// Schema names the database properties mapped to page fields. Name, Key,
// Level and Duration are required; the rest are skipped when empty.
type Schema struct {
	Name     string
	Key      string
	Level    string
	Duration string
	Seconds  string
	Week     string
	Status   string
	Teacher  string
}

// DefaultSchema returns the property names used when none are configured.
func DefaultSchema() Schema {
	return Schema{
		Name:     "Student Name",
		Key:      "Student Key",
		Level:    "Level",
		Duration: "Study Time",
	}
}

type richText struct {
	PlainText string `json:"plain_text,omitempty"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type selectOption struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}

// propertyValue covers the property types this service reads.
type propertyValue struct {
	Type     string        `json:"type"`
	Title    []richText    `json:"title"`
	RichText []richText    `json:"rich_text"`
	Select   *selectOption `json:"select"`
	Number   *float64      `json:"number"`
	Date     *dateValue    `json:"date"`
}

type rawPage struct {
	ID         string                   `json:"id"`
	Archived   bool                     `json:"archived"`
	InTrash    bool                     `json:"in_trash"`
	Properties map[string]propertyValue `json:"properties"`
}

func plainText(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		switch {
		case p.PlainText != "":
			b.WriteString(p.PlainText)
		case p.Text != nil:
			b.WriteString(p.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func textOf(v propertyValue) string {
	if len(v.Title) > 0 {
		return plainText(v.Title)
	}
	if len(v.RichText) > 0 {
		return plainText(v.RichText)
	}
	if v.Select != nil {
		return v.Select.Name
	}
	return ""
}

// decode maps a raw Notion page onto models.Page. Missing properties leave
// zero values; the caller decides how to fill the key.
func (s Schema) decode(p rawPage) models.Page {
	page := models.Page{
		ID:       p.ID,
		Archived: p.Archived || p.InTrash,
	}
	if v, ok := p.Properties[s.Name]; ok {
		page.Name = textOf(v)
	}
	if v, ok := p.Properties[s.Key]; ok {
		page.Key = textOf(v)
	}
	if v, ok := p.Properties[s.Level]; ok {
		page.Level = textOf(v)
	}
	if v, ok := p.Properties[s.Duration]; ok {
		page.Duration = textOf(v)
	}
	if s.Seconds != "" {
		if v, ok := p.Properties[s.Seconds]; ok && v.Number != nil {
			page.Seconds = int64(math.Round(*v.Number))
		}
	}
	if s.Week != "" {
		if v, ok := p.Properties[s.Week]; ok && v.Date != nil {
			if t, err := time.Parse(dateLayout, v.Date.Start); err == nil {
				page.WeekStart = &t
			} else if t, err := time.Parse(time.RFC3339, v.Date.Start); err == nil {
				page.WeekStart = &t
			}
		}
	}
	return page
}

func titleProp(text string) map[string]any {
	return map[string]any{"title": []map[string]any{{"text": map[string]string{"content": text}}}}
}

func richTextProp(text string) map[string]any {
	return map[string]any{"rich_text": []map[string]any{{"text": map[string]string{"content": text}}}}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]string{"name": name}}
}

// createProperties builds the full property set for a new page.
func (s Schema) createProperties(f models.PageFields) map[string]any {
	props := s.updateProperties(f)
	props[s.Name] = titleProp(f.Name)
	if s.Status != "" && f.Status != "" {
		props[s.Status] = selectProp(f.Status)
	}
	if s.Teacher != "" && f.Teacher != "" {
		props[s.Teacher] = map[string]any{"multi_select": []map[string]string{{"name": f.Teacher}}}
	}
	return props
}

// updateProperties builds the value-bearing properties rewritten in place.
// Name, status and teacher belong to the page owner once it exists.
func (s Schema) updateProperties(f models.PageFields) map[string]any {
	props := map[string]any{
		s.Key:      richTextProp(f.Key),
		s.Level:    selectProp(f.Level),
		s.Duration: richTextProp(f.Duration),
	}
	if s.Seconds != "" {
		props[s.Seconds] = map[string]any{"number": f.Seconds}
	}
	if s.Week != "" && !f.WeekStart.IsZero() {
		props[s.Week] = map[string]any{"date": dateValue{Start: f.WeekStart.UTC().Format(dateLayout)}}
	}
	return props
}

// queryFilter returns the database query filter, or nil for a full scan.
func (s Schema) queryFilter(f models.PageFilter) map[string]any {
	if f.Key == "" {
		return nil
	}
	return map[string]any{
		"property":  s.Key,
		"rich_text": map[string]string{"equals": f.Key},
	}
}

// Package content loads the static memorial descriptor (data.json) and
// normalises it into a view model. Optional sections that are missing or
// malformed are dropped; only an unreadable document is an error.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("memorial descriptor not found")
	ErrInvalidDescriptor = errors.New("memorial descriptor is not valid JSON")
)

type Memorial struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Dates       string    `json:"dates,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Cover       string    `json:"cover,omitempty"`
	Gallery     []Photo   `json:"gallery"`
	Photos      int       `json:"photoCount"`
	Video       *Video    `json:"video,omitempty"`
	Audio       *Audio    `json:"audio,omitempty"`
	Hero        *Hero     `json:"hero,omitempty"`
	Quotes      []Quote   `json:"quotes,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
	Anniversary string    `json:"anniversary,omitempty"`
}

type Photo struct {
	Index   int    `json:"index"`
	Src     string `json:"src"`
	Caption string `json:"caption,omitempty"`
}

type Video struct {
	YouTubeEmbedURL string `json:"youtubeEmbedUrl"`
}

type Audio struct {
	Src string `json:"src"`
}

type Hero struct {
	Subtitle string `json:"subtitle,omitempty"`
	Verse    string `json:"verse,omitempty"`
}

type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

type SectionType string

const (
	SectionBullets SectionType = "bullets"
	SectionCandle  SectionType = "candle"
	SectionText    SectionType = "text"
)

type Section struct {
	Type  SectionType `json:"type"`
	Title string      `json:"title,omitempty"`
	Text  string      `json:"text,omitempty"`
	Items []string    `json:"items,omitempty"`
}

// PhotoCount is the raw gallery length, skipped entries included; comment
// threads exist for indexes 0..PhotoCount-1.
func (m *Memorial) PhotoCount() int {
	if m.Photos < len(m.Gallery) {
		return len(m.Gallery)
	}
	return m.Photos
}

// IsAnniversary reports whether now falls on the anniversary day. A 02-29
// anniversary is observed on 02-28 in non-leap years.
func (m *Memorial) IsAnniversary(now time.Time) bool {
	if m.Anniversary == "" {
		return false
	}
	today := now.Format("01-02")
	if today == m.Anniversary {
		return true
	}
	return m.Anniversary == "02-29" && today == "02-28" && !isLeap(now.Year())
}

// Parse decodes and normalises a descriptor. Each field is decoded on its
// own so a wrongly typed field drops only itself.
func Parse(id string, data []byte) (*Memorial, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	gallery := list(fields["gallery"])
	return &Memorial{
		ID:          id,
		Name:        str(fields["name"]),
		Dates:       str(fields["dates"]),
		Bio:         str(fields["bio"]),
		Cover:       str(fields["cover"]),
		Gallery:     parseGallery(gallery),
		Photos:      len(gallery),
		Video:       parseVideo(fields["video"]),
		Audio:       parseAudio(fields["audio"]),
		Hero:        parseHero(fields["hero"]),
		Quotes:      parseQuotes(list(fields["quotes"])),
		Sections:    parseSections(list(fields["sections"])),
		Anniversary: parseAnniversary(fields["anniversary"]),
	}, nil
}

func str(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func list(raw json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	return items
}

// Gallery entries are either a bare URL string or {src, caption}. Entries
// without a source are skipped. Index is the raw array position, which is
// the photos/{i} thread the entry's comments live under.
func parseGallery(items []json.RawMessage) []Photo {
	out := make([]Photo, 0, len(items))
	for i, item := range items {
		var src string
		if err := json.Unmarshal(item, &src); err == nil {
			if src = strings.TrimSpace(src); src != "" {
				out = append(out, Photo{Index: i, Src: src})
			}
			continue
		}

		var obj struct {
			Src     string `json:"src"`
			Caption string `json:"caption"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		if obj.Src = strings.TrimSpace(obj.Src); obj.Src == "" {
			continue
		}
		out = append(out, Photo{Index: i, Src: obj.Src, Caption: strings.TrimSpace(obj.Caption)})
	}
	return out
}

func parseVideo(raw json.RawMessage) *Video {
	var v Video
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	u, err := url.Parse(strings.TrimSpace(v.YouTubeEmbedURL))
	if err != nil || u.Scheme != "https" || !strings.Contains(u.Host, "youtube") {
		return nil
	}
	return &Video{YouTubeEmbedURL: u.String()}
}

func parseAudio(raw json.RawMessage) *Audio {
	var a Audio
	if len(raw) == 0 || json.Unmarshal(raw, &a) != nil {
		return nil
	}
	if a.Src = strings.TrimSpace(a.Src); a.Src == "" {
		return nil
	}
	return &a
}

func parseHero(raw json.RawMessage) *Hero {
	var h Hero
	if len(raw) == 0 || json.Unmarshal(raw, &h) != nil {
		return nil
	}
	h.Subtitle = strings.TrimSpace(h.Subtitle)
	h.Verse = strings.TrimSpace(h.Verse)
	if h.Subtitle == "" && h.Verse == "" {
		return nil
	}
	return &h
}

func parseQuotes(items []json.RawMessage) []Quote {
	var out []Quote
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				out = append(out, Quote{Text: text})
			}
			continue
		}
		var q Quote
		if err := json.Unmarshal(item, &q); err != nil {
			continue
		}
		if q.Text = strings.TrimSpace(q.Text); q.Text != "" {
			q.Author = strings.TrimSpace(q.Author)
			out = append(out, q)
		}
	}
	return out
}

func parseSections(items []json.RawMessage) []Section {
	var out []Section
	for _, item := range items {
		var s Section
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		s.Title = strings.TrimSpace(s.Title)
		s.Text = strings.TrimSpace(s.Text)

		switch s.Type {
		case SectionBullets:
			kept := s.Items[:0]
			for _, it := range s.Items {
				if it = strings.TrimSpace(it); it != "" {
					kept = append(kept, it)
				}
			}
			if len(kept) == 0 {
				continue
			}
			s.Items = kept
			s.Text = ""
		case SectionCandle:
			s.Items = nil
		case SectionText:
			if s.Text == "" {
				continue
			}
			s.Items = nil
		default:
			continue
		}
		out = append(out, s)
	}
	return out
}

func parseAnniversary(raw json.RawMessage) string {
	s := str(raw)
	if s == "" {
		return ""
	}
	t, err := time.Parse("01-02", s)
	if err != nil {
		if s == "02-29" {
			return s
		}
		return ""
	}
	return t.Format("01-02")
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

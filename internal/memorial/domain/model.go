// Package domain holds the documents stored under memorials/{id}. Each type
// validates itself before it is written; fields not listed here are never
// read back.
package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxCommentRunes = 500
	MaxReasonRunes  = 300
	MaxNameRunes    = 80
	DefaultName     = "Usuario"
)

// Emoji is one of the fixed reaction slots on a photo.
type Emoji string

const (
	EmojiLove   Emoji = "love"
	EmojiPray   Emoji = "pray"
	EmojiFlower Emoji = "flower"
	EmojiDove   Emoji = "dove"
	EmojiCandle Emoji = "candle"
)

// Emojis is the display order of the reaction bar.
var Emojis = []Emoji{EmojiLove, EmojiPray, EmojiFlower, EmojiDove, EmojiCandle}

func ParseEmoji(s string) (Emoji, error) {
	e := Emoji(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Emojis {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEmoji, s)
}

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

func (s ReportStatus) Valid() bool {
	return s == ReportOpen || s == ReportResolved || s == ReportDismissed
}

type Comment struct {
	ID        string     `json:"id,omitempty" firestore:"-"`
	UID       string     `json:"uid" firestore:"uid"`
	Name      string     `json:"name" firestore:"name"`
	Text      string     `json:"text" firestore:"text"`
	Hidden    bool       `json:"hidden" firestore:"hidden"`
	HiddenBy  string     `json:"hiddenBy,omitempty" firestore:"hiddenBy,omitempty"`
	HiddenAt  *time.Time `json:"hiddenAt,omitempty" firestore:"hiddenAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" firestore:"createdAt"`
}

func (c Comment) Validate() error {
	if c.UID == "" {
		return fmt.Errorf("%w: comment uid is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: comment text is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(c.Text) > MaxCommentRunes {
		return fmt.Errorf("%w: comment longer than %d characters", ErrInvalidInput, MaxCommentRunes)
	}
	if c.CreatedAt.IsZero() {
		return fmt.Errorf("%w: comment createdAt is required", ErrInvalidInput)
	}
	return nil
}

// Reaction is one user's toggles on one photo; every count is 0 or 1.
type Reaction struct {
	UID       string          `json:"uid" firestore:"uid"`
	Counts    map[Emoji]int64 `json:"counts" firestore:"counts"`
	UpdatedAt time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

func (r Reaction) Validate() error {
	if r.UID == "" {
		return fmt.Errorf("%w: reaction uid is required", ErrInvalidInput)
	}
	for e, n := range r.Counts {
		if _, err := ParseEmoji(string(e)); err != nil {
			return err
		}
		if n != 0 && n != 1 {
			return fmt.Errorf("%w: reaction %s count %d", ErrInvalidInput, e, n)
		}
	}
	return nil
}

type Candle struct {
	UID       string    `json:"uid" firestore:"uid"`
	Name      string    `json:"name" firestore:"name"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

func (c Candle) Validate() error {
	if c.UID == "" {
		return fmt.Errorf("%w: candle uid is required", ErrInvalidInput)
	}
	return nil
}

type Report struct {
	ID                string       `json:"id,omitempty" firestore:"-"`
	ReporterUID       string       `json:"reporterUid" firestore:"reporterUid"`
	ReporterName      string       `json:"reporterName" firestore:"reporterName"`
	PhotoIndex        int          `json:"photoIndex" firestore:"photoIndex"`
	CommentID         string       `json:"commentId" firestore:"commentId"`
	CommentAuthorUID  string       `json:"commentAuthorUid" firestore:"commentAuthorUid"`
	CommentAuthorName string       `json:"commentAuthorName" firestore:"commentAuthorName"`
	CommentText       string       `json:"commentText,omitempty" firestore:"commentText,omitempty"`
	Reason            string       `json:"reason" firestore:"reason"`
	Status            ReportStatus `json:"status" firestore:"status"`
	CreatedAt         time.Time    `json:"createdAt" firestore:"createdAt"`
	ResolvedBy        string       `json:"resolvedBy,omitempty" firestore:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time   `json:"resolvedAt,omitempty" firestore:"resolvedAt,omitempty"`
}

func (r Report) Validate() error {
	if r.ReporterUID == "" {
		return fmt.Errorf("%w: reporter uid is required", ErrInvalidInput)
	}
	if r.CommentID == "" {
		return fmt.Errorf("%w: report must reference a comment", ErrInvalidInput)
	}
	if r.PhotoIndex < 0 {
		return fmt.Errorf("%w: photo index must not be negative", ErrInvalidInput)
	}
	if utf8.RuneCountInString(r.Reason) > MaxReasonRunes {
		return fmt.Errorf("%w: reason longer than %d characters", ErrInvalidInput, MaxReasonRunes)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: report status %q", ErrInvalidInput, r.Status)
	}
	if r.Status != ReportOpen && (r.ResolvedBy == "" || r.ResolvedAt == nil) {
		return fmt.Errorf("%w: closed report needs resolvedBy and resolvedAt", ErrInvalidInput)
	}
	return nil
}

type Moderator struct {
	UID       string    `json:"uid,omitempty" firestore:"-"`
	Role      string    `json:"role" firestore:"role"`
	CreatedBy string    `json:"createdBy" firestore:"createdBy"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

func (m Moderator) Validate() error {
	if m.CreatedBy == "" {
		return fmt.Errorf("%w: moderator createdBy is required", ErrInvalidInput)
	}
	return nil
}

// RoleEntry is the staff roster row kept next to mods/ and admin/.
type RoleEntry struct {
	UID       string    `json:"uid,omitempty" firestore:"-"`
	Role      string    `json:"role" firestore:"role"`
	GrantedBy string    `json:"grantedBy" firestore:"grantedBy"`
	GrantedAt time.Time `json:"grantedAt" firestore:"grantedAt"`
}

func (r RoleEntry) Validate() error {
	if r.Role == "" || r.GrantedBy == "" {
		return fmt.Errorf("%w: role entry needs role and grantedBy", ErrInvalidInput)
	}
	return nil
}

type BlockedUser struct {
	UID       string    `json:"uid,omitempty" firestore:"-"`
	Reason    string    `json:"reason" firestore:"reason"`
	BlockedBy string    `json:"blockedBy" firestore:"blockedBy"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

func (b BlockedUser) Validate() error {
	if b.BlockedBy == "" {
		return fmt.Errorf("%w: blockedBy is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(b.Reason) > MaxReasonRunes {
		return fmt.Errorf("%w: block reason longer than %d characters", ErrInvalidInput, MaxReasonRunes)
	}
	return nil
}

// Grant marks existence-only records (admins/{uid}, memorials/{id}/admin/{uid}).
type Grant struct {
	GrantedBy string    `json:"grantedBy,omitempty" firestore:"grantedBy,omitempty"`
	GrantedAt time.Time `json:"grantedAt" firestore:"grantedAt"`
}

func (g Grant) Validate() error { return nil }

type Stats struct {
	Visits    int64 `json:"visits" firestore:"visits"`
	Comments  int64 `json:"comments" firestore:"comments"`
	Reactions int64 `json:"reactions" firestore:"reactions"`
}

// Stat field names as stored.
const (
	StatVisits    = "visits"
	StatComments  = "comments"
	StatReactions = "reactions"
)

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// DisplayName picks the name shown next to a comment or candle.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return TruncateRunes(name, MaxNameRunes)
}

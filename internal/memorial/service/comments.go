package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

type CommentService struct {
	core
	window     int
	trackStats bool
}

// QueueItem is one row of the moderation panel.
type QueueItem struct {
	PhotoIndex int `json:"photoIndex"`
	domain.Comment
}

func (s *CommentService) Post(ctx context.Context, memorialID string, photo int, actor Actor, text string) (*domain.Comment, error) {
	if err := checkPhoto(memorialID, photo); err != nil {
		return nil, err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowInteract(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is empty", domain.ErrInvalidInput)
	}

	c := domain.Comment{
		ID:        uuid.New().String(),
		UID:       actor.UID,
		Name:      domain.DisplayName(actor.Name),
		Text:      domain.TruncateRunes(text, domain.MaxCommentRunes),
		CreatedAt: s.now(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, docstore.CommentPath(memorialID, photo, c.ID), c); err != nil {
		return nil, storeErr("post comment", err)
	}

	if s.trackStats {
		s.bump(ctx, memorialID, domain.StatComments, 1)
	}
	return &c, nil
}

// List returns the newest comments of a photo as the viewer may see them.
func (s *CommentService) List(ctx context.Context, memorialID string, photo int, canModerate bool) ([]domain.Comment, error) {
	if err := checkPhoto(memorialID, photo); err != nil {
		return nil, err
	}

	snaps, err := s.store.List(ctx, docstore.CommentsCollection(memorialID, photo), s.query(s.window))
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return VisibleComments(decodeComments(snaps, s.log), canModerate), nil
}

// SetHidden records who changed the flag and when, in both directions.
func (s *CommentService) SetHidden(ctx context.Context, memorialID string, photo int, commentID string, actor Actor, hidden bool) error {
	if err := checkPhoto(memorialID, photo); err != nil {
		return err
	}
	if !docstore.ValidID(commentID) {
		return fmt.Errorf("%w: comment id %q", domain.ErrInvalidInput, commentID)
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return err
	}

	path := docstore.CommentPath(memorialID, photo, commentID)
	err := s.store.Update(ctx, path, map[string]interface{}{
		"hidden":   hidden,
		"hiddenBy": actor.UID,
		"hiddenAt": s.now(),
	})
	if err != nil {
		return storeErr("hide comment", err)
	}

	action := audit.ActionHideComment
	if !hidden {
		action = audit.ActionUnhideComment
	}
	s.record(ctx, audit.Entry{
		MemorialID: memorialID,
		ActorUID:   actor.UID,
		Action:     action,
		Target:     path,
	})
	return nil
}

// ToggleHidden flips the flag and returns the new value.
func (s *CommentService) ToggleHidden(ctx context.Context, memorialID string, photo int, commentID string, actor Actor) (bool, error) {
	if err := checkPhoto(memorialID, photo); err != nil {
		return false, err
	}
	if !docstore.ValidID(commentID) {
		return false, fmt.Errorf("%w: comment id %q", domain.ErrInvalidInput, commentID)
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return false, err
	}

	var c domain.Comment
	if err := s.store.Get(ctx, docstore.CommentPath(memorialID, photo, commentID), &c); err != nil {
		return false, storeErr("get comment", err)
	}
	next := !c.Hidden
	if err := s.SetHidden(ctx, memorialID, photo, commentID, actor, next); err != nil {
		return false, err
	}
	return next, nil
}

// Get reads one comment without visibility filtering.
func (s *CommentService) Get(ctx context.Context, memorialID string, photo int, commentID string) (*domain.Comment, error) {
	if err := checkPhoto(memorialID, photo); err != nil {
		return nil, err
	}
	if !docstore.ValidID(commentID) {
		return nil, fmt.Errorf("%w: comment id %q", domain.ErrInvalidInput, commentID)
	}

	var c domain.Comment
	if err := s.store.Get(ctx, docstore.CommentPath(memorialID, photo, commentID), &c); err != nil {
		return nil, storeErr("get comment", err)
	}
	c.ID = commentID
	return &c, nil
}

// ModerationQueue walks every photo of the gallery, newest comments first.
func (s *CommentService) ModerationQueue(ctx context.Context, memorialID string, photoCount int, showHidden bool, actor Actor) ([]QueueItem, error) {
	if err := checkMemorial(memorialID); err != nil {
		return nil, err
	}
	if err := s.permissions(ctx, memorialID, actor).AllowModerate(); err != nil {
		return nil, err
	}

	items := []QueueItem{}
	for photo := 0; photo < photoCount; photo++ {
		snaps, err := s.store.List(ctx, docstore.CommentsCollection(memorialID, photo), s.query(QueueWindowPerPhoto))
		if err != nil {
			return nil, storeErr("moderation queue", err)
		}
		for _, c := range decodeComments(snaps, s.log) {
			if c.Hidden && !showHidden {
				continue
			}
			items = append(items, QueueItem{PhotoIndex: photo, Comment: c})
		}
	}
	return items, nil
}

func (s *CommentService) query(limit int) docstore.Query {
	return docstore.Query{OrderBy: "createdAt", Desc: true, Limit: limit}
}

// VisibleComments drops hidden comments unless the viewer can moderate and
// orders the rest newest first. It runs on every read, whatever the store
// already filtered.
func VisibleComments(list []domain.Comment, canModerate bool) []domain.Comment {
	out := make([]domain.Comment, 0, len(list))
	for _, c := range list {
		if c.Hidden && !canModerate {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

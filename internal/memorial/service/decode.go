package service

import (
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/memorial/domain"
)

// Documents that fail to decode are skipped; one bad record must not blank
// the whole list.

func decodeComments(snaps []docstore.Snapshot, log zerolog.Logger) []domain.Comment {
	out := make([]domain.Comment, 0, len(snaps))
	for _, snap := range snaps {
		var c domain.Comment
		if err := snap.DataTo(&c); err != nil {
			log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable comment")
			continue
		}
		c.ID = snap.ID
		out = append(out, c)
	}
	return out
}

func decodeReports(snaps []docstore.Snapshot, log zerolog.Logger) []domain.Report {
	out := make([]domain.Report, 0, len(snaps))
	for _, snap := range snaps {
		var r domain.Report
		if err := snap.DataTo(&r); err != nil {
			log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable report")
			continue
		}
		r.ID = snap.ID
		out = append(out, r)
	}
	return out
}

func decodeBlocked(snaps []docstore.Snapshot, log zerolog.Logger) []domain.BlockedUser {
	out := make([]domain.BlockedUser, 0, len(snaps))
	for _, snap := range snaps {
		var b domain.BlockedUser
		if err := snap.DataTo(&b); err != nil {
			log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable block")
			continue
		}
		b.UID = snap.ID
		out = append(out, b)
	}
	return out
}

func decodeModerators(snaps []docstore.Snapshot, log zerolog.Logger) []domain.Moderator {
	out := make([]domain.Moderator, 0, len(snaps))
	for _, snap := range snaps {
		var m domain.Moderator
		if err := snap.DataTo(&m); err != nil {
			log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable moderator")
			continue
		}
		m.UID = snap.ID
		out = append(out, m)
	}
	return out
}

func decodeReactions(snaps []docstore.Snapshot, log zerolog.Logger) []domain.Reaction {
	out := make([]domain.Reaction, 0, len(snaps))
	for _, snap := range snaps {
		var r domain.Reaction
		if err := snap.DataTo(&r); err != nil {
			log.Warn().Err(err).Str("path", snap.Path).Msg("skipping undecodable reaction")
			continue
		}
		if r.UID == "" {
			r.UID = snap.ID
		}
		out = append(out, r)
	}
	return out
}

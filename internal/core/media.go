package core

import (
	"context"

	"genealogycore/internal/blob"
	"genealogycore/pkg/domain"
)

// MediaPayload carries the binary content attached to a media record. A nil
// slice leaves that payload unchanged.
type MediaPayload struct {
	File          []byte
	FileType      string
	Thumbnail     []byte
	ThumbnailType string
}

func (s *Service) requirePayloads() error {
	if s.payloads == nil {
		return domain.Invalid("media", "no blob store configured for media payloads")
	}
	return nil
}

// AttachMediaData uploads payloads for a media record and saves the new keys,
// size and checksum as a new version. Payloads uploaded for a save that fails
// are removed again. Superseded payloads stay, since earlier versions remain
// restorable.
func (s *Service) AttachMediaData(ctx context.Context, mediaID string, expectedVersion int, payload MediaPayload) (domain.Media, error) {
	var saved domain.Media
	err := s.instrument(ctx, "attach_media_data", entityAttrs(domain.EntityMedia, mediaID), func(ctx context.Context) error {
		if err := s.requirePayloads(); err != nil {
			return err
		}
		current, err := s.findMedia(ctx, mediaID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return domain.ConflictError{Entity: domain.EntityMedia, ID: mediaID, Expected: expectedVersion, Current: current.Version}
		}

		next := current
		if payload.File != nil {
			stored, err := s.payloads.Put(ctx, mediaID, blob.RoleFile, payload.File, payload.FileType)
			if err != nil {
				return domain.StorageError{Op: "put media file", Err: err}
			}
			next.FileKey, next.FileSize, next.Checksum = stored.Key, stored.Size, stored.Checksum
			if payload.FileType != "" {
				next.MimeType = payload.FileType
			}
		}
		if payload.Thumbnail != nil {
			stored, err := s.payloads.Put(ctx, mediaID, blob.RoleThumbnail, payload.Thumbnail, payload.ThumbnailType)
			if err != nil {
				s.pruneUnreferenced(ctx, mediaID)
				return domain.StorageError{Op: "put media thumbnail", Err: err}
			}
			next.ThumbnailKey = stored.Key
		}

		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			out, err := tx.Save(next, expectedVersion)
			if err != nil {
				return err
			}
			saved = out.(domain.Media)
			return nil
		})
		if err != nil {
			s.pruneUnreferenced(ctx, mediaID)
			return err
		}
		return nil
	})
	return saved, err
}

// GetMediaWithData returns a media record together with its file and
// thumbnail content.
func (s *Service) GetMediaWithData(ctx context.Context, mediaID string) (domain.MediaWithData, error) {
	var out domain.MediaWithData
	err := s.instrument(ctx, "get_media_with_data", entityAttrs(domain.EntityMedia, mediaID), func(ctx context.Context) error {
		if err := s.requirePayloads(); err != nil {
			return err
		}
		media, err := s.findMedia(ctx, mediaID)
		if err != nil {
			return err
		}
		file, err := s.payloads.Read(ctx, media.FileKey)
		if err != nil {
			return domain.StorageError{Op: "read media file", Err: err}
		}
		thumb, err := s.payloads.Read(ctx, media.ThumbnailKey)
		if err != nil {
			return domain.StorageError{Op: "read media thumbnail", Err: err}
		}
		out = domain.MediaWithData{Media: media, File: file, Thumbnail: thumb}
		return nil
	})
	return out, err
}

func (s *Service) findMedia(ctx context.Context, id string) (domain.Media, error) {
	var media domain.Media
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		e, ok := view.Find(domain.EntityMedia, id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityMedia, ID: id}
		}
		media = e.(domain.Media)
		return nil
	})
	return media, err
}

// pruneMedia drops every payload of a deleted media record.
func (s *Service) pruneMedia(ctx context.Context, id string) {
	if s.payloads != nil {
		s.prunePayloads(ctx, id)
	}
}

// pruneUnreferenced drops payloads of mediaID that neither the live record
// nor any ledger entry of it refers to.
func (s *Service) pruneUnreferenced(ctx context.Context, mediaID string) {
	var keep []string
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		keep = referencedPayloads(view, mediaID)
		return nil
	})
	if err != nil {
		s.logger.Warn("collect media payload keys failed", "media_id", mediaID, "error", err.Error())
		return
	}
	s.prunePayloads(ctx, mediaID, keep...)
}

func referencedPayloads(view domain.TransactionView, mediaID string) []string {
	var keys []string
	if e, ok := view.Find(domain.EntityMedia, mediaID); ok {
		media := e.(domain.Media)
		keys = append(keys, media.FileKey, media.ThumbnailKey)
	}
	for _, change := range view.History(domain.EntityMedia, mediaID) {
		for _, field := range []string{"file_key", "thumbnail_key"} {
			fc, ok := change.Changes[field]
			if !ok {
				continue
			}
			var before, after string
			_ = fc.DecodeOld(&before)
			_ = fc.DecodeNew(&after)
			keys = append(keys, before, after)
		}
	}
	return keys
}

func (s *Service) prunePayloads(ctx context.Context, mediaID string, keep ...string) {
	if removed, err := s.payloads.Prune(ctx, mediaID, keep...); err != nil {
		s.logger.Warn("prune media payloads failed", "media_id", mediaID, "error", err.Error())
	} else if removed > 0 {
		s.logger.Debug("pruned media payloads", "media_id", mediaID, "removed", removed)
	}
}

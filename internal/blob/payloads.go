package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Role names which payload of a media record a key holds.
type Role string

const (
	RoleFile      Role = "file"
	RoleThumbnail Role = "thumbnail"
)

// Payloads stores media file and thumbnail content under content-addressed
// keys of the form media/<media id>/<role>/<sha256>.
type Payloads struct {
	store Store
}

// NewPayloads wraps store.
func NewPayloads(store Store) *Payloads { return &Payloads{store: store} }

// Store returns the underlying backend.
func (p *Payloads) Store() Store { return p.store }

// Stored describes a payload after Put.
type Stored struct {
	Key      string
	Size     int64
	Checksum string
}

// Key returns the content-addressed key for a payload.
func Key(mediaID string, role Role, checksum string) string {
	return "media/" + mediaID + "/" + string(role) + "/" + checksum
}

func mediaPrefix(mediaID string) string { return "media/" + mediaID + "/" }

// Put writes data for the media record. Writing identical content twice
// resolves to the existing key.
func (p *Payloads) Put(ctx context.Context, mediaID string, role Role, data []byte, contentType string) (Stored, error) {
	if strings.TrimSpace(mediaID) == "" || strings.Contains(mediaID, "/") {
		return Stored{}, fmt.Errorf("invalid media id %q", mediaID)
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	key := Key(mediaID, role, checksum)
	stored := Stored{Key: key, Size: int64(len(data)), Checksum: checksum}
	_, err := p.store.Put(ctx, key, bytes.NewReader(data), PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"media-id": mediaID, "role": string(role)},
	})
	if err != nil && !errors.Is(err, ErrExists) {
		return Stored{}, err
	}
	return stored, nil
}

// Read returns the content stored under key. An empty key reads as nil.
func (p *Payloads) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	_, rc, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Prune deletes the payloads of mediaID whose keys are not in keep and
// returns how many were removed.
func (p *Payloads) Prune(ctx context.Context, mediaID string, keep ...string) (int, error) {
	infos, err := p.store.List(ctx, mediaPrefix(mediaID))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		if slices.Contains(keep, info.Key) {
			continue
		}
		ok, err := p.store.Delete(ctx, info.Key)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

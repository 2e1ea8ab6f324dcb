package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CursorFormatVersion is the version written into every persisted cursor
// blob. Blobs with another version are not trusted as resume points.
const CursorFormatVersion = 1

// DefaultZone is the zone used when none is configured.
const DefaultZone = "health"

// ErrUnsupportedCursorFormat is returned when a persisted cursor blob was
// written with an unknown format version.
var ErrUnsupportedCursorFormat = errors.New("unsupported cursor format")

// Cursor is an opaque, remote-issued change token scoped to one zone.
type Cursor struct {
	Zone      string    `json:"zone"`
	Token     []byte    `json:"token"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type cursorBlob struct {
	FormatVersion int    `json:"v"`
	Token         []byte `json:"token"`
}

// EncodeCursor serializes c into the versioned blob persisted per zone.
func EncodeCursor(c Cursor) ([]byte, error) {
	blob, err := json.Marshal(cursorBlob{FormatVersion: CursorFormatVersion, Token: c.Token})
	if err != nil {
		return nil, fmt.Errorf("encode cursor for zone %s: %w", c.Zone, err)
	}
	return blob, nil
}

// DecodeCursor parses a blob written by EncodeCursor.
func DecodeCursor(zone string, blob []byte) (Cursor, error) {
	var b cursorBlob
	if err := json.Unmarshal(blob, &b); err != nil {
		return Cursor{}, fmt.Errorf("decode cursor for zone %s: %w", zone, err)
	}
	if b.FormatVersion != CursorFormatVersion {
		return Cursor{}, fmt.Errorf("%w: version %d for zone %s", ErrUnsupportedCursorFormat, b.FormatVersion, zone)
	}
	return Cursor{Zone: zone, Token: b.Token}, nil
}

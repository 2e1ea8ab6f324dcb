package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-health-sync/models"
)

// Payload is implemented by every record payload type. DataType must not
// depend on the receiver's field values.
type Payload interface {
	DataType() models.DataType
}

// Mergeable is implemented by payload types that support field-level merging
// of two concurrent versions.
type Mergeable[T any] interface {
	MergeWith(remote T) T
}

// Codec decodes, validates and merges the payload of one record type.
type Codec interface {
	RecordType() models.RecordType
	DataType() models.DataType
	Mergeable() bool

	// Validate reports whether payload decodes into the record type.
	Validate(payload json.RawMessage) error

	// Merge combines local and remote payloads. changed reports whether the
	// merged payload differs from remote.
	Merge(local, remote json.RawMessage) (merged json.RawMessage, changed bool, err error)
}

type typedCodec[T Payload] struct {
	recordType models.RecordType
}

// NewCodec returns the Codec for payload type T registered under recordType.
func NewCodec[T Payload](recordType models.RecordType) Codec {
	return typedCodec[T]{recordType: recordType}
}

func (c typedCodec[T]) RecordType() models.RecordType { return c.recordType }

func (c typedCodec[T]) DataType() models.DataType {
	var zero T
	return zero.DataType()
}

func (c typedCodec[T]) Mergeable() bool {
	var zero T
	_, ok := any(zero).(Mergeable[T])
	return ok
}

func (c typedCodec[T]) Validate(payload json.RawMessage) error {
	_, err := c.decode(payload)
	return err
}

func (c typedCodec[T]) Merge(local, remote json.RawMessage) (json.RawMessage, bool, error) {
	l, err := c.decode(local)
	if err != nil {
		return nil, false, fmt.Errorf("decode local %s payload: %w", c.recordType, err)
	}
	r, err := c.decode(remote)
	if err != nil {
		return nil, false, fmt.Errorf("decode remote %s payload: %w", c.recordType, err)
	}

	m, ok := any(l).(Mergeable[T])
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrNotMergeable, c.recordType)
	}
	merged := m.MergeWith(r)

	mergedRaw, err := json.Marshal(merged)
	if err != nil {
		return nil, false, fmt.Errorf("encode merged %s payload: %w", c.recordType, err)
	}
	remoteRaw, err := json.Marshal(r)
	if err != nil {
		return nil, false, fmt.Errorf("encode remote %s payload: %w", c.recordType, err)
	}

	return mergedRaw, !bytes.Equal(mergedRaw, remoteRaw), nil
}

func (c typedCodec[T]) decode(payload json.RawMessage) (T, error) {
	var v T
	if len(payload) == 0 {
		return v, fmt.Errorf("%w: %s", ErrEmptyPayload, c.recordType)
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %w", ErrMalformedPayload, c.recordType, err)
	}
	return v, nil
}

package service

import (
	"github.com/MKhiriev/go-health-sync/models"
)

// mergeability reports whether a record type supports field-level merging.
// *registry.Registry implements it.
type mergeability interface {
	Mergeable(recordType models.RecordType) bool
}

type conflictResolver struct {
	types mergeability
}

func NewConflictResolver(types mergeability) ConflictResolver {
	return &conflictResolver{types: types}
}

// Resolve compares Version first and LastModified second. When both markers
// are equal the record is merged if its type allows it and neither side is a
// tombstone; otherwise the remote version wins.
func (r *conflictResolver) Resolve(local, remote models.SyncableRecord) models.ConflictDecision {
	switch {
	case local.Version > remote.Version:
		return models.UseLocal
	case local.Version < remote.Version:
		return models.UseRemote
	}

	switch c := local.LastModified.Compare(remote.LastModified); {
	case c > 0:
		return models.UseLocal
	case c < 0:
		return models.UseRemote
	}

	if !local.Deleted && !remote.Deleted && r.types.Mergeable(remote.RecordType) {
		return models.Merge
	}
	return models.UseRemote
}

package session

import (
	"context"
	"errors"

	"github.com/sowfeehealth/wellness/internal/models"
)

// ErrClearNotConfirmed is returned when a snapshot survives the clear
// read-back and its single retry. The remote store's clear and load may
// be eventually consistent across request boundaries, hence the
// verification.
var ErrClearNotConfirmed = errors.New("snapshot clear not confirmed")

// SnapshotStore persists in-progress answers for one snapshot kind.
// Implementations are scoped to a single namespace (routine or pending)
// at construction; both variants share the same contract.
//
// Save is idempotent: repeated saves with identical content overwrite.
// Load returns nil without error when no snapshot exists.
// Clear must be verified: after deleting, re-read and retry the delete
// exactly once before giving up with ErrClearNotConfirmed.
type SnapshotStore interface {
	Save(ctx context.Context, templateID string, snap models.AutosaveSnapshot) error
	Load(ctx context.Context, templateID string) (*models.AutosaveSnapshot, error)
	Clear(ctx context.Context, templateID string) error
}

// snapshotOps is the raw surface both adapters expose so the verified
// clear sequence lives in one place.
type snapshotOps interface {
	deleteOnce(ctx context.Context, templateID string) error
	Load(ctx context.Context, templateID string) (*models.AutosaveSnapshot, error)
}

func clearVerified(ctx context.Context, ops snapshotOps, templateID string) error {
	if err := ops.deleteOnce(ctx, templateID); err != nil {
		return err
	}
	snap, err := ops.Load(ctx, templateID)
	if err != nil || snap == nil {
		// A failed verification read is treated as cleared; the delete
		// itself succeeded and the caller never blocks on cleanup.
		return nil
	}
	if err := ops.deleteOnce(ctx, templateID); err != nil {
		return err
	}
	snap, err = ops.Load(ctx, templateID)
	if err == nil && snap != nil {
		return ErrClearNotConfirmed
	}
	return nil
}

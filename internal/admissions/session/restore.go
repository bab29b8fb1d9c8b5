package session

import (
	"context"
	"errors"
	"strings"

	"admissions-portal/internal/admissions/snapshot"
	"admissions-portal/internal/admissions/wire"
	apperrors "admissions-portal/internal/common/errors"
	"admissions-portal/internal/common/logger"
	"admissions-portal/internal/common/portalapi"
	"admissions-portal/internal/models"
)

// Fetcher loads the applicant's application from the backend.
type Fetcher interface {
	GetApplication(ctx context.Context, level models.Level) (*portalapi.Envelope, error)
}

// RestoreOptions says how a cached record becomes a draft.
type RestoreOptions struct {
	FilesURL    string // prefix for relative document paths
	UserEmail   string // authenticated email, locks the email field
	HomeCountry string
	// Fetcher is asked when nothing is cached. Optional.
	Fetcher Fetcher
	Logger  logger.Logger
}

// Restore builds the starting draft for an applicant: the cached snapshot
// when one exists, then the backend's copy, otherwise an empty draft. The
// authenticated email always wins over a stored one. The returned version is
// that of the snapshot the draft came from; pass it as Options.BaseVersion.
func Restore(ctx context.Context, store snapshot.Store, applicantID string, level models.Level, opts RestoreOptions) (*models.ApplicationDraft, uint64, error) {
	snap, err := store.Load(ctx, applicantID, level)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		rec, ok, err := fetch(ctx, store, applicantID, level, opts.Fetcher)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			return hydrate(rec, applicantID, level, opts), 0, nil
		}
		d := models.NewDraft(applicantID, level, opts.HomeCountry)
		if email := strings.TrimSpace(opts.UserEmail); email != "" {
			d.PersonalDetails.Email = email
			d.PersonalDetails.EmailLocked = true
		}
		return d, 0, nil
	case err != nil:
		return nil, 0, apperrors.NewSnapshotStoreFailedError("load", err)
	}

	return hydrate(snap.Record, applicantID, level, opts), snap.Version, nil
}

// fetch asks the backend for the application and caches what it returns at
// version zero, so any later local save wins over it.
func fetch(ctx context.Context, store snapshot.Store, applicantID string, level models.Level, f Fetcher) (models.ApplicationRecord, bool, error) {
	if f == nil {
		return nil, false, nil
	}
	env, err := f.GetApplication(ctx, level)
	if err != nil {
		return nil, false, err
	}
	rec, ok := env.First()
	if !ok {
		return nil, false, nil
	}
	if _, err := store.Save(ctx, &snapshot.Snapshot{ApplicantID: applicantID, Level: level, Record: rec}); err != nil {
		return nil, false, apperrors.NewSnapshotStoreFailedError("save", err)
	}
	return rec, true, nil
}

func hydrate(rec models.ApplicationRecord, applicantID string, level models.Level, opts RestoreOptions) *models.ApplicationDraft {
	d, err := wire.Hydrate(rec, applicantID, opts.FilesURL, opts.UserEmail, opts.HomeCountry)
	if err != nil && opts.Logger != nil {
		logger.ForApplication(opts.Logger, applicantID, string(level)).
			Warn("stored application has malformed fields", map[string]interface{}{"error": err})
	}
	d.Level = level
	return d
}

package resolve

import (
	"context"
	"errors"
	"strings"

	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/remote"
)

// Validation errors checked before any network call.
var (
	ErrNoSource    = errors.New("no source selected")
	ErrLocalSource = errors.New("cannot apply patches to a local source")
	ErrNoRootPath  = errors.New("source has no root path")
	ErrEmptyPatch  = errors.New("patch is empty")
)

// ValidateApply checks the apply preconditions. Each failure is a
// distinct local error; no network I/O happens here.
func ValidateApply(src *models.Source, patchText string) error {
	if src == nil {
		return ErrNoSource
	}
	switch src.Kind {
	case models.SourceKindRemote:
		// supported
	case models.SourceKindLocal:
		return ErrLocalSource
	default:
		return ErrLocalSource
	}
	if src.RootPath == "" {
		return ErrNoRootPath
	}
	if strings.TrimSpace(patchText) == "" {
		return ErrEmptyPatch
	}
	return nil
}

// Apply validates and submits a patch against the selected source's root
// path. On service failure the returned ApplyResult still carries
// whatever partial progress the server reported; the error describes the
// overall outcome.
func Apply(ctx context.Context, client *remote.Client, src *models.Source, patchText string) (*models.ApplyResult, error) {
	if err := ValidateApply(src, patchText); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("no endpoint configured")
	}

	res, err := client.ApplyPatch(ctx, src.RootPath, patchText)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		// Surface the failure but hand back the result: the caller must
		// report how many files were applied before it broke.
		return res, errors.New(applyError(res))
	}
	return res, nil
}

func applyError(res *models.ApplyResult) string {
	if res.Error != "" {
		return res.Error
	}
	return "apply failed"
}

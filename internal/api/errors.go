package api

import "errors"

// ErrDraftNotFound is returned by Drafts.Get when no draft has the id.
var ErrDraftNotFound = errors.New("draft not found")

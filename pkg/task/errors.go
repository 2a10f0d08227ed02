package task

import "github.com/pkg/errors"

// ErrRemoteFolderMissing reports that a backup's remote target folder
// does not exist. The projection layer translates this into a user
// actionable condition for fileset listings.
var ErrRemoteFolderMissing = errors.New("remote folder missing")

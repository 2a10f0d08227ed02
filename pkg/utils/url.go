package utils

import (
	"net/url"
)

// IsValidTargetURL reports whether str can serve as a backup target
// location. Targets are scheme URLs, file:// for local directories or a
// bucket URL such as s3://bucket/prefix.
func IsValidTargetURL(str string) bool {
	u, err := url.Parse(str)
	return err == nil && u.Scheme != ""
}

package catalog

import "time"

// SizeUnknown marks entries whose size could not be determined.
const SizeUnknown int64 = -1

// Entry one file or folder as recorded in a fileset
type Entry struct {
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"isDirectory"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	IsSymlink    bool      `json:"isSymlink,omitempty"`
}

// VersionedEntry an entry together with the fileset it was found in
type VersionedEntry struct {
	Version      int64     `json:"version"`
	Time         time.Time `json:"time"`
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"isDirectory"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	IsSymlink    bool      `json:"isSymlink,omitempty"`
}

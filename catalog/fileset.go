package catalog

import "time"

// Fileset metadata of one complete backup run
type Fileset struct {
	Version      int64     `json:"version"`
	Time         time.Time `json:"time"`
	IsFullBackup bool      `json:"isFullBackup"`
	FileCount    int64     `json:"fileCount"`
	FileSizes    int64     `json:"fileSizes"`
}

// Document a stored fileset - metadata plus the full file list
type Document struct {
	Version      int64     `json:"version"`
	Time         time.Time `json:"time"`
	IsFullBackup bool      `json:"isFullBackup"`
	Entries      []Entry   `json:"entries"`
}

// Fileset derives the fileset metadata from a document
func (d *Document) Fileset() Fileset {
	var sizes int64
	for _, e := range d.Entries {
		if e.Size > 0 {
			sizes += e.Size
		}
	}
	return Fileset{
		Version:      d.Version,
		Time:         d.Time,
		IsFullBackup: d.IsFullBackup,
		FileCount:    int64(len(d.Entries)),
		FileSizes:    sizes,
	}
}

package registry

import "strings"

// Setting one named backup setting, e.g. {"--no-encryption", "true"}
type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Backup a configured backup target
type Backup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// where the filesets live, a blob URL (gs://, s3://, azblob://, mem://)
	// or a file:// directory
	TargetURL string `json:"targetUrl"`
	// temporary backups have no durable local index
	IsTemporary bool      `json:"isTemporary,omitempty"`
	Settings    []Setting `json:"settings,omitempty"`
}

// Setting looks up a setting by name. Names match case-insensitively,
// settings are a small externally owned list, so this scans the slice.
func (b *Backup) Setting(name string) (string, bool) {
	for _, s := range b.Settings {
		if strings.EqualFold(s.Name, name) {
			return s.Value, true
		}
	}
	return "", false
}

package requests

// Filter matches entry paths during a search. Expressions are glob
// patterns; anything that is not a valid pattern is matched as a
// substring.
type Filter struct {
	Expression      string `json:"expression"`
	CaseInsensitive bool   `json:"caseInsensitive,omitempty"`
}

// Filesets - list the filesets of a backup, one per backup run
type Filesets struct {
	BackupID string `json:"backupId"`
	// skip the local index and list the remote store directly
	ForceRemoteListing *bool `json:"forceRemoteListing,omitempty"`
}

// FolderContent - list the direct children of folders as they were at a
// point in time. A blank time means the state at backup time zero.
type FolderContent struct {
	BackupID string   `json:"backupId"`
	Paths    []string `json:"paths"`
	Time     string   `json:"time,omitempty"`
	Page     *int     `json:"page,omitempty"`
	PageSize *int     `json:"pageSize,omitempty"`
}

// FileVersions - list every fileset a path occurs in
type FileVersions struct {
	BackupID string   `json:"backupId"`
	Paths    []string `json:"paths"`
	Page     *int     `json:"page,omitempty"`
	PageSize *int     `json:"pageSize,omitempty"`
}

// Search - find entries by filter expressions, optionally scoped to paths
type Search struct {
	BackupID string   `json:"backupId"`
	Filters  []Filter `json:"filters"`
	Paths    []string `json:"paths,omitempty"`
	Time     string   `json:"time,omitempty"`
	Page     *int     `json:"page,omitempty"`
	PageSize *int     `json:"pageSize,omitempty"`
}

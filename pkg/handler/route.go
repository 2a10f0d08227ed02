package handler

// Route type
type Route string

const (
	// RouteListFilesets list the filesets of a backup
	RouteListFilesets Route = "listFilesets"
	// RouteListFolderContent list folder contents at a point in time
	RouteListFolderContent Route = "listFolderContent"
	// RouteListFileVersions list the filesets a path occurs in
	RouteListFileVersions Route = "listFileVersions"
	// RouteSearchEntries search entries by filter expressions
	RouteSearchEntries Route = "searchEntries"
)

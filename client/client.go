// Package client is a typed Go client for the filecatalog listing API.
package client

import (
	"net/http"

	"github.com/bitshelter/filecatalog/catalog"
	"github.com/bitshelter/filecatalog/pkg/handler"
	"github.com/bitshelter/filecatalog/requests"
	"github.com/bitshelter/filecatalog/responses"
)

// Client a filecatalog client
type Client struct {
	t transport
}

// NewHTTPClient creates a client that talks to the http front end at
// endpoint, e.g. "http://localhost:8080/filecatalog"
func NewHTTPClient(endpoint string) *Client {
	return NewHTTPClientWithHTTPClient(endpoint, http.DefaultClient)
}

// NewHTTPClientWithHTTPClient same as NewHTTPClient with a custom http client
func NewHTTPClientWithHTTPClient(endpoint string, httpClient *http.Client) *Client {
	return &Client{
		t: newHTTPTransport(endpoint, httpClient),
	}
}

// ListFilesets lists the filesets of a backup
func (c *Client) ListFilesets(request *requests.Filesets) (*responses.Page[catalog.Fileset], error) {
	response := &responses.Page[catalog.Fileset]{}
	if err := c.t.call(handler.RouteListFilesets, request, response); err != nil {
		return nil, err
	}
	return response, nil
}

// ListFolderContent lists folder contents at a point in time
func (c *Client) ListFolderContent(request *requests.FolderContent) (*responses.Page[catalog.Entry], error) {
	response := &responses.Page[catalog.Entry]{}
	if err := c.t.call(handler.RouteListFolderContent, request, response); err != nil {
		return nil, err
	}
	return response, nil
}

// ListFileVersions lists the filesets the given paths occur in
func (c *Client) ListFileVersions(request *requests.FileVersions) (*responses.Page[catalog.VersionedEntry], error) {
	response := &responses.Page[catalog.VersionedEntry]{}
	if err := c.t.call(handler.RouteListFileVersions, request, response); err != nil {
		return nil, err
	}
	return response, nil
}

// SearchEntries finds entries by filter expressions
func (c *Client) SearchEntries(request *requests.Search) (*responses.Page[catalog.VersionedEntry], error) {
	response := &responses.Page[catalog.VersionedEntry]{}
	if err := c.t.call(handler.RouteSearchEntries, request, response); err != nil {
		return nil, err
	}
	return response, nil
}

// Shutdown releases transport resources
func (c *Client) Shutdown() {
	c.t.shutdown()
}

// Package socket implements a JSON-over-Unix-socket protocol for the eiji
// watch daemon. While a daemon holds the manifest database, other eiji
// commands query and rebuild through it.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/corey/eiji/internal/domain/query"
	"github.com/corey/eiji/internal/ports"
)

// SocketPath returns the Unix socket path for a given data directory.
// Format: /tmp/eiji-{first12hex}.sock
func SocketPath(dataDir string) string {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		abs = dataDir
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/eiji-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodSearch   = "search"
	MethodHealth   = "health"
	MethodRebuild  = "rebuild"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"` // machine-readable error class
}

// Error codes carried next to Response.Error.
const (
	CodeNoSource = "no_source"
)

// errorCode classifies err for the wire. Unclassified errors get no code.
func errorCode(err error) string {
	if errors.Is(err, ports.ErrNoSource) {
		return CodeNoSource
	}
	return ""
}

// RemoteError is an error reported by the daemon. Errors with a known code
// unwrap to the matching sentinel, so errors.Is works across the socket.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string { return "server error: " + e.Message }

func (e *RemoteError) Unwrap() error {
	if e.Code == CodeNoSource {
		return ports.ErrNoSource
	}
	return nil
}

// SearchParams is the params for a search request.
type SearchParams struct {
	Query string `json:"query"`
}

// SearchResult is the result of a search request.
type SearchResult struct {
	Groups  []GroupHits `json:"groups"`
	Elapsed string      `json:"elapsed"`
}

// GroupHits is the ordered lines of one dictionary group.
type GroupHits struct {
	Name    string       `json:"name"`
	Lines   []string     `json:"lines"`
	Sources []SourceHits `json:"sources"`
}

// Count returns the number of lines in the group.
func (g GroupHits) Count() int { return len(g.Lines) }

// SourceHits summarizes what one dictionary contributed to a group.
type SourceHits struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Total     int    `json:"total"` // candidates before the cap
	Truncated bool   `json:"truncated,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
}

// Summarize converts engine results to their wire form.
func Summarize(results []query.GroupResult) []GroupHits {
	out := make([]GroupHits, len(results))
	for i, g := range results {
		hits := GroupHits{Name: g.Name, Lines: g.Lines, Sources: make([]SourceHits, len(g.Results))}
		for j, r := range g.Results {
			sh := SourceHits{Count: len(r.Matches), Total: r.Total, Truncated: r.Truncated, Skipped: len(r.Skipped)}
			if j < len(g.Sources) {
				sh.Name = g.Sources[j]
			}
			hits.Sources[j] = sh
		}
		out[i] = hits
	}
	return out
}

// RebuildParams is the params for a rebuild request.
type RebuildParams struct {
	Name string `json:"name"`
}

// RebuildResult is the manifest of the finished build.
type RebuildResult struct {
	Manifest ports.Manifest `json:"manifest"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status       string             `json:"status"`
	Uptime       string             `json:"uptime"`
	DataDir      string             `json:"data_dir"`
	Dictionaries []DictionaryStatus `json:"dictionaries"`
}

// DictionaryStatus is one dictionary as the daemon sees it.
type DictionaryStatus struct {
	Name      string `json:"name"`
	Group     string `json:"group"`
	Available bool   `json:"available"`
	Entries   int64  `json:"entries"`
}

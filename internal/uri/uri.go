// Package uri normalises editor-supplied document URIs into canonical local
// filesystem paths, as described by the URI Normaliser component of the
// document model (spec.md §4.1).
//
// Only file:// URIs are supported: no host, or exactly "localhost"; a
// present path with no literal spaces and no dot-segments; a decoded length
// within the bound the original implementation's fixed-size path buffer
// allowed (FILE_URI_MAX - 1 in the C source, see original_source/src/file_system.h).
package uri

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MaxPathLength is the largest decoded path this package accepts, matching
// the original implementation's 1024-byte path buffer minus its NUL
// terminator.
const MaxPathLength = 1023

// DefaultTableSize is the hash table size used when a caller does not need a
// custom bound; it matches the original FILE_HASH_SIZE.
const DefaultTableSize = 256

// FailureKind enumerates why a URI failed to normalise.
type FailureKind int

const (
	// FailureNone is the zero value and never appears on a returned Error.
	FailureNone FailureKind = iota
	FailureUnparsable
	FailureWrongScheme
	FailureNonLocalHost
	FailureMissingPath
	FailureIllegalCharacters
	FailureOversize
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnparsable:
		return "unparsable URI"
	case FailureWrongScheme:
		return "unsupported scheme"
	case FailureNonLocalHost:
		return "non-local host"
	case FailureMissingPath:
		return "missing path"
	case FailureIllegalCharacters:
		return "illegal characters in path"
	case FailureOversize:
		return "path too long"
	default:
		return "unknown failure"
	}
}

// Error reports why a raw URI was rejected. It never carries a partial
// result: a rejected URI produces no Normalized value at all.
type Error struct {
	Kind FailureKind
	Raw  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("uri: %s: %q", e.Kind, e.Raw)
}

// Normalized is the canonical result of normalising an accepted URI.
type Normalized struct {
	Path string
	Hash uint64
}

// Normalize parses rawURI as a file:// document URI and, if accepted,
// returns its canonical decoded path and a hash bounded to tableSize (which
// must be a power of two; a non-power-of-two is a caller programming error,
// not a user-input error, and panics).
func Normalize(rawURI string, tableSize uint32) (Normalized, error) {
	if tableSize == 0 || tableSize&(tableSize-1) != 0 {
		panic(fmt.Sprintf("uri: table size %d is not a power of two", tableSize))
	}

	scheme, host, rawPath, ok := splitURI(rawURI)
	if !ok {
		return Normalized{}, &Error{Kind: FailureUnparsable, Raw: rawURI}
	}
	if scheme != "file" {
		return Normalized{}, &Error{Kind: FailureWrongScheme, Raw: rawURI}
	}
	if host != "" && host != "localhost" {
		return Normalized{}, &Error{Kind: FailureNonLocalHost, Raw: rawURI}
	}
	if rawPath == "" {
		return Normalized{}, &Error{Kind: FailureMissingPath, Raw: rawURI}
	}
	// These checks run against the still-percent-encoded path, exactly as
	// the original file_uri_parse does before calling uri_decode: an editor
	// must encode spaces, so a literal space here is always a protocol
	// violation rather than legitimate content.
	if strings.Contains(rawPath, " ") || strings.Contains(rawPath, "./") {
		return Normalized{}, &Error{Kind: FailureIllegalCharacters, Raw: rawURI}
	}

	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return Normalized{}, &Error{Kind: FailureIllegalCharacters, Raw: rawURI}
	}
	if len(decoded) > MaxPathLength {
		return Normalized{}, &Error{Kind: FailureOversize, Raw: rawURI}
	}

	hash := xxhash.Sum64String(decoded) & uint64(tableSize-1)
	return Normalized{Path: decoded, Hash: hash}, nil
}

// splitURI performs the minimal generic-URI parse the normaliser needs:
// scheme, optional authority (host), and raw (still-encoded) path. It does
// not attempt to be a general RFC 3986 parser — query strings and fragments,
// which file:// document URIs never carry in practice, are simply trimmed.
func splitURI(raw string) (scheme, host, rawPath string, ok bool) {
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return "", "", "", false
	}
	scheme = raw[:idx]
	rest := raw[idx+3:]

	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	if rest == "" {
		return scheme, "", "", true
	}
	if rest[0] == '/' {
		return scheme, "", rest, true
	}

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return scheme, rest, "", true
	}
	return scheme, rest[:slash], rest[slash:], true
}

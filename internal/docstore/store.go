// Package docstore implements the Document Store of the document model
// (spec.md §3.5, §4.3): a registry of open documents keyed by normalised
// URI, each owning one text buffer, supporting open/change/close/teardown.
//
// Grounded on original_source/src/file_system.c's file_system_* functions,
// restructured around internal/uri for path normalisation and
// internal/textbuffer for the owned buffer, with the hash-chain traversal
// bug described in spec.md §9 fixed rather than reproduced.
package docstore

import (
	"fmt"

	"github.com/orizon-lang/docsync-lsp/internal/textbuffer"
	"github.com/orizon-lang/docsync-lsp/internal/uri"
)

// ChunkSize is the production text-buffer chunk size new documents are
// allocated with; spec.md §4.2.8 calls 16 KiB a "typical production value".
const ChunkSize = 16 * 1024

// Logger is the diagnostic sink a Store warns protocol breaches through.
// *cli.Logger satisfies it; tests substitute a gomock-based mock
// (mock_logger_test.go) to assert a specific breach was actually logged.
type Logger interface {
	Warn(format string, args ...interface{})
}

// Store is the open-document registry keyed by normalised URI path.
type Store struct {
	table     *table
	tableSize uint32
	chunkSize int
	log       Logger
}

// New creates an empty store using uri.DefaultTableSize buckets and the
// production chunk size.
func New(log Logger) *Store {
	return NewSized(log, uri.DefaultTableSize, ChunkSize)
}

// NewSized creates an empty store with an explicit table size (must be a
// power of two, as required by uri.Normalize) and text-buffer chunk size;
// tests use small chunk sizes to force chunk-boundary conditions
// (spec.md §4.2.8).
func NewSized(log Logger, tableSize uint32, chunkSize int) *Store {
	return &Store{
		table:     newTable(int(tableSize)),
		tableSize: tableSize,
		chunkSize: chunkSize,
		log:       log,
	}
}

// Edit is one replacement within a didChange notification: either a
// line/char range to replace, or the all -1 sentinel meaning "replace the
// whole document" (spec.md §4.3, Glossary "Edit").
type Edit struct {
	StartLine, StartChar int
	EndLine, EndChar     int
	Text                 string
}

func (e Edit) isWholeDocumentReplace() bool {
	return e.StartLine == -1 && e.StartChar == -1 && e.EndLine == -1 && e.EndChar == -1
}

func (e Edit) rangeNonEmpty() bool {
	return e.StartLine < e.EndLine || (e.StartLine == e.EndLine && e.StartChar < e.EndChar)
}

// Lookup normalises rawURI and resolves it to its open Document.
func (s *Store) Lookup(rawURI string) (*Document, error) {
	norm, err := uri.Normalize(rawURI, s.tableSize)
	if err != nil {
		return nil, err
	}
	if doc := s.table.find(norm.Hash, norm.Path); doc != nil {
		return doc, nil
	}
	return nil, fmt.Errorf("docstore: %q is not open", norm.Path)
}

// Open registers rawURI as an open document with the given version and
// initial contents (spec.md §4.3). Reopening a path whose open_count is
// already nonzero is a protocol breach: it is logged, and the buffer is
// still reset and reopened so a single misbehaving client message cannot
// wedge the store.
func (s *Store) Open(rawURI string, version int, text string) error {
	norm, err := uri.Normalize(rawURI, s.tableSize)
	if err != nil {
		return err
	}

	if doc := s.table.find(norm.Hash, norm.Path); doc != nil {
		if doc.OpenCount != 0 && s.log != nil {
			s.log.Warn("reopening %q without a prior close (open_count=%d)", norm.Path, doc.OpenCount)
		}
		doc.Text.Clear()
		doc.Text.InsertBytes([]byte(text))
		doc.Version = version
		doc.OpenCount = 1
		return nil
	}

	doc := &Document{
		Path:      norm.Path,
		Hash:      norm.Hash,
		Version:   version,
		OpenCount: 1,
		Text:      textbuffer.New(s.chunkSize),
	}
	doc.Text.InsertBytes([]byte(text))
	s.table.insert(doc)
	return nil
}

// Change applies edits, in array order, to the document at rawURI, then
// sets its version (spec.md §4.3). An unknown path is reported to the
// caller, which per spec.md §4.3/§7 logs and drops it rather than
// responding with an error (didChange is a notification).
func (s *Store) Change(rawURI string, version int, edits []Edit) error {
	norm, err := uri.Normalize(rawURI, s.tableSize)
	if err != nil {
		return err
	}
	doc := s.table.find(norm.Hash, norm.Path)
	if doc == nil {
		return fmt.Errorf("docstore: change to unknown document %q", norm.Path)
	}

	for _, edit := range edits {
		if edit.isWholeDocumentReplace() {
			doc.Text.Clear()
		} else {
			start := textbuffer.Position{Line: edit.StartLine, Char: edit.StartChar}
			if !doc.Text.SetPoint(start) {
				if s.log != nil {
					s.log.Warn("change to %q: unable to locate position {%d %d}", norm.Path, edit.StartLine, edit.StartChar)
				}
				continue
			}
			if edit.rangeNonEmpty() {
				end := textbuffer.Position{Line: edit.EndLine, Char: edit.EndChar}
				doc.Text.DeleteUntil(end)
			}
		}
		if edit.Text != "" {
			doc.Text.InsertBytes([]byte(edit.Text))
		}
	}

	doc.Version = version
	return nil
}

// Close releases the document at rawURI (spec.md §4.3). A close without a
// matching open (open_count != 1) is a protocol breach; it is logged, and
// the document is removed regardless so the store does not accumulate
// documents a client believes it has closed.
func (s *Store) Close(rawURI string) error {
	norm, err := uri.Normalize(rawURI, s.tableSize)
	if err != nil {
		return err
	}
	doc := s.table.find(norm.Hash, norm.Path)
	if doc == nil {
		return fmt.Errorf("docstore: close of unopened document %q", norm.Path)
	}
	if doc.OpenCount != 1 && s.log != nil {
		s.log.Warn("closing %q with open_count=%d", norm.Path, doc.OpenCount)
	}
	doc.OpenCount--
	s.table.remove(doc)
	return nil
}

// Free releases every open document, as on server shutdown (spec.md §4.3,
// §5 Teardown).
func (s *Store) Free() {
	var all []*Document
	s.table.each(func(d *Document) { all = append(all, d) })
	for _, d := range all {
		s.table.remove(d)
	}
}

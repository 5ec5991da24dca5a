package docstore

import "github.com/orizon-lang/docsync-lsp/internal/textbuffer"

// Document is one open text document, keyed by its normalised path
// (spec.md §3.4). It is an intrusive node in its Store's table: it belongs
// to exactly one bucket chain and one global iteration list at a time.
type Document struct {
	Path      string
	Hash      uint64
	Version   int
	OpenCount int
	Text      *textbuffer.Buffer

	next, prev         *Document
	hashNext, hashPrev *Document
}

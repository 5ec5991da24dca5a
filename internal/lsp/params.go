package lsp

import "github.com/orizon-lang/docsync-lsp/internal/docstore"

// initializeParams mirrors spec.md §4.4.4's initialize request parameters.
type initializeParams struct {
	ProcessID *int    `json:"processId"`
	RootURI   *string `json:"rootUri"`
	Trace     string  `json:"trace"`
}

// didOpenParams is flat, per spec.md §4.4.4: "{uri, languageId?, version,
// text}" — unlike didChange/didSave/didClose, it is not nested under a
// textDocument object.
type didOpenParams struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type positionParam struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type rangeParam struct {
	Start positionParam `json:"start"`
	End   positionParam `json:"end"`
}

type contentChangeParam struct {
	Range *rangeParam `json:"range"`
	Text  string      `json:"text"`
}

type didChangeParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version int    `json:"version"`
	} `json:"textDocument"`
	ContentChanges []contentChangeParam `json:"contentChanges"`
}

type didSaveParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Version *int   `json:"version"`
	} `json:"textDocument"`
}

type didCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

// editsFromContentChanges converts didChange's contentChanges into
// docstore.Edit values; a change with no range means whole-document
// replace, the all -1 sentinel (spec.md §4.4.4, Glossary "Edit").
func editsFromContentChanges(changes []contentChangeParam) []docstore.Edit {
	edits := make([]docstore.Edit, 0, len(changes))
	for _, c := range changes {
		if c.Range == nil {
			edits = append(edits, docstore.Edit{
				StartLine: -1, StartChar: -1, EndLine: -1, EndChar: -1,
				Text: c.Text,
			})
			continue
		}
		edits = append(edits, docstore.Edit{
			StartLine: c.Range.Start.Line,
			StartChar: c.Range.Start.Character,
			EndLine:   c.Range.End.Line,
			EndChar:   c.Range.End.Character,
			Text:      c.Text,
		})
	}
	return edits
}

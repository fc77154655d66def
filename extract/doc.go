// Package extract turns uploaded files into raw text.
//
// A Chain holds an ordered list of Strategy implementations. For a given
// file every strategy that accepts the file name is tried in turn; the
// first one to return non-blank text wins. When all of them fail the
// chain returns an *UnavailableError carrying each attempt, which
// unwraps to core.ErrExtractionUnavailable.
//
// PDFs get three strategies of decreasing fidelity: row-ordered layout,
// whole-document plain text, and a page-by-page reader that skips pages
// it cannot decode. Parser panics on malformed input are recovered and
// reported as ordinary failures.
package extract

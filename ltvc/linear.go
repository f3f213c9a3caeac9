package ltvc

import (
	"io"

	"cairn/internal/chash"
)

// SectionKind identifies which header introduced a Section.
type SectionKind int

const (
	SectionFhdr SectionKind = iota
	SectionShdr
	SectionPidx
	SectionAidx
)

// Section is one logical section yielded by LinearReader: a header plus
// its payload sub-stream.
type Section struct {
	Kind   SectionKind
	Hash   chash.Hash // valid only when Kind == SectionFhdr
	Stream *EdatStream
}

// spoState is the closed sum type backing the Spo grammar from the
// container's design: Start, Ahdr, Header, Edat, Aend. Modeled as an
// enum with one explicit case per state in Next rather than as strings;
// any state without a case falls to Next's default branch and returns
// ErrGrammar instead of falling through silently.
type spoState int

const (
	spoStart spoState = iota
	spoAhdr
	spoHeader
	spoEdat
	spoAend
)

// LinearReader drives the typed reader through the archive grammar,
// converting the reference implementation's panics on invalid
// transitions into ErrGrammar/ErrVersionUnsupported returns.
type LinearReader struct {
	tr          *TypedReader
	state       spoState
	pendingKind SectionKind
	pendingHash chash.Hash
	aendOffset  uint32
	finished    bool
}

func NewLinearReader(r io.Reader) *LinearReader {
	return &LinearReader{tr: NewTypedReader(r), state: spoStart}
}

// NewLinearReaderWithLimit is NewLinearReader with an overridden
// declared-length cap, threaded down through TypedReader/RawReader; see
// NewRawReaderWithLimit.
func NewLinearReaderWithLimit(r io.Reader, maxChunk uint32) *LinearReader {
	return &LinearReader{tr: NewTypedReaderWithLimit(r, maxChunk), state: spoStart}
}

// Next returns the next logical section, or io.EOF once the archive's
// AEND has been consumed and the underlying stream is exhausted.
func (lr *LinearReader) Next() (Section, error) {
	if lr.finished {
		return Section{}, io.EOF
	}
	for {
		switch lr.state {
		case spoStart:
			e, err := lr.tr.Next()
			if err != nil {
				return Section{}, err
			}
			if e.Kind != EntryAhdr {
				return Section{}, ErrGrammar
			}
			lr.state = spoAhdr

		case spoAhdr, spoEdat:
			e, err := lr.tr.Next()
			if err != nil {
				return Section{}, err
			}
			switch e.Kind {
			case EntryFhdr:
				lr.pendingKind, lr.pendingHash = SectionFhdr, e.Hash
				lr.state = spoHeader
			case EntryShdr:
				lr.pendingKind = SectionShdr
				lr.state = spoHeader
			case EntryPidx:
				lr.pendingKind = SectionPidx
				lr.state = spoHeader
			case EntryAidx:
				lr.pendingKind = SectionAidx
				lr.state = spoHeader
			case EntryAend:
				if _, err := lr.tr.Next(); err != io.EOF {
					if err == nil {
						err = ErrGrammar
					}
					return Section{}, err
				}
				lr.aendOffset = e.Offset
				lr.state = spoAend
				lr.finished = true
				return Section{}, io.EOF
			default:
				return Section{}, ErrGrammar
			}

		case spoHeader:
			e, err := lr.tr.Next()
			if err != nil {
				return Section{}, err
			}
			if e.Kind != EntryEdat {
				return Section{}, ErrGrammar
			}
			sec := Section{Kind: lr.pendingKind, Hash: lr.pendingHash, Stream: e.Stream}
			lr.state = spoEdat
			return sec, nil

		case spoAend:
			return Section{}, io.EOF

		default:
			return Section{}, ErrGrammar
		}
	}
}

// AendOffset returns the offset carried by AEND once Next has returned
// io.EOF after a clean archive close. It is 0 if no AIDX trailer was
// present.
func (lr *LinearReader) AendOffset() uint32 {
	return lr.aendOffset
}

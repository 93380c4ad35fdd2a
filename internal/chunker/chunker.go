// Package chunker splits extracted document text into bounded, overlapping
// segments sized for a single summarization call.
package chunker

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Characters per token used to turn a token budget into a character budget.
const charsPerToken = 4

// Options controls segmentation. Sizes are in bytes of UTF-8 text.
type Options struct {
	MaxChars     int
	OverlapChars int
	Separator    string
	// MinChunkChars drops chunks of at most this many bytes when the text
	// produced more than one chunk.
	MinChunkChars int
	// MaxChunks stops segmentation early; 0 means unbounded.
	MaxChunks int
}

// DefaultOptions is a 50k-token window with a 200-token overlap.
func DefaultOptions() Options {
	return Options{
		MaxChars:      50000 * charsPerToken,
		OverlapChars:  200 * charsPerToken,
		Separator:     "\n\n",
		MinChunkChars: 50,
		MaxChunks:     1000,
	}
}

// Segment is a half-open byte range [Start, End) of the source text.
type Segment struct {
	Start int
	End   int
}

func (s Segment) Len() int { return s.End - s.Start }

type Chunker struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Chunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultOptions().MaxChars
	}
	if opts.OverlapChars < 0 {
		opts.OverlapChars = 0
	}
	if opts.OverlapChars >= opts.MaxChars {
		opts.OverlapChars = opts.MaxChars - 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{opts: opts, logger: logger}
}

// breakpoints returns the cut candidates in priority order.
func (c *Chunker) breakpoints() []string {
	seps := make([]string, 0, 4)
	for _, s := range []string{c.opts.Separator, "\n", ". ", " "} {
		if s == "" {
			continue
		}
		dup := false
		for _, existing := range seps {
			if existing == s {
				dup = true
				break
			}
		}
		if !dup {
			seps = append(seps, s)
		}
	}
	return seps
}

// Split returns the raw segments. Every segment is at most MaxChars long,
// starts strictly after the previous one, and overlaps it by at most
// OverlapChars, so text[s0.Start:s0.End] followed by text[prev.End:s.End]
// for each later segment reproduces the input.
func (c *Chunker) Split(text string) []Segment {
	if len(text) == 0 {
		return nil
	}

	var segs []Segment
	start, prevEnd := 0, 0
	for start < len(text) {
		if c.opts.MaxChunks > 0 && len(segs) >= c.opts.MaxChunks {
			c.logger.Warn("Chunk limit reached, truncating document",
				zap.Int("max_chunks", c.opts.MaxChunks),
				zap.Int("consumed_bytes", segs[len(segs)-1].End),
				zap.Int("total_bytes", len(text)))
			break
		}

		end := start + c.opts.MaxChars
		if end >= len(text) {
			segs = append(segs, Segment{Start: start, End: len(text)})
			break
		}

		cut := c.cutPoint(text, start, end, prevEnd)
		if cut-start > c.opts.MaxChars {
			// the rune after prevEnd straddles the window edge; give up overlap
			// rather than exceed MaxChars
			s := cut - c.opts.MaxChars
			for s < cut && !utf8.RuneStart(text[s]) {
				s++
			}
			if s < cut {
				start = s
			}
		}
		segs = append(segs, Segment{Start: start, End: cut})
		prevEnd = cut
		if cut >= len(text) {
			break
		}

		next := cut - c.opts.OverlapChars
		if next <= start {
			next = cut
		}
		for next < cut && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return segs
}

// cutPoint picks the end of the segment starting at start. The cut always
// lands past floor, the previous segment's end, so no segment repeats a
// window. It may exceed end only when no rune boundary lies in (floor, end].
func (c *Chunker) cutPoint(text string, start, end, floor int) int {
	window := text[start:end]
	for _, sep := range c.breakpoints() {
		idx := strings.LastIndex(window, sep)
		if idx > 0 && start+idx+len(sep) > floor {
			return start + idx + len(sep)
		}
	}

	lo := floor
	if start > lo {
		lo = start
	}
	cut := end
	for cut > lo && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut > lo {
		return cut
	}
	cut = lo + 1
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return cut
}

// Chunk returns trimmed chunk texts ready for summarization. A document that
// fits in one window comes back as exactly one chunk.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	segs := c.Split(text)
	chunks := make([]string, 0, len(segs))
	for _, s := range segs {
		if trimmed := strings.TrimSpace(text[s.Start:s.End]); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	if len(chunks) <= 1 || c.opts.MinChunkChars <= 0 {
		return chunks
	}

	kept := chunks[:0]
	for _, ch := range chunks {
		if len(ch) > c.opts.MinChunkChars {
			kept = append(kept, ch)
		}
	}
	if len(kept) < len(chunks) {
		c.logger.Debug("Dropped short chunks", zap.Int("dropped", len(chunks)-len(kept)))
	}
	return kept
}

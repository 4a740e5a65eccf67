package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]\s+`)
)

// span is a trimmed byte range [start, end) of the source text, tagged with
// the paragraph it belongs to.
type span struct {
	start     int
	end       int
	paragraph int
}

// accumulator packs units into chunks of at most chunkSize characters.
// A unit that does not fit flushes the buffer; the next buffer starts with
// the last few words of the flushed one.
type accumulator struct {
	text      string
	chunkSize int
	tailWords int
	out       *emitter

	buf    []span
	length int
}

func newAccumulator(text string, cfg config, out *emitter) *accumulator {
	return &accumulator{
		text:      text,
		chunkSize: cfg.chunkSize,
		tailWords: cfg.overlap / avgWordLength,
		out:       out,
	}
}

func (a *accumulator) add(u span) {
	if a.length > 0 && a.length+a.runeLen(u) > a.chunkSize {
		tail := a.tail()
		a.flush()
		for _, t := range tail {
			a.push(t)
		}
	}
	a.push(u)
}

func (a *accumulator) push(u span) {
	if n := len(a.buf); n > 0 {
		a.length += len(separator(a.buf[n-1], u))
	}
	a.length += a.runeLen(u)
	a.buf = append(a.buf, u)
}

// flush emits the buffer as one chunk and empties it.
func (a *accumulator) flush() {
	if len(a.buf) == 0 {
		return
	}

	var b strings.Builder
	for i, u := range a.buf {
		if i > 0 {
			b.WriteString(separator(a.buf[i-1], u))
		}
		b.WriteString(a.text[u.start:u.end])
	}

	first, last := a.buf[0], a.buf[len(a.buf)-1]
	a.out.emit(b.String(), runeOffset(a.text, first.start), runeOffset(a.text, last.end))

	a.buf = a.buf[:0]
	a.length = 0
}

// tail returns the last tailWords words of the buffer. The words may span
// several units; the first returned span can start inside its unit.
func (a *accumulator) tail() []span {
	if a.tailWords == 0 {
		return nil
	}

	var out []span
	need := a.tailWords
	for i := len(a.buf) - 1; i >= 0 && need > 0; i-- {
		u := a.buf[i]
		starts := wordStarts(a.text, u)
		if len(starts) == 0 {
			continue
		}
		if len(starts) > need {
			u.start = starts[len(starts)-need]
			need = 0
		} else {
			need -= len(starts)
		}
		out = append(out, u)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// wordStarts returns the byte offsets at which words begin inside u.
func wordStarts(text string, u span) []int {
	var starts []int
	inWord := false
	for i, r := range text[u.start:u.end] {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			starts = append(starts, u.start+i)
			inWord = true
		}
	}
	return starts
}

func (a *accumulator) runeLen(u span) int {
	return utf8.RuneCountInString(a.text[u.start:u.end])
}

// separator joins units of the same paragraph with a space and units of
// different paragraphs with a blank line.
func separator(prev, next span) string {
	if prev.paragraph == next.paragraph {
		return " "
	}
	return "\n\n"
}

// splitParagraphs returns the non-blank paragraphs of text.
func splitParagraphs(text string) []span {
	var spans []span
	add := func(s, e int) {
		s, e = trimSpan(text, s, e)
		if s < e {
			spans = append(spans, span{start: s, end: e, paragraph: len(spans)})
		}
	}

	prev := 0
	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		add(prev, loc[0])
		prev = loc[1]
	}
	add(prev, len(text))
	return spans
}

// splitSentences splits a paragraph after each '.', '!' or '?' that is
// followed by whitespace. The punctuation stays with its sentence.
func splitSentences(text string, p span) []span {
	var spans []span
	add := func(s, e int) {
		s, e = trimSpan(text, s, e)
		if s < e {
			spans = append(spans, span{start: s, end: e, paragraph: p.paragraph})
		}
	}

	prev := p.start
	for _, loc := range sentenceEnd.FindAllStringIndex(text[p.start:p.end], -1) {
		add(prev, p.start+loc[0]+1)
		prev = p.start + loc[1]
	}
	add(prev, p.end)
	return spans
}

package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// abbreviations are tokens whose trailing period never ends a sentence.
// Ported from original_source/sse/chunker.py's _ABBREVIATIONS.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "dr": true, "ms": true, "jr": true, "sr": true,
	"prof": true, "inc": true, "e.g": true, "i.e": true, "etc": true,
	"vs": true, "st": true, "rd": true,
}

var sentenceEndPattern = regexp.MustCompile(`[.!?]+`)

// sentenceSpan is one sentence together with its byte offsets into the
// original source text.
type sentenceSpan struct {
	Text  string
	Start int
	End   int
}

// splitSentencesWithOffsets segments text into sentences using an
// abbreviation-aware splitter: a run of [.!?] ends a sentence unless the
// preceding token is a known abbreviation, or the punctuation isn't
// followed by whitespace or end-of-text (e.g. mid-decimal or mid-ellipsis).
func splitSentencesWithOffsets(text string) []sentenceSpan {
	if text == "" {
		return nil
	}
	var sentences []sentenceSpan
	length := len(text)
	start := 0

	matches := sentenceEndPattern.FindAllStringIndex(text, -1)
	for _, m := range matches {
		endP := m[1]

		pre := strings.TrimRight(text[:m[0]], " \t\r\n")
		token := ""
		if pre != "" {
			fields := strings.Fields(pre)
			if len(fields) > 0 {
				token = strings.TrimRight(fields[len(fields)-1], ".")
			}
		}
		if token != "" && abbreviations[strings.ToLower(token)] {
			continue
		}

		if endP < length && !unicode.IsSpace(rune(text[endP])) {
			continue
		}

		sent := strings.TrimSpace(text[start:endP])
		if sent == "" {
			continue
		}
		sStart := strings.Index(text[start:], sent) + start
		sEnd := sStart + len(sent)
		sentences = append(sentences, sentenceSpan{Text: sent, Start: sStart, End: sEnd})
		start = sEnd
	}

	tail := strings.TrimSpace(text[start:])
	if tail != "" {
		sStart := strings.Index(text[start:], tail) + start
		sEnd := sStart + len(tail)
		sentences = append(sentences, sentenceSpan{Text: tail, Start: sStart, End: sEnd})
	}
	return sentences
}

// SplitSentences returns just the sentence texts, discarding offsets.
func SplitSentences(text string) []string {
	spans := splitSentencesWithOffsets(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

// ChunkText assembles sentence-bounded chunks up to maxChars, with
// overlapping re-entry between chunks bounded by overlap characters. Unlike
// the Python original (which rejoins sentence texts with a single space),
// Chunk.Text here is always source[StartChar:EndChar] exactly, preserving
// all original whitespace including newlines and tabs (Invariant V).
func ChunkText(source string, maxChars, overlap int) []Chunk {
	spans := splitSentencesWithOffsets(source)
	var chunks []Chunk
	n := len(spans)
	chunkID := 0

	i := 0
	for i < n {
		startChar := spans[i].Start
		endChar := spans[i].End
		j := i + 1
		for j < n && (endChar-startChar)+1+len(spans[j].Text) <= maxChars {
			endChar = spans[j].End
			j++
		}

		chunks = append(chunks, Chunk{
			ChunkID:     fmt.Sprintf("c%d", chunkID),
			Text:        source[startChar:endChar],
			StartChar:   startChar,
			EndChar:     endChar,
			EmbeddingID: fmt.Sprintf("e%d", chunkID),
		})
		chunkID++

		if j >= n {
			break
		}

		target := endChar - overlap
		k := j
		for k > i && spans[k-1].Start > target {
			k--
		}
		if k <= i {
			k = j
		}
		i = k
	}
	return chunks
}

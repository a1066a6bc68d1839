package metrics

import (
	"regexp"
	"strings"

	"github.com/boarddeck/boarddeck/internal/models"
)

// diagramMatchThreshold is the similarity at which a detected label counts as the expected one.
const diagramMatchThreshold = 0.8

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Normalize lowercases, strips punctuation and markdown markers, and collapses whitespace.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Similarity is 1 - levenshtein/maxLen over runes, in [0, 1].
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	maxLen := max(len(r1), len(r2))
	return 1.0 - float64(Levenshtein(r1, r2))/float64(maxLen)
}

// Levenshtein is the edit distance between two rune slices, using two rows of the matrix.
func Levenshtein(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// TextScore compares normalized expected and extracted text. Both empty is a perfect score.
func TextScore(expected, actual string) float64 {
	e, a := Normalize(expected), Normalize(actual)
	if e == "" && a == "" {
		return 1.0
	}
	return Similarity(e, a)
}

// DiagramRecall is the fraction of expected diagrams matched by a distinct detected diagram.
// An expected entry matches a diagram whose kind equals it or whose label is similar enough.
// With nothing expected, recall is 1.
func DiagramRecall(expected []string, detected []models.Diagram) float64 {
	if len(expected) == 0 {
		return 1.0
	}

	used := make([]bool, len(detected))
	found := 0
	for _, want := range expected {
		w := Normalize(want)
		for i, d := range detected {
			if used[i] {
				continue
			}
			if string(d.Type) == w || (d.Label != "" && Similarity(w, Normalize(d.Label)) >= diagramMatchThreshold) {
				used[i] = true
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(expected))
}

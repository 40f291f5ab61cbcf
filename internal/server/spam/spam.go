// Package spam scores outgoing messages with a multinomial naive Bayes
// model trained at start-up from an embedded labelled corpus. Scores are
// advisory only.
package spam

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"
)

// Scorer estimates the probability, in [0,1], that text is spam.
type Scorer interface {
	Score(text string) float64
}

//go:embed corpus.csv
var corpus string

type Label int

const (
	Ham Label = iota
	Spam
)

type Sample struct {
	Label Label
	Text  string
}

// NaiveBayes is immutable after Train and safe for concurrent use.
type NaiveBayes struct {
	logPrior [2]float64
	counts   [2]map[string]int
	totals   [2]int
	vocab    int
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "so": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "we": {}, "with": {}, "you": {}, "your": {},
}

// Tokenize lower-cases text and splits it into words, dropping stop words.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Train fits a model. Both labels must be represented.
func Train(samples []Sample) (*NaiveBayes, error) {
	m := &NaiveBayes{counts: [2]map[string]int{{}, {}}}
	var docs [2]int
	vocab := map[string]struct{}{}

	for _, s := range samples {
		if s.Label != Ham && s.Label != Spam {
			return nil, fmt.Errorf("unknown label %d", s.Label)
		}
		docs[s.Label]++
		for _, tok := range Tokenize(s.Text) {
			m.counts[s.Label][tok]++
			m.totals[s.Label]++
			vocab[tok] = struct{}{}
		}
	}
	if docs[Ham] == 0 || docs[Spam] == 0 {
		return nil, errors.New("training set needs both ham and spam samples")
	}

	n := float64(docs[Ham] + docs[Spam])
	m.logPrior[Ham] = math.Log(float64(docs[Ham]) / n)
	m.logPrior[Spam] = math.Log(float64(docs[Spam]) / n)
	m.vocab = len(vocab)
	return m, nil
}

// Score implements Scorer.
func (m *NaiveBayes) Score(text string) float64 {
	ll := m.logPrior
	for _, tok := range Tokenize(text) {
		for c := Ham; c <= Spam; c++ {
			// Laplace smoothing
			ll[c] += math.Log(float64(m.counts[c][tok]+1) / float64(m.totals[c]+m.vocab))
		}
	}
	return 1 / (1 + math.Exp(ll[Ham]-ll[Spam]))
}

// ReadCSV parses "label,text" rows with a header line. Labels are "ham"
// and "spam".
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var samples []Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}

		var label Label
		switch strings.ToLower(strings.TrimSpace(rec[0])) {
		case "ham":
			label = Ham
		case "spam":
			label = Spam
		default:
			return nil, fmt.Errorf("unknown label %q", rec[0])
		}
		samples = append(samples, Sample{Label: label, Text: rec[1]})
	}
}

// Default trains a model on the embedded corpus.
func Default() (*NaiveBayes, error) {
	samples, err := ReadCSV(strings.NewReader(corpus))
	if err != nil {
		return nil, err
	}
	return Train(samples)
}

// Flagged reports whether score exceeds threshold.
func Flagged(score, threshold float64) bool {
	return score > threshold
}

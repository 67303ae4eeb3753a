package main

import (
	"bufio"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/tsf"
)

// Reserved tokens.
const (
	PadToken = "<pad>"
	GoToken  = "<go>"
	EOSToken = "<eos>"
	UnkToken = "<unk>"
)

// A Vocab maps words to token IDs and back.
type Vocab struct {
	Words []string
	IDs   map[string]int
}

// NewVocab creates a vocabulary from the words in the
// sentences, starting with the reserved tokens.
// Words seen fewer than minCount times map to UnkToken.
func NewVocab(minCount int, corpora ...[][]string) *Vocab {
	counts := map[string]int{}
	for _, corpus := range corpora {
		for _, sentence := range corpus {
			for _, w := range sentence {
				counts[w]++
			}
		}
	}
	var words []string
	for w, c := range counts {
		if c >= minCount {
			words = append(words, w)
		}
	}
	sort.Strings(words)
	res := &Vocab{IDs: map[string]int{}}
	for _, w := range append([]string{PadToken, GoToken, EOSToken, UnkToken}, words...) {
		if _, ok := res.IDs[w]; !ok {
			res.IDs[w] = len(res.Words)
			res.Words = append(res.Words, w)
		}
	}
	return res
}

// ID returns the token ID for a word.
func (v *Vocab) ID(word string) int {
	if id, ok := v.IDs[word]; ok {
		return id
	}
	return v.IDs[UnkToken]
}

// Sentence converts token IDs to words, stopping at the
// first EOSToken.
func (v *Vocab) Sentence(ids []int) string {
	var words []string
	for _, id := range ids {
		if v.Words[id] == EOSToken {
			break
		}
		words = append(words, v.Words[id])
	}
	return strings.Join(words, " ")
}

// ReadSentences reads one whitespace-tokenized sentence
// per line, skipping empty lines.
func ReadSentences(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("read sentences", err)
	}
	defer f.Close()
	var res [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if words := strings.Fields(scanner.Text()); len(words) > 0 {
			res = append(res, words)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("read sentences", err)
	}
	return res, nil
}

// Batches shuffles both corpora and groups them into
// batches with batchSize/2 sentences of style 0 followed
// by the rest of style 1.
// Sentences are truncated to maxLen-1 words so that the
// targets, including EOSToken, fit in maxLen steps.
func Batches(v *Vocab, style0, style1 [][]string, batchSize, maxLen int) []*tsf.Batch {
	half := batchSize / 2
	idx0 := rand.Perm(len(style0))
	idx1 := rand.Perm(len(style1))
	var res []*tsf.Batch
	for i, j := 0, 0; i+half <= len(idx0) && j+batchSize-half <= len(idx1); {
		var sentences [][]string
		var labels []float64
		for _, k := range idx0[i : i+half] {
			sentences = append(sentences, style0[k])
			labels = append(labels, 0)
		}
		for _, k := range idx1[j : j+batchSize-half] {
			sentences = append(sentences, style1[k])
			labels = append(labels, 1)
		}
		res = append(res, makeBatch(v, sentences, labels, maxLen))
		i += half
		j += batchSize - half
	}
	return res
}

func makeBatch(v *Vocab, sentences [][]string, labels []float64, maxLen int) *tsf.Batch {
	var length int
	ids := make([][]int, len(sentences))
	for i, s := range sentences {
		if len(s) > maxLen-1 {
			s = s[:maxLen-1]
		}
		for _, w := range s {
			ids[i] = append(ids[i], v.ID(w))
		}
		if len(s) > length {
			length = len(s)
		}
	}

	pad, goID, eos := v.ID(PadToken), v.ID(GoToken), v.ID(EOSToken)
	b := &tsf.Batch{Labels: labels, Len: length + 1}
	for _, s := range ids {
		padding := make([]int, length-len(s))
		for i := range padding {
			padding[i] = pad
		}
		reversed := make([]int, len(s))
		for i, id := range s {
			reversed[len(s)-1-i] = id
		}
		b.EncInputs = append(b.EncInputs, append(append([]int{}, padding...), reversed...))
		dec := append([]int{goID}, s...)
		b.DecInputs = append(b.DecInputs, append(dec, padding...))
		target := append(append([]int{}, s...), eos)
		b.Targets = append(b.Targets, append(target, padding...))
		weights := make([]float64, length+1)
		for i := 0; i <= len(s); i++ {
			weights[i] = 1
		}
		b.Weights = append(b.Weights, weights)
	}
	return b
}

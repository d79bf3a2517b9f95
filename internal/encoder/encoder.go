// Package encoder maps categorical values to dense integer codes.
package encoder

import (
	"fmt"

	apperrors "hrcli/internal/errors"
)

// Vocabulary is an ordered set of category values. A value's code is its
// position in first-seen order.
type Vocabulary struct {
	values []string
	index  map[string]int
}

// NewVocabulary builds a vocabulary from values in the given order. Duplicates
// keep their first position.
func NewVocabulary(values []string) Vocabulary {
	v := Vocabulary{index: make(map[string]int, len(values))}
	for _, val := range values {
		v.add(val)
	}
	return v
}

func (v *Vocabulary) add(val string) int {
	if code, ok := v.index[val]; ok {
		return code
	}
	code := len(v.values)
	v.values = append(v.values, val)
	v.index[val] = code
	return code
}

// Code returns the code of val.
func (v Vocabulary) Code(val string) (int, bool) {
	code, ok := v.index[val]
	return code, ok
}

// Values returns the categories in code order.
func (v Vocabulary) Values() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

// Len returns the number of categories.
func (v Vocabulary) Len() int {
	return len(v.values)
}

// FitTransform learns a vocabulary from values and encodes them with it.
func FitTransform(values []string) ([]int, Vocabulary) {
	vocab := Vocabulary{index: make(map[string]int)}
	codes := make([]int, len(values))
	for i, val := range values {
		codes[i] = vocab.add(val)
	}
	return codes, vocab
}

// Encoder encodes values against a fixed vocabulary supplied by the caller.
type Encoder struct {
	vocab Vocabulary
}

// NewEncoder creates an encoder over vocab.
func NewEncoder(vocab Vocabulary) *Encoder {
	return &Encoder{vocab: vocab}
}

// Vocabulary returns the encoder's vocabulary.
func (e *Encoder) Vocabulary() Vocabulary {
	return e.vocab
}

// Transform encodes values. A value outside the vocabulary is an error.
func (e *Encoder) Transform(values []string) ([]int, error) {
	codes := make([]int, len(values))
	for i, val := range values {
		code, ok := e.vocab.Code(val)
		if !ok {
			return nil, apperrors.NewValueOutOfRangeError(fmt.Sprintf("unknown category %q", val)).
				WithContext("position", i)
		}
		codes[i] = code
	}
	return codes, nil
}

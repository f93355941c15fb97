// Package fuzzy implements Reeves' Fuzzy Type Index: two bleve full-text
// indices (param_types, ret_types) bootstrapped from the Index Store's
// param/ret keyspaces, letting a user-supplied type fragment like
// "&EntryType" match a concrete stored type like "&crate::EntryType".
package fuzzy

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// TokenizerName is the name under which the type-string tokenizer is
// registered with bleve's analyzer registry.
const TokenizerName = "reeves_type_tokenizer"

// delimiters are surrounded with spaces before whitespace-splitting, per
// the tokenization rule: "&Vec<u8>" becomes "& Vec < u8 >".
const delimiters = "<>[]&"

// Tokenize splits a raw type string into its delimiter-segmented tokens.
// It is pure whitespace segmentation: no case folding, no stemming.
func Tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if strings.ContainsRune(delimiters, r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

// TokenizeString returns the whitespace-joined tokenized form of s, matching
// the contract's string-valued tokenize(): idempotent, and preserving the
// set and occurrence count of every delimiter character.
func TokenizeString(s string) string {
	return strings.Join(Tokenize(s), " ")
}

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, tokenizerConstructor)
}

func tokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &typeTokenizer{}, nil
}

// typeTokenizer implements analysis.Tokenizer over Tokenize, so bleve's
// indexing and query-time analysis agree with the standalone function used
// to build the original candidate query string.
type typeTokenizer struct{}

func (t *typeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := Tokenize(text)

	stream := make(analysis.TokenStream, 0, len(tokens))
	offset := 0
	for i, tok := range tokens {
		start := strings.Index(text[offset:], tok)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(tok)
		stream = append(stream, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
		offset = end
	}
	return stream
}

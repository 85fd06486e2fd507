package similarity

// Score is the transparent breakdown of one comparison
type Score struct {
	Token    float64 `json:"token"`
	NGram    float64 `json:"ngram"`
	Combined float64 `json:"combined"`
}

// Profile holds the precomputed sets for one text so that pairwise
// comparisons over a collection do not re-tokenize every page n times.
type Profile struct {
	tokens map[string]struct{}
	ngrams map[string]struct{}
}

// Empty reports whether the profile has nothing to compare
func (p *Profile) Empty() bool {
	return len(p.tokens) == 0 && len(p.ngrams) == 0
}

// Engine compares texts with a fixed n-gram size
type Engine struct {
	ngramSize int
}

// NewEngine creates an engine; n <= 0 selects DefaultNGramSize
func NewEngine(n int) *Engine {
	if n <= 0 {
		n = DefaultNGramSize
	}
	return &Engine{ngramSize: n}
}

// Profile precomputes token and n-gram sets for text
func (e *Engine) Profile(text string) *Profile {
	return &Profile{
		tokens: Tokens(text),
		ngrams: NGrams(text, e.ngramSize),
	}
}

// Compare scores two precomputed profiles
func (e *Engine) Compare(a, b *Profile) Score {
	token := Jaccard(a.tokens, b.tokens)
	ngram := Jaccard(a.ngrams, b.ngrams)
	return Score{
		Token:    token,
		NGram:    ngram,
		Combined: max(token, ngram),
	}
}

// CompareText profiles and scores two texts
func (e *Engine) CompareText(a, b string) Score {
	return e.Compare(e.Profile(a), e.Profile(b))
}

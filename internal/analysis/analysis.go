package analysis

// Token is a single term produced by an analyzer.
type Token struct {
	Term     string
	Position int
}

// Analyzer processes text into a stream of tokens. Implementations must
// be stateless and safe for concurrent use: match clauses analyze their
// text during the rewrite pass, which may run on many requests at once.
type Analyzer interface {
	// Analyze tokenizes the input text and returns tokens with positions.
	Analyze(field string, text string) []Token
}

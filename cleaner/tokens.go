package cleaner

import "unicode/utf8"

// EstimateTokens approximates the LLM token count of text as one token per
// three runes, without pulling in a real tokenizer. English runs nearer four
// characters per token and CJK nearer 1.5, so three is a workable middle
// ground that errs slightly high. Non-empty input counts as at least one
// token.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	switch {
	case runes == 0:
		return 0
	case runes < 3:
		return 1
	default:
		return runes / 3
	}
}

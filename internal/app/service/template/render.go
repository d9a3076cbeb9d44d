package template

import (
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// substitute replaces every {key} occurrence present in vars.
func substitute(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	return tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		key := strings.Trim(tok, "{}")
		if v, ok := vars[key]; ok {
			return v
		}
		return tok
	})
}

// missingVariables returns the declared variable names absent from vars.
func missingVariables(declared []string, vars map[string]string) []string {
	var missing []string
	for _, name := range declared {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// leftoverTokens lists {tokens} still literal after substitution.
func leftoverTokens(text string) []string {
	matches := tokenRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var tokens []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tokens = append(tokens, m[1])
	}
	sort.Strings(tokens)
	return tokens
}

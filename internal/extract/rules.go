package extract

import (
	"regexp"

	"github.com/zheng/codekg/internal/graph"
)

// rule is one pattern in an ordered, first-match-wins rule list.
// The first capture group of re is the extracted name.
type rule struct {
	name string
	kind graph.NodeKind
	re   *regexp.Regexp
}

// ruleList is evaluated in order; evaluation stops at the first matching rule
type ruleList []rule

// match returns the first rule matching line and its captured name
func (rl ruleList) match(line string) (rule, string, bool) {
	for _, r := range rl {
		if m := r.re.FindStringSubmatch(line); m != nil {
			return r, m[1], true
		}
	}
	return rule{}, "", false
}

// Patterns approximate constructs common to procedural and OO languages.
// They over- and under-match on purpose; no grammar is parsed.
// Names start with an ASCII letter or underscore and continue with any
// Unicode letter, digit or underscore. RE2's \b is ASCII-only, so word
// boundaries next to names are spelled out with the same class.
const (
	wordChar = `[\p{L}\p{N}_]`
	nameExpr = `([A-Za-z_]` + wordChar + `*)`
	nonWord  = `[^\p{L}\p{N}_]`
)

var (
	importRules = ruleList{
		{name: "import", kind: graph.NodeKindModule, re: regexp.MustCompile(`(?i)^\s*(?:import|from|using|use|include|require)(` + nonWord + `.*)$`)},
	}

	// class rules precede function rules: a class line is never a function line
	definitionRules = ruleList{
		{name: "class", kind: graph.NodeKindClass, re: regexp.MustCompile(`^\s*(?:class|struct|interface|trait)\s+` + nameExpr)},
		{name: "function-keyword", kind: graph.NodeKindFunction, re: regexp.MustCompile(`^\s*(?:def|function|fn|proc|sub|lambda|async\s+function)\s+` + nameExpr)},
		{name: "function-signature", kind: graph.NodeKindFunction, re: regexp.MustCompile(`^\s*` + nameExpr + `\s*\([^)]*\)\s*\{?\s*$`)},
	}

	// constants precede variables: a line declares at most one of each
	declarationRules = ruleList{
		{name: "constant", kind: graph.NodeKindConstant, re: regexp.MustCompile(`^\s*(?:const|constexpr|final|immutable)\s+` + nameExpr)},
		{name: "variable", kind: graph.NodeKindVariable, re: regexp.MustCompile(`^\s*(?:var|let|mut|auto|int|float|str|bool|char|double|long|short)\s+` + nameExpr)},
	}

	extendsPattern = regexp.MustCompile(`(?:(?:^|` + nonWord + `)(?:extends|implements|with)|` + wordChar + `:)\s+` + nameExpr)
	// wordRun matches maximal runs of name characters with an optional call paren
	wordRun         = regexp.MustCompile(wordChar + `+(\s*\()?`)
	resourcePattern = regexp.MustCompile(`\b(https?://[^\s'")]+|/[^\s'")]+)\b`)
	// lineBreak splits on every line boundary Unicode and common editors recognize,
	// including form feed and vertical tab
	lineBreak = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c\x1d\x1e\x{85}\x{2028}\x{2029}]`)
)

// callNames returns the names called on line in order of appearance: every
// maximal name run directly followed by an opening parenthesis
func callNames(line string) []string {
	var names []string
	for _, loc := range wordRun.FindAllStringSubmatchIndex(line, -1) {
		if loc[2] < 0 {
			continue
		}
		c := line[loc[0]]
		if c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			names = append(names, line[loc[0]:loc[2]])
		}
	}
	return names
}

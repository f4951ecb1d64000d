// Package readonly enforces the gateway's read-only statement policy.
//
// Checking is purely lexical and engine-agnostic: the statement is first
// cleaned by a small tokenizer that blanks string literals, quoted
// identifiers, and comments, then inspected for its leading keyword, a
// second top-level statement, and forbidden mutating keywords. Anything the
// tokenizer cannot account for (unterminated literals, unterminated
// comments) is rejected rather than guessed at.
package readonly

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy controls which read-only statement forms are accepted beyond plain
// SELECT. The zero value blocks all of them.
type Policy struct {
	AllowCTE     bool // WITH ... SELECT
	AllowExplain bool // EXPLAIN <retrieval>
	AllowShow    bool // SHOW / DESCRIBE / DESC
	AllowCall    bool // set-returning CALL
}

// Checker validates SQL statements against the read-only policy.
// Safe for concurrent use.
type Checker struct {
	policy Policy
}

// NewChecker creates a new Checker with the given policy.
func NewChecker(policy Policy) *Checker {
	return &Checker{policy: policy}
}

type denyRule struct {
	keyword  string
	pattern  *regexp.Regexp
	callable bool // skipped when Policy.AllowCall is set
}

func denyKeyword(keyword string, callable bool) denyRule {
	return denyRule{
		keyword:  keyword,
		pattern:  regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])` + keyword + `(?:[^A-Za-z0-9_]|$)`),
		callable: callable,
	}
}

// denyRules are mutating or structural keywords that must never appear as a
// top-level token. Matched against the cleaned statement only, so keywords
// inside literals, identifiers, and comments do not trigger.
var denyRules = []denyRule{
	denyKeyword("INSERT", false),
	denyKeyword("UPDATE", false),
	denyKeyword("DELETE", false),
	denyKeyword("DROP", false),
	denyKeyword("ALTER", false),
	denyKeyword("CREATE", false),
	denyKeyword("TRUNCATE", false),
	denyKeyword("GRANT", false),
	denyKeyword("REVOKE", false),
	denyKeyword("MERGE", false),
	denyKeyword("REPLACE", false),
	denyKeyword("SET", false),
	denyKeyword("PREPARE", false),
	denyKeyword("COPY", false),
	denyKeyword("DO", false),
	denyKeyword("LOCK", false),
	denyKeyword("EXEC", true),
	denyKeyword("EXECUTE", true),
	denyKeyword("CALL", true),
}

// Check returns nil if sql is a single read-only retrieval statement under
// the checker's policy, or a descriptive error otherwise. Performs no I/O.
func (c *Checker) Check(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("empty statement")
	}

	cleaned, err := clean(sql)
	if err != nil {
		return err
	}

	keyword := leadingKeyword(cleaned)
	switch keyword {
	case "":
		return fmt.Errorf("statement has no leading keyword")
	case "SELECT":
		// always allowed
	case "WITH":
		if !c.policy.AllowCTE {
			return fmt.Errorf("WITH common table expressions are not enabled")
		}
	case "EXPLAIN":
		if !c.policy.AllowExplain {
			return fmt.Errorf("EXPLAIN statements are not enabled")
		}
	case "SHOW", "DESCRIBE", "DESC":
		if !c.policy.AllowShow {
			return fmt.Errorf("%s statements are not enabled", keyword)
		}
	case "CALL":
		if !c.policy.AllowCall {
			return fmt.Errorf("CALL statements are not enabled")
		}
	default:
		return fmt.Errorf("non-SELECT statement detected: %s is not a read-only retrieval", keyword)
	}

	// A trailing semicolon is fine; anything after it is a second statement.
	if idx := strings.IndexByte(cleaned, ';'); idx >= 0 {
		if strings.TrimSpace(cleaned[idx+1:]) != "" {
			return fmt.Errorf("multiple statements are not allowed")
		}
	}

	for _, rule := range denyRules {
		if rule.callable && c.policy.AllowCall {
			continue
		}
		if rule.pattern.MatchString(cleaned) {
			return fmt.Errorf("statement contains forbidden keyword: %s", rule.keyword)
		}
	}

	return nil
}

// leadingKeyword returns the first word of the cleaned statement, uppercased.
func leadingKeyword(cleaned string) string {
	trimmed := strings.TrimSpace(cleaned)
	end := 0
	for end < len(trimmed) {
		ch := trimmed[end]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' {
			end++
			continue
		}
		break
	}
	return strings.ToUpper(trimmed[:end])
}

// clean blanks string literals, quoted identifiers, and comments so that
// keyword matching only ever sees top-level tokens. It deliberately does NOT
// honor backslash escapes or engine-specific comment forms (# in MySQL,
// $$-quoting in PostgreSQL): interpreting those more loosely than the target
// engine could hide a second statement, while interpreting them more
// strictly can only reject a harmless query. Fail-closed.
func clean(sql string) (string, error) {
	var out strings.Builder
	i := 0
	n := len(sql)

	for i < n {
		switch {
		// -- line comment
		case i+1 < n && sql[i] == '-' && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}
			out.WriteByte(' ')

		// /* block comment */
		case i+1 < n && sql[i] == '/' && sql[i+1] == '*':
			i += 2
			closed := false
			for i+1 < n {
				if sql[i] == '*' && sql[i+1] == '/' {
					i += 2
					closed = true
					break
				}
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated block comment")
			}
			out.WriteByte(' ')

		// 'string literal' with '' as the only escape
		case sql[i] == '\'':
			i++
			closed := false
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated string literal")
			}
			out.WriteString("''")

		// "quoted identifier"
		case sql[i] == '"':
			i++
			closed := false
			for i < n {
				if sql[i] == '"' {
					if i+1 < n && sql[i+1] == '"' {
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated quoted identifier")
			}
			out.WriteString(`""`)

		// `backtick identifier`
		case sql[i] == '`':
			i++
			closed := false
			for i < n {
				if sql[i] == '`' {
					i++
					closed = true
					break
				}
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated quoted identifier")
			}
			out.WriteString("``")

		default:
			out.WriteByte(sql[i])
			i++
		}
	}

	return out.String(), nil
}

package gateway

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
)

// Request is the JSON envelope carried by the combined query/mutation
// endpoint and by each subscribe control message.
type Request struct {
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables"`
	OperationName string          `json:"operationName,omitempty"`
}

// Vars is the typed view over a request's variables.
type Vars struct {
	raw gjson.Result
}

func newVars(raw json.RawMessage) Vars {
	return Vars{raw: gjson.ParseBytes(raw)}
}

// Get returns the variable at the given path.
func (v Vars) Get(path string) gjson.Result {
	return v.raw.Get(path)
}

// First returns the first present variable among the given paths.
func (v Vars) First(paths ...string) gjson.Result {
	for _, path := range paths {
		if r := v.raw.Get(path); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// firstOf returns the first present field among the given paths of a
// parsed JSON value.
func firstOf(v gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if r := v.Get(path); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// Decode unmarshals the variable at path into dest.
func (v Vars) Decode(path string, dest interface{}) error {
	r := v.raw.Get(path)
	if !r.Exists() {
		return apperrors.InvalidInput("missing variable " + path)
	}
	if err := json.Unmarshal([]byte(r.Raw), dest); err != nil {
		return apperrors.InvalidInput("malformed variable " + path)
	}
	return nil
}

// Operation resolves the operation field the request targets: the
// explicit operationName when present, else the first field inside the
// document's top-level selection set.
func (r Request) Operation() string {
	if r.OperationName != "" {
		return r.OperationName
	}
	return firstField(r.Query)
}

// firstField scans a query document for the first field name inside
// the outermost braces.
func firstField(query string) string {
	depth := 0
	for i := 0; i < len(query); i++ {
		switch query[i] {
		case '{':
			depth++
			if depth == 1 {
				return leadingIdent(query[i+1:])
			}
		}
	}
	// Bare operation shorthand without braces.
	return leadingIdent(query)
}

func leadingIdent(s string) string {
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' || (start >= 0 && unicode.IsDigit(r)) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

// CheckLimits rejects documents nested deeper than maxDepth or
// selecting more than maxComplexity fields.
func (r Request) CheckLimits(maxDepth, maxComplexity int) error {
	depth, fields := measure(r.Query)
	if maxDepth > 0 && depth > maxDepth {
		return apperrors.InvalidInput("query exceeds maximum depth")
	}
	if maxComplexity > 0 && fields > maxComplexity {
		return apperrors.InvalidInput("query exceeds maximum complexity")
	}
	return nil
}

// measure walks the document counting brace nesting and field tokens.
func measure(query string) (maxDepth, fields int) {
	depth := 0
	inIdent := false
	for _, r := range query {
		switch {
		case r == '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
			inIdent = false
		case r == '}':
			depth--
			inIdent = false
		case unicode.IsLetter(r) || r == '_':
			if !inIdent && depth > 0 {
				fields++
			}
			inIdent = true
		case unicode.IsDigit(r):
			// Digits continue an identifier but never start a field.
		default:
			inIdent = false
		}
	}
	return maxDepth, fields
}

// operationKind reports whether the document is a query, mutation, or
// subscription. Shorthand documents default to query.
func operationKind(query string) string {
	trimmed := strings.TrimSpace(query)
	switch {
	case strings.HasPrefix(trimmed, "mutation"):
		return "mutation"
	case strings.HasPrefix(trimmed, "subscription"):
		return "subscription"
	default:
		return "query"
	}
}

package browser

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AccountSelector fills template's %s with the account identifier as an
// XPath string literal. The identifier is NFC-normalized so composed and
// decomposed spellings match the page text.
func AccountSelector(template, identifier string) (string, error) {
	if strings.Count(template, "%s") != 1 {
		return "", fmt.Errorf("account selector template must contain exactly one %%s: %q", template)
	}
	id := norm.NFC.String(strings.TrimSpace(identifier))
	if id == "" {
		return "", fmt.Errorf("account identifier is empty")
	}
	return fmt.Sprintf(template, XPathLiteral(id)), nil
}

// XPathLiteral quotes s for use inside an XPath 1.0 expression. XPath has no
// escape sequences, so a value holding both quote kinds becomes concat().
func XPathLiteral(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, `'`):
		return `'` + s + `'`
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, 2*len(parts)-1)
	for i, part := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if part != "" {
			args = append(args, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

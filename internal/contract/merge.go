// Package contract turns the Hebrew lease template, questionnaire answers and
// captured signatures into final contract markup.
package contract

import (
	"fmt"
	"regexp"
	"strings"
)

// fieldRegex matches {{field_name}} placeholders in the lease template.
var fieldRegex = regexp.MustCompile(`\{\{\s*([^{}\s][^{}]*?)\s*\}\}`)

// Merge substitutes every {{field}} placeholder with the matching
// questionnaire answer. Pure function, no side effects. Placeholders without
// an answer are blanked so raw template syntax never reaches a signed
// document.
func Merge(template string, answers map[string]string) string {
	return fieldRegex.ReplaceAllStringFunc(template, func(match string) string {
		field := strings.TrimSpace(match[2 : len(match)-2])
		return answers[field]
	})
}

// SignatureMarker returns the marker text the template uses for a signer
// role's signature slot. The marker text is a compatibility contract with
// existing templates; do not change its shape.
func SignatureMarker(role string) string {
	return fmt.Sprintf("[[חתימה:%s]]", role)
}

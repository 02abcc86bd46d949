package contract

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// ErrIncompleteSignatureSet is returned when the template contains a
// signature marker no captured signature matches. Assembly only runs after
// every party signed, so hitting this means the signer roles and the template
// markers disagree.
var ErrIncompleteSignatureSet = errors.New("template contains a signature marker with no matching signature")

// signatureMarkerRegex matches [[חתימה:<role>]] markers.
var signatureMarkerRegex = regexp.MustCompile(`\[\[חתימה:([^\]]+)\]\]`)

// SignedParty is one collected signature ready for embedding.
type SignedParty struct {
	Name  string
	Role  string
	Image string // data-URL image payload
}

// EmbedSignatures replaces every signature marker in the merged markup with
// the matching party's signature image and a signer-name caption.
func EmbedSignatures(markup string, parties []SignedParty) (string, error) {
	byRole := make(map[string]SignedParty, len(parties))
	for _, p := range parties {
		byRole[p.Role] = p
	}

	var missing []string
	result := signatureMarkerRegex.ReplaceAllStringFunc(markup, func(match string) string {
		role := strings.TrimSpace(signatureMarkerRegex.FindStringSubmatch(match)[1])
		party, ok := byRole[role]
		if !ok {
			missing = append(missing, role)
			return match
		}
		return signatureBlock(party)
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrIncompleteSignatureSet, strings.Join(missing, ", "))
	}
	return result, nil
}

func signatureBlock(party SignedParty) string {
	return fmt.Sprintf(
		`<span class="signature-block"><img class="signature-image" src=%q alt="חתימה"><span class="signature-caption">%s</span></span>`,
		party.Image, html.EscapeString(party.Name),
	)
}

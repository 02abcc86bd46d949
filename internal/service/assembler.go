package service

import (
	"fmt"
	"os"

	"leasesign/internal/contract"
	"leasesign/internal/models"
)

// Assembler merges contract answers and collected signatures into final
// renderable contract markup.
type Assembler struct {
	templatePath string
	stylePath    string
}

func NewAssembler(templatePath, stylePath string) *Assembler {
	return &Assembler{templatePath: templatePath, stylePath: stylePath}
}

// Assemble produces the final contract markup for a fully signed contract.
// Fails with contract.ErrIncompleteSignatureSet when a template signature
// marker has no matching captured signature.
func (a *Assembler) Assemble(c *models.Contract, parties []contract.SignedParty) (string, error) {
	template, err := os.ReadFile(a.templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read contract template: %w", err)
	}

	merged := contract.Merge(string(template), c.Answers)
	return contract.EmbedSignatures(merged, parties)
}

// Stylesheet returns the print stylesheet for rendering. A missing stylesheet
// is not an error; the template carries inline fallbacks.
func (a *Assembler) Stylesheet() string {
	css, err := os.ReadFile(a.stylePath)
	if err != nil {
		return ""
	}
	return string(css)
}

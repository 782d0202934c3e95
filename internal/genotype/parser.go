package genotype

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/genome-trait-server/internal/domain"
)

// Parser converts raw genotype file content into normalized user variants.
type Parser struct {
	log *logrus.Logger
}

// NewParser creates a new genotype parser.
func NewParser(logger *logrus.Logger) *Parser {
	return &Parser{log: logger}
}

// Parse converts raw file content into a map of user variants keyed by
// variant id. The last occurrence of an id wins. No-call genotypes are
// dropped and malformed lines (<4 tab fields) are silently skipped.
// Returns ErrUnsupportedFormat when the content is not in the supported
// layout.
func (p *Parser) Parse(content string) (map[string]domain.UserVariant, error) {
	if format := DetectFormat(content); format != domain.Format23AndMe {
		return nil, fmt.Errorf("detected format %q: %w", format, domain.ErrUnsupportedFormat)
	}

	variants := make(map[string]domain.UserVariant)
	noCalls := 0
	skipped := 0
	firstLine := true

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		// The first non-comment line may be an uncommented column header.
		if firstLine {
			firstLine = false
			lower := strings.ToLower(line)
			if strings.Contains(lower, "rsid") && strings.Contains(lower, "chromosome") {
				continue
			}
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		parts := strings.Split(trimmed, "\t")
		if len(parts) < 4 {
			skipped++
			continue
		}
		rsid, chromosome, position, genotype := parts[0], parts[1], parts[2], parts[3]
		if genotype == domain.NoCallGenotype {
			noCalls++
			continue
		}
		variants[rsid] = domain.UserVariant{
			ID:         rsid,
			Chromosome: chromosome,
			Position:   position,
			Genotype:   genotype,
		}
	}

	p.log.WithFields(logrus.Fields{
		"variants": len(variants),
		"no_calls": noCalls,
		"skipped":  skipped,
	}).Info("Genotype file parsed")

	return variants, nil
}

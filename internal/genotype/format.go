package genotype

import (
	"strings"

	"github.com/genome-trait-server/internal/domain"
)

// maxDetectLines bounds how much of the file the detector inspects.
const maxDetectLines = 100

// DetectFormat classifies raw genotype file content. Only the tab-separated
// 23andMe-style layout is parseable; AncestryDNA and VCF exports are
// recognized just well enough to be rejected with a precise reason.
func DetectFormat(content string) domain.Format {
	checked := 0
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if checked++; checked > maxDetectLines {
			break
		}

		if strings.HasPrefix(stripped, "##fileformat=VCF") {
			return domain.FormatVCF
		}

		if strings.HasPrefix(stripped, "#") {
			lower := strings.ToLower(stripped)
			if strings.Contains(lower, "ancestrydna") {
				return domain.FormatAncestry
			}
			if strings.Contains(lower, "rsid") && strings.Contains(lower, "chromosome") {
				return domain.Format23AndMe
			}
			continue
		}

		parts := strings.Split(stripped, "\t")
		if len(parts) >= 4 {
			rsid, genotype := parts[0], parts[3]
			if (strings.HasPrefix(rsid, "rs") || strings.HasPrefix(rsid, "i")) && len(genotype) <= 2 {
				return domain.Format23AndMe
			}
		}
	}
	return domain.FormatUnknown
}

// DetectFormatFromFilename guesses the format from a filename alone, for the
// upload path where content has not been read yet.
func DetectFormatFromFilename(name string) domain.Format {
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "23andme"), strings.Contains(lower, "23-and-me"):
		return domain.Format23AndMe
	case strings.Contains(lower, "ancestry"):
		return domain.FormatAncestry
	case strings.HasSuffix(lower, ".vcf"), strings.HasSuffix(lower, ".vcf.gz"):
		return domain.FormatVCF
	}
	return domain.FormatUnknown
}

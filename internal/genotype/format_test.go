package genotype

import (
	"strings"
	"testing"

	"github.com/genome-trait-server/internal/domain"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected domain.Format
	}{
		{
			name:     "Commented header",
			content:  "# This data file generated by 23andMe\n# rsid\tchromosome\tposition\tgenotype\n",
			expected: domain.Format23AndMe,
		},
		{
			name:     "Data line only",
			content:  "rs429358\t19\t44908822\tTT\n",
			expected: domain.Format23AndMe,
		},
		{
			name:     "Internal marker id",
			content:  "i3000001\tMT\t16518\tA\n",
			expected: domain.Format23AndMe,
		},
		{
			name:     "VCF header",
			content:  "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\n",
			expected: domain.FormatVCF,
		},
		{
			name:     "AncestryDNA comment",
			content:  "#AncestryDNA raw data download\n",
			expected: domain.FormatAncestry,
		},
		{
			name:     "Genotype too long",
			content:  "rs429358\t19\t44908822\tTTTT\n",
			expected: domain.FormatUnknown,
		},
		{
			name:     "Too few fields",
			content:  "rs429358\t19\t44908822\n",
			expected: domain.FormatUnknown,
		},
		{
			name:     "Empty content",
			content:  "",
			expected: domain.FormatUnknown,
		},
		{
			name:     "CSV data",
			content:  "rs429358,19,44908822,TT\n",
			expected: domain.FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.content); got != tt.expected {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetectFormat_ScanBound(t *testing.T) {
	// A valid data line past the first 100 non-empty lines must not be seen.
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("junk line without tabs\n")
	}
	b.WriteString("rs429358\t19\t44908822\tTT\n")

	if got := DetectFormat(b.String()); got != domain.FormatUnknown {
		t.Errorf("DetectFormat() = %q, want %q past scan bound", got, domain.FormatUnknown)
	}
}

func TestDetectFormat_SkipsBlankLines(t *testing.T) {
	content := strings.Repeat("\n", 200) + "rs429358\t19\t44908822\tTT\n"
	if got := DetectFormat(content); got != domain.Format23AndMe {
		t.Errorf("DetectFormat() = %q, blank lines should not count toward the scan bound", got)
	}
}

func TestDetectFormatFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		expected domain.Format
	}{
		{"23andMe export", "genome_John_Doe_23andMe.txt", domain.Format23AndMe},
		{"Hyphenated", "my-23-and-me-data.txt", domain.Format23AndMe},
		{"AncestryDNA", "AncestryDNA.txt", domain.FormatAncestry},
		{"VCF", "sample.vcf", domain.FormatVCF},
		{"Compressed VCF", "sample.vcf.gz", domain.FormatVCF},
		{"Plain text", "data.txt", domain.FormatUnknown},
		{"CSV", "data.csv", domain.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormatFromFilename(tt.fileName); got != tt.expected {
				t.Errorf("DetectFormatFromFilename(%q) = %q, want %q", tt.fileName, got, tt.expected)
			}
		})
	}
}

package genotype

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genome-trait-server/internal/domain"
)

func newTestParser() *Parser {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewParser(logger)
}

func TestParser_Parse(t *testing.T) {
	parser := newTestParser()

	content := "# This data file generated by 23andMe\n" +
		"# rsid\tchromosome\tposition\tgenotype\n" +
		"rs429358\t19\t44908822\tTT\n" +
		"rs7412\t19\t44908684\t--\n" +
		"rs1801133\t1\t11796321\tAG\n"

	variants, err := parser.Parse(content)
	require.NoError(t, err)

	assert.Len(t, variants, 2)

	v, ok := variants["rs429358"]
	require.True(t, ok)
	assert.Equal(t, "19", v.Chromosome)
	assert.Equal(t, "44908822", v.Position)
	assert.Equal(t, "TT", v.Genotype)

	// No-call rows are dropped before matching.
	_, ok = variants["rs7412"]
	assert.False(t, ok)
}

func TestParser_Parse_UnsupportedFormat(t *testing.T) {
	parser := newTestParser()

	tests := []struct {
		name    string
		content string
	}{
		{"Empty", ""},
		{"CSV", "rs429358,19,44908822,TT\n"},
		{"VCF", "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
		})
	}
}

func TestParser_Parse_LastOccurrenceWins(t *testing.T) {
	parser := newTestParser()

	content := "# rsid\tchromosome\tposition\tgenotype\n" +
		"rs429358\t19\t44908822\tCT\n" +
		"rs429358\t19\t44908822\tTT\n"

	variants, err := parser.Parse(content)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "TT", variants["rs429358"].Genotype)
}

func TestParser_Parse_SkipsMalformedLines(t *testing.T) {
	parser := newTestParser()

	content := "# rsid\tchromosome\tposition\tgenotype\n" +
		"rs429358\t19\t44908822\tTT\n" +
		"rs12345\t1\n" +
		"garbage\n"

	variants, err := parser.Parse(content)
	require.NoError(t, err)
	assert.Len(t, variants, 1)
}

func TestParser_Parse_UncommentedHeader(t *testing.T) {
	parser := newTestParser()

	// Header without the leading '#' is skipped exactly once.
	content := "rsid\tchromosome\tposition\tgenotype\n" +
		"rs429358\t19\t44908822\tTT\n"

	variants, err := parser.Parse(content)
	require.NoError(t, err)
	assert.Len(t, variants, 1)
	_, ok := variants["rsid"]
	assert.False(t, ok)
}

// Detection and parsing agree: content the detector rejects must fail to
// parse with ErrUnsupportedFormat, and content it accepts must parse.
func TestParser_Parse_AgreesWithDetect(t *testing.T) {
	parser := newTestParser()

	samples := []string{
		"",
		"rs429358\t19\t44908822\tTT\n",
		"##fileformat=VCFv4.2\n",
		"#AncestryDNA raw data download\n",
		"# rsid\tchromosome\tposition\tgenotype\n",
		"random text\nwith no structure\n",
	}

	for _, content := range samples {
		_, err := parser.Parse(content)
		if DetectFormat(content) == domain.Format23AndMe {
			assert.NoError(t, err)
		} else {
			assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
		}
	}
}

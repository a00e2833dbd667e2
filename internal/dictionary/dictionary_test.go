package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoads(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, d.Skills)
	assert.NotEmpty(t, d.GeneralKeywords)
	assert.Len(t, d.IndustryTerms("technology"), 20)
	assert.Equal(t, d.IndustryTerms("technology"), d.IndustryTerms("  Technology "))
	assert.Nil(t, d.IndustryTerms("underwater basket weaving"))
	assert.Contains(t, d.Industries(), "finance")

	var names []string
	for _, cat := range d.Quantification() {
		names = append(names, cat.Name)
	}
	assert.Equal(t, []string{"percentages", "currency", "counts", "time_savings", "scale"}, names)

	for _, rule := range d.GrammarRules {
		assert.NotNil(t, rule.Regexp(), rule.Pattern)
	}
}

func TestContains(t *testing.T) {
	d := MustDefault()
	text := Normalize("Built services in Go and C++;\n used Node.js,   and CI/CD pipelines")

	tests := []struct {
		term string
		want bool
	}{
		{"go", true},
		{"c++", true},
		{"node.js", true},
		{"ci/cd", true},
		{"Node.JS", true},
		{"serv", false},
		{"java", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Contains(text, tt.term))
		})
	}

	assert.False(t, d.Contains(Normalize("a good day"), "go"), "word boundaries must hold")
}

func TestFindAll(t *testing.T) {
	d := MustDefault()
	text := Normalize("I was responsible for X. Also responsible for Y")
	offsets := d.FindAll(text, "responsible for")
	require.Len(t, offsets, 2)
	assert.Equal(t, "responsible for", text[offsets[0]:offsets[0]+len("responsible for")])
	assert.Equal(t, "responsible for", text[offsets[1]:offsets[1]+len("responsible for")])
}

func TestSectionFor(t *testing.T) {
	d := MustDefault()

	tests := []struct {
		line string
		want string
	}{
		{"EXPERIENCE", "experience"},
		{"Work Experience:", "experience"},
		{"## Professional Summary", "summary"},
		{"Technical Skills", "skills"},
		{"Education", "education"},
		{"Licenses & Permits", ""},
		{"I have experience with Go and a lot of other languages", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.SectionFor(tt.line), tt.line)
	}
}

func TestLoadRejectsBadPatterns(t *testing.T) {
	_, err := Load([]byte("grammar_rules:\n  - pattern: '(unclosed'\n"))
	assert.Error(t, err)

	_, err = Load([]byte("quantification_patterns:\n  bad: ['[z-a]']\n"))
	assert.Error(t, err)
}

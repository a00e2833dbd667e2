package extractor

import (
	"testing"
	"time"

	"atsengine/internal/dictionary"
	"atsengine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
123 Main Street, Springfield, IL 62701 | jane.doe@example.com | +1 (201) 555-0123
linkedin.com/in/janedoe | https://github.com/janedoe

Professional Summary
Backend engineer with 8 years building distributed systems in Go and Python.

Experience
Senior Software Engineer at Acme Corp | Jan 2020 – Present
- Led migration of 40 services to Kubernetes, reducing costs by 30%
Software Engineer, Globex
2016 - 2019
- Developed REST APIs in Java

Education
Bachelor of Science in Computer Science, Stanford University, 2016

Skills
Go, Python, Docker, Kubernetes, SQL, Communication

Certifications
AWS Certified Solutions Architect
`

func fixedClock() time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	dict, err := dictionary.Default()
	require.NoError(t, err)
	return New(dict, WithClock(fixedClock))
}

func TestExtractFullResume(t *testing.T) {
	e := newTestExtractor(t)
	parsed := e.Extract(sampleResume)

	assert.Equal(t, "jane.doe@example.com", parsed.Email)
	require.NotNil(t, parsed.Phone)
	assert.Equal(t, "+1 (201) 555-0123", parsed.Phone.Raw)
	assert.Equal(t, 1, parsed.Phone.CountryCode)
	assert.Equal(t, "2015550123", parsed.Phone.NationalNumber)
	assert.Equal(t, "123 Main Street, Springfield, IL 62701", parsed.Address)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", parsed.LinkedIn)
	assert.Equal(t, "https://github.com/janedoe", parsed.GitHub)
	assert.Equal(t, "Backend engineer with 8 years building distributed systems in Go and Python.", parsed.Summary)

	assert.Equal(t, []string{"go", "python", "kubernetes", "java", "docker", "sql", "communication", "aws"}, parsed.Skills)
	assert.Equal(t, []string{"summary", "experience", "education", "skills", "certifications"}, parsed.Sections)
	assert.Equal(t, []string{"AWS Certified Solutions Architect"}, parsed.Certifications)

	require.Len(t, parsed.Experience, 2)
	first := parsed.Experience[0]
	assert.Equal(t, "Senior Software Engineer", first.Title)
	assert.Equal(t, "Acme Corp", first.Organization)
	assert.True(t, first.Current)
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), first.Start)
	assert.Equal(t, "Led migration of 40 services to Kubernetes, reducing costs by 30%", first.Description)

	second := parsed.Experience[1]
	assert.Equal(t, "Software Engineer", second.Title)
	assert.Equal(t, "Globex", second.Organization)
	assert.False(t, second.Current)
	assert.Equal(t, "Developed REST APIs in Java", second.Description)

	assert.True(t, parsed.OriginalOrderChronological)
	assert.InDelta(t, 7.0, parsed.YearsExperience, 0.001)

	require.Len(t, parsed.Education, 1)
	assert.Equal(t, types.Education{
		Degree:      "Bachelor of Science in Computer Science",
		Institution: "Stanford University",
		Year:        2016,
	}, parsed.Education[0])
}

func TestExtractIsIdempotent(t *testing.T) {
	e := newTestExtractor(t)
	assert.Equal(t, e.Extract(sampleResume), e.Extract(sampleResume))
}

func TestExtractIsIdempotentWithDefaultClock(t *testing.T) {
	dict, err := dictionary.Default()
	require.NoError(t, err)
	e := New(dict)
	text := "EXPERIENCE\nEngineer at Acme\nJan 2020 - Present"

	first := e.Extract(text)
	second := e.Extract(text)
	assert.Equal(t, first, second)

	require.Len(t, first.Experience, 1)
	end := first.Experience[0].End
	assert.True(t, first.Experience[0].Current)
	assert.Equal(t, end.UTC().Truncate(24*time.Hour), end)
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(t)
	parsed := e.Extract("")

	assert.Empty(t, parsed.Email)
	assert.Nil(t, parsed.Phone)
	assert.Empty(t, parsed.Skills)
	assert.NotNil(t, parsed.Skills)
	assert.Empty(t, parsed.Experience)
	assert.Empty(t, parsed.Education)
	assert.Empty(t, parsed.Sections)
	assert.Zero(t, parsed.YearsExperience)
	assert.True(t, parsed.OriginalOrderChronological)
}

func TestExtractExperienceOrdering(t *testing.T) {
	e := newTestExtractor(t)
	text := "Work History\nEngineer at Initech | 2015 - 2017\nLead Engineer at Hooli | 2018 - Present\n"

	parsed := e.Extract(text)
	require.Len(t, parsed.Experience, 2)
	assert.False(t, parsed.OriginalOrderChronological)
	assert.Equal(t, "Hooli", parsed.Experience[0].Organization)
	assert.Equal(t, "Initech", parsed.Experience[1].Organization)
}

func TestTotalYearsMergesOverlaps(t *testing.T) {
	e := newTestExtractor(t)
	text := "Experience\nAnalyst at A | 2015 - 2019\nConsultant at B | 2017 - 2020\n"

	parsed := e.Extract(text)
	require.Len(t, parsed.Experience, 2)
	assert.InDelta(t, 5.0, parsed.YearsExperience, 0.001)
}

func TestExtractPhone(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name        string
		text        string
		wantRaw     string
		wantCountry int
	}{
		{"international", "Phone: +44 121 234 5678", "+44 121 234 5678", 44},
		{"national with default region", "Tel (201) 555-0123", "(201) 555-0123", 1},
		{"unparseable keeps raw", "Ref 12-34-56-78", "12-34-56-78", 0},
		{"years are not phones", "2016 - 2019", "", 0},
		{"compact year span is not a phone", "Jane Doe\njane@example.com\nEXPERIENCE\nEngineer at Acme\n2019-2023", "", 0},
		{"number after a year span", "Engineer at Acme\n2019-2023\nPhone +1 (201) 555-0123", "+1 (201) 555-0123", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone := e.Extract(tt.text).Phone
			if tt.wantRaw == "" {
				assert.Nil(t, phone)
				return
			}
			require.NotNil(t, phone)
			assert.Equal(t, tt.wantRaw, phone.Raw)
			assert.Equal(t, tt.wantCountry, phone.CountryCode)
		})
	}
}

func TestExtractEducationWithoutHeader(t *testing.T) {
	e := newTestExtractor(t)
	text := "Certified Scrum Master\nMaster of Business Administration\nHarvard University 2012\n"

	parsed := e.Extract(text)
	require.Len(t, parsed.Education, 1)
	assert.Equal(t, "Master of Business Administration", parsed.Education[0].Degree)
	assert.Equal(t, "Harvard University", parsed.Education[0].Institution)
	assert.Equal(t, 2012, parsed.Education[0].Year)
}

package ics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyParse(t *testing.T) {
	tests := []struct {
		Input   string
		WantErr bool
		Check   func(t *testing.T, output *BaseProperty)
	}{
		{
			Input: "ATTENDEE;RSVP=TRUE;ROLE=REQ-PARTICIPANT;CUTYPE=GROUP:mailto:employee-A@example.com",
			Check: func(t *testing.T, output *BaseProperty) {
				assert.Equal(t, "ATTENDEE", output.IANAToken)
				assert.Equal(t, "mailto:employee-A@example.com", output.Value)
				assert.Equal(t, []string{"TRUE"}, output.ICalParameters["RSVP"])
				assert.Equal(t, []string{"GROUP"}, output.ICalParameters["CUTYPE"])
			},
		},
		{
			Input: "ATTENDEE;RSVP=\"TRUE\";ROLE=REQ-PARTICIPANT:mailto:employee-A@example.com",
			Check: func(t *testing.T, output *BaseProperty) {
				assert.Equal(t, []string{"TRUE"}, output.ICalParameters["RSVP"])
			},
		},
		{
			// a quote opening mid-value is malformed
			Input:   "ATTENDEE;RSVP=T\"RUE\";ROLE=REQ-PARTICIPANT:mailto:employee-A@example.com",
			WantErr: true,
		},
		{
			Input: "DESCRIPTION;ALTREP=\"cid:part1.0001@example.org\":The Fall'98 Wild Wizards Conference",
			Check: func(t *testing.T, output *BaseProperty) {
				assert.Equal(t, []string{"cid:part1.0001@example.org"}, output.ICalParameters["ALTREP"])
				assert.Equal(t, "The Fall'98 Wild Wizards Conference", output.Value)
			},
		},
		{
			Input: "X-MULTI;MEMBER=\"a@example.com\",\"b@example.com\":x",
			Check: func(t *testing.T, output *BaseProperty) {
				assert.Equal(t, []string{"a@example.com", "b@example.com"}, output.ICalParameters["MEMBER"])
			},
		},
		{
			Input: "dtstart;tzid=America/New_York:19980119T020000",
			Check: func(t *testing.T, output *BaseProperty) {
				// original case is retained
				assert.Equal(t, "dtstart", output.IANAToken)
				assert.Equal(t, []string{"America/New_York"}, output.ICalParameters["tzid"])
			},
		},
		{
			Input:   "NOVALUE",
			WantErr: true,
		},
		{
			Input:   "NAME;PARAM:value",
			WantErr: true,
		},
		{
			Input:   "NAME;PARAM=\"unterminated:value",
			WantErr: true,
		},
		{
			Input: "SUMMARY:",
			Check: func(t *testing.T, output *BaseProperty) {
				assert.Equal(t, "", output.Value)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.Input, func(t *testing.T) {
			output, err := ParseProperty(ContentLine(test.Input))
			if test.WantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, output)
			test.Check(t, output)
		})
	}
}

func TestGetParameterCaseInsensitive(t *testing.T) {
	p, err := ParseProperty("DTSTART;TZID=Europe/Paris:20210101T000000")
	require.NoError(t, err)
	assert.Equal(t, []string{"Europe/Paris"}, p.GetParameter(ParameterTzid))
	assert.Equal(t, []string{"Europe/Paris"}, p.GetParameter(Parameter("tzid")))
}

func TestTextEscaping(t *testing.T) {
	assert.Equal(t, `a\,b\;c\\d\ne`, ToText("a,b;c\\d\ne"))
	assert.Equal(t, "a,b;c\\d\ne", FromText(`a\,b\;c\\d\ne`))
	assert.Equal(t, "x\ny", FromText(`x\Ny`))
}

func TestSplitUnescaped(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitUnescaped("a,b,c", ','))
	assert.Equal(t, []string{`a\,b`, "c"}, splitUnescaped(`a\,b,c`, ','))
	assert.Equal(t, []string{"solo"}, splitUnescaped("solo", ','))
}

func TestPropertySerializeFolding(t *testing.T) {
	p := &BaseProperty{
		IANAToken:      "DESCRIPTION",
		ICalParameters: map[string][]string{},
		Value:          strings.Repeat("0123456789", 20),
	}
	b := &strings.Builder{}
	err := p.serialize(b, defaultSerializationOptions())
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSuffix(b.String(), "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 75)
	}
	// the folded form unfolds back to the original content line
	cs := NewCalendarStream(strings.NewReader(b.String()))
	l, _ := cs.ReadLine()
	require.NotNil(t, l)
	assert.Equal(t, "DESCRIPTION:"+p.Value, string(*l))
}

package session

import (
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		expected []string
	}{
		{
			name:     "plain",
			command:  "-i input.mp4 -c:v mpeg4 out.mp4",
			expected: []string{"-i", "input.mp4", "-c:v", "mpeg4", "out.mp4"},
		},
		{
			name:     "repeated spaces collapse",
			command:  "  -y   -i  in.wav  ",
			expected: []string{"-y", "-i", "in.wav"},
		},
		{
			name:     "single quoted path with spaces",
			command:  "-i '/tmp/my files/audio sample.wav' out.mp3",
			expected: []string{"-i", "/tmp/my files/audio sample.wav", "out.mp3"},
		},
		{
			name:     "double quoted filter keeps inner single quotes",
			command:  `-vf "drawtext=text='hi there'" out.mp4`,
			expected: []string{"-vf", "drawtext=text='hi there'", "out.mp4"},
		},
		{
			name:     "single quoted segment keeps inner double quotes",
			command:  `-metadata 'title="x y"'`,
			expected: []string{"-metadata", `title="x y"`},
		},
		{
			name:     "escaped quote is literal",
			command:  `-metadata a\"b`,
			expected: []string{"-metadata", `a\"b`},
		},
		{
			name:     "quotes inside a word",
			command:  "-i file'name with space'.mp4",
			expected: []string{"-i", "filename with space.mp4"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseArguments(tc.command))
		})
	}
}

func TestParseArguments_Empty(t *testing.T) {
	assert.Empty(t, ParseArguments(""))
	assert.Empty(t, ParseArguments("    "))
}

// For any argument list without separators or quotes, joining and splitting is lossless.
func TestArgumentsRoundTrip_Property(t *testing.T) {
	f := func(args []string) bool {
		for _, a := range args {
			if a == "" || strings.ContainsAny(a, " '\"\\") {
				return true
			}
		}
		got := ParseArguments(ArgumentsToString(args))
		if len(got) != len(args) {
			return false
		}
		for i := range args {
			if got[i] != args[i] {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

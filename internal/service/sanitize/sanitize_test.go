package sanitize

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

func TestFilename(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"colon and bang", "My Song: Live!", "My_Song_Live"},
		{"path separators", `AC/DC \ Back in Black`, "ACDC__Back_in_Black"},
		{"all illegal", `a*b?c:d"e<f>g|h`, "abcdefgh"},
		{"video id token", "Great Track [dQw4w9WgXcQ]", "Great_Track"},
		{"video id with dash", "Clip [a-b_c-d_e-f]", "Clip"},
		{"bracket not an id", "Live [2019]", "Live_[2019]"},
		{"leading dots", "..hidden", "hidden"},
		{"unicode kept", "Café del Mar", "Café_del_Mar"},
		{"empty", "", domain.PlaceholderTitle},
		{"only illegal", `???///`, domain.PlaceholderTitle},
		{"control chars", "tab\there\x00", "tabhere"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Filename(tc.title))
		})
	}
}

func TestFilenameTruncates(t *testing.T) {
	got := Filename(strings.Repeat("a", 250))
	assert.Equal(t, MaxLength, utf8.RuneCountInString(got))

	multibyte := Filename(strings.Repeat("é", 150))
	assert.Equal(t, MaxLength, utf8.RuneCountInString(multibyte))
	assert.True(t, utf8.ValidString(multibyte))

	cjk := Filename(strings.Repeat("日", 150))
	assert.LessOrEqual(t, len(cjk+".mp3"), 255)
	assert.LessOrEqual(t, len(cjk), MaxBytes)
	assert.True(t, utf8.ValidString(cjk))
	assert.Equal(t, strings.Repeat("日", MaxBytes/3), cjk)

	emoji := Filename(strings.Repeat("🎵", 120))
	assert.LessOrEqual(t, len(emoji), MaxBytes)
	assert.True(t, utf8.ValidString(emoji))
}

func TestFilenameProperties(t *testing.T) {
	alphabet := []rune(`abcXYZ019 _-.[]\/*?:"<>|!é日`)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		n := rng.Intn(300)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		title := string(runes)

		got := Filename(title)
		assert.NotEmpty(t, got, "title %q", title)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxLength, "title %q", title)
		assert.LessOrEqual(t, len(got), MaxBytes, "title %q", title)
		assert.False(t, strings.ContainsAny(got, `\/*?:"<>|`), "title %q produced %q", title, got)
		assert.NotContains(t, got, " ")
	}
}

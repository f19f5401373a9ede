package filename

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"punctuation stripped", "My Video!! (2024)", "My_Video_2024"},
		{"empty title", "", DefaultBase},
		{"only symbols", "!!!???", DefaultBase},
		{"only whitespace", "   \t ", "_"},
		{"edge whitespace kept", " My Video ", "_My_Video_"},
		{"hyphen and underscore kept", "live-set_part 2", "live-set_part_2"},
		{"whitespace runs collapsed", "a   b\t\tc", "a_b_c"},
		{"accents folded", "Café Déjà Vu", "Cafe_Deja_Vu"},
		{"non latin dropped", "日本 video", "_video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Base(tt.title))
		})
	}
}

func TestBase_TruncatesLongTitles(t *testing.T) {
	title := strings.Repeat("a", 150)

	got := Base(title)
	assert.Len(t, got, MaxBaseLength)
	assert.Equal(t, strings.Repeat("a", MaxBaseLength)+Extension, FromTitle(title))
}

func TestFromTitle(t *testing.T) {
	assert.Equal(t, "My_Video_2024.mp4", FromTitle("My Video!! (2024)"))
	assert.Equal(t, "merged_video.mp4", FromTitle(""))
}

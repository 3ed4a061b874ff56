package textutil

import "testing"

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/videos/the.big.lebowski.1998.mkv", "The Big Lebowski 1998"},
		{"/videos/home_movie-01.mp4", "Home Movie 01"},
		{"clip.webm", "Clip"},
		{"", "Unknown"},
		{"___.mkv", "Unknown"},
	}
	for _, tc := range cases {
		if got := DisplayTitle(tc.path); got != tc.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short.mkv", 20, "short.mkv"},
		{"a_very_long_video_filename.mkv", 15, "a_very...me.mkv"},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, ""},
	}
	for _, tc := range cases {
		got := TruncateMiddle(tc.in, tc.max)
		if got != tc.want {
			t.Errorf("TruncateMiddle(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
		if len([]rune(got)) > tc.max {
			t.Errorf("TruncateMiddle(%q, %d) exceeded max: %q", tc.in, tc.max, got)
		}
	}
}

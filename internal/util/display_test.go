package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"maxLen at ellipsis width", "hello", 3, "..."},
		{"maxLen of 0", "hello", 0, "..."},
		{"negative maxLen", "hello", -5, "..."},
		{"empty string unchanged", "", 10, ""},
		{"one char plus ellipsis", "hello", 4, "h..."},
		{"runes counted, not bytes", "日本語テスト", 5, "日本..."},
		{"mixed ascii and runes", "hello日本語world", 10, "hello日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	t.Run("plain string truncated", func(t *testing.T) {
		got := TruncateANSI("write the tests", 8)
		if got != "write..." {
			t.Errorf("got %q, want %q", got, "write...")
		}
	})

	t.Run("styled string unchanged when it fits", func(t *testing.T) {
		in := green.Render("done")
		if got := TruncateANSI(in, 10); got != in {
			t.Errorf("styled string was modified: %q", got)
		}
	})

	t.Run("styled string truncated by width", func(t *testing.T) {
		got := TruncateANSI(green.Render("in_progress forever"), 8)
		if w := lipgloss.Width(got); w > 8 {
			t.Errorf("width %d exceeds 8", w)
		}
	})

	t.Run("wide characters", func(t *testing.T) {
		got := TruncateANSI("日本語テスト", 8)
		if w := lipgloss.Width(got); w > 8 {
			t.Errorf("width %d exceeds 8", w)
		}
	})

	t.Run("tiny width", func(t *testing.T) {
		if got := TruncateANSI("hello", 2); got != "..." {
			t.Errorf("got %q", got)
		}
	})
}

func TestSingleLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"one", "one"},
		{"  padded  ", "padded"},
		{"line one\nline two", "line one line two"},
		{"tabs\t\tand\r\nbreaks", "tabs and breaks"},
	}
	for _, tt := range tests {
		if got := SingleLine(tt.in); got != tt.want {
			t.Errorf("SingleLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCell(t *testing.T) {
	if got := Cell("please\nreview the diff", 12); got != "please re..." {
		t.Errorf("Cell() = %q", got)
	}
	if got := Cell("a\nb", 0); got != "a b" {
		t.Errorf("Cell() with no width = %q", got)
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"task_20261019T120000Z_a1b2c3d4e5f6", "a1b2c3d4e5f6"},
		{"agent_x_y", "y"},
		{"lead", "lead"},
		{"one_two", "one_two"},
		{"trailing_sep_", "trailing_sep_"},
	}
	for _, tt := range tests {
		if got := ShortID(tt.in); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

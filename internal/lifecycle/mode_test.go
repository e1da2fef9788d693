package lifecycle

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"IN_PROCESS", ModeInProcess, false},
		{" tmux ", ModeTmux, false},
		{"screen", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPaneTitle(t *testing.T) {
	tests := []struct {
		team, agent, want string
	}{
		{"proj", "tester", "proj-tester"},
		{"my proj", "qa/bot", "my_proj-qa_bot"},
		{"proj", "..", "proj-_"},
	}
	for _, tt := range tests {
		if got := PaneTitle(tt.team, tt.agent); got != tt.want {
			t.Errorf("PaneTitle(%q, %q) = %q, want %q", tt.team, tt.agent, got, tt.want)
		}
	}
}

func TestPanePattern(t *testing.T) {
	if got := PanePattern("my proj"); got != "my_proj-*" {
		t.Errorf("PanePattern() = %q, want %q", got, "my_proj-*")
	}
}

func TestStartupCommand(t *testing.T) {
	cs := CommandSpec{Program: "claude", Args: []string{"--permission-mode", "acceptEdits"}}

	tests := []struct {
		name string
		spec AgentSpec
		want string
	}{
		{"minimal", AgentSpec{Name: "w"}, "claude --permission-mode acceptEdits --team proj --agent w"},
		{"model", AgentSpec{Name: "w", Model: "sonnet"}, "claude --permission-mode acceptEdits --team proj --agent w --model sonnet"},
		{"prompt with quote", AgentSpec{Name: "w", Prompt: "don't stop"}, `claude --permission-mode acceptEdits --team proj --agent w 'don'\''t stop'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cs.StartupCommand("proj", tt.spec); got != tt.want {
				t.Errorf("StartupCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

package bus

import "testing"

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		topic   string
		want    bool
	}{
		{"exact match", "events/task/task-1", "events/task/task-1", true},
		{"exact mismatch", "events/task/task-1", "events/task/task-2", false},
		{"single wildcard matches instance", "events/task/+", "events/task/task-1", true},
		{"single wildcard is one segment", "events/+", "events/task/task-1", false},
		{"single wildcard mid-pattern", "events/+/task-1", "events/board/task-1", true},
		{"remainder matches everything below", "events/#", "events/task/task-1", true},
		{"remainder matches zero segments", "events/#", "events", true},
		{"remainder at root", "#", "events/task/task-1", true},
		{"prefix without wildcard does not match deeper", "events/task", "events/task/task-1", false},
		{"topic shorter than pattern", "events/task/+", "events/task", false},
		{"empty pattern", "", "events/task/task-1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchTopic(tc.pattern, tc.topic); got != tc.want {
				t.Errorf("MatchTopic(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

func TestValidatePattern(t *testing.T) {
	valid := []string{"events/task/task-1", "events/+/+", "events/#", "#", "+"}
	for _, pattern := range valid {
		if err := ValidatePattern(pattern); err != nil {
			t.Errorf("ValidatePattern(%q) = %v, want nil", pattern, err)
		}
	}

	invalid := []string{"", "  ", "events//task", "events/#/task", "/events"}
	for _, pattern := range invalid {
		if err := ValidatePattern(pattern); err == nil {
			t.Errorf("ValidatePattern(%q) = nil, want error", pattern)
		}
	}
}

package sshdedit

import (
	"testing"
)

func TestConditionEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Host foo User root", "User root Host foo", true},
		{"host foo user root", "Host foo User root", true},
		{"Host foo", "Host foo User root", false},
		{"Host foo", "Host Foo", false},
		{"All", "all", true},
		{"Address 10.0.0.0/8 LocalPort 22", "LocalPort 22 Address 10.0.0.0/8", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := MustCondition(tt.a).Equal(MustCondition(tt.b)); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConditionString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"User root Host foo", "Host foo User root"},
		{"rdomain 1 group wheel", "Group wheel RDomain 1"},
		{"all", "All"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MustCondition(tt.in).String(); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseConditionErrors(t *testing.T) {
	for _, in := range []string{"Shell bash", "User", `User "unterminated`} {
		if _, err := ParseCondition(in); err == nil {
			t.Errorf("ParseCondition(%q): expected error", in)
		}
	}
}

func TestConditionZero(t *testing.T) {
	if !MustCondition("").IsZero() {
		t.Fatalf("empty condition should be zero")
	}
	if MustCondition("User a").IsZero() {
		t.Fatalf("User a should not be zero")
	}
	if err := (Condition{{Criterion: "User", Argument: "a"}, {Criterion: "USER", Argument: "b"}}).validate(); err != nil {
		t.Fatalf("repeated criterion should be accepted: %v", err)
	}
	if err := (Condition{{Criterion: "Shell", Argument: "bash"}}).validate(); err == nil {
		t.Fatalf("unknown criterion should be rejected")
	}
}

package sshdedit

import (
	"reflect"
	"testing"
)

func TestEntries(t *testing.T) {
	doc := mustParse(t, fixture(t, "full"))
	entries := doc.Entries()
	if len(entries) != 16 {
		t.Fatalf("expected 16 entries, got %d", len(entries))
	}
	positions := []struct {
		i    int
		key  string
		cond string
		want []string
	}{
		{11, "X11Forwarding", "User anoncvs", []string{"no"}},
		{13, "ForceCommand", "User anoncvs", []string{"cvs server"}},
		{14, "AllowAgentForwarding", "Host *.example.net User *", []string{"no"}},
	}
	for _, p := range positions {
		e := entries[p.i]
		if e.Key != p.key || e.Condition.String() != p.cond || !reflect.DeepEqual(e.Values, p.want) {
			t.Errorf("entry %d = %+v, want %s/%s %q", p.i, e, p.key, p.cond, p.want)
		}
	}

	byAddr := map[string]Entry{}
	for _, e := range entries {
		byAddr[e.Key+"|"+e.Condition.String()] = e
	}
	tests := []struct {
		addr string
		want []string
	}{
		{"ListenAddress|", []string{"0.0.0.0", "::"}},
		{"AllowGroups|", []string{"sshusers", "admins"}},
		{"ForceCommand|User anoncvs", []string{"cvs server"}},
		{"ListenAddress|Host *.example.net User *", []string{"1.2.3.4"}},
	}
	for _, tt := range tests {
		e, ok := byAddr[tt.addr]
		if !ok {
			t.Errorf("%s missing", tt.addr)
			continue
		}
		if !reflect.DeepEqual(e.Values, tt.want) {
			t.Errorf("%s = %q, want %q", tt.addr, e.Values, tt.want)
		}
	}
	if _, ok := byAddr["Subsystem|"]; ok {
		t.Errorf("Subsystem should not be listed")
	}
	if got := byAddr["AcceptEnv|"].Values; len(got) != 16 {
		t.Errorf("AcceptEnv should gather 16 tokens, got %d", len(got))
	}
	if entries[0].Key != "ListenAddress" || !entries[0].Condition.IsZero() {
		t.Errorf("root entries come first, got %+v", entries[0])
	}
}

func TestEntriesMergesEqualBlocks(t *testing.T) {
	doc := mustParse(t, []byte("Match User a Host b\n  Banner one\nMatch User x\n  Banner x\nMatch host b user a\n  X11Forwarding no\n  banner two\n"))
	entries := doc.Entries()
	want := []Entry{
		{Key: "Banner", Values: []string{"one", "two"}, Condition: MustCondition("User a Host b")},
		{Key: "X11Forwarding", Values: []string{"no"}, Condition: MustCondition("User a Host b")},
		{Key: "Banner", Values: []string{"x"}, Condition: MustCondition("User x")},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries: %+v", len(entries), entries)
	}
	for i := range want {
		if entries[i].Key != want[i].Key || !reflect.DeepEqual(entries[i].Values, want[i].Values) ||
			!entries[i].Condition.Equal(want[i].Condition) {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
	if got := doc.Resolve("BANNER", MustCondition("Host b User a")); len(got) != 2 {
		t.Fatalf("Resolve should see both equal blocks, got %d", len(got))
	}
}

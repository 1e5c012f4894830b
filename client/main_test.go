package main

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		input string
		name  string
		args  []string
	}{
		{"LIST", "LIST", nil},
		{"UPLOAD report.txt", "UPLOAD", []string{"report.txt"}},
		{`DOWNLOAD "my notes.txt" /tmp`, "DOWNLOAD", []string{"my notes.txt", "/tmp"}},
		{`DELETE   spaced   `, "DELETE", []string{"spaced"}},
		{`DELETE ""`, "DELETE", []string{""}},
	}
	for _, tc := range cases {
		got := parseCommand(tc.input)
		if got.name != tc.name || len(got.args) != len(tc.args) {
			t.Fatalf("parseCommand(%q) = %+v", tc.input, got)
		}
		for i := range tc.args {
			if got.args[i] != tc.args[i] {
				t.Fatalf("parseCommand(%q) args = %q, want %q", tc.input, got.args, tc.args)
			}
		}
	}
	if got := parseCommand("   "); got.name != "" {
		t.Fatalf("blank input parsed as %+v", got)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cli struct {
	t      *testing.T
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "shelf.yaml")
	body := "db_path:\n  test: " + filepath.Join(dir, "data") + "\nindexes: [author]\nrequired_fields: [title]\n"
	if err := os.WriteFile(config, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return &cli{t: t, config: config}
}

func (c *cli) run(stdin string, args ...string) (string, string, int) {
	c.t.Helper()
	args = append(args, "--config", c.config, "--env", "test", "--store", "books")
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (c *cli) ok(stdin string, args ...string) string {
	c.t.Helper()
	out, errOut, code := c.run(stdin, args...)
	if code != 0 {
		c.t.Fatalf("shelf %v exited %d: %s", args, code, errOut)
	}
	return out
}

func TestCLILifecycle(t *testing.T) {
	c := newCLI(t)

	id := strings.TrimSpace(c.ok("", "create", `{"title":"A","author":"bob","year":2020}`))
	if id == "" {
		t.Fatal("create printed no ID")
	}
	c.ok(`{"title":"B","author":"ann","year":2021}`, "create")

	if got := strings.TrimSpace(c.ok("", "count")); got != "2" {
		t.Errorf("count = %q, want 2", got)
	}

	out := c.ok("", "read", "--where", "author=bob")
	want := `{"id":"` + id + `","doc":{"title":"A","author":"bob","year":2020}}` + "\n"
	if out != want {
		t.Errorf("read =\n%s\nwant\n%s", out, want)
	}

	out = c.ok("", "read", "--order", "year DESC", "--limit", "1")
	if !strings.Contains(out, `"title":"B"`) || strings.Count(out, "\n") != 1 {
		t.Errorf("ordered read = %s", out)
	}

	if got := strings.TrimSpace(c.ok("", "update", "--where", "year=2020", `{"title":"A2"}`)); got != "1" {
		t.Errorf("update = %q, want 1", got)
	}
	if out := c.ok("", "get", id); !strings.Contains(out, `"title":"A2"`) {
		t.Errorf("get = %s", out)
	}

	if got := strings.TrimSpace(c.ok("", "delete", "--where", "author=bob")); got != "1" {
		t.Errorf("delete = %q, want 1", got)
	}
	if got := strings.TrimSpace(c.ok("", "count")); got != "1" {
		t.Errorf("count after delete = %q, want 1", got)
	}
}

func TestCLIBackupRestore(t *testing.T) {
	c := newCLI(t)
	c.ok("", "create", `{"title":"keep"}`)
	archive := filepath.Join(t.TempDir(), "books.tar.zst")
	c.ok("", "backup", archive)

	c.ok("", "delete", "--all")
	if got := strings.TrimSpace(c.ok("", "count")); got != "0" {
		t.Fatalf("count after delete --all = %q", got)
	}

	c.ok("", "restore", archive)
	if got := strings.TrimSpace(c.ok("", "count")); got != "1" {
		t.Errorf("count after restore = %q, want 1", got)
	}
}

func TestCLIErrors(t *testing.T) {
	c := newCLI(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown command", []string{"explode"}, 2},
		{"delete without filter", []string{"delete"}, 2},
		{"bad where", []string{"read", "--where", "nokey"}, 2},
		{"bad order", []string{"read", "--order", "a b c"}, 2},
		{"get arity", []string{"get"}, 2},
		{"missing required", []string{"create", `{"author":"x"}`}, 1},
		{"bad document", []string{"create", `[1]`}, 1},
		{"get unknown", []string{"get", "nope"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := c.run("", tt.args...)
			if code != tt.code {
				t.Errorf("exit = %d, want %d (stderr %q)", code, tt.code, errOut)
			}
			if !strings.HasPrefix(errOut, "error:") {
				t.Errorf("stderr = %q, want an error line", errOut)
			}
		})
	}
}

func TestParseWhere(t *testing.T) {
	pred, err := parseWhere([]string{"n=3", "s=plain", `q="quoted"`, "b=true", "z=null"})
	if err != nil {
		t.Fatal(err)
	}
	checks := map[string]string{"n": "3", "s": `"plain"`, "q": `"quoted"`, "b": "true", "z": "null"}
	for k, want := range checks {
		if got := pred[k].String(); got != want {
			t.Errorf("%s = %s, want %s", k, got, want)
		}
	}
}

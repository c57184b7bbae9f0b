package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTeamFile(t *testing.T, dir, teamID, content string) string {
	t.Helper()
	path := filepath.Join(dir, teamID+".db")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTeamDataParse(t *testing.T) {
	dir := t.TempDir()
	writeTeamFile(t, dir, "T1", "[SECTION REGISTERED]\nu1\nu2\n[END SECTION]\n[SECTION ADMINS]\n[END SECTION]\n")

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatalf("NewTeamData() error: %v", err)
	}
	if got, want := d.RegisteredUsers(), []string{"u1", "u2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("RegisteredUsers() = %v, want %v", got, want)
	}
	if got := d.Admins(); len(got) != 0 {
		t.Errorf("Admins() = %v, want empty", got)
	}
}

func TestTeamDataParseAdmins(t *testing.T) {
	dir := t.TempDir()
	writeTeamFile(t, dir, "T1", "[SECTION ADMINS]\na1\n[END SECTION]\n[SECTION REGISTERED]\nu1\n[END SECTION]\n")

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatalf("NewTeamData() error: %v", err)
	}
	if got, want := d.Admins(), []string{"a1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Admins() = %v, want %v", got, want)
	}
	if got, want := d.RegisteredUsers(), []string{"u1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("RegisteredUsers() = %v, want %v", got, want)
	}
}

func TestTeamDataIgnoresLinesOutsideSections(t *testing.T) {
	dir := t.TempDir()
	writeTeamFile(t, dir, "T1", "junk before\n[SECTION REGISTERED]\nu1\n[END SECTION]\njunk after\n")

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatalf("NewTeamData() error: %v", err)
	}
	if got, want := d.RegisteredUsers(), []string{"u1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("RegisteredUsers() = %v, want %v", got, want)
	}
}

func TestTeamDataParseRejects(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
	}{
		{
			name:     "nested section start",
			content:  "[SECTION ADMINS]\n[SECTION REGISTERED]\n[END SECTION]\n",
			wantLine: 2,
		},
		{
			name:     "repeated same section start",
			content:  "[SECTION REGISTERED]\n[SECTION REGISTERED]\n",
			wantLine: 2,
		},
		{
			name:     "stray end marker",
			content:  "u1\n[END SECTION]\n",
			wantLine: 2,
		},
		{
			name:     "unterminated section",
			content:  "[SECTION REGISTERED]\nu1\n",
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeTeamFile(t, dir, "T1", tt.content)

			d, err := NewTeamData(dir, "T1")
			if err == nil {
				t.Fatal("expected structural parse error, got nil")
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if perr.Path != path {
				t.Errorf("ParseError.Path = %q, want %q", perr.Path, path)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("ParseError.Line = %d, want %d", perr.Line, tt.wantLine)
			}

			// The instance must still be usable with empty state.
			if d == nil {
				t.Fatal("expected a usable instance alongside the error")
			}
			if len(d.RegisteredUsers()) != 0 || len(d.Admins()) != 0 {
				t.Errorf("expected empty state after parse failure, got registered=%v admins=%v",
					d.RegisteredUsers(), d.Admins())
			}
			if err := d.RegisterUser("u9"); err != nil {
				t.Errorf("RegisterUser after parse failure: %v", err)
			}
		})
	}
}

func TestTeamDataMissingFile(t *testing.T) {
	d, err := NewTeamData(t.TempDir(), "T1")
	if err != nil {
		t.Fatalf("NewTeamData() error for missing file: %v", err)
	}
	if len(d.RegisteredUsers()) != 0 || len(d.Admins()) != 0 {
		t.Error("expected empty state for missing file")
	}
}

func TestTeamDataRegisterPersists(t *testing.T) {
	dir := t.TempDir()

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterUser("u1"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if err := d.RegisterUser("u2"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	// A fresh load sees the mutations.
	reloaded, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got, want := reloaded.RegisteredUsers(), []string{"u1", "u2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("RegisteredUsers() after reload = %v, want %v", got, want)
	}
}

func TestTeamDataRegisterAllowsDuplicates(t *testing.T) {
	d, err := NewTeamData(t.TempDir(), "T1")
	if err != nil {
		t.Fatal(err)
	}

	// The data layer is append-only; dedup is the caller's job.
	if err := d.RegisterUser("u1"); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterUser("u1"); err != nil {
		t.Fatal(err)
	}
	if got := d.RegisteredUsers(); len(got) != 2 {
		t.Errorf("expected 2 entries after duplicate registration, got %v", got)
	}
}

func TestTeamDataAddAdminPersists(t *testing.T) {
	dir := t.TempDir()

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AddAdmin("a1"); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	reloaded, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsAdmin("a1") {
		t.Error("admin not persisted")
	}
}

func TestTeamDataSaveFormat(t *testing.T) {
	dir := t.TempDir()

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterUser("u1"); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterUser("u2"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(d.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := "[SECTION REGISTERED]\nu1\nu2\n[END SECTION]\n[SECTION ADMINS]\n[END SECTION]\n"
	if string(data) != want {
		t.Errorf("file contents:\ngot  %q\nwant %q", data, want)
	}
}

func TestTeamDataViewsAreCopies(t *testing.T) {
	dir := t.TempDir()
	writeTeamFile(t, dir, "T1", "[SECTION REGISTERED]\nu1\n[END SECTION]\n")

	d, err := NewTeamData(dir, "T1")
	if err != nil {
		t.Fatal(err)
	}

	view := d.RegisteredUsers()
	view[0] = "mutated"
	if d.RegisteredUsers()[0] != "u1" {
		t.Error("RegisteredUsers() must return a copy")
	}
}

package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Section markers in the per-team data file. Matching is byte-exact after
// the line terminator is stripped.
const (
	registeredSectionMarker = "[SECTION REGISTERED]"
	adminsSectionMarker     = "[SECTION ADMINS]"
	sectionEndMarker        = "[END SECTION]"
)

// section is the parser state: which block of the file we are inside.
type section int

const (
	sectionNone section = iota
	sectionRegistered
	sectionAdmins
)

// ParseError reports a structural violation in a per-team data file: a
// section opened inside another, an end marker with no open section, or
// input ending inside a section.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: line %d: %s", e.Path, e.Line, e.Reason)
}

// TeamData holds one team's registered users and admins, backed by a
// section-delimited file under the data directory. Mutations write through:
// every successful change is on disk before the call returns. Admin
// membership is managed by editing the team file; nothing in the message
// paths grants it.
type TeamData struct {
	teamID     string
	path       string
	registered []string
	admins     []string
}

// NewTeamData loads the data file for teamID from dataDir. A missing file
// yields an empty store and no error. A structurally invalid file yields an
// empty, usable store together with a *ParseError describing the violation;
// the caller decides whether to log and continue or abort. Any other read
// failure likewise yields an empty store alongside the error.
func NewTeamData(dataDir, teamID string) (*TeamData, error) {
	d := &TeamData{
		teamID:     teamID,
		path:       filepath.Join(dataDir, teamID+".db"),
		registered: []string{},
		admins:     []string{},
	}

	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("reading team data %s: %w", d.path, err)
	}
	defer f.Close()

	if err := d.parse(f); err != nil {
		d.registered = []string{}
		d.admins = []string{}
		return d, err
	}
	return d, nil
}

// parse runs the section state machine over the file contents. Data lines
// carry one user id each; lines outside any section are ignored.
func (d *TeamData) parse(r io.Reader) error {
	current := sectionNone
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch line {
		case registeredSectionMarker:
			if current != sectionNone {
				return &ParseError{Path: d.path, Line: lineNo, Reason: "section start inside an open section"}
			}
			current = sectionRegistered
		case adminsSectionMarker:
			if current != sectionNone {
				return &ParseError{Path: d.path, Line: lineNo, Reason: "section start inside an open section"}
			}
			current = sectionAdmins
		case sectionEndMarker:
			if current == sectionNone {
				return &ParseError{Path: d.path, Line: lineNo, Reason: "end marker with no open section"}
			}
			current = sectionNone
		default:
			switch current {
			case sectionRegistered:
				d.registered = append(d.registered, line)
			case sectionAdmins:
				d.admins = append(d.admins, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading team data %s: %w", d.path, err)
	}
	if current != sectionNone {
		return &ParseError{Path: d.path, Line: lineNo, Reason: "input ended inside an open section"}
	}
	return nil
}

// TeamID returns the team this store belongs to.
func (d *TeamData) TeamID() string { return d.teamID }

// Path returns the backing file path.
func (d *TeamData) Path() string { return d.path }

// RegisteredUsers returns a copy of the registered user ids, in file order.
func (d *TeamData) RegisteredUsers() []string {
	return append([]string(nil), d.registered...)
}

// Admins returns a copy of the admin user ids, in file order.
func (d *TeamData) Admins() []string {
	return append([]string(nil), d.admins...)
}

// IsRegistered reports whether userID appears in the registered list.
func (d *TeamData) IsRegistered(userID string) bool {
	for _, id := range d.registered {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID appears in the admin list.
func (d *TeamData) IsAdmin(userID string) bool {
	for _, id := range d.admins {
		if id == userID {
			return true
		}
	}
	return false
}

// RegisterUser appends userID to the registered list and writes the file.
// The list is append-only and does not deduplicate; callers that want
// at-most-once registration check IsRegistered first. On a write failure
// the in-memory list is rolled back so memory and disk stay in agreement.
func (d *TeamData) RegisterUser(userID string) error {
	d.registered = append(d.registered, userID)
	if err := d.save(); err != nil {
		d.registered = d.registered[:len(d.registered)-1]
		return err
	}
	return nil
}

// AddAdmin appends userID to the admin list and writes the file.
func (d *TeamData) AddAdmin(userID string) error {
	d.admins = append(d.admins, userID)
	if err := d.save(); err != nil {
		d.admins = d.admins[:len(d.admins)-1]
		return err
	}
	return nil
}

// Save serializes both sections back to the data file.
func (d *TeamData) Save() error { return d.save() }

func (d *TeamData) save() error {
	var b strings.Builder
	b.WriteString(registeredSectionMarker + "\n")
	for _, id := range d.registered {
		b.WriteString(id + "\n")
	}
	b.WriteString(sectionEndMarker + "\n")
	b.WriteString(adminsSectionMarker + "\n")
	for _, id := range d.admins {
		b.WriteString(id + "\n")
	}
	b.WriteString(sectionEndMarker + "\n")

	if err := writeFileAtomic(d.path, []byte(b.String())); err != nil {
		return fmt.Errorf("saving team data for %s: %w", d.teamID, err)
	}
	return nil
}

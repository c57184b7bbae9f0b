package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TeamRecord is one entry in the authorized-teams registry: a workspace
// identifier and the bot access token issued for it during the OAuth
// install. Records are never mutated in place; re-authorization replaces
// the whole record.
type TeamRecord struct {
	TeamID   string
	BotToken string
}

// TeamStore reads and writes the authorized-teams registry file. The file
// holds one team per line, "<team_id> <bot_token>", and is rewritten in
// full on every save. Neither field may contain whitespace.
type TeamStore struct {
	path string
}

// NewTeamStore returns a store backed by <dataDir>/teams.db.
func NewTeamStore(dataDir string) *TeamStore {
	return &TeamStore{path: filepath.Join(dataDir, "teams.db")}
}

// Path returns the registry file path.
func (s *TeamStore) Path() string { return s.path }

// Load reads the registry. A missing file is not an error and yields an
// empty map. A line that does not split into exactly two fields fails the
// whole load: the registry holds credentials, and a half-read credential
// set is worse than none.
func (s *TeamStore) Load() (map[string]TeamRecord, error) {
	records := make(map[string]TeamRecord)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("reading team registry %s: %w", s.path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("team registry %s: line %d: expected \"<team_id> <bot_token>\", got %d fields", s.path, i+1, len(fields))
		}
		records[fields[0]] = TeamRecord{TeamID: fields[0], BotToken: fields[1]}
	}

	return records, nil
}

// Save rewrites the registry with one line per record, sorted by team id so
// repeated saves of the same set are byte-identical.
func (s *TeamStore) Save(records map[string]TeamRecord) error {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s %s\n", id, records[id].BotToken)
	}

	if err := writeFileAtomic(s.path, []byte(b.String())); err != nil {
		return fmt.Errorf("saving team registry: %w", err)
	}
	return nil
}

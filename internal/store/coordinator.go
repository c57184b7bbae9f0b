package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
)

// ErrNoTeam is returned by user lookups when no team is selected, which
// only happens before any team has been authorized.
var ErrNoTeam = errors.New("no team selected")

// MembershipFunc reports whether a user belongs to the given team. It is
// supplied by the platform adapter and typically costs one API call per
// invocation.
type MembershipFunc func(ctx context.Context, teamID, userID string) (bool, error)

// Coordinator ties together the authorized-team registry and the per-team
// data stores, and tracks which team the bot is currently acting for. All
// methods are safe for concurrent use; a single mutex serializes state
// access, which is cheap next to the platform round-trips on the event
// path.
type Coordinator struct {
	mu      sync.RWMutex
	dataDir string
	store   *TeamStore
	teams   map[string]*TeamData
	authed  map[string]TeamRecord
	current string
}

// NewCoordinator returns a coordinator whose registry and team files live
// under dataDir. Call Load before use.
func NewCoordinator(dataDir string) *Coordinator {
	return &Coordinator{
		dataDir: dataDir,
		store:   NewTeamStore(dataDir),
		teams:   make(map[string]*TeamData),
		authed:  make(map[string]TeamRecord),
	}
}

// Load reads the team registry and constructs a data store for every
// authorized team. The current team starts as the first team id in sorted
// order so startup is deterministic. A team whose data file is structurally
// invalid is logged and continues with an empty store.
func (c *Coordinator) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	authed, err := c.store.Load()
	if err != nil {
		return err
	}
	c.authed = authed
	c.teams = make(map[string]*TeamData, len(authed))

	ids := make([]string, 0, len(authed))
	for id := range authed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		data, err := NewTeamData(c.dataDir, id)
		if err != nil {
			log.Printf("team %s: %v; continuing with empty store", id, err)
		}
		c.teams[id] = data
	}

	c.current = ""
	if len(ids) > 0 {
		c.current = ids[0]
	}
	return nil
}

// Authorize records a newly authorized team (or a re-authorization with a
// fresh token), makes it current, and persists the registry. The team's
// data store is created lazily and survives re-authorization. A registry
// write failure is returned to the caller; the in-memory state is already
// updated and the next successful save will include it.
func (c *Coordinator) Authorize(teamID, botToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authed[teamID] = TeamRecord{TeamID: teamID, BotToken: botToken}
	if _, ok := c.teams[teamID]; !ok {
		data, err := NewTeamData(c.dataDir, teamID)
		if err != nil {
			log.Printf("team %s: %v; continuing with empty store", teamID, err)
		}
		c.teams[teamID] = data
	}
	c.current = teamID

	if err := c.store.Save(c.authed); err != nil {
		return fmt.Errorf("persisting authorization for team %s: %w", teamID, err)
	}
	return nil
}

// CurrentTeam returns the team the bot is currently acting for, or "" when
// no team is authorized.
func (c *Coordinator) CurrentTeam() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// TeamIDs returns the authorized team ids in sorted order.
func (c *Coordinator) TeamIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedIDs()
}

func (c *Coordinator) sortedIDs() []string {
	ids := make([]string, 0, len(c.authed))
	for id := range c.authed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record returns the stored credential for teamID.
func (c *Coordinator) Record(teamID string) (TeamRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.authed[teamID]
	return rec, ok
}

// Data returns the data store for teamID.
func (c *Coordinator) Data(teamID string) (*TeamData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.teams[teamID]
	return d, ok
}

// SelectTeamForUser finds the team userID belongs to and makes it current.
// The current team is tried first, then the remaining teams in sorted
// order, one membership query each. When no team matches, the current team
// is left unchanged and false is returned. An error from an individual
// membership query is logged and treated as non-membership so one
// unreachable workspace does not block the rest.
func (c *Coordinator) SelectTeamForUser(ctx context.Context, userID string, member MembershipFunc) (string, bool) {
	c.mu.RLock()
	candidates := make([]string, 0, len(c.authed))
	if c.current != "" {
		candidates = append(candidates, c.current)
	}
	for _, id := range c.sortedIDs() {
		if id != c.current {
			candidates = append(candidates, id)
		}
	}
	c.mu.RUnlock()

	for _, id := range candidates {
		ok, err := member(ctx, id, userID)
		if err != nil {
			log.Printf("membership check for %s in team %s: %v", userID, id, err)
			continue
		}
		if ok {
			c.mu.Lock()
			c.current = id
			c.mu.Unlock()
			return id, true
		}
	}
	return "", false
}

// teamData returns the data store for teamID. Callers must hold the mutex.
func (c *Coordinator) teamData(teamID string) (*TeamData, error) {
	if teamID == "" {
		return nil, ErrNoTeam
	}
	d, ok := c.teams[teamID]
	if !ok {
		return nil, fmt.Errorf("team %s has no data store: %w", teamID, ErrNoTeam)
	}
	return d, nil
}

// IsRegisteredIn reports whether userID is registered with teamID.
func (c *Coordinator) IsRegisteredIn(teamID, userID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, err := c.teamData(teamID)
	if err != nil {
		return false, err
	}
	return d.IsRegistered(userID), nil
}

// IsAdminIn reports whether userID is an admin of teamID.
func (c *Coordinator) IsAdminIn(teamID, userID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, err := c.teamData(teamID)
	if err != nil {
		return false, err
	}
	return d.IsAdmin(userID), nil
}

// RegisterUserIn registers userID with teamID and persists the team's data
// file. Callers that resolved the team for a user must pass that team id
// rather than rely on the current team, which concurrent events move.
func (c *Coordinator) RegisterUserIn(teamID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.teamData(teamID)
	if err != nil {
		return err
	}
	return d.RegisterUser(userID)
}


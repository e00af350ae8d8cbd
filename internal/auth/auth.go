// Package auth implements the user store and role checks behind HTTP basic
// authentication.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"sort"
	"strings"
	"sync"

	"github.com/quickset/quickset/internal/config"
	qerr "github.com/quickset/quickset/internal/errors"
)

// Role is a user's permission level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleReadWrite Role = "readwrite"
	RoleReadOnly  Role = "readonly"
)

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "readwrite", "read_write", "rw":
		return RoleReadWrite, nil
	case "readonly", "read_only", "ro":
		return RoleReadOnly, nil
	default:
		return "", qerr.New(qerr.ErrCategoryAuth, qerr.CodeInvalidQuery,
			"unknown role "+s+" (must be admin, readwrite, or readonly)")
	}
}

// Operation classifies an API call for permission checks.
type Operation uint8

const (
	// OpRead covers search, get, list, and stats calls.
	OpRead Operation = iota
	// OpWrite covers table creation and row mutations.
	OpWrite
	// OpAdmin covers user management.
	OpAdmin
)

// user is a stored credential. Passwords are kept as sha256 digests and
// compared in constant time.
type user struct {
	passHash [sha256.Size]byte
	role     Role
}

// UserInfo is the public view of a stored user.
type UserInfo struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Manager holds the user store and the configured auth level.
type Manager struct {
	mu    sync.RWMutex
	users map[string]user
	level config.AuthLevel
}

// NewManager creates a manager at the given auth level. When the level is
// not none, an admin account is seeded from adminUser/adminPass.
func NewManager(level config.AuthLevel, adminUser, adminPass string) *Manager {
	m := &Manager{
		users: make(map[string]user),
		level: level,
	}
	if level != config.AuthNone && adminUser != "" {
		m.users[adminUser] = user{passHash: sha256.Sum256([]byte(adminPass)), role: RoleAdmin}
	}
	return m
}

// Level returns the configured auth level.
func (m *Manager) Level() config.AuthLevel {
	return m.level
}

// AddUser registers a new user.
func (m *Manager) AddUser(name, password string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[name]; exists {
		return qerr.New(qerr.ErrCategoryAuth, qerr.CodeUserAlreadyExists,
			"user "+name+" already exists")
	}
	m.users[name] = user{passHash: sha256.Sum256([]byte(password)), role: role}
	return nil
}

// RemoveUser deletes a user.
func (m *Manager) RemoveUser(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[name]; !exists {
		return qerr.New(qerr.ErrCategoryAuth, qerr.CodeUserNotFound,
			"user "+name+" not found")
	}
	delete(m.users, name)
	return nil
}

// Users lists all users sorted by name.
func (m *Manager) Users() []UserInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]UserInfo, 0, len(m.users))
	for name, u := range m.users {
		out = append(out, UserInfo{Name: name, Role: u.role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Authenticate checks a name/password pair and returns the user's role.
func (m *Manager) Authenticate(name, password string) (Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[name]
	if !ok {
		return "", false
	}
	hash := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(hash[:], u.passHash[:]) != 1 {
		return "", false
	}
	return u.role, true
}

// RequiresAuth reports whether the configured level demands credentials for
// the given operation class. Levels are cumulative: gating reads implies
// gating writes.
func (m *Manager) RequiresAuth(op Operation) bool {
	switch m.level {
	case config.AuthNone:
		return false
	case config.AuthWrite:
		return op == OpWrite || op == OpAdmin
	default: // AuthRead, AuthAll
		return true
	}
}

// Permits reports whether a role may perform the given operation class.
func Permits(role Role, op Operation) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleReadWrite:
		return op == OpRead || op == OpWrite
	case RoleReadOnly:
		return op == OpRead
	default:
		return false
	}
}

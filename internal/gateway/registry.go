package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport"
)

// Backend is one registered game-engine connection with up to two bound
// player slots. Capacity and the user list are owned by the Registry and
// only ever change together, under its lock.
type Backend struct {
	id      string
	channel *transport.Channel

	capacity int
	users    []*User
	removed  bool
}

func (that *Backend) ID() string { return that.id }

func (that *Backend) Channel() *transport.Channel { return that.channel }

// User is a connected (or temporarily disconnected) client. The record
// survives reconnection; only the channel is swapped.
type User struct {
	name  string
	isBot bool

	mu      sync.Mutex
	channel *transport.Channel
	backend *Backend
}

func (that *User) Name() string { return that.name }

func (that *User) IsBot() bool { return that.isBot }

func (that *User) Channel() *transport.Channel {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.channel
}

func (that *User) Backend() *Backend {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.backend
}

func (that *User) setChannel(ch *transport.Channel) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.channel = ch
}

func (that *User) setBackend(b *Backend) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.backend = b
}

// Registry is the gateway's bookkeeping of backends and users. Every
// mutation happens under one lock so a capacity transition is always
// atomic with the matching user-list change; waiters block on the
// condition variable instead of polling.
type Registry struct {
	mu   sync.Mutex
	cond *sync.Cond

	backends []*Backend
	users    []*User

	closed bool
}

func NewRegistry() *Registry {
	that := &Registry{}
	that.cond = sync.NewCond(&that.mu)

	return that
}

// RegisterBackend - adds a game-engine connection with capacity 0 and
// wakes matchmaking waiters.
func (that *Registry) RegisterBackend(ch *transport.Channel) *Backend {
	that.mu.Lock()
	defer that.mu.Unlock()

	backend := &Backend{
		id:      pkg.GenerateGameID(),
		channel: ch,
	}
	that.backends = append(that.backends, backend)

	that.cond.Broadcast()

	return backend
}

// RemoveBackend - drops a backend whose connection died and unbinds its
// users; their records stay registered for reconnection.
func (that *Registry) RemoveBackend(backend *Backend) {
	that.mu.Lock()
	defer that.mu.Unlock()

	backend.removed = true

	for i, b := range that.backends {
		if b == backend {
			that.backends = append(that.backends[:i], that.backends[i+1:]...)
			break
		}
	}

	that.unbindLocked(backend)

	that.cond.Broadcast()
}

// RegisterUser - adds a client. An empty name means a fresh connection;
// a display name is generated and made unique among registered users.
func (that *Registry) RegisterUser(name string, ch *transport.Channel) *User {
	that.mu.Lock()
	defer that.mu.Unlock()

	if name == "" {
		name = that.uniqueNameLocked(pkg.GenerateUsername())
	}

	user := &User{
		name:    name,
		channel: ch,
	}
	that.users = append(that.users, user)

	return user
}

// LookupUser - finds a registered user by display name.
func (that *Registry) LookupUser(name string) *User {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, user := range that.users {
		if user.name == name {
			return user
		}
	}

	return nil
}

// Match - assigns the user a backend slot. Multiplayer prefers a backend
// already holding one player over an empty one, first-fit in registration
// order; single-player takes an empty backend, fills both slots and binds
// the bot. The capacity increment and the user-list append are one atomic
// step. With block set, the caller sleeps on the condition variable until
// a slot frees up.
func (that *Registry) Match(ctx context.Context, user *User, gameType protocol.GameType, block bool) (*Backend, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for {
		if backend := that.acquireLocked(user, gameType); backend != nil {
			that.cond.Broadcast()
			return backend, nil
		}

		if !block {
			return nil, apperror.ErrNoServerAvailable
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("matchmaking canceled: %w", err)
		}

		if that.closed {
			return nil, apperror.ErrNoServerAvailable
		}

		that.cond.Wait()
	}
}

func (that *Registry) acquireLocked(user *User, gameType protocol.GameType) *Backend {
	if gameType == protocol.GameMultiPlayer {
		for _, backend := range that.backends {
			if backend.capacity == 1 {
				that.bindLocked(backend, user, 1)
				return backend
			}
		}
		for _, backend := range that.backends {
			if backend.capacity == 0 {
				that.bindLocked(backend, user, 1)
				return backend
			}
		}

		return nil
	}

	for _, backend := range that.backends {
		if backend.capacity == 0 {
			bot := &User{name: entity.BotName, isBot: true}
			backend.users = append(backend.users, bot)
			bot.backend = backend

			that.bindLocked(backend, user, 2)

			return backend
		}
	}

	return nil
}

func (that *Registry) bindLocked(backend *Backend, user *User, slots int) {
	backend.capacity += slots
	backend.users = append(backend.users, user)
	user.setBackend(backend)
}

// WaitFull - blocks until the backend holds both players. Returns an
// error if the backend goes away first.
func (that *Registry) WaitFull(ctx context.Context, backend *Backend) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	for backend.capacity != 2 {
		if backend.removed || that.closed {
			return apperror.ErrNoServerAvailable
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("matchmaking canceled: %w", err)
		}

		that.cond.Wait()
	}

	return nil
}

// Opponent - the other bound user of a full backend.
func (that *Registry) Opponent(backend *Backend, user *User) *User {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, other := range backend.users {
		if other != user {
			return other
		}
	}

	return nil
}

// BoundUsers - snapshot of the backend's bound users in slot order.
func (that *Registry) BoundUsers(backend *Backend) []*User {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]*User(nil), backend.users...)
}

// UserOnBackend - the bound user with the given name, if any.
func (that *Registry) UserOnBackend(backend *Backend, name string) *User {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, user := range backend.users {
		if user.name == name {
			return user
		}
	}

	return nil
}

// ResetBackend - discards the backend's finished session: users unbound,
// capacity back to 0. Returns the users that were bound so the caller can
// fan out and archive. Wakes matchmaking waiters.
func (that *Registry) ResetBackend(backend *Backend) []*User {
	that.mu.Lock()
	defer that.mu.Unlock()

	users := that.unbindLocked(backend)

	that.cond.Broadcast()

	return users
}

func (that *Registry) unbindLocked(backend *Backend) []*User {
	users := backend.users
	backend.users = nil
	backend.capacity = 0

	for _, user := range users {
		user.setBackend(nil)
	}

	return users
}

// UserCount - number of registered users, bots excluded.
func (that *Registry) UserCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.users)
}

// BackendCount - number of registered backends.
func (that *Registry) BackendCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.backends)
}

// Shutdown - wakes every waiter so handlers can observe cancellation.
func (that *Registry) Shutdown() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
	that.cond.Broadcast()
}

func (that *Registry) uniqueNameLocked(base string) string {
	name := base
	for i := 2; that.nameTakenLocked(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}

	return name
}

func (that *Registry) nameTakenLocked(name string) bool {
	for _, user := range that.users {
		if user.name == name {
			return true
		}
	}

	return false
}

// Package identity is the state machine deciding who the conversation
// belongs to: an anonymous guest, a guest in the middle of signing in, or an
// authenticated user.
package identity

import (
	"errors"
	"fmt"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

type Mode string

const (
	ModeGuest         Mode = "guest"
	ModeAuthPending   Mode = "auth_pending"
	ModeAuthenticated Mode = "authenticated"
)

type Event string

const (
	EventLoginRequested      Event = "login_requested"
	EventCancel              Event = "cancel"
	EventCredentialsAccepted Event = "credentials_accepted"
	EventLogout              Event = "logout"
)

var ErrInvalidTransition = errors.New("invalid identity transition")

// State is the current identity. User is set only when authenticated.
type State struct {
	Mode Mode
	User *domain.User
}

func Guest() State {
	return State{Mode: ModeGuest}
}

func Authenticated(u domain.User) State {
	return State{Mode: ModeAuthenticated, User: &u}
}

// UserID is the persistence scope of the state; empty unless authenticated.
func (s State) UserID() domain.UserID {
	if s.Mode != ModeAuthenticated || s.User == nil {
		return ""
	}
	return s.User.ID
}

func (s State) IsGuest() bool         { return s.Mode == ModeGuest }
func (s State) IsAuthPending() bool   { return s.Mode == ModeAuthPending }
func (s State) IsAuthenticated() bool { return s.Mode == ModeAuthenticated }

// Transition describes one accepted event.
type Transition struct {
	Event Event
	From  State
	To    State
}

// Machine holds the current state. It is not safe for concurrent use.
type Machine struct {
	state State
}

func NewMachine(initial State) *Machine {
	return &Machine{state: initial}
}

func (m *Machine) State() State {
	return m.state
}

// RequestLogin moves Guest to AuthPending.
func (m *Machine) RequestLogin() (Transition, error) {
	return m.fire(EventLoginRequested, ModeGuest, State{Mode: ModeAuthPending})
}

// Cancel moves AuthPending back to Guest.
func (m *Machine) Cancel() (Transition, error) {
	return m.fire(EventCancel, ModeAuthPending, Guest())
}

// Accept moves AuthPending to Authenticated(u).
func (m *Machine) Accept(u domain.User) (Transition, error) {
	if u.ID == "" {
		return Transition{}, fmt.Errorf("%w: user id is empty", ErrInvalidTransition)
	}
	return m.fire(EventCredentialsAccepted, ModeAuthPending, Authenticated(u))
}

// Logout moves Authenticated to Guest.
func (m *Machine) Logout() (Transition, error) {
	return m.fire(EventLogout, ModeAuthenticated, Guest())
}

func (m *Machine) fire(ev Event, from Mode, to State) (Transition, error) {
	if m.state.Mode != from {
		return Transition{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, m.state.Mode)
	}
	t := Transition{Event: ev, From: m.state, To: to}
	m.state = to
	return t, nil
}

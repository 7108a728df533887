package domain

import (
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"golang.org/x/text/cases"
)

// Role - роль участника сессии.
type Role string

const (
	RoleGM     Role = "GM"
	RolePlayer Role = "PLAYER"
)

// ParseRole конвертирует строку в Role (без учета регистра). Пусто - PLAYER.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(RolePlayer):
		return RolePlayer, nil
	case string(RoleGM):
		return RoleGM, nil
	}
	return "", apperr.Invalid("unknown role '%s' (GM, PLAYER)", s)
}

type User struct {
	ID       string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u *User) IsGM() bool {
	return u != nil && u.Role == RoleGM
}

// UserRegistry - участники сессии. ГМ не больше одного.
type UserRegistry struct {
	users map[string]*User
	order []string
	gmID  string
	fold  cases.Caser
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users: make(map[string]*User),
		fold:  cases.Fold(),
	}
}

// Register добавляет участника. Второй ГМ - Unauthorized.
func (r *UserRegistry) Register(u *User) error {
	if u.ID == "" {
		return apperr.Invalid("user id is empty")
	}
	if _, ok := r.users[u.ID]; ok {
		return apperr.New(apperr.CodeDuplicateName, "user '%s' already registered", u.ID)
	}
	if u.Role == RoleGM && r.gmID != "" {
		return apperr.Denied("session already has a GM").WithMetadata("gm", r.gmID)
	}
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	if u.Role == RoleGM {
		r.gmID = u.ID
	}
	return nil
}

// Unregister удаляет участника. Если ушел ГМ, роль освобождается.
func (r *UserRegistry) Unregister(id string) (*User, bool) {
	u, ok := r.users[id]
	if !ok {
		return nil, false
	}
	delete(r.users, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.gmID == id {
		r.gmID = ""
	}
	return u, true
}

func (r *UserRegistry) Get(id string) (*User, bool) {
	u, ok := r.users[id]
	return u, ok
}

func (r *UserRegistry) FindByName(name string) (*User, bool) {
	want := r.fold.String(name)
	for _, id := range r.order {
		if u := r.users[id]; r.fold.String(u.Username) == want {
			return u, true
		}
	}
	return nil, false
}

func (r *UserRegistry) GM() (*User, bool) {
	if r.gmID == "" {
		return nil, false
	}
	return r.users[r.gmID], true
}

func (r *UserRegistry) HasGM() bool {
	return r.gmID != ""
}

func (r *UserRegistry) List() []*User {
	out := make([]*User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out
}

func (r *UserRegistry) Len() int {
	return len(r.order)
}

package fakebackend

import (
	"sort"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
	"github.com/jrsteele09/storefront-session/users"
	"golang.org/x/crypto/bcrypt"
)

// Account is a storefront user as the backend stores it
type Account struct {
	ID           int64      `json:"userId"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // never serialize
	Name         string     `json:"name,omitempty"`
	Surname      string     `json:"surname,omitempty"`
	BirthDate    string     `json:"birthDate,omitempty"`
	Email        string     `json:"email,omitempty"`
	Role         users.Role `json:"role"`
	Active       bool       `json:"active"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

type accountRepo struct {
	lock       sync.RWMutex
	nextID     int64
	accounts   map[int64]*Account
	usernameID map[string]int64 // lower-cased username to account id
}

func newAccountRepo() *accountRepo {
	return &accountRepo{
		nextID:     1,
		accounts:   make(map[int64]*Account),
		usernameID: make(map[string]int64),
	}
}

// Insert assigns the next id; usernames are unique ignoring case
func (r *accountRepo) Insert(a Account) (Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := strings.ToLower(a.Username)
	if _, taken := r.usernameID[key]; taken {
		return Account{}, apperrors.ErrUserExists
	}
	a.ID = r.nextID
	r.nextID++
	r.accounts[a.ID] = &a
	r.usernameID[key] = a.ID
	return a, nil
}

func (r *accountRepo) GetByUsername(username string) (Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.usernameID[strings.ToLower(username)]
	if !ok {
		return Account{}, apperrors.ErrUserNotFound
	}
	return *r.accounts[id], nil
}

func (r *accountRepo) GetByID(id int64) (Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, apperrors.ErrUserNotFound
	}
	return *a, nil
}

func (r *accountRepo) SetActive(id int64, active bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	a.Active = active
	return nil
}

func (r *accountRepo) List() []Account {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

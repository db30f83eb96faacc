// Package servertest runs the API server in-process over in-memory
// repositories.
package servertest

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mehmetcc/medgate/internal/config"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/records"
	"github.com/mehmetcc/medgate/internal/server"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const Password = "correct-horse-battery"

type People struct {
	mu      sync.Mutex
	persons map[int64]*person.Person
	nextID  int64
}

func NewPeople() *People {
	return &People{persons: make(map[int64]*person.Person), nextID: 1}
}

// Add stores an active account whose password is Password.
func (p *People) Add(username string, role person.Role) int64 {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	id, _ := p.Create(context.Background(), &person.PersonDTO{
		Email:    username + "@example.org",
		Username: username,
		Password: string(hashed),
		Role:     role,
	})
	return id
}

func (p *People) Delete(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.persons[id]; ok {
		rec.IsDeleted = true
	}
}

func (p *People) SetRole(id int64, role person.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rec, ok := p.persons[id]; ok {
		rec.Role = role
	}
}

func (p *People) Create(_ context.Context, dto *person.PersonDTO) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.persons {
		if rec.Username == dto.Username {
			return 0, person.ErrDuplicateUsername
		}
	}
	id := p.nextID
	p.nextID++
	p.persons[id] = &person.Person{
		ID:        id,
		Email:     dto.Email,
		Username:  dto.Username,
		Password:  dto.Password,
		Role:      dto.Role,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return id, nil
}

func (p *People) FindByUsername(_ context.Context, username string) (*person.Person, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.persons {
		if rec.Username == username {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, person.ErrNotFound
}

func (p *People) FindPrincipal(_ context.Context, id int64) (*person.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.persons[id]
	if !ok || rec.IsDeleted || !rec.IsActive {
		return nil, person.ErrNotFound
	}
	return rec.Principal(), nil
}

type Records struct{}

func (Records) ListPatients(context.Context) ([]records.Patient, error) {
	return []records.Patient{{ID: 1, FullName: "Jane Doe", Ward: "cardiology", AdmittedAt: time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)}}, nil
}

func (Records) ListEquipment(context.Context) ([]records.Equipment, error) {
	return []records.Equipment{{ID: 1, Name: "MRI scanner", Status: "in_use", Location: "B2"}}, nil
}

func (Records) ListStaff(context.Context) ([]records.StaffMember, error) {
	return []records.StaffMember{{ID: 1, Username: "root", Role: person.RoleAdmin}}, nil
}

func Config() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{Port: "0"},
		DbConfig:  &config.DbConfig{DSN: "unused"},
		JWTConfig: &config.JWTConfig{
			Secret:          "servertest-signing-secret-0123456789",
			Issuer:          "medgate",
			Audience:        "medgate-clients",
			LifetimeMinutes: 60,
		},
		SecurityConfig: &config.SecurityConfig{LoginRateLimit: 1000},
	}
}

// Start serves the API until the test ends.
func Start(t testing.TB, people *People) *httptest.Server {
	t.Helper()
	api := server.New(server.Deps{
		Config:  Config(),
		People:  people,
		Records: Records{},
		Logger:  zap.NewNop(),
	})
	srv := httptest.NewServer(api.Router)
	t.Cleanup(srv.Close)
	return srv
}

package auth

import (
	"context"
	"errors"

	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/internal/token"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type CredentialIssuer interface {
	Issue(principalID int64) (*token.Credential, error)
}

// LoginResult is what crosses the client/server boundary on login.
type LoginResult struct {
	Principal  *person.Principal
	Credential *token.Credential
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Register(ctx context.Context, dto *person.PersonDTO) (int64, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

type authService struct {
	personRepo person.PersonRepo
	issuer     CredentialIssuer
	logger     *zap.Logger
}

func NewAuthenticationService(personRepo person.PersonRepo, issuer CredentialIssuer, logger *zap.Logger) AuthService {
	return &authService{
		personRepo: personRepo,
		issuer:     issuer,
		logger:     logger,
	}
}

// dummyHash keeps the cost of an unknown-username login close to a wrong-password one.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("medgate-dummy-password"), bcrypt.DefaultCost)

func (a *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	p, err := a.personRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)); err != nil {
		a.logger.Debug("password mismatch", zap.Int64("person_id", p.ID))
		return nil, ErrInvalidCredentials
	}
	if p.IsDeleted {
		return nil, ErrInvalidCredentials
	}
	if !p.IsActive {
		return nil, ErrUserNotActive
	}

	cred, err := a.issuer.Issue(p.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Principal:  p.Principal(),
		Credential: cred,
	}, nil
}

func (a *authService) Register(ctx context.Context, dto *person.PersonDTO) (int64, error) {
	if !dto.Role.Valid() {
		return 0, ErrUnknownRole
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Error("failed to hash password", zap.Error(err))
		return 0, err
	}

	return a.personRepo.Create(ctx, &person.PersonDTO{
		Email:    dto.Email,
		Username: dto.Username,
		Password: string(hashed),
		Role:     dto.Role,
	})
}

// EnsureAdmin creates the bootstrap administrator unless the username is taken.
func (a *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	id, err := a.Register(ctx, &person.PersonDTO{
		Email:    username + "@medgate.local",
		Username: username,
		Password: password,
		Role:     person.RoleAdmin,
	})
	switch {
	case errors.Is(err, person.ErrDuplicateUsername), errors.Is(err, person.ErrDuplicateEmail):
		a.logger.Debug("bootstrap admin already exists", zap.String("username", username))
		return nil
	case err != nil:
		return err
	}
	a.logger.Info("bootstrap admin created", zap.Int64("id", id), zap.String("username", username))
	return nil
}

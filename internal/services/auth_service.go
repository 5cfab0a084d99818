package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sowfeehealth/wellness/internal/models"
)

type AuthStore interface {
	FindUserByEmail(email string) (*models.User, error)
	AddUser(u *models.User) error
	FindInstitutionByName(name string) (*models.Institution, error)
	AddInstitution(inst *models.Institution) error
}

// TokenSigner mints the session token the identity endpoint later
// verifies; the JWT mechanics live in middleware.
type TokenSigner func(uid, institutionID, email, name string, isAdmin bool, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token         string
	UserID        string
	InstitutionID string
	Identity      models.Identity
}

func NewAuthService(store AuthStore, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     func(prefix string, n int) string { return prefix + shortID(n) },
		signToken: signer,
		tokenTTL:  30 * 24 * time.Hour,
	}
}

// Register creates a student account under the named institution,
// creating the institution on first use.
func (s *AuthService) Register(name, email, password, institutionName string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	institutionName = strings.TrimSpace(institutionName)
	if name == "" || email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("name/email/password required")
	}
	if institutionName == "" {
		return nil, NewInvalidError("institution required")
	}
	existing, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}

	inst, err := s.store.FindInstitutionByName(institutionName)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		inst = &models.Institution{ID: s.idGen("i", 7), Name: institutionName, CreatedAt: s.now()}
		if err := s.store.AddInstitution(inst); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:            s.idGen("u", 7),
		Email:         email,
		Name:          name,
		PassHash:      hash,
		InstitutionID: inst.ID,
		CreatedAt:     s.now(),
	}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	return s.result(u)
}

func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	u, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	return s.result(u)
}

func (s *AuthService) result(u *models.User) (*AuthResult, error) {
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.InstitutionID, u.Email, u.Name, u.IsAdmin, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:         token,
		UserID:        u.ID,
		InstitutionID: u.InstitutionID,
		Identity:      models.Identity{Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin},
	}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

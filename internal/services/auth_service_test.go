package services

import (
	"strings"
	"testing"
	"time"

	"github.com/sowfeehealth/wellness/internal/models"
)

type authStubStore struct {
	users        map[string]*models.User
	institutions map[string]*models.Institution
}

func newAuthStubStore() *authStubStore {
	return &authStubStore{
		users:        map[string]*models.User{},
		institutions: map[string]*models.Institution{},
	}
}

func (s *authStubStore) FindUserByEmail(email string) (*models.User, error) {
	return s.users[email], nil
}

func (s *authStubStore) AddUser(u *models.User) error {
	s.users[u.Email] = u
	return nil
}

func (s *authStubStore) FindInstitutionByName(name string) (*models.Institution, error) {
	return s.institutions[name], nil
}

func (s *authStubStore) AddInstitution(inst *models.Institution) error {
	s.institutions[inst.Name] = inst
	return nil
}

func fakeSigner(uid, institutionID, email, name string, isAdmin bool, ttl time.Duration) (string, error) {
	return "token-for-" + uid, nil
}

func TestRegisterCreatesInstitutionOnFirstUse(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, fakeSigner)

	res, err := svc.Register("Ann", "Ann@Uni.EDU", "hunter22", "State University")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Identity.Email != "ann@uni.edu" {
		t.Fatalf("email must be normalized, got %q", res.Identity.Email)
	}
	if !strings.HasPrefix(res.Token, "token-for-") {
		t.Fatalf("unexpected token %q", res.Token)
	}
	inst := store.institutions["State University"]
	if inst == nil {
		t.Fatalf("institution must be created on first use")
	}
	if res.InstitutionID != inst.ID {
		t.Fatalf("user institution = %q, want %q", res.InstitutionID, inst.ID)
	}

	// A second registrant joins the existing institution.
	res2, err := svc.Register("Ben", "ben@uni.edu", "hunter22", "State University")
	if err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}
	if res2.InstitutionID != inst.ID {
		t.Fatalf("second user should reuse the institution, got %q", res2.InstitutionID)
	}
	if len(store.institutions) != 1 {
		t.Fatalf("institutions = %d, want 1", len(store.institutions))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newAuthStubStore(), fakeSigner)
	if _, err := svc.Register("Ann", "ann@uni.edu", "hunter22", "Uni"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := svc.Register("Annie", "ann@uni.edu", "other", "Uni")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(newAuthStubStore(), fakeSigner)

	if _, err := svc.Register("", "ann@uni.edu", "pw", "Uni"); err == nil {
		t.Fatalf("blank name must be rejected")
	}
	if _, err := svc.Register("Ann", "ann@uni.edu", "  ", "Uni"); err == nil {
		t.Fatalf("blank password must be rejected")
	}
	if _, err := svc.Register("Ann", "ann@uni.edu", "pw", ""); err == nil {
		t.Fatalf("blank institution must be rejected")
	}
}

func TestLogin(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, fakeSigner)
	reg, err := svc.Register("Ann", "ann@uni.edu", "hunter22", "Uni")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	res, err := svc.Login("ANN@uni.edu", "hunter22")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.UserID != reg.UserID || res.Identity.Name != "Ann" {
		t.Fatalf("unexpected login result %+v", res)
	}

	// Wrong password and unknown user produce the same error.
	for _, attempt := range [][2]string{{"ann@uni.edu", "wrong"}, {"nobody@uni.edu", "hunter22"}} {
		_, err := svc.Login(attempt[0], attempt[1])
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorUnauthorized || se.Message != "invalid credentials" {
			t.Fatalf("login %q: err = %v, want uniform invalid credentials", attempt[0], err)
		}
	}
}

func TestLoginAdminIdentity(t *testing.T) {
	store := newAuthStubStore()
	svc := NewAuthService(store, fakeSigner)
	if _, err := svc.Register("Dean", "dean@uni.edu", "hunter22", "Uni"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	store.users["dean@uni.edu"].IsAdmin = true

	res, err := svc.Login("dean@uni.edu", "hunter22")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !res.Identity.IsAdmin {
		t.Fatalf("admin flag must ride on the identity")
	}
}

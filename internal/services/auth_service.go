package services

import (
	"context"
	"errors"

	"nexusmarket/internal/auth"
	"nexusmarket/internal/domain"
	"nexusmarket/internal/repos"
	"nexusmarket/internal/validate"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *auth.TokenManager
}

func NewAuthService(users *repos.UserRepo, tokens *auth.TokenManager) *AuthService {
	return &AuthService{Users: users, Tokens: tokens}
}

type RegisterInput struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	Phone     string      `json:"phone"`
	Role      domain.Role `json:"role"`
}

type AuthResult struct {
	Token string             `json:"token"`
	User  domain.UserSummary `json:"user"`
}

// Register creates a client or seller account. The admin role cannot be self-assigned.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	first, ok := validate.PersonName(in.FirstName)
	if !ok {
		return AuthResult{}, newErr(ErrBadRequest, "first name must be 2 to 50 characters")
	}
	last, ok := validate.PersonName(in.LastName)
	if !ok {
		return AuthResult{}, newErr(ErrBadRequest, "last name must be 2 to 50 characters")
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		return AuthResult{}, newErr(ErrBadRequest, "invalid email address")
	}
	if !validate.Password(in.Password) {
		return AuthResult{}, newErr(ErrBadRequest, "password must be 8 to 72 characters")
	}
	phone, ok := validate.Phone(in.Phone)
	if !ok {
		return AuthResult{}, newErr(ErrBadRequest, "invalid phone number")
	}
	role := in.Role
	switch role {
	case "":
		role = domain.RoleClient
	case domain.RoleClient, domain.RoleSeller:
	default:
		return AuthResult{}, newErr(ErrBadRequest, "role must be client or seller")
	}

	taken, err := s.Users.EmailTaken(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}
	if taken {
		return AuthResult{}, newErr(ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}
	u, err := s.Users.Create(ctx, domain.User{
		FirstName: first, LastName: last, Email: email, Hash: string(hash), Phone: phone, Role: role,
	})
	if errors.Is(err, repos.ErrDuplicate) {
		// lost a race with a concurrent registration for the same address
		return AuthResult{}, newErr(ErrConflict, "email already registered")
	}
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if repos.IsNoRows(err) {
			return AuthResult{}, ErrBadCreds
		}
		return AuthResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return AuthResult{}, ErrBadCreds
	}
	return s.issue(u)
}

func (s *AuthService) Profile(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if repos.IsNoRows(err) {
		return domain.User{}, newErr(ErrNotFound, "user not found")
	}
	return u, err
}

// Authenticate turns a bearer token into a caller.
func (s *AuthService) Authenticate(token string) (Caller, error) {
	claims, err := s.Tokens.Validate(token)
	if err != nil {
		return Caller{}, newErr(ErrUnauthorized, "invalid or expired token")
	}
	return Caller{ID: claims.UserID, Role: claims.Role}, nil
}

func (s *AuthService) issue(u domain.User) (AuthResult, error) {
	tok, err := s.Tokens.Generate(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok, User: u.Summary()}, nil
}

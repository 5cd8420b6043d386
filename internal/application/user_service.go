package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/example/sublease-marketplace/internal/logging"
	"github.com/example/sublease-marketplace/internal/mail"
	"github.com/example/sublease-marketplace/internal/persistence"
)

// SignupPolicy configures who may register and whether the address must be confirmed first.
type SignupPolicy struct {
	// EmailSuffix is required at the end of every address, e.g. ".edu". Empty accepts any domain.
	EmailSuffix string
	// RequireVerification mails a signed link instead of creating the account immediately.
	RequireVerification bool
	// AppURL is the public base URL used to build verification links.
	AppURL   string
	MailFrom string
	Hasher   PasswordHasher
	Tokens   *VerificationTokens
	Mailer   mail.Sender
}

// UserService owns signup, email verification and user lookups.
type UserService struct {
	store       persistence.Store
	policy      SignupPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(store persistence.Store, policy SignupPolicy, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(store, policy, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specific logger.
func NewUserServiceWithLogger(store persistence.Store, policy SignupPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if policy.Hasher == nil {
		policy.Hasher = NewArgon2idHasher(DefaultArgon2idParams)
	}
	return &UserService{
		store:       store,
		policy:      policy,
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.OrDefault(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Signup registers a new account, or mails a verification link when the policy requires one.
func (s *UserService) Signup(ctx context.Context, params SignupParams) (result SignupResult, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	params = normalizeSignup(params)
	logger := s.loggerWith(ctx, "Signup", "email", params.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to sign up", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if result.VerificationSent {
			logger.InfoContext(ctx, "verification email sent")
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "user created")
	}()

	if vErr := s.validateSignup(params); vErr.HasErrors() {
		err = vErr
		return
	}

	if _, lookupErr := s.store.Users().GetUserByEmail(ctx, params.Email); lookupErr == nil {
		err = ErrAlreadyExists
		return
	} else if !errors.Is(lookupErr, persistence.ErrNotFound) {
		err = fmt.Errorf("check existing user: %w", lookupErr)
		return
	}

	var hash string
	hash, err = s.policy.Hasher(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	name := displayName(params.FirstName, params.LastName)
	school := optionalString(params.School)

	if s.policy.RequireVerification {
		err = s.sendVerification(ctx, VerificationClaims{
			Email:        params.Email,
			Name:         name,
			School:       school,
			PasswordHash: hash,
		})
		if err != nil {
			return
		}
		result = SignupResult{VerificationSent: true}
		return
	}

	var user User
	user, err = s.createUser(ctx, params.Email, name, school, hash)
	if err != nil {
		return
	}
	result = SignupResult{User: &user}
	return
}

// Verify completes a signup from a verification token.
func (s *UserService) Verify(ctx context.Context, token string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Verify")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to verify email", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		err = fieldError("token", "token is required")
		return
	}
	if s.policy.Tokens == nil {
		err = fmt.Errorf("verification tokens not configured")
		return
	}

	claims, parseErr := s.policy.Tokens.Parse(token)
	if parseErr != nil {
		logger.DebugContext(ctx, "verification token rejected", "error", parseErr)
		err = fieldError("token", "verification link is invalid or expired")
		return
	}

	user, err = s.createUser(ctx, normalizeEmail(claims.Email), claims.Name, claims.School, claims.PasswordHash)
	return
}

// GetUser returns the public projection of a user.
func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.store == nil {
		return User{}, fmt.Errorf("store not configured")
	}
	row, err := s.store.Users().GetUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return User{}, mapPersistenceError("get user", err)
	}
	return userFromRow(row), nil
}

// Profile returns a user together with the listings they posted, newest last.
func (s *UserService) Profile(ctx context.Context, userID string) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Profile", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load profile", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var user User
	if user, err = s.GetUser(ctx, userID); err != nil {
		return
	}

	var rows []persistence.Listing
	rows, err = s.store.Listings().ListListings(ctx, persistence.ListingFilter{ListerID: user.ID})
	if err != nil {
		err = mapPersistenceError("list listings", err)
		return
	}

	profile = Profile{User: user, Listings: listingsFromRows(rows)}
	return
}

// ListUsers returns every account's public projection for an authenticated caller.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.store == nil {
		return nil, fmt.Errorf("store not configured")
	}
	if principal.UserID == "" {
		return nil, ErrUnauthorized
	}

	rows, err := s.store.Users().ListUsers(ctx)
	if err != nil {
		return nil, mapPersistenceError("list users", err)
	}

	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out, nil
}

func (s *UserService) createUser(ctx context.Context, email, name string, school *string, hash string) (User, error) {
	now := s.now()
	row := persistence.User{
		ID:           s.idGenerator(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		School:       school,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().CreateUser(ctx, row); err != nil {
		return User{}, mapPersistenceError("create user", err)
	}
	return userFromRow(row), nil
}

func (s *UserService) sendVerification(ctx context.Context, claims VerificationClaims) error {
	if s.policy.Tokens == nil || s.policy.Mailer == nil {
		return fmt.Errorf("email verification not configured")
	}
	token, err := s.policy.Tokens.Issue(claims)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	link := strings.TrimRight(s.policy.AppURL, "/") + "/verify?token=" + url.QueryEscape(token)
	msg := mail.VerificationMessage(s.policy.MailFrom, claims.Email, link)
	if err := s.policy.Mailer.Send(ctx, msg); err != nil {
		return &UpstreamError{Service: "mail", Err: err}
	}
	return nil
}

func (s *UserService) validateSignup(params SignupParams) *ValidationError {
	vErr := validateStruct(params)
	suffix := strings.ToLower(strings.TrimSpace(s.policy.EmailSuffix))
	if suffix != "" && params.Email != "" && !strings.HasSuffix(params.Email, suffix) {
		vErr.add("email", fmt.Sprintf("email must end with %s", suffix))
	}
	return vErr
}

func normalizeSignup(params SignupParams) SignupParams {
	return SignupParams{
		Email:     normalizeEmail(params.Email),
		Password:  params.Password,
		FirstName: strings.TrimSpace(params.FirstName),
		LastName:  strings.TrimSpace(params.LastName),
		School:    strings.TrimSpace(params.School),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func displayName(first, last string) string {
	return strings.TrimSpace(strings.Join([]string{strings.TrimSpace(first), strings.TrimSpace(last)}, " "))
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func userFromRow(row persistence.User) User {
	return User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		School:    row.School,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

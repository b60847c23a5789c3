package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aurorallabs/referral-portal/internal/identity"
	"github.com/aurorallabs/referral-portal/internal/model"
)

// AccountService provides sign-in, profile and role management.
type AccountService struct {
	users   UserRepositoryInterface
	idp     identity.Provider
	baseURL string
}

// NewAccountService creates a new AccountService. publicBaseURL prefixes referral links.
func NewAccountService(users UserRepositoryInterface, idp identity.Provider, publicBaseURL string) *AccountService {
	return &AccountService{
		users:   users,
		idp:     idp,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// SignIn verifies an ID token and provisions or refreshes the user row.
// It returns the stored user and the role snapshot to embed in the session:
// the token's role claim when it carries a known role, else the stored role.
func (s *AccountService) SignIn(ctx context.Context, idToken string) (*model.User, model.Role, error) {
	ctx, span := tracer.Start(ctx, "AccountService.SignIn")
	defer span.End()

	tok, err := s.idp.VerifyIDToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, "", fmt.Errorf("verify id token: %w", err)
	}

	user, err := s.users.Upsert(ctx, &model.User{
		ID:          tok.UID,
		Email:       tok.Email,
		DisplayName: tok.Name,
		PhotoURL:    tok.Picture,
	})
	if err != nil {
		return nil, "", fmt.Errorf("provision user: %w", err)
	}

	role := user.Role
	switch claimed := model.Role(tok.Role()); claimed {
	case model.RoleAdmin, model.RoleUser:
		role = claimed
	}
	return user, role, nil
}

// IsAdmin reads the current stored role of uid.
func (s *AccountService) IsAdmin(ctx context.Context, uid string) (bool, error) {
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	return user != nil && user.Role == model.RoleAdmin, nil
}

// PromoteToAdmin grants the admin role to the account registered with email.
// The provider is searched first, then the users table. Provider claims are
// written before the stored role, so a failed promotion leaves users.role as it was.
// Existing sessions keep their old role snapshot until the user signs in again.
func (s *AccountService) PromoteToAdmin(ctx context.Context, email string) (*model.PromotionResult, error) {
	ctx, span := tracer.Start(ctx, "AccountService.PromoteToAdmin")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidRequest
	}

	uid, existing, err := s.findAccount(ctx, email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	claims := identity.MergeCustomClaims(existing, map[string]any{"role": string(model.RoleAdmin)})
	if err := s.idp.SetCustomClaims(ctx, uid, claims); err != nil {
		return nil, fmt.Errorf("set custom claims: %w", err)
	}

	if err := s.users.SetRole(ctx, uid, model.RoleAdmin); err != nil {
		s.restoreClaims(ctx, uid, existing)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("set role: %w", err)
	}

	log.Info().Str("user_id", uid).Str("email", email).Msg("user promoted to admin")

	return &model.PromotionResult{
		Success:         true,
		Message:         fmt.Sprintf("User %s has been made an admin. The user must sign out and sign back in for the changes to take effect.", email),
		UserID:          uid,
		RequiresRelogin: true,
	}, nil
}

// restoreClaims puts back the custom claims a failed promotion overwrote.
func (s *AccountService) restoreClaims(ctx context.Context, uid string, previous map[string]any) {
	if previous == nil {
		previous = map[string]any{}
	}
	if err := s.idp.SetCustomClaims(ctx, uid, previous); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("failed to restore custom claims after promotion failure")
	}
}

// findAccount resolves email to a uid and the account's current custom claims.
// The account must exist at the provider, since that is where the claims live.
func (s *AccountService) findAccount(ctx context.Context, email string) (string, map[string]any, error) {
	rec, err := s.idp.GetUserByEmail(ctx, email)
	if err == nil {
		return rec.UID, rec.CustomClaims, nil
	}
	log.Warn().Err(err).Str("email", email).Msg("identity lookup by email failed, falling back to users table")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("get user by email: %w", err)
	}
	if user == nil {
		return "", nil, ErrUserNotFound
	}

	rec, err = s.idp.GetUser(ctx, user.ID)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		return "", nil, ErrUserNotFound
	case err != nil:
		return "", nil, fmt.Errorf("get identity user: %w", err)
	}
	return user.ID, rec.CustomClaims, nil
}

// Profile returns the stored user.
func (s *AccountService) Profile(ctx context.Context, uid string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Dashboard assembles the dashboard landing view.
func (s *AccountService) Dashboard(ctx context.Context, uid string) (*model.DashboardOverview, error) {
	user, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}

	eligibility := Eligibility(user.ReferralCount, user.RewardsClaimed)
	return &model.DashboardOverview{
		User:         *user,
		Eligibility:  eligibility,
		Notice:       EligibilityNotice(eligibility),
		ReferralLink: s.ReferralLink(uid),
	}, nil
}

// ReferralLink is the survey URL that credits uid.
func (s *AccountService) ReferralLink(uid string) string {
	return s.baseURL + "/survey/pet/" + uid
}

// UpdateDisplayName changes the user's display name.
func (s *AccountService) UpdateDisplayName(ctx context.Context, uid, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidRequest
	}
	user, err := s.users.UpdateDisplayName(ctx, uid, name)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update display name: %w", err)
	}
	return user, nil
}

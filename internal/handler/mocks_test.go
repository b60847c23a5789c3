package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurorallabs/referral-portal/internal/middleware"
	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/session"
	appvalidator "github.com/aurorallabs/referral-portal/internal/validator"
)

var (
	testSessions = session.NewManager("handler-test-secret-0123456789abcdef", time.Hour)
	testValidate = appvalidator.New()
)

// adminStub reports every user as stored admin; tests control the snapshot role via the cookie.
type adminStub struct{}

func (adminStub) IsAdmin(ctx context.Context, uid string) (bool, error) { return true, nil }

func newTestAuth() *middleware.Auth {
	return middleware.NewAuth(testSessions, adminStub{}, false, "")
}

func signedIn(t *testing.T, req *http.Request, uid string, role model.Role) *http.Request {
	t.Helper()
	token, _, err := testSessions.Issue(uid, uid+"@example.com", role)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	return req
}

// mockSignInService is a mock implementation of SignInServiceInterface.
type mockSignInService struct {
	signInFn func(ctx context.Context, idToken string) (*model.User, model.Role, error)
}

func (m *mockSignInService) SignIn(ctx context.Context, idToken string) (*model.User, model.Role, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, idToken)
	}
	return &model.User{ID: "uid_1", Email: "uid_1@example.com"}, model.RoleUser, nil
}

// mockSubmissionService is a mock implementation of SubmissionServiceInterface.
type mockSubmissionService struct {
	submitFn func(ctx context.Context, req *model.SubmitFormRequest) (*model.Submission, error)
}

func (m *mockSubmissionService) Submit(ctx context.Context, req *model.SubmitFormRequest) (*model.Submission, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return &model.Submission{ID: "sub_1", Type: model.SubmissionType(req.Type)}, nil
}

// mockRewardService is a mock implementation of RewardServiceInterface.
type mockRewardService struct {
	claimRewardFn   func(ctx context.Context, userID, templateID string) (*model.RewardClaim, error)
	withdrawClaimFn func(ctx context.Context, userID, claimID string) error
	overviewFn      func(ctx context.Context, userID string) (*model.RewardsOverview, error)
	viewFn          func(ctx context.Context, userID string) (*model.RewardsView, error)
	claimHistoryFn  func(ctx context.Context, userID string) ([]model.RewardClaim, error)
}

func (m *mockRewardService) ClaimReward(ctx context.Context, userID, templateID string) (*model.RewardClaim, error) {
	if m.claimRewardFn != nil {
		return m.claimRewardFn(ctx, userID, templateID)
	}
	return &model.RewardClaim{ID: "claim_1", UserID: userID, Status: model.ClaimStatusPending}, nil
}

func (m *mockRewardService) WithdrawClaim(ctx context.Context, userID, claimID string) error {
	if m.withdrawClaimFn != nil {
		return m.withdrawClaimFn(ctx, userID, claimID)
	}
	return nil
}

func (m *mockRewardService) Overview(ctx context.Context, userID string) (*model.RewardsOverview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx, userID)
	}
	return &model.RewardsOverview{Rewards: []model.RewardClaim{}}, nil
}

func (m *mockRewardService) View(ctx context.Context, userID string) (*model.RewardsView, error) {
	if m.viewFn != nil {
		return m.viewFn(ctx, userID)
	}
	return &model.RewardsView{History: []model.RewardClaim{}, Templates: []model.RewardTemplate{}}, nil
}

func (m *mockRewardService) ClaimHistory(ctx context.Context, userID string) ([]model.RewardClaim, error) {
	if m.claimHistoryFn != nil {
		return m.claimHistoryFn(ctx, userID)
	}
	return []model.RewardClaim{}, nil
}

// mockCatalogService is a mock implementation of CatalogServiceInterface.
type mockCatalogService struct {
	listFn func(ctx context.Context) ([]model.CatalogTemplate, error)
	seedFn func(ctx context.Context) ([]model.CatalogTemplate, error)
}

func (m *mockCatalogService) List(ctx context.Context) ([]model.CatalogTemplate, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.CatalogTemplate{}, nil
}

func (m *mockCatalogService) SeedDefaults(ctx context.Context) ([]model.CatalogTemplate, error) {
	if m.seedFn != nil {
		return m.seedFn(ctx)
	}
	return []model.CatalogTemplate{}, nil
}

// mockAdminService is a mock implementation of AdminServiceInterface.
type mockAdminService struct {
	statsFn            func(ctx context.Context) (*model.AdminStats, error)
	analyticsFn        func(ctx context.Context) (*model.Analytics, error)
	usersFn            func(ctx context.Context) ([]model.UserSummary, error)
	submissionsFn      func(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	updateSubmissionFn func(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error)
	deleteSubmissionFn func(ctx context.Context, id string) error
	claimsFn           func(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error)
	approveClaimFn     func(ctx context.Context, id string) (*model.RewardClaim, error)
	rejectClaimFn      func(ctx context.Context, id string) (*model.RewardClaim, error)
	templatesFn        func(ctx context.Context) ([]model.RewardTemplate, error)
	createTemplateFn   func(ctx context.Context, req *model.TemplateRequest) (*model.RewardTemplate, error)
	updateTemplateFn   func(ctx context.Context, id string, req *model.TemplateRequest) (*model.RewardTemplate, error)
	deleteTemplateFn   func(ctx context.Context, id string) error
}

func (m *mockAdminService) Stats(ctx context.Context) (*model.AdminStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.AdminStats{}, nil
}

func (m *mockAdminService) Analytics(ctx context.Context) (*model.Analytics, error) {
	if m.analyticsFn != nil {
		return m.analyticsFn(ctx)
	}
	return &model.Analytics{}, nil
}

func (m *mockAdminService) Users(ctx context.Context) ([]model.UserSummary, error) {
	if m.usersFn != nil {
		return m.usersFn(ctx)
	}
	return []model.UserSummary{}, nil
}

func (m *mockAdminService) Submissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	if m.submissionsFn != nil {
		return m.submissionsFn(ctx, status)
	}
	return []model.Submission{}, nil
}

func (m *mockAdminService) UpdateSubmission(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error) {
	if m.updateSubmissionFn != nil {
		return m.updateSubmissionFn(ctx, id, req)
	}
	return &model.Submission{ID: id}, nil
}

func (m *mockAdminService) DeleteSubmission(ctx context.Context, id string) error {
	if m.deleteSubmissionFn != nil {
		return m.deleteSubmissionFn(ctx, id)
	}
	return nil
}

func (m *mockAdminService) Claims(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error) {
	if m.claimsFn != nil {
		return m.claimsFn(ctx, status)
	}
	return []model.RewardClaim{}, nil
}

func (m *mockAdminService) ApproveClaim(ctx context.Context, id string) (*model.RewardClaim, error) {
	if m.approveClaimFn != nil {
		return m.approveClaimFn(ctx, id)
	}
	return &model.RewardClaim{ID: id, Status: model.ClaimStatusApproved}, nil
}

func (m *mockAdminService) RejectClaim(ctx context.Context, id string) (*model.RewardClaim, error) {
	if m.rejectClaimFn != nil {
		return m.rejectClaimFn(ctx, id)
	}
	return &model.RewardClaim{ID: id, Status: model.ClaimStatusRejected}, nil
}

func (m *mockAdminService) Templates(ctx context.Context) ([]model.RewardTemplate, error) {
	if m.templatesFn != nil {
		return m.templatesFn(ctx)
	}
	return []model.RewardTemplate{}, nil
}

func (m *mockAdminService) CreateTemplate(ctx context.Context, req *model.TemplateRequest) (*model.RewardTemplate, error) {
	if m.createTemplateFn != nil {
		return m.createTemplateFn(ctx, req)
	}
	return &model.RewardTemplate{ID: "tmpl_1", Name: req.Name, PointsRequired: *req.PointsRequired, Status: req.Status}, nil
}

func (m *mockAdminService) UpdateTemplate(ctx context.Context, id string, req *model.TemplateRequest) (*model.RewardTemplate, error) {
	if m.updateTemplateFn != nil {
		return m.updateTemplateFn(ctx, id, req)
	}
	return &model.RewardTemplate{ID: id, Name: req.Name}, nil
}

func (m *mockAdminService) DeleteTemplate(ctx context.Context, id string) error {
	if m.deleteTemplateFn != nil {
		return m.deleteTemplateFn(ctx, id)
	}
	return nil
}

// mockPromotionService is a mock implementation of PromotionServiceInterface.
type mockPromotionService struct {
	promoteFn func(ctx context.Context, email string) (*model.PromotionResult, error)
}

func (m *mockPromotionService) PromoteToAdmin(ctx context.Context, email string) (*model.PromotionResult, error) {
	if m.promoteFn != nil {
		return m.promoteFn(ctx, email)
	}
	return &model.PromotionResult{Success: true, UserID: "uid_7", RequiresRelogin: true}, nil
}

// mockAccountService is a mock implementation of AccountServiceInterface.
type mockAccountService struct {
	dashboardFn         func(ctx context.Context, uid string) (*model.DashboardOverview, error)
	profileFn           func(ctx context.Context, uid string) (*model.User, error)
	updateDisplayNameFn func(ctx context.Context, uid, name string) (*model.User, error)
}

func (m *mockAccountService) Dashboard(ctx context.Context, uid string) (*model.DashboardOverview, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, uid)
	}
	return &model.DashboardOverview{User: model.User{ID: uid}}, nil
}

func (m *mockAccountService) Profile(ctx context.Context, uid string) (*model.User, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, uid)
	}
	return &model.User{ID: uid}, nil
}

func (m *mockAccountService) UpdateDisplayName(ctx context.Context, uid, name string) (*model.User, error) {
	if m.updateDisplayNameFn != nil {
		return m.updateDisplayNameFn(ctx, uid, name)
	}
	return &model.User{ID: uid, DisplayName: name}, nil
}

// mockReferralService is a mock implementation of ReferralServiceInterface.
type mockReferralService struct {
	listFn func(ctx context.Context, referrerID string) ([]model.Submission, error)
}

func (m *mockReferralService) ListReferrals(ctx context.Context, referrerID string) ([]model.Submission, error) {
	if m.listFn != nil {
		return m.listFn(ctx, referrerID)
	}
	return []model.Submission{}, nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aurorallabs/referral-portal/internal/identity"
	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/pkg/database"
)

// mockUserRepository is a mock implementation of UserRepositoryInterface.
type mockUserRepository struct {
	upsertFn                  func(ctx context.Context, user *model.User) (*model.User, error)
	getByIDFn                 func(ctx context.Context, id string) (*model.User, error)
	getByEmailFn              func(ctx context.Context, email string) (*model.User, error)
	getForUpdateFn            func(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error)
	incrementReferralCountFn  func(ctx context.Context, tx database.TxQuerier, id string) error
	incrementRewardsClaimedFn func(ctx context.Context, tx database.TxQuerier, id string) error
	decrementRewardsClaimedFn func(ctx context.Context, tx database.TxQuerier, id string) error
	setRoleFn                 func(ctx context.Context, id string, role model.Role) error
	updateDisplayNameFn       func(ctx context.Context, id, name string) (*model.User, error)
	listFn                    func(ctx context.Context) ([]model.User, error)
	listOverclaimedFn         func(ctx context.Context, perReward int) ([]model.User, error)
	countFn                   func(ctx context.Context) (int, error)
	countActiveSinceFn        func(ctx context.Context, since time.Time) (int, error)
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, user)
	}
	return user, nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) IncrementReferralCount(ctx context.Context, tx database.TxQuerier, id string) error {
	if m.incrementReferralCountFn != nil {
		return m.incrementReferralCountFn(ctx, tx, id)
	}
	return nil
}

func (m *mockUserRepository) IncrementRewardsClaimed(ctx context.Context, tx database.TxQuerier, id string) error {
	if m.incrementRewardsClaimedFn != nil {
		return m.incrementRewardsClaimedFn(ctx, tx, id)
	}
	return nil
}

func (m *mockUserRepository) DecrementRewardsClaimed(ctx context.Context, tx database.TxQuerier, id string) error {
	if m.decrementRewardsClaimedFn != nil {
		return m.decrementRewardsClaimedFn(ctx, tx, id)
	}
	return nil
}

func (m *mockUserRepository) SetRole(ctx context.Context, id string, role model.Role) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, id, role)
	}
	return nil
}

func (m *mockUserRepository) UpdateDisplayName(ctx context.Context, id, name string) (*model.User, error) {
	if m.updateDisplayNameFn != nil {
		return m.updateDisplayNameFn(ctx, id, name)
	}
	return &model.User{ID: id, DisplayName: name}, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.User{}, nil
}

func (m *mockUserRepository) ListOverclaimed(ctx context.Context, perReward int) ([]model.User, error) {
	if m.listOverclaimedFn != nil {
		return m.listOverclaimedFn(ctx, perReward)
	}
	return []model.User{}, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockUserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	if m.countActiveSinceFn != nil {
		return m.countActiveSinceFn(ctx, since)
	}
	return 0, nil
}

// mockSubmissionRepository is a mock implementation of SubmissionRepositoryInterface.
type mockSubmissionRepository struct {
	existsFn         func(ctx context.Context, tx database.TxQuerier, email string, typ model.SubmissionType) (bool, error)
	insertFn         func(ctx context.Context, tx database.TxQuerier, s *model.Submission) error
	listByReferrerFn func(ctx context.Context, referrerID string) ([]model.Submission, error)
	listFn           func(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	listAnswersFn    func(ctx context.Context) ([]map[string]any, error)
	getByIDFn        func(ctx context.Context, id string) (*model.Submission, error)
	updateFn         func(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error)
	deleteFn         func(ctx context.Context, id string) error
	countFn          func(ctx context.Context) (int, error)
}

func (m *mockSubmissionRepository) ExistsByEmailAndType(ctx context.Context, tx database.TxQuerier, email string, typ model.SubmissionType) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, tx, email, typ)
	}
	return false, nil
}

func (m *mockSubmissionRepository) Insert(ctx context.Context, tx database.TxQuerier, s *model.Submission) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, s)
	}
	return nil
}

func (m *mockSubmissionRepository) ListByReferrer(ctx context.Context, referrerID string) ([]model.Submission, error) {
	if m.listByReferrerFn != nil {
		return m.listByReferrerFn(ctx, referrerID)
	}
	return []model.Submission{}, nil
}

func (m *mockSubmissionRepository) List(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status)
	}
	return []model.Submission{}, nil
}

func (m *mockSubmissionRepository) ListAnswers(ctx context.Context) ([]map[string]any, error) {
	if m.listAnswersFn != nil {
		return m.listAnswersFn(ctx)
	}
	return []map[string]any{}, nil
}

func (m *mockSubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSubmissionRepository) Update(ctx context.Context, id string, req model.UpdateSubmissionRequest) (*model.Submission, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Submission{ID: id}, nil
}

func (m *mockSubmissionRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockSubmissionRepository) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// mockRewardRepository is a mock implementation of RewardRepositoryInterface.
type mockRewardRepository struct {
	listTemplatesFn       func(ctx context.Context, activeOnly bool) ([]model.RewardTemplate, error)
	getTemplateFn         func(ctx context.Context, q database.TxQuerier, id string) (*model.RewardTemplate, error)
	createTemplateFn      func(ctx context.Context, t *model.RewardTemplate) error
	updateTemplateFn      func(ctx context.Context, t *model.RewardTemplate) error
	deleteTemplateFn      func(ctx context.Context, id string) error
	insertClaimFn         func(ctx context.Context, tx database.TxQuerier, c *model.RewardClaim) error
	listClaimsByUserFn    func(ctx context.Context, userID string) ([]model.RewardClaim, error)
	listClaimsFn          func(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error)
	getClaimForUpdateFn   func(ctx context.Context, tx database.TxQuerier, id string) (*model.RewardClaim, error)
	setClaimStatusFn      func(ctx context.Context, tx database.TxQuerier, id string, status model.ClaimStatus) (*model.RewardClaim, error)
	deleteClaimFn         func(ctx context.Context, tx database.TxQuerier, id string) error
	countClaimsByStatusFn func(ctx context.Context, status model.ClaimStatus) (int, error)
}

func (m *mockRewardRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]model.RewardTemplate, error) {
	if m.listTemplatesFn != nil {
		return m.listTemplatesFn(ctx, activeOnly)
	}
	return []model.RewardTemplate{}, nil
}

func (m *mockRewardRepository) GetTemplate(ctx context.Context, q database.TxQuerier, id string) (*model.RewardTemplate, error) {
	if m.getTemplateFn != nil {
		return m.getTemplateFn(ctx, q, id)
	}
	return nil, ErrTemplateNotFound
}

func (m *mockRewardRepository) CreateTemplate(ctx context.Context, t *model.RewardTemplate) error {
	if m.createTemplateFn != nil {
		return m.createTemplateFn(ctx, t)
	}
	return nil
}

func (m *mockRewardRepository) UpdateTemplate(ctx context.Context, t *model.RewardTemplate) error {
	if m.updateTemplateFn != nil {
		return m.updateTemplateFn(ctx, t)
	}
	return nil
}

func (m *mockRewardRepository) DeleteTemplate(ctx context.Context, id string) error {
	if m.deleteTemplateFn != nil {
		return m.deleteTemplateFn(ctx, id)
	}
	return nil
}

func (m *mockRewardRepository) InsertClaim(ctx context.Context, tx database.TxQuerier, c *model.RewardClaim) error {
	if m.insertClaimFn != nil {
		return m.insertClaimFn(ctx, tx, c)
	}
	return nil
}

func (m *mockRewardRepository) ListClaimsByUser(ctx context.Context, userID string) ([]model.RewardClaim, error) {
	if m.listClaimsByUserFn != nil {
		return m.listClaimsByUserFn(ctx, userID)
	}
	return []model.RewardClaim{}, nil
}

func (m *mockRewardRepository) ListClaims(ctx context.Context, status model.ClaimStatus) ([]model.RewardClaim, error) {
	if m.listClaimsFn != nil {
		return m.listClaimsFn(ctx, status)
	}
	return []model.RewardClaim{}, nil
}

func (m *mockRewardRepository) GetClaimForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.RewardClaim, error) {
	if m.getClaimForUpdateFn != nil {
		return m.getClaimForUpdateFn(ctx, tx, id)
	}
	return nil, ErrClaimNotFound
}

func (m *mockRewardRepository) SetClaimStatus(ctx context.Context, tx database.TxQuerier, id string, status model.ClaimStatus) (*model.RewardClaim, error) {
	if m.setClaimStatusFn != nil {
		return m.setClaimStatusFn(ctx, tx, id, status)
	}
	return &model.RewardClaim{ID: id, Status: status}, nil
}

func (m *mockRewardRepository) DeleteClaim(ctx context.Context, tx database.TxQuerier, id string) error {
	if m.deleteClaimFn != nil {
		return m.deleteClaimFn(ctx, tx, id)
	}
	return nil
}

func (m *mockRewardRepository) CountClaimsByStatus(ctx context.Context, status model.ClaimStatus) (int, error) {
	if m.countClaimsByStatusFn != nil {
		return m.countClaimsByStatusFn(ctx, status)
	}
	return 0, nil
}

// mockCatalogRepository is a mock implementation of CatalogRepositoryInterface.
type mockCatalogRepository struct {
	listFn           func(ctx context.Context) ([]model.CatalogTemplate, error)
	insertIfAbsentFn func(ctx context.Context, t *model.CatalogTemplate) (bool, error)
}

func (m *mockCatalogRepository) List(ctx context.Context) ([]model.CatalogTemplate, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.CatalogTemplate{}, nil
}

func (m *mockCatalogRepository) InsertIfAbsent(ctx context.Context, t *model.CatalogTemplate) (bool, error) {
	if m.insertIfAbsentFn != nil {
		return m.insertIfAbsentFn(ctx, t)
	}
	return true, nil
}

// mockIdentity is a mock implementation of identity.Provider.
type mockIdentity struct {
	verifyFn     func(ctx context.Context, idToken string) (*identity.Token, error)
	getUserFn    func(ctx context.Context, uid string) (*identity.UserRecord, error)
	getByEmailFn func(ctx context.Context, email string) (*identity.UserRecord, error)
	setClaimsFn  func(ctx context.Context, uid string, claims map[string]any) error
}

func (m *mockIdentity) VerifyIDToken(ctx context.Context, idToken string) (*identity.Token, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, idToken)
	}
	return nil, identity.ErrInvalidToken
}

func (m *mockIdentity) GetUser(ctx context.Context, uid string) (*identity.UserRecord, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, uid)
	}
	return &identity.UserRecord{UID: uid, CustomClaims: map[string]any{}}, nil
}

func (m *mockIdentity) GetUserByEmail(ctx context.Context, email string) (*identity.UserRecord, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockIdentity) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	if m.setClaimsFn != nil {
		return m.setClaimsFn(ctx, uid, claims)
	}
	return nil
}

// mockPublisher records published topics.
type mockPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	return m.err
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topics...)
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
	committed  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func beginnerFor(tx *mockTx) *mockTxBeginner {
	return &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) {
			return tx, nil
		},
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

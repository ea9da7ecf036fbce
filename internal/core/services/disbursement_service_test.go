package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/tesoria/disbursement_ops_app/internal/apperrors"
	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/core/services"
	"github.com/tesoria/disbursement_ops_app/internal/core/workflow"
	"github.com/tesoria/disbursement_ops_app/internal/dto"
)

// --- Mock DisbursementRepository ---
type MockDisbursementRepository struct {
	mock.Mock
}

// Ensure MockDisbursementRepository implements portsrepo.DisbursementRepositoryFacade
var _ portsrepo.DisbursementRepositoryFacade = (*MockDisbursementRepository)(nil)

func (m *MockDisbursementRepository) FindDisbursementByID(ctx context.Context, disbursementID string) (*domain.Disbursement, error) {
	args := m.Called(ctx, disbursementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Disbursement), args.Error(1)
}

func (m *MockDisbursementRepository) ListDisbursementsByCompany(ctx context.Context, companyID string, status domain.DisbursementStatus, limit int, nextToken *string) ([]domain.Disbursement, *string, error) {
	args := m.Called(ctx, companyID, status, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Disbursement), returnedNextToken, args.Error(2)
}

func (m *MockDisbursementRepository) SaveDisbursement(ctx context.Context, disbursement domain.Disbursement) error {
	args := m.Called(ctx, disbursement)
	return args.Error(0)
}

func (m *MockDisbursementRepository) UpdateDisbursement(ctx context.Context, disbursement domain.Disbursement, expectedVersion int64, newActions []domain.ActionRecord) error {
	args := m.Called(ctx, disbursement, expectedVersion, newActions)
	return args.Error(0)
}

func (m *MockDisbursementRepository) MarkDisbursementDeleted(ctx context.Context, disbursementID string, deletedAt time.Time, purgeAt time.Time, deletedBy string) error {
	args := m.Called(ctx, disbursementID, deletedAt, purgeAt, deletedBy)
	return args.Error(0)
}

func (m *MockDisbursementRepository) ListActionsByDisbursement(ctx context.Context, disbursementID string) ([]domain.ActionRecord, error) {
	args := m.Called(ctx, disbursementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ActionRecord), args.Error(1)
}

// --- Mock CompanyService ---
type MockCompanyService struct {
	mock.Mock
}

// Ensure MockCompanyService implements the full interface
var _ portssvc.CompanySvcFacade = (*MockCompanyService)(nil)

func (m *MockCompanyService) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockCompanyService) ListUserCompanies(ctx context.Context, userID string) ([]domain.Company, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Company), args.Error(1)
}

func (m *MockCompanyService) GetApprovalSettings(ctx context.Context, companyID string, requestingUserID string) (*domain.ApprovalSettings, error) {
	args := m.Called(ctx, companyID, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApprovalSettings), args.Error(1)
}

func (m *MockCompanyService) GetUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	args := m.Called(ctx, userID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserCompany), args.Error(1)
}

func (m *MockCompanyService) CreateCompany(ctx context.Context, name, defaultCurrencyCode, creatorUserID string) (*domain.Company, error) {
	args := m.Called(ctx, name, defaultCurrencyCode, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockCompanyService) UpdateApprovalSettings(ctx context.Context, companyID string, settings domain.ApprovalSettings, requestingUserID string) (*domain.Company, error) {
	args := m.Called(ctx, companyID, settings, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockCompanyService) SetActiveWorkflowTemplate(ctx context.Context, companyID string, templateID *string, requestingUserID string) error {
	args := m.Called(ctx, companyID, templateID, requestingUserID)
	return args.Error(0)
}

func (m *MockCompanyService) AddUserToCompany(ctx context.Context, addingUserID, targetUserID, companyID string, role domain.UserCompanyRole) error {
	args := m.Called(ctx, addingUserID, targetUserID, companyID, role)
	return args.Error(0)
}

func (m *MockCompanyService) RemoveUserFromCompany(ctx context.Context, requestingUserID, targetUserID, companyID string) error {
	args := m.Called(ctx, requestingUserID, targetUserID, companyID)
	return args.Error(0)
}

func (m *MockCompanyService) UpdateUserCompanyRole(ctx context.Context, requestingUserID, targetUserID, companyID string, newRole domain.UserCompanyRole) error {
	args := m.Called(ctx, requestingUserID, targetUserID, companyID, newRole)
	return args.Error(0)
}

func (m *MockCompanyService) AuthorizeUserAction(ctx context.Context, userID string, companyID string, requiredRole domain.UserCompanyRole) error {
	args := m.Called(ctx, userID, companyID, requiredRole)
	return args.Error(0)
}

// --- Mock UserReaderSvc ---
type MockUserReaderService struct {
	mock.Mock
}

var _ portssvc.UserReaderSvc = (*MockUserReaderService)(nil)

func (m *MockUserReaderService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserReaderService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserReaderService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// --- Mock Notifier ---
type MockNotifier struct {
	mock.Mock
}

var _ portssvc.NotifierSvc = (*MockNotifier)(nil)

func (m *MockNotifier) PublishWorkflowEvent(ctx context.Context, event portssvc.WorkflowEvent) {
	m.Called(ctx, event)
}

// --- Test Suite Setup ---
type DisbursementServiceTestSuite struct {
	suite.Suite
	mockDisbursementRepo *MockDisbursementRepository
	mockCompanySvc       *MockCompanyService
	mockUserSvc          *MockUserReaderService
	mockNotifier         *MockNotifier
	service              portssvc.DisbursementSvcFacade
	companyID            string
	userID               string
	company              domain.Company
	agent                domain.User
}

func (suite *DisbursementServiceTestSuite) SetupTest() {
	suite.mockDisbursementRepo = new(MockDisbursementRepository)
	suite.mockCompanySvc = new(MockCompanyService)
	suite.mockUserSvc = new(MockUserReaderService)
	suite.mockNotifier = new(MockNotifier)
	suite.service = services.NewDisbursementService(
		suite.mockDisbursementRepo,
		suite.mockCompanySvc,
		suite.mockUserSvc,
		suite.mockNotifier,
	)

	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()

	suite.company = domain.Company{
		CompanyID: suite.companyID,
		Name:      "Tesoria Trading",
		IsActive:  true,
		ApprovalSettings: domain.ApprovalSettings{
			RequireDeptHeadApproval:  true,
			RequireValidatorApproval: true,
			RequireCashierExecution:  true,
			MaxAmountNoApproval:      decimal.NewFromInt(500000),
		},
	}
	suite.agent = domain.User{
		UserID: suite.userID,
		Name:   "Amina Agent",
		Email:  "amina@example.com",
	}
}

// newDraftDisbursement builds a fresh DRAFT aggregate with the given version.
func (suite *DisbursementServiceTestSuite) newDraftDisbursement(version int64) *domain.Disbursement {
	return &domain.Disbursement{
		DisbursementID:     uuid.NewString(),
		CompanyID:          suite.companyID,
		ReferenceNumber:    "DSB-TEST-01",
		Amount:             decimal.NewFromInt(1000000),
		CurrencyCode:       "KES",
		Status:             domain.StatusDraft,
		Priority:           domain.PriorityMedium,
		AgentSubmission:    domain.NewWorkflowStep(),
		DeptHeadValidation: domain.NewWorkflowStep(),
		ValidatorApproval:  domain.NewWorkflowStep(),
		CashierExecution:   domain.NewWorkflowStep(),
		StatusTimeline:     map[domain.DisbursementStatus]time.Time{domain.StatusDraft: time.Now()},
		Version:            version,
	}
}

// expectActorLookup wires the company and user lookups runTransition performs.
func (suite *DisbursementServiceTestSuite) expectActorLookup(ctx context.Context, role domain.UserCompanyRole) {
	suite.mockCompanySvc.On("FindCompanyByID", ctx, suite.companyID).Return(&suite.company, nil).Once()
	suite.mockUserSvc.On("GetUserByID", ctx, suite.userID).Return(&suite.agent, nil).Once()
	suite.mockCompanySvc.On("GetUserCompanyRole", ctx, suite.userID, suite.companyID).Return(&domain.UserCompany{
		UserID:    suite.userID,
		CompanyID: suite.companyID,
		Role:      role,
	}, nil).Once()
}

// --- Test Cases ---

func (suite *DisbursementServiceTestSuite) TestSubmitDisbursement_Success() {
	ctx := context.Background()
	draft := suite.newDraftDisbursement(1)

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAgent).Return(nil).Once()
	suite.expectActorLookup(ctx, domain.RoleAgent)
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, draft.DisbursementID).Return(draft, nil).Once()
	suite.mockDisbursementRepo.On("UpdateDisbursement", ctx, mock.AnythingOfType("domain.Disbursement"), int64(1), mock.AnythingOfType("[]domain.ActionRecord")).Return(nil).Once()
	suite.mockNotifier.On("PublishWorkflowEvent", ctx, mock.AnythingOfType("services.WorkflowEvent")).Once()

	result, err := suite.service.SubmitDisbursement(ctx, suite.companyID, draft.DisbursementID, suite.userID, "Q3 supplier payment")

	suite.Require().NoError(err)
	suite.Require().NotNil(result)
	suite.Equal(domain.StatusPendingDeptHead, result.Status)
	suite.Equal(int64(2), result.Version)
	suite.Len(result.ActionHistory, 1)
	suite.Equal(domain.ActionSubmitted, result.ActionHistory[0].Action)
	suite.Equal(suite.agent.Name, result.ActionHistory[0].ActorName)

	suite.mockDisbursementRepo.AssertExpectations(suite.T())
	suite.mockCompanySvc.AssertExpectations(suite.T())
	suite.mockNotifier.AssertExpectations(suite.T())
}

func (suite *DisbursementServiceTestSuite) TestSubmitDisbursement_AuthorizationDenied() {
	ctx := context.Background()
	disbursementID := uuid.NewString()

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAgent).Return(apperrors.ErrForbidden).Once()

	result, err := suite.service.SubmitDisbursement(ctx, suite.companyID, disbursementID, suite.userID, "")

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrForbidden))
	suite.Nil(result)
	suite.mockDisbursementRepo.AssertNotCalled(suite.T(), "FindDisbursementByID", mock.Anything, mock.Anything)
	suite.mockDisbursementRepo.AssertNotCalled(suite.T(), "UpdateDisbursement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *DisbursementServiceTestSuite) TestSubmitDisbursement_ConflictRetrySucceeds() {
	ctx := context.Background()
	first := suite.newDraftDisbursement(1)
	second := suite.newDraftDisbursement(2)
	second.DisbursementID = first.DisbursementID

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAgent).Return(nil).Once()
	suite.expectActorLookup(ctx, domain.RoleAgent)

	// First attempt loses the version race, second attempt lands.
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, first.DisbursementID).Return(first, nil).Once()
	suite.mockDisbursementRepo.On("UpdateDisbursement", ctx, mock.AnythingOfType("domain.Disbursement"), int64(1), mock.AnythingOfType("[]domain.ActionRecord")).Return(apperrors.ErrConflict).Once()
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, first.DisbursementID).Return(second, nil).Once()
	suite.mockDisbursementRepo.On("UpdateDisbursement", ctx, mock.AnythingOfType("domain.Disbursement"), int64(2), mock.AnythingOfType("[]domain.ActionRecord")).Return(nil).Once()
	suite.mockNotifier.On("PublishWorkflowEvent", ctx, mock.AnythingOfType("services.WorkflowEvent")).Once()

	result, err := suite.service.SubmitDisbursement(ctx, suite.companyID, first.DisbursementID, suite.userID, "")

	suite.Require().NoError(err)
	suite.Equal(int64(3), result.Version)
	suite.mockDisbursementRepo.AssertExpectations(suite.T())
}

func (suite *DisbursementServiceTestSuite) TestSubmitDisbursement_ConflictRetriesExhausted() {
	ctx := context.Background()
	draft := suite.newDraftDisbursement(1)

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAgent).Return(nil).Once()
	suite.expectActorLookup(ctx, domain.RoleAgent)

	// Every attempt loses the race: a fresh draft is re-read, the write conflicts.
	for i := 0; i < 3; i++ {
		fresh := suite.newDraftDisbursement(int64(i + 1))
		fresh.DisbursementID = draft.DisbursementID
		suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, draft.DisbursementID).Return(fresh, nil).Once()
		suite.mockDisbursementRepo.On("UpdateDisbursement", ctx, mock.AnythingOfType("domain.Disbursement"), int64(i+1), mock.AnythingOfType("[]domain.ActionRecord")).Return(apperrors.ErrConflict).Once()
	}

	result, err := suite.service.SubmitDisbursement(ctx, suite.companyID, draft.DisbursementID, suite.userID, "")

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrConflict))
	suite.Nil(result)
	suite.mockDisbursementRepo.AssertExpectations(suite.T())
	suite.mockNotifier.AssertNotCalled(suite.T(), "PublishWorkflowEvent", mock.Anything, mock.Anything)
}

func (suite *DisbursementServiceTestSuite) TestValidateStage_InvalidTransitionNotPersisted() {
	ctx := context.Background()
	draft := suite.newDraftDisbursement(1) // still DRAFT, nothing pending

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleDeptHead).Return(nil).Once()
	suite.expectActorLookup(ctx, domain.RoleDeptHead)
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, draft.DisbursementID).Return(draft, nil).Once()

	result, err := suite.service.ValidateStage(ctx, suite.companyID, draft.DisbursementID, domain.StageDeptHeadValidation, suite.userID, "")

	suite.Require().Error(err)
	suite.True(errors.Is(err, workflow.ErrInvalidTransition))
	suite.Nil(result)
	suite.mockDisbursementRepo.AssertNotCalled(suite.T(), "UpdateDisbursement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockNotifier.AssertNotCalled(suite.T(), "PublishWorkflowEvent", mock.Anything, mock.Anything)
}

func (suite *DisbursementServiceTestSuite) TestRejectStage_PublishesReason() {
	ctx := context.Background()
	pending := suite.newDraftDisbursement(3)
	pending.Status = domain.StatusPendingDeptHead
	pending.AgentSubmission.Status = domain.StepApproved
	pending.AgentSubmission.IsCompleted = true

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleDeptHead).Return(nil).Once()
	suite.expectActorLookup(ctx, domain.RoleDeptHead)
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, pending.DisbursementID).Return(pending, nil).Once()
	suite.mockDisbursementRepo.On("UpdateDisbursement", ctx, mock.AnythingOfType("domain.Disbursement"), int64(3), mock.AnythingOfType("[]domain.ActionRecord")).Return(nil).Once()
	suite.mockNotifier.On("PublishWorkflowEvent", ctx, mock.MatchedBy(func(event portssvc.WorkflowEvent) bool {
		return event.EventType == domain.ActionDeptHeadRejected && event.Reason == "duplicate request"
	})).Once()

	result, err := suite.service.RejectStage(ctx, suite.companyID, pending.DisbursementID, domain.StageDeptHeadValidation, suite.userID, "duplicate request")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusRejected, result.Status)
	suite.mockNotifier.AssertExpectations(suite.T())
}

func (suite *DisbursementServiceTestSuite) TestCreateDisbursement_Success() {
	ctx := context.Background()
	req := dto.CreateDisbursementRequest{
		Amount:             decimal.NewFromInt(250000),
		CurrencyCode:       "kes",
		DisbursementTypeID: uuid.NewString(),
		BeneficiaryID:      uuid.NewString(),
		PaymentMethod:      "BANK_TRANSFER",
	}

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAgent).Return(nil).Once()
	suite.mockDisbursementRepo.On("SaveDisbursement", ctx, mock.AnythingOfType("domain.Disbursement")).Return(nil).Once()

	created, err := suite.service.CreateDisbursement(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.NotEmpty(created.DisbursementID)
	suite.NotEmpty(created.ReferenceNumber)
	suite.Equal("KES", created.CurrencyCode)
	suite.Equal(domain.StatusDraft, created.Status)
	suite.Equal(domain.PriorityMedium, created.Priority)
	suite.Equal(int64(1), created.Version)
	suite.Equal(suite.userID, created.CreatedBy)
	suite.Equal(domain.StepPending, created.AgentSubmission.Status)
	suite.mockDisbursementRepo.AssertExpectations(suite.T())
}

func (suite *DisbursementServiceTestSuite) TestCreateDisbursement_NegativeAmount() {
	ctx := context.Background()
	req := dto.CreateDisbursementRequest{
		Amount:             decimal.NewFromInt(-1),
		CurrencyCode:       "KES",
		DisbursementTypeID: uuid.NewString(),
		BeneficiaryID:      uuid.NewString(),
	}

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAgent).Return(nil).Once()

	created, err := suite.service.CreateDisbursement(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.Nil(created)
	suite.mockDisbursementRepo.AssertNotCalled(suite.T(), "SaveDisbursement", mock.Anything, mock.Anything)
}

func (suite *DisbursementServiceTestSuite) TestGetDisbursementByID_CrossTenantHidden() {
	ctx := context.Background()
	other := suite.newDraftDisbursement(1)
	other.CompanyID = uuid.NewString() // belongs to a different tenant

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, other.DisbursementID).Return(other, nil).Once()

	result, err := suite.service.GetDisbursementByID(ctx, suite.companyID, other.DisbursementID, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrNotFound))
	suite.Nil(result)
}

func (suite *DisbursementServiceTestSuite) TestDeleteDisbursement_PendingRefused() {
	ctx := context.Background()
	pending := suite.newDraftDisbursement(2)
	pending.Status = domain.StatusPendingValidator

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()
	suite.mockDisbursementRepo.On("FindDisbursementByID", ctx, pending.DisbursementID).Return(pending, nil).Once()

	err := suite.service.DeleteDisbursement(ctx, suite.companyID, pending.DisbursementID, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.mockDisbursementRepo.AssertNotCalled(suite.T(), "MarkDisbursementDeleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *DisbursementServiceTestSuite) TestForceComplete_RequiresAdmin() {
	ctx := context.Background()
	disbursementID := uuid.NewString()

	suite.mockCompanySvc.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(apperrors.ErrForbidden).Once()

	result, err := suite.service.ForceComplete(ctx, suite.companyID, disbursementID, suite.userID, "emergency")

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrForbidden))
	suite.Nil(result)
}

func TestDisbursementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DisbursementServiceTestSuite))
}

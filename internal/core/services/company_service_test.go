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
)

// --- Mock CompanyRepository ---
type MockCompanyRepository struct {
	mock.Mock
}

var _ portsrepo.CompanyRepositoryFacade = (*MockCompanyRepository)(nil)

func (m *MockCompanyRepository) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

func (m *MockCompanyRepository) ListCompaniesByUserID(ctx context.Context, userID string) ([]domain.Company, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Company), args.Error(1)
}

func (m *MockCompanyRepository) SaveCompany(ctx context.Context, company domain.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) UpdateApprovalSettings(ctx context.Context, companyID string, settings domain.ApprovalSettings, updatedByUserID string) error {
	args := m.Called(ctx, companyID, settings, updatedByUserID)
	return args.Error(0)
}

func (m *MockCompanyRepository) UpdateActiveTemplate(ctx context.Context, companyID string, templateID *string, updatedByUserID string) error {
	args := m.Called(ctx, companyID, templateID, updatedByUserID)
	return args.Error(0)
}

func (m *MockCompanyRepository) AddUserToCompany(ctx context.Context, membership domain.UserCompany) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockCompanyRepository) FindUserCompanyRole(ctx context.Context, userID, companyID string) (*domain.UserCompany, error) {
	args := m.Called(ctx, userID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserCompany), args.Error(1)
}

func (m *MockCompanyRepository) UpdateUserCompanyRole(ctx context.Context, userID, companyID string, role domain.UserCompanyRole, updatedByUserID string) error {
	args := m.Called(ctx, userID, companyID, role, updatedByUserID)
	return args.Error(0)
}

// --- Test Suite Setup ---
type CompanyServiceTestSuite struct {
	suite.Suite
	mockCompanyRepo  *MockCompanyRepository
	mockTemplateRepo *MockWorkflowTemplateRepository
	service          portssvc.CompanySvcFacade
	companyID        string
	adminID          string
}

func (suite *CompanyServiceTestSuite) SetupTest() {
	suite.mockCompanyRepo = new(MockCompanyRepository)
	suite.mockTemplateRepo = new(MockWorkflowTemplateRepository)
	suite.service = services.NewCompanyService(suite.mockCompanyRepo, suite.mockTemplateRepo)
	suite.companyID = uuid.NewString()
	suite.adminID = uuid.NewString()
}

func (suite *CompanyServiceTestSuite) expectRole(ctx context.Context, userID string, role domain.UserCompanyRole) {
	suite.mockCompanyRepo.On("FindUserCompanyRole", ctx, userID, suite.companyID).Return(&domain.UserCompany{
		UserID:    userID,
		CompanyID: suite.companyID,
		Role:      role,
	}, nil).Once()
}

// --- Test Cases ---

func (suite *CompanyServiceTestSuite) TestAuthorizeUserAction_RoleMatrix() {
	ctx := context.Background()

	testCases := []struct {
		name     string
		held     domain.UserCompanyRole
		required domain.UserCompanyRole
		allowed  bool
	}{
		{"admin satisfies agent duty", domain.RoleAdmin, domain.RoleAgent, true},
		{"admin satisfies cashier duty", domain.RoleAdmin, domain.RoleCashier, true},
		{"admin satisfies admin duty", domain.RoleAdmin, domain.RoleAdmin, true},
		{"agent satisfies agent duty", domain.RoleAgent, domain.RoleAgent, true},
		{"agent cannot act as dept head", domain.RoleAgent, domain.RoleDeptHead, false},
		{"dept head cannot act as validator", domain.RoleDeptHead, domain.RoleValidator, false},
		{"validator satisfies validator duty", domain.RoleValidator, domain.RoleValidator, true},
		{"cashier satisfies cashier duty", domain.RoleCashier, domain.RoleCashier, true},
		{"cashier cannot act as admin", domain.RoleCashier, domain.RoleAdmin, false},
		{"any member can read", domain.RoleCashier, domain.RoleReadOnly, true},
		{"readonly can read", domain.RoleReadOnly, domain.RoleReadOnly, true},
		{"readonly cannot act as agent", domain.RoleReadOnly, domain.RoleAgent, false},
		{"removed member cannot read", domain.RoleRemoved, domain.RoleReadOnly, false},
		{"removed member cannot act as agent", domain.RoleRemoved, domain.RoleAgent, false},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			userID := uuid.NewString()
			suite.expectRole(ctx, userID, tc.held)

			err := suite.service.AuthorizeUserAction(ctx, userID, suite.companyID, tc.required)

			if tc.allowed {
				suite.NoError(err)
			} else {
				suite.True(errors.Is(err, apperrors.ErrForbidden))
			}
		})
	}
}

func (suite *CompanyServiceTestSuite) TestAuthorizeUserAction_NonMemberForbidden() {
	ctx := context.Background()
	outsiderID := uuid.NewString()

	suite.mockCompanyRepo.On("FindUserCompanyRole", ctx, outsiderID, suite.companyID).Return(nil, apperrors.ErrNotFound).Once()

	err := suite.service.AuthorizeUserAction(ctx, outsiderID, suite.companyID, domain.RoleReadOnly)

	suite.True(errors.Is(err, apperrors.ErrForbidden))
}

func (suite *CompanyServiceTestSuite) TestCreateCompany_CreatorBecomesAdmin() {
	ctx := context.Background()

	suite.mockCompanyRepo.On("SaveCompany", ctx, mock.AnythingOfType("domain.Company")).Return(nil).Once()
	suite.mockCompanyRepo.On("AddUserToCompany", ctx, mock.MatchedBy(func(membership domain.UserCompany) bool {
		return membership.UserID == suite.adminID && membership.Role == domain.RoleAdmin
	})).Return(nil).Once()

	company, err := suite.service.CreateCompany(ctx, "Tesoria Trading", "KES", suite.adminID)

	suite.Require().NoError(err)
	suite.Require().NotNil(company)
	suite.NotEmpty(company.CompanyID)
	suite.True(company.ApprovalSettings.RequireDeptHeadApproval)
	suite.True(company.ApprovalSettings.RequireValidatorApproval)
	suite.True(company.ApprovalSettings.RequireCashierExecution)
	suite.mockCompanyRepo.AssertExpectations(suite.T())
}

func (suite *CompanyServiceTestSuite) TestUpdateApprovalSettings_NegativeThresholdRejected() {
	ctx := context.Background()

	suite.expectRole(ctx, suite.adminID, domain.RoleAdmin)

	settings := domain.ApprovalSettings{
		MaxAmountNoApproval: decimal.NewFromInt(-100),
	}
	company, err := suite.service.UpdateApprovalSettings(ctx, suite.companyID, settings, suite.adminID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.Nil(company)
	suite.mockCompanyRepo.AssertNotCalled(suite.T(), "UpdateApprovalSettings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CompanyServiceTestSuite) TestSetActiveWorkflowTemplate_ForeignTemplateRejected() {
	ctx := context.Background()
	templateID := uuid.NewString()

	suite.expectRole(ctx, suite.adminID, domain.RoleAdmin)
	suite.mockTemplateRepo.On("FindTemplateByID", ctx, templateID).Return(&domain.WorkflowTemplate{
		TemplateID: templateID,
		CompanyID:  uuid.NewString(), // belongs to another company
	}, nil).Once()

	err := suite.service.SetActiveWorkflowTemplate(ctx, suite.companyID, &templateID, suite.adminID)

	suite.Require().Error(err)
	suite.mockCompanyRepo.AssertNotCalled(suite.T(), "UpdateActiveTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CompanyServiceTestSuite) TestRemoveUserFromCompany_FlipsRoleToRemoved() {
	ctx := context.Background()
	targetID := uuid.NewString()

	suite.expectRole(ctx, suite.adminID, domain.RoleAdmin)
	suite.mockCompanyRepo.On("UpdateUserCompanyRole", ctx, targetID, suite.companyID, domain.RoleRemoved, suite.adminID).Return(nil).Once()

	err := suite.service.RemoveUserFromCompany(ctx, suite.adminID, targetID, suite.companyID)

	suite.Require().NoError(err)
	suite.mockCompanyRepo.AssertExpectations(suite.T())
}

func (suite *CompanyServiceTestSuite) TestRemoveUserFromCompany_SelfRemovalBlocked() {
	ctx := context.Background()

	suite.expectRole(ctx, suite.adminID, domain.RoleAdmin)

	err := suite.service.RemoveUserFromCompany(ctx, suite.adminID, suite.adminID, suite.companyID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.mockCompanyRepo.AssertNotCalled(suite.T(), "UpdateUserCompanyRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *CompanyServiceTestSuite) TestAddUserToCompany_RemovedRoleRejected() {
	ctx := context.Background()
	targetID := uuid.NewString()

	suite.expectRole(ctx, suite.adminID, domain.RoleAdmin)

	err := suite.service.AddUserToCompany(ctx, suite.adminID, targetID, suite.companyID, domain.RoleRemoved)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.mockCompanyRepo.AssertNotCalled(suite.T(), "AddUserToCompany", mock.Anything, mock.Anything)
}

// JoinedAt must be stamped on new memberships.
func (suite *CompanyServiceTestSuite) TestAddUserToCompany_StampsJoinedAt() {
	ctx := context.Background()
	targetID := uuid.NewString()
	before := time.Now()

	suite.expectRole(ctx, suite.adminID, domain.RoleAdmin)
	suite.mockCompanyRepo.On("AddUserToCompany", ctx, mock.MatchedBy(func(membership domain.UserCompany) bool {
		return membership.Role == domain.RoleValidator && !membership.JoinedAt.Before(before)
	})).Return(nil).Once()

	err := suite.service.AddUserToCompany(ctx, suite.adminID, targetID, suite.companyID, domain.RoleValidator)

	suite.Require().NoError(err)
	suite.mockCompanyRepo.AssertExpectations(suite.T())
}

func TestCompanyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CompanyServiceTestSuite))
}

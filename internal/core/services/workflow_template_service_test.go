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

// --- Mock WorkflowTemplateRepository ---
type MockWorkflowTemplateRepository struct {
	mock.Mock
}

var _ portsrepo.WorkflowTemplateRepositoryFacade = (*MockWorkflowTemplateRepository)(nil)

func (m *MockWorkflowTemplateRepository) FindTemplateByID(ctx context.Context, templateID string) (*domain.WorkflowTemplate, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowTemplate), args.Error(1)
}

func (m *MockWorkflowTemplateRepository) ListTemplatesByCompany(ctx context.Context, companyID string) ([]domain.WorkflowTemplate, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WorkflowTemplate), args.Error(1)
}

func (m *MockWorkflowTemplateRepository) SaveTemplate(ctx context.Context, template domain.WorkflowTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockWorkflowTemplateRepository) UpdateTemplate(ctx context.Context, template domain.WorkflowTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockWorkflowTemplateRepository) MarkTemplateDeleted(ctx context.Context, templateID string, deletedAt time.Time, deletedBy string) error {
	args := m.Called(ctx, templateID, deletedAt, deletedBy)
	return args.Error(0)
}

// --- Mock CompanyAuthorizer ---
type MockCompanyAuthorizer struct {
	mock.Mock
}

var _ portssvc.CompanyAuthorizerSvc = (*MockCompanyAuthorizer)(nil)

func (m *MockCompanyAuthorizer) AuthorizeUserAction(ctx context.Context, userID string, companyID string, requiredRole domain.UserCompanyRole) error {
	args := m.Called(ctx, userID, companyID, requiredRole)
	return args.Error(0)
}

// --- Test Suite Setup ---
type WorkflowTemplateServiceTestSuite struct {
	suite.Suite
	mockTemplateRepo *MockWorkflowTemplateRepository
	mockAuthorizer   *MockCompanyAuthorizer
	service          portssvc.WorkflowTemplateSvcFacade
	companyID        string
	userID           string
}

func (suite *WorkflowTemplateServiceTestSuite) SetupTest() {
	suite.mockTemplateRepo = new(MockWorkflowTemplateRepository)
	suite.mockAuthorizer = new(MockCompanyAuthorizer)
	suite.service = services.NewWorkflowTemplateService(suite.mockTemplateRepo, suite.mockAuthorizer)
	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
}

func (suite *WorkflowTemplateServiceTestSuite) validCreateRequest() dto.CreateWorkflowTemplateRequest {
	return dto.CreateWorkflowTemplateRequest{
		Name: "Expedited",
		Steps: []dto.TemplateStepRequest{
			{Order: 1, Name: "Submit", RoleRequired: domain.RoleAgent},
			{Order: 2, Name: "Execute", RoleRequired: domain.RoleCashier},
		},
	}
}

// --- Test Cases ---

func (suite *WorkflowTemplateServiceTestSuite) TestCreateTemplate_Success() {
	ctx := context.Background()

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()
	suite.mockTemplateRepo.On("SaveTemplate", ctx, mock.AnythingOfType("domain.WorkflowTemplate")).Return(nil).Once()

	created, err := suite.service.CreateTemplate(ctx, suite.companyID, suite.validCreateRequest(), suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.NotEmpty(created.TemplateID)
	suite.Equal(suite.companyID, created.CompanyID)
	suite.Len(created.Steps, 2)
	suite.False(created.IsSystem)
	suite.Equal(suite.userID, created.CreatedBy)
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func (suite *WorkflowTemplateServiceTestSuite) TestCreateTemplate_DuplicateStepOrder() {
	ctx := context.Background()
	req := suite.validCreateRequest()
	req.Steps[1].Order = 1

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()

	created, err := suite.service.CreateTemplate(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.Nil(created)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "SaveTemplate", mock.Anything, mock.Anything)
}

func (suite *WorkflowTemplateServiceTestSuite) TestCreateTemplate_NonContiguousOrders() {
	ctx := context.Background()
	req := suite.validCreateRequest()
	req.Steps[1].Order = 5

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()

	created, err := suite.service.CreateTemplate(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrValidation))
	suite.Nil(created)
}

func (suite *WorkflowTemplateServiceTestSuite) TestUpdateTemplate_SystemTemplateImmutable() {
	ctx := context.Background()
	templateID := uuid.NewString()
	newName := "Renamed"

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()
	suite.mockTemplateRepo.On("FindTemplateByID", ctx, templateID).Return(&domain.WorkflowTemplate{
		TemplateID: templateID,
		Name:       "Standard Approval",
		IsSystem:   true,
	}, nil).Once()

	updated, err := suite.service.UpdateTemplate(ctx, suite.companyID, templateID, dto.UpdateWorkflowTemplateRequest{Name: &newName}, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrForbidden))
	suite.Nil(updated)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "UpdateTemplate", mock.Anything, mock.Anything)
}

func (suite *WorkflowTemplateServiceTestSuite) TestGetTemplateByID_ForeignTemplateHidden() {
	ctx := context.Background()
	templateID := uuid.NewString()

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockTemplateRepo.On("FindTemplateByID", ctx, templateID).Return(&domain.WorkflowTemplate{
		TemplateID: templateID,
		CompanyID:  uuid.NewString(), // owned by another company, not system-shared
	}, nil).Once()

	template, err := suite.service.GetTemplateByID(ctx, suite.companyID, templateID, suite.userID)

	suite.Require().Error(err)
	suite.True(errors.Is(err, apperrors.ErrNotFound))
	suite.Nil(template)
}

func (suite *WorkflowTemplateServiceTestSuite) TestGetTemplateByID_SystemTemplateVisible() {
	ctx := context.Background()
	templateID := uuid.NewString()

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleReadOnly).Return(nil).Once()
	suite.mockTemplateRepo.On("FindTemplateByID", ctx, templateID).Return(&domain.WorkflowTemplate{
		TemplateID: templateID,
		Name:       "Standard Approval",
		IsSystem:   true,
	}, nil).Once()

	template, err := suite.service.GetTemplateByID(ctx, suite.companyID, templateID, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(template)
	suite.True(template.IsSystem)
}

func (suite *WorkflowTemplateServiceTestSuite) TestDeleteTemplate_SoftDelete() {
	ctx := context.Background()
	templateID := uuid.NewString()

	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()
	suite.mockTemplateRepo.On("FindTemplateByID", ctx, templateID).Return(&domain.WorkflowTemplate{
		TemplateID: templateID,
		CompanyID:  suite.companyID,
	}, nil).Once()
	suite.mockTemplateRepo.On("MarkTemplateDeleted", ctx, templateID, mock.AnythingOfType("time.Time"), suite.userID).Return(nil).Once()

	err := suite.service.DeleteTemplate(ctx, suite.companyID, templateID, suite.userID)

	suite.Require().NoError(err)
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

// Templates are display configuration only. Whatever steps a company declares,
// the execution pipeline keeps its fixed stage plan driven by approval
// settings.
func (suite *WorkflowTemplateServiceTestSuite) TestTemplateDoesNotAlterPipeline() {
	ctx := context.Background()

	// Company declares a two-step template skipping both approval stages.
	suite.mockAuthorizer.On("AuthorizeUserAction", ctx, suite.userID, suite.companyID, domain.RoleAdmin).Return(nil).Once()
	suite.mockTemplateRepo.On("SaveTemplate", ctx, mock.AnythingOfType("domain.WorkflowTemplate")).Return(nil).Once()
	_, err := suite.service.CreateTemplate(ctx, suite.companyID, suite.validCreateRequest(), suite.userID)
	suite.Require().NoError(err)

	// A large submission still routes through department head review.
	settings := domain.ApprovalSettings{
		RequireDeptHeadApproval:  true,
		RequireValidatorApproval: true,
		RequireCashierExecution:  true,
		MaxAmountNoApproval:      decimal.NewFromInt(500000),
	}
	d := &domain.Disbursement{
		DisbursementID:     uuid.NewString(),
		CompanyID:          suite.companyID,
		Amount:             decimal.NewFromInt(1000000),
		Status:             domain.StatusDraft,
		AgentSubmission:    domain.NewWorkflowStep(),
		DeptHeadValidation: domain.NewWorkflowStep(),
		ValidatorApproval:  domain.NewWorkflowStep(),
		CashierExecution:   domain.NewWorkflowStep(),
		StatusTimeline:     map[domain.DisbursementStatus]time.Time{},
	}
	engine := workflow.NewEngine()
	actor := domain.Actor{ActorID: suite.userID, Name: "Amina Agent", Role: string(domain.RoleAgent)}

	suite.Require().NoError(engine.Submit(d, actor, "", settings))
	suite.Equal(domain.StatusPendingDeptHead, d.Status)
}

func TestWorkflowTemplateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowTemplateServiceTestSuite))
}

package services

import (
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
	portssvc "github.com/tesoria/disbursement_ops_app/internal/core/ports/services"
	"github.com/tesoria/disbursement_ops_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Initialize the company service first since other services depend on its
	// authorization checks.
	container.Company = NewCompanyService(
		repos.CompanyRepo,
		repos.TemplateRepo,
	)

	container.User = NewUserService(repos.UserRepo)
	container.Notifier = NewLogNotifier()

	container.Disbursement = NewDisbursementService(
		repos.DisbursementRepo,
		container.Company,
		container.User,
		container.Notifier,
	)

	container.WorkflowTemplate = NewWorkflowTemplateService(
		repos.TemplateRepo,
		container.Company,
	)

	container.Auth = NewTokenService(cfg, container.User)

	return container
}

package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/tesoria/disbursement_ops_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	disbursementRepo := newPgxDisbursementRepository(dbPool)
	companyRepo := newPgxCompanyRepository(dbPool)
	templateRepo := newPgxWorkflowTemplateRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)

	return portsrepo.RepositoryProvider{
		DisbursementRepo: disbursementRepo,
		CompanyRepo:      companyRepo,
		TemplateRepo:     templateRepo,
		UserRepo:         userRepo,
	}
}

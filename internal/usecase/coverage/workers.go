package coverage

import (
	"context"
	"strings"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

type RegisterWorkerInput struct {
	Name  string
	Email string
	Phone string
}

// Workers keeps the local copy of platform workers that coverage rows
// point at.
type Workers struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewWorkers(repo domain.Repository, dispatcher *audit.Dispatcher) *Workers {
	return &Workers{repo: repo, audit: dispatcher}
}

func (uc *Workers) Register(ctx context.Context, in RegisterWorkerInput) (*models.Worker, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, domain.Invalid("name", "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Invalid("email", "a valid email is required")
	}

	w := &models.Worker{
		Name:   name,
		Email:  email,
		Phone:  strings.TrimSpace(in.Phone),
		Active: true,
	}
	if err := uc.repo.CreateWorker(ctx, w); err != nil {
		return nil, err
	}

	if uc.audit != nil {
		wid := w.ID
		uc.audit.Dispatch(audit.Entry(
			audit.OpCreateWorker, &wid, nil, domain.ActorFrom(ctx),
			audit.Summary{}, audit.Summary{}, audit.Change{Note: w.Email},
		))
	}
	return w, nil
}

func (uc *Workers) List(ctx context.Context) ([]models.Worker, error) {
	return uc.repo.ListWorkers(ctx)
}

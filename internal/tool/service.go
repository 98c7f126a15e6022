// Package tool serves the shared software tool registry.
package tool

import (
	"context"
	"log/slog"
	"sort"

	"github.com/frahmantamala/ops-portal/internal"
	"github.com/frahmantamala/ops-portal/internal/audit"
	"github.com/frahmantamala/ops-portal/internal/core/domain"
	"github.com/frahmantamala/ops-portal/internal/rbac"
)

type Store interface {
	ListTools(ctx context.Context) ([]domain.Tool, error)
	GetToolByID(ctx context.Context, toolID string) (*domain.Tool, error)
	CreateTool(ctx context.Context, t domain.Tool) (*domain.Tool, error)
}

type Auditor interface {
	Record(ctx context.Context, actor *domain.User, action, entityType, entityID string, details any)
}

type Service struct {
	store  Store
	audit  Auditor
	logger *slog.Logger
}

func NewService(store Store, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditor, logger: logger}
}

// List returns the tools visible to the principal, ordered by name.
func (s *Service) List(ctx context.Context, principal *domain.User) ([]ToolResponse, error) {
	if principal == nil {
		return nil, internal.ErrAuthenticationRequired
	}

	tools, err := s.store.ListTools(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list tools", "error", err)
		return nil, err
	}

	visible := rbac.VisibleTools(principal.Role, tools)
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].Name < visible[j].Name })

	out := make([]ToolResponse, 0, len(visible))
	for _, t := range visible {
		out = append(out, toResponse(t))
	}
	return out, nil
}

// Get hides tools the principal may not see behind the same not-found error
// as a missing id.
func (s *Service) Get(ctx context.Context, principal *domain.User, toolID string) (*ToolResponse, error) {
	if principal == nil {
		return nil, internal.ErrAuthenticationRequired
	}

	t, err := s.store.GetToolByID(ctx, toolID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get tool", "tool_id", toolID, "error", err)
		return nil, err
	}
	if t == nil || !rbac.CanViewTool(principal.Role, *t) {
		return nil, internal.ErrToolNotFound
	}
	resp := toResponse(*t)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, principal *domain.User, dto CreateToolRequest) (*ToolResponse, error) {
	if err := rbac.Authorize(principal, rbac.ActionCreateTool); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateTool(ctx, dto.ToDomain())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create tool", "name", dto.Name, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "tool created", "tool_id", created.ToolID, "name", created.Name, "user_id", principal.UserID)
	s.audit.Record(ctx, principal, "tool.create", audit.EntityTool, created.ToolID, map[string]any{
		"name":       created.Name,
		"cost":       created.Cost.String(),
		"currency":   created.Currency,
		"visibility": string(created.VisibilityLevel),
	})

	resp := toResponse(*created)
	return &resp, nil
}

package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/taskflow/internal/domain"
)

// mapDomainError translates core errors into HTTP responses. Every rejection
// carries the structured reason in the detail so the UI can explain why, not
// just that the command failed.
func mapDomainError(err error) error {
	var (
		cycleErr      *domain.CycleError
		blockedErr    *domain.BlockedByDependencyError
		lagErr        *domain.LagNotElapsedError
		transitionErr *domain.InvalidTransitionError
		roleErr       *domain.UnauthorizedRoleError
	)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrDuplicateEdge):
		return huma.Error409Conflict("this dependency already exists")
	case errors.Is(err, domain.ErrVersionConflict):
		return huma.Error409Conflict("task was modified concurrently; re-fetch and retry")
	case errors.Is(err, domain.ErrReasonRequired):
		return huma.Error400BadRequest("a reason is required for this action")
	case errors.Is(err, domain.ErrUnknownAction):
		return huma.Error400BadRequest("unknown action")
	case errors.Is(err, domain.ErrInvalidEdge):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &cycleErr):
		return huma.Error409Conflict(cycleErr.Error())
	case errors.As(err, &blockedErr):
		return huma.Error409Conflict(blockedErr.Error())
	case errors.As(err, &lagErr):
		return huma.Error409Conflict(lagErr.Error())
	case errors.As(err, &transitionErr):
		return huma.Error409Conflict(transitionErr.Error())
	case errors.As(err, &roleErr):
		return huma.Error403Forbidden(roleErr.Error())
	case errors.Is(err, domain.ErrGraphCorrupt):
		return huma.Error500InternalServerError("dependency graph integrity fault", err)
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

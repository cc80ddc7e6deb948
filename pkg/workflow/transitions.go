package workflow

import (
	"slices"

	"github.com/edulab/orchestrator/pkg/models"
)

// allowedTransitions is the edge table of the catalog state machine. archived -> draft makes
// the graph cyclic.
var allowedTransitions = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.WorkflowStatusDraft:     {models.WorkflowStatusProposed, models.WorkflowStatusArchived},
	models.WorkflowStatusProposed:  {models.WorkflowStatusValidated, models.WorkflowStatusRejected, models.WorkflowStatusDraft},
	models.WorkflowStatusValidated: {models.WorkflowStatusPublished, models.WorkflowStatusDraft},
	models.WorkflowStatusPublished: {models.WorkflowStatusArchived, models.WorkflowStatusDraft},
	models.WorkflowStatusRejected:  {models.WorkflowStatusDraft, models.WorkflowStatusArchived},
	models.WorkflowStatusArchived:  {models.WorkflowStatusDraft},
}

// transitionPermissions lists the roles allowed to move an entry into a target status.
var transitionPermissions = map[models.WorkflowStatus][]models.Role{
	models.WorkflowStatusProposed:  {models.RoleTeacher, models.RoleAdmin, models.RoleDirection},
	models.WorkflowStatusValidated: {models.RoleReferent, models.RoleAdmin, models.RoleDirection},
	models.WorkflowStatusPublished: {models.RoleDirection, models.RoleAdmin},
	models.WorkflowStatusRejected:  {models.RoleReferent, models.RoleAdmin, models.RoleDirection},
	models.WorkflowStatusArchived:  {models.RoleAdmin, models.RoleDirection},
	models.WorkflowStatusDraft:     {models.RoleTeacher, models.RoleAdmin, models.RoleDirection},
}

// IsTransitionAllowed reports whether the state machine has an edge from -> to.
func IsTransitionAllowed(from, to models.WorkflowStatus) bool {
	return slices.Contains(allowedTransitions[from], to)
}

// CanUserTransition reports whether role may move an entry into the to status.
func CanUserTransition(to models.WorkflowStatus, role models.Role) bool {
	return slices.Contains(transitionPermissions[to], role)
}

// NextStatuses returns the statuses reachable from one edge away, for the given role.
// An empty role ignores permissions.
func NextStatuses(from models.WorkflowStatus, role models.Role) []models.WorkflowStatus {
	next := make([]models.WorkflowStatus, 0, len(allowedTransitions[from]))

	for _, to := range allowedTransitions[from] {
		if role == "" || CanUserTransition(to, role) {
			next = append(next, to)
		}
	}

	return next
}

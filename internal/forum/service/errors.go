package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"stackit/internal/forum/model"
	"stackit/internal/forum/repository"
	pkgerrors "stackit/pkg/errors"
)

// storeError converts a gateway error into a coded error. notFound is the code used
// for repository.ErrNotFound; coded errors pass through unchanged.
func storeError(err error, notFound pkgerrors.ErrorCode, action string) error {
	if err == nil {
		return nil
	}
	var coded *pkgerrors.Error
	if stderrors.As(err, &coded) {
		return coded
	}
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return pkgerrors.New(notFound)
	case stderrors.Is(err, repository.ErrAlreadyExists):
		return pkgerrors.Wrap(err, pkgerrors.RecordAlreadyExists)
	case stderrors.Is(err, repository.ErrConflict):
		return pkgerrors.Wrap(err, pkgerrors.Conflict)
	case stderrors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrapf(err, pkgerrors.Timeout, "%s timed out", action)
	case stderrors.Is(err, context.Canceled):
		return pkgerrors.Wrapf(err, pkgerrors.Timeout, "%s cancelled", action)
	}
	return pkgerrors.Wrap(fmt.Errorf("%s failed: %w", action, err), pkgerrors.DatabaseError)
}

// requireContributor admits users and admins.
func requireContributor(actor model.Actor) error {
	if !actor.IsAuthenticated() || actor.Role == model.RoleGuest {
		return pkgerrors.UnauthorizedError("sign in to continue")
	}
	if !actor.Role.CanContribute() {
		return pkgerrors.New(pkgerrors.PermissionDenied)
	}
	return nil
}

// requireAdmin fails with Unauthorized for anonymous callers and PermissionDenied for
// signed-in users without the admin role.
func requireAdmin(actor model.Actor) error {
	if !actor.IsAuthenticated() || actor.Role == model.RoleGuest {
		return pkgerrors.UnauthorizedError("sign in as an administrator")
	}
	if !actor.Role.IsAdmin() {
		return pkgerrors.New(pkgerrors.PermissionDenied).WithMessage("administrator role required")
	}
	return nil
}

// canView reports whether actor may see q: approved questions are public, others
// are visible to admins and to their author.
func canView(actor model.Actor, q *model.Question) bool {
	return q.Status == model.StatusApproved || actor.Role.IsAdmin() || actor.Owns(q.AuthorID)
}

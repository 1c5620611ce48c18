package service

import (
	"context"

	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

func (e Env) Threads(ctx context.Context, sort domain.SortOrder, skip, limit *int) ([]domain.Thread, error) {
	if !sort.Valid() {
		return nil, internal_errors.Validation("unknown sort order %q", sort)
	}
	page, err := e.svc.page(skip, limit)
	if err != nil {
		return nil, err
	}
	return e.svc.repo.ListThreads(ctx, sort, page)
}

func (e Env) Thread(ctx context.Context, id domain.ThreadId) (domain.Thread, bool, error) {
	return e.svc.repo.Thread(ctx, id)
}

// Me is not found for anonymous viewers and for tokens of deleted users.
func (e Env) Me(ctx context.Context) (domain.User, bool, error) {
	identity, ok := e.viewer.Identity()
	if !ok {
		return domain.User{}, false, nil
	}
	return e.svc.repo.User(ctx, identity.Id)
}

package memory

import (
	"context"
	"sort"
	"time"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type accessTokenRepo struct{ d *db }

func cloneToken(t *model.ProjectAccessToken) *model.ProjectAccessToken {
	cp := *t
	cp.ExpiresAt = ptrTime(t.ExpiresAt)
	cp.UsedAt = ptrTime(t.UsedAt)
	return &cp
}

func (r *accessTokenRepo) Create(_ context.Context, token *model.ProjectAccessToken) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	token.Token = constants.NormalizeCode(token.Token)
	for _, t := range r.d.accessTokens {
		if t.Token == token.Token {
			return duplicate("访客码已存在")
		}
	}
	stamp(&token.BaseModel, r.d.newID("project_access_tokens"))
	r.d.accessTokens[token.ID] = cloneToken(token)
	return nil
}

func (r *accessTokenRepo) FindByID(_ context.Context, id int64) (*model.ProjectAccessToken, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	t, ok := r.d.accessTokens[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return cloneToken(t), nil
}

func (r *accessTokenRepo) FindByToken(_ context.Context, code string) (*model.ProjectAccessToken, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	code = constants.NormalizeCode(code)
	for _, t := range r.d.accessTokens {
		if t.Token == code {
			return cloneToken(t), nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *accessTokenRepo) ListByProject(_ context.Context, projectID int64) ([]*model.ProjectAccessToken, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	tokens := make([]*model.ProjectAccessToken, 0)
	for _, t := range r.d.accessTokens {
		if t.ProjectID == projectID {
			tokens = append(tokens, cloneToken(t))
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return newestFirst(tokens[i].BaseModel, tokens[j].BaseModel) })
	return tokens, nil
}

func (r *accessTokenRepo) MarkUsed(_ context.Context, id int64, at time.Time, deactivate bool) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	t, ok := r.d.accessTokens[id]
	if !ok || !t.IsActive {
		return pkgErrors.ErrStatusConflict
	}
	if t.UsedAt == nil {
		usedAt := at
		t.UsedAt = &usedAt
	}
	if deactivate {
		t.IsActive = false
	}
	t.UpdatedAt = at
	return nil
}

func (r *accessTokenRepo) Deactivate(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	t, ok := r.d.accessTokens[id]
	if !ok {
		return pkgErrors.ErrRecordNotFound
	}
	t.IsActive = false
	t.UpdatedAt = time.Now()
	return nil
}

func (r *accessTokenRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var n int64
	for _, t := range r.d.accessTokens {
		if t.IsActive && t.Expired(now) {
			t.IsActive = false
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

package memory

import (
	"context"
	"sort"
	"time"

	"taskhub/internal/model"
	pkgErrors "taskhub/pkg/errors"
)

type secretRepo struct{ d *db }

func (r *secretRepo) load(s *model.Secret) *model.Secret {
	cp := *s
	cp.Description = ptrString(s.Description)
	access := r.d.secretAccess[s.ID]
	cp.Access = make([]model.SecretAccess, 0, len(access))
	for _, uid := range sortedKeys(access) {
		cp.Access = append(cp.Access, model.SecretAccess{SecretID: s.ID, UserID: uid, CreatedAt: access[uid]})
	}
	return &cp
}

func (r *secretRepo) setAccess(secret *model.Secret) {
	now := time.Now()
	access := make(map[int64]time.Time, len(secret.Access))
	for i := range secret.Access {
		secret.Access[i].SecretID = secret.ID
		secret.Access[i].CreatedAt = now
		access[secret.Access[i].UserID] = now
	}
	r.d.secretAccess[secret.ID] = access
}

func (r *secretRepo) Create(_ context.Context, secret *model.Secret) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stamp(&secret.BaseModel, r.d.newID("secrets"))
	stored := *secret
	stored.Access = nil
	stored.Description = ptrString(secret.Description)
	r.d.secrets[secret.ID] = &stored
	r.setAccess(secret)
	return nil
}

func (r *secretRepo) FindByID(_ context.Context, id int64) (*model.Secret, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	s, ok := r.d.secrets[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return r.load(s), nil
}

func (r *secretRepo) List(_ context.Context, readerID *int64) ([]*model.Secret, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	secrets := make([]*model.Secret, 0)
	for _, s := range r.d.secrets {
		if readerID != nil {
			if _, ok := r.d.secretAccess[s.ID][*readerID]; !ok {
				continue
			}
		}
		secrets = append(secrets, r.load(s))
	}
	sort.Slice(secrets, func(i, j int) bool {
		if secrets[i].Name == secrets[j].Name {
			return secrets[i].ID < secrets[j].ID
		}
		return secrets[i].Name < secrets[j].Name
	})
	return secrets, nil
}

func (r *secretRepo) Update(_ context.Context, secret *model.Secret) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.secrets[secret.ID]
	if !ok {
		return pkgErrors.ErrRecordNotFound
	}
	secret.UpdatedAt = time.Now()
	stored.Name = secret.Name
	stored.Value = secret.Value
	stored.Description = ptrString(secret.Description)
	stored.UpdatedAt = secret.UpdatedAt
	r.setAccess(secret)
	return nil
}

func (r *secretRepo) Delete(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.secrets[id]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	delete(r.d.secrets, id)
	delete(r.d.secretAccess, id)
	return nil
}

package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/caretaking"
	"backend/internal/cache"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- In-memory fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	u, ok := r.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, search string, page, limit int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ListAll(ctx context.Context, search string) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error { return nil }

type fakeDelegationRepo struct {
	requests    map[uuid.UUID]*model.DelegationRequest
	delegations map[uuid.UUID]*model.ActiveDelegation
}

func newFakeDelegationRepo() *fakeDelegationRepo {
	return &fakeDelegationRepo{
		requests:    make(map[uuid.UUID]*model.DelegationRequest),
		delegations: make(map[uuid.UUID]*model.ActiveDelegation),
	}
}

func (r *fakeDelegationRepo) CreateRequest(ctx context.Context, req *model.DelegationRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	r.requests[req.ID] = req
	return nil
}

func (r *fakeDelegationRepo) FindRequestByID(ctx context.Context, id uuid.UUID) (*model.DelegationRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeDelegationRepo) FindRequestByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DelegationRequest, error) {
	return r.FindRequestByID(ctx, id)
}

func (r *fakeDelegationRepo) ListRequests(ctx context.Context, userID uuid.UUID, direction, status string, page, limit int) ([]model.DelegationRequest, int64, error) {
	var out []model.DelegationRequest
	for _, req := range r.requests {
		switch direction {
		case repository.DirectionIncoming:
			if req.CaretakerID != userID {
				continue
			}
		case repository.DirectionOutgoing:
			if req.RequesterID != userID {
				continue
			}
		default:
			if req.RequesterID != userID && req.CaretakerID != userID && req.PrimaryUserID != userID {
				continue
			}
		}
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeDelegationRepo) ListPendingRequests(ctx context.Context, page, limit int) ([]model.DelegationRequest, int64, error) {
	var out []model.DelegationRequest
	for _, req := range r.requests {
		if req.Status == model.RequestPending {
			out = append(out, *req)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeDelegationRepo) PendingIncomingRequesters(ctx context.Context, caretakerID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, req := range r.requests {
		if req.CaretakerID == caretakerID && req.Status == model.RequestPending {
			out = append(out, req.RequesterID)
		}
	}
	return out, nil
}

func (r *fakeDelegationRepo) UpdateRequest(ctx context.Context, req *model.DelegationRequest) error {
	r.requests[req.ID] = req
	return nil
}

func (r *fakeDelegationRepo) CreateActiveDelegation(ctx context.Context, d *model.ActiveDelegation) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.delegations[d.ID] = d
	return nil
}

func (r *fakeDelegationRepo) FindActiveDelegationByID(ctx context.Context, id uuid.UUID) (*model.ActiveDelegation, error) {
	d, ok := r.delegations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDelegationRepo) FindActiveDelegationByPrimaryUser(ctx context.Context, primaryUserID uuid.UUID) (*model.ActiveDelegation, error) {
	for _, d := range r.delegations {
		if d.PrimaryUserID == primaryUserID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDelegationRepo) ListDelegationsByCaretaker(ctx context.Context, caretakerID uuid.UUID) ([]model.ActiveDelegation, error) {
	var out []model.ActiveDelegation
	for _, d := range r.delegations {
		if d.CaretakerID == caretakerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDelegationRepo) ListAllActiveDelegations(ctx context.Context) ([]model.ActiveDelegation, error) {
	var out []model.ActiveDelegation
	for _, d := range r.delegations {
		out = append(out, *d)
	}
	return out, nil
}

func (r *fakeDelegationRepo) UpdateActiveDelegation(ctx context.Context, d *model.ActiveDelegation) error {
	r.delegations[d.ID] = d
	return nil
}

func (r *fakeDelegationRepo) DeleteActiveDelegation(ctx context.Context, id uuid.UUID) error {
	delete(r.delegations, id)
	return nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	if action == "" {
		return r.entries, int64(len(r.entries)), nil
	}
	var out []model.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- Fixture ---

type fixture struct {
	svc        DelegationService
	delegation *fakeDelegationRepo
	audit      *fakeAuditRepo
	users      *fakeUserRepo
}

func newFixture(users ...*model.User) *fixture {
	delegationRepo := newFakeDelegationRepo()
	auditRepo := &fakeAuditRepo{}
	userRepo := newFakeUserRepo(users...)
	svc := NewDelegationService(delegationRepo, userRepo, auditRepo, fakeTxManager{}, nil, cache.NewInvalidator(nil, ""))
	return &fixture{svc: svc, delegation: delegationRepo, audit: auditRepo, users: userRepo}
}

func testUser(name string) *model.User {
	return &model.User{ID: uuid.New(), Username: name, DisplayName: name, Email: name + "@example.com"}
}

func futureDate(days int) *time.Time {
	d := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	return &d
}

// --- Tests ---

func TestSubmitRequest(t *testing.T) {
	primary := testUser("primary")
	caretaker := testUser("caretaker")

	t.Run("creates pending request with audit entry", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		actor := caretaking.Viewer{ID: primary.ID}

		resp, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: primary.ID.String(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(14),
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, model.RequestPending, resp.Status)
		assert.Equal(t, []string{"cancel"}, resp.AvailableActions)
		assert.Equal(t, []string{model.ActionSubmitDelegationRequest}, f.audit.actions())
	})

	t.Run("rejects missing end date for leave", func(t *testing.T) {
		f := newFixture(primary, caretaker)

		_, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: primary.ID.String(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
		}, caretaking.Viewer{ID: primary.ID})

		v, ok := caretaking.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "end_date", v.Field)
	})

	t.Run("rejects caretaker already in the primary user's chain", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		// primary is already caretaker for the proposed user
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
			PrimaryUserID: caretaker.ID,
			CaretakerID:   primary.ID,
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(30),
			RequestID:     uuid.New(),
		}))

		_, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: primary.ID.String(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(14),
		}, caretaking.Viewer{ID: primary.ID})

		assert.ErrorIs(t, err, caretaking.ErrChainConflict)
	})

	t.Run("rejects primary user who already has a delegation", func(t *testing.T) {
		other := testUser("other")
		f := newFixture(primary, caretaker, other)
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
			PrimaryUserID: primary.ID,
			CaretakerID:   other.ID,
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(30),
			RequestID:     uuid.New(),
		}))

		_, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: primary.ID.String(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(14),
		}, caretaking.Viewer{ID: primary.ID})

		assert.ErrorIs(t, err, caretaking.ErrDuplicateActiveDelegation)
	})

	t.Run("superuser immediate approval materializes the delegation", func(t *testing.T) {
		admin := testUser("admin")
		admin.IsSuperuser = true
		f := newFixture(primary, caretaker, admin)

		resp, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID:      primary.ID.String(),
			Caretakers:         []string{caretaker.ID.String()},
			Reason:             model.ReasonResignation,
			ApproveImmediately: true,
		}, caretaking.Viewer{ID: admin.ID, IsSuperuser: true})
		require.NoError(t, err)

		assert.Equal(t, model.RequestApproved, resp.Status)
		assert.Len(t, f.delegation.delegations, 1)
		assert.Equal(t, []string{model.ActionSubmitDelegationRequest, model.ActionAdminOverrideApprove}, f.audit.actions())
	})

	t.Run("immediate approval flag is ignored for regular users", func(t *testing.T) {
		f := newFixture(primary, caretaker)

		resp, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID:      primary.ID.String(),
			Caretakers:         []string{caretaker.ID.String()},
			Reason:             model.ReasonLeave,
			EndDate:            futureDate(14),
			ApproveImmediately: true,
		}, caretaking.Viewer{ID: primary.ID})
		require.NoError(t, err)

		assert.Equal(t, model.RequestPending, resp.Status)
		assert.Empty(t, f.delegation.delegations)
	})

	t.Run("rejects unknown primary user", func(t *testing.T) {
		f := newFixture(caretaker)

		_, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: uuid.NewString(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(14),
		}, caretaking.Viewer{ID: caretaker.ID})

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestApplyTransition(t *testing.T) {
	primary := testUser("primary")
	caretaker := testUser("caretaker")

	submit := func(t *testing.T, f *fixture) DelegationRequestResponse {
		t.Helper()
		resp, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: primary.ID.String(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(14),
		}, caretaking.Viewer{ID: primary.ID})
		require.NoError(t, err)
		return resp
	}

	t.Run("caretaker approves and the delegation is created", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		resp, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionApprove, caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)

		assert.Equal(t, model.RequestApproved, resp.Status)
		require.Len(t, f.delegation.delegations, 1)
		for _, d := range f.delegation.delegations {
			assert.Equal(t, primary.ID, d.PrimaryUserID)
			assert.Equal(t, caretaker.ID, d.CaretakerID)
		}
		assert.Contains(t, f.audit.actions(), model.ActionApproveDelegationRequest)
	})

	t.Run("requester cannot approve their own request", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		_, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionApprove, caretaking.Viewer{ID: primary.ID})
		assert.ErrorIs(t, err, caretaking.ErrUnauthorized)
	})

	t.Run("requester cancels", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		resp, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionCancel, caretaking.Viewer{ID: primary.ID})
		require.NoError(t, err)
		assert.Equal(t, model.RequestCancelled, resp.Status)
		assert.Empty(t, f.delegation.delegations)
	})

	t.Run("uninvolved user is denied", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		_, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionReject, caretaking.Viewer{ID: uuid.New()})
		assert.ErrorIs(t, err, caretaking.ErrUnauthorized)
	})

	t.Run("terminal request cannot transition again", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		_, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionReject, caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)

		_, err = f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionApprove, caretaking.Viewer{ID: caretaker.ID})
		assert.ErrorIs(t, err, caretaking.ErrInvalidTransition)
	})

	t.Run("approval fails when a competing delegation won", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		// another delegation for the primary user lands first
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
			PrimaryUserID: primary.ID,
			CaretakerID:   uuid.New(),
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(30),
			RequestID:     uuid.New(),
		}))

		_, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionApprove, caretaking.Viewer{ID: caretaker.ID})
		assert.ErrorIs(t, err, caretaking.ErrDuplicateActiveDelegation)
	})

	t.Run("approval sweeps an expired leftover delegation", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		req := submit(t, f)

		expired := time.Now().Add(-24 * time.Hour)
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
			PrimaryUserID: primary.ID,
			CaretakerID:   uuid.New(),
			Reason:        model.ReasonLeave,
			EndDate:       &expired,
			RequestID:     uuid.New(),
		}))

		resp, err := f.svc.ApplyTransition(context.Background(), req.ID, caretaking.TransitionApprove, caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)
		assert.Equal(t, model.RequestApproved, resp.Status)
		require.Len(t, f.delegation.delegations, 1)
		for _, d := range f.delegation.delegations {
			assert.Equal(t, caretaker.ID, d.CaretakerID)
		}
	})

	t.Run("unknown request id is not found", func(t *testing.T) {
		f := newFixture(primary, caretaker)

		_, err := f.svc.ApplyTransition(context.Background(), uuid.NewString(), caretaking.TransitionApprove, caretaking.Viewer{ID: caretaker.ID})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRemoveActiveDelegation(t *testing.T) {
	primary := testUser("primary")
	caretaker := testUser("caretaker")

	seed := func(t *testing.T, f *fixture) uuid.UUID {
		t.Helper()
		d := &model.ActiveDelegation{
			PrimaryUserID: primary.ID,
			CaretakerID:   caretaker.ID,
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(30),
			RequestID:     uuid.New(),
		}
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), d))
		return d.ID
	}

	t.Run("caretaker removes their own delegation", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f)

		err := f.svc.RemoveActiveDelegation(context.Background(), id.String(), caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)
		assert.Empty(t, f.delegation.delegations)
		assert.Equal(t, []string{model.ActionRemoveActiveDelegation}, f.audit.actions())
	})

	t.Run("superuser removes any delegation", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f)

		err := f.svc.RemoveActiveDelegation(context.Background(), id.String(), caretaking.Viewer{ID: uuid.New(), IsSuperuser: true})
		require.NoError(t, err)
		assert.Empty(t, f.delegation.delegations)
	})

	t.Run("primary user cannot remove it", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f)

		err := f.svc.RemoveActiveDelegation(context.Background(), id.String(), caretaking.Viewer{ID: primary.ID})
		assert.ErrorIs(t, err, caretaking.ErrUnauthorized)
		assert.Len(t, f.delegation.delegations, 1)
	})
}

func TestExtendActiveDelegation(t *testing.T) {
	primary := testUser("primary")
	caretaker := testUser("caretaker")

	seed := func(t *testing.T, f *fixture, endDate *time.Time) uuid.UUID {
		t.Helper()
		d := &model.ActiveDelegation{
			PrimaryUserID: primary.ID,
			CaretakerID:   caretaker.ID,
			Reason:        model.ReasonLeave,
			EndDate:       endDate,
			RequestID:     uuid.New(),
		}
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), d))
		return d.ID
	}

	t.Run("caretaker extends their own delegation", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f, futureDate(14))
		newEnd := *futureDate(30)

		resp, err := f.svc.ExtendActiveDelegation(context.Background(), id.String(), newEnd, caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)

		require.NotNil(t, resp.EndDate)
		assert.Equal(t, newEnd.Format(time.RFC3339), *resp.EndDate)
		stored := f.delegation.delegations[id]
		require.NotNil(t, stored.EndDate)
		assert.True(t, stored.EndDate.Equal(newEnd))
		assert.Equal(t, []string{model.ActionExtendActiveDelegation}, f.audit.actions())
	})

	t.Run("superuser extends any delegation", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f, futureDate(14))

		_, err := f.svc.ExtendActiveDelegation(context.Background(), id.String(), *futureDate(30), caretaking.Viewer{ID: uuid.New(), IsSuperuser: true})
		require.NoError(t, err)
	})

	t.Run("primary user cannot extend it", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f, futureDate(14))

		_, err := f.svc.ExtendActiveDelegation(context.Background(), id.String(), *futureDate(30), caretaking.Viewer{ID: primary.ID})
		assert.ErrorIs(t, err, caretaking.ErrUnauthorized)
	})

	t.Run("rejects a date before the current end date", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f, futureDate(30))

		_, err := f.svc.ExtendActiveDelegation(context.Background(), id.String(), *futureDate(14), caretaking.Viewer{ID: caretaker.ID})
		v, ok := caretaking.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "end_date", v.Field)
	})

	t.Run("open-ended delegation gains an end date", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		id := seed(t, f, nil)
		newEnd := *futureDate(7)

		resp, err := f.svc.ExtendActiveDelegation(context.Background(), id.String(), newEnd, caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)
		require.NotNil(t, resp.EndDate)
		assert.Equal(t, newEnd.Format(time.RFC3339), *resp.EndDate)
	})

	t.Run("unknown delegation id is not found", func(t *testing.T) {
		f := newFixture(primary, caretaker)

		_, err := f.svc.ExtendActiveDelegation(context.Background(), uuid.NewString(), *futureDate(30), caretaking.Viewer{ID: caretaker.ID})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestListAdminTasks(t *testing.T) {
	primary := testUser("primary")
	caretaker := testUser("caretaker")

	t.Run("denied for regular users", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		_, _, err := f.svc.ListAdminTasks(context.Background(), caretaking.Viewer{ID: primary.ID}, 1, 20)
		assert.ErrorIs(t, err, caretaking.ErrUnauthorized)
	})

	t.Run("returns pending requests with override action", func(t *testing.T) {
		f := newFixture(primary, caretaker)
		_, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
			PrimaryUserID: primary.ID.String(),
			Caretakers:    []string{caretaker.ID.String()},
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(14),
		}, caretaking.Viewer{ID: primary.ID})
		require.NoError(t, err)

		tasks, total, err := f.svc.ListAdminTasks(context.Background(), caretaking.Viewer{ID: uuid.New(), IsSuperuser: true}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, tasks, 1)
		assert.Equal(t, []string{"approve_override", "cancel"}, tasks[0].AvailableActions)
	})
}

func TestEligibleCaretakers(t *testing.T) {
	actor := testUser("actor")
	free := testUser("free")
	covered := testUser("covered")
	dependent := testUser("dependent")

	f := newFixture(actor, free, covered, dependent)

	// covered already has a caretaker; actor is caretaker for dependent
	require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
		PrimaryUserID: covered.ID,
		CaretakerID:   free.ID,
		Reason:        model.ReasonLeave,
		EndDate:       futureDate(30),
		RequestID:     uuid.New(),
	}))
	require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
		PrimaryUserID: dependent.ID,
		CaretakerID:   actor.ID,
		Reason:        model.ReasonLeave,
		EndDate:       futureDate(30),
		RequestID:     uuid.New(),
	}))

	users, _, err := f.svc.EligibleCaretakers(context.Background(), caretaking.Viewer{ID: actor.ID}, "", 1, 20)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, u := range users {
		ids[u.ID] = true
	}
	assert.True(t, ids[free.ID.String()])
	assert.False(t, ids[actor.ID.String()], "self is excluded")
	assert.False(t, ids[covered.ID.String()], "users with a caretaker are excluded")
	assert.False(t, ids[dependent.ID.String()], "chain members are excluded")
}

func TestEligibleCaretakersPagination(t *testing.T) {
	actor := testUser("actor")
	all := []*model.User{actor}
	for i := 0; i < 3; i++ {
		all = append(all, testUser("free"+string(rune('a'+i))))
	}
	coveredA := testUser("covered-a")
	coveredB := testUser("covered-b")
	guardian := testUser("guardian")
	all = append(all, coveredA, coveredB, guardian)

	f := newFixture(all...)

	// two ineligible users in the pool; their exclusion must not leave
	// holes in the pages or inflate the total
	for _, covered := range []*model.User{coveredA, coveredB} {
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), &model.ActiveDelegation{
			PrimaryUserID: covered.ID,
			CaretakerID:   guardian.ID,
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(30),
			RequestID:     uuid.New(),
		}))
	}

	// eligible pool: freea, freeb, freec, guardian
	page1, total, err := f.svc.EligibleCaretakers(context.Background(), caretaking.Viewer{ID: actor.ID}, "", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page1, 3)

	page2, total, err := f.svc.EligibleCaretakers(context.Background(), caretaking.Viewer{ID: actor.ID}, "", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page2, 1)

	page3, total, err := f.svc.EligibleCaretakers(context.Background(), caretaking.Viewer{ID: actor.ID}, "", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Empty(t, page3)
}

func TestCheckCaretakerStatus(t *testing.T) {
	primary := testUser("primary")
	caretaker := testUser("caretaker")

	f := newFixture(primary, caretaker)
	_, err := f.svc.SubmitRequest(context.Background(), SubmitRequestDTO{
		PrimaryUserID: primary.ID.String(),
		Caretakers:    []string{caretaker.ID.String()},
		Reason:        model.ReasonLeave,
		EndDate:       futureDate(14),
	}, caretaking.Viewer{ID: primary.ID})
	require.NoError(t, err)

	t.Run("requester sees the outgoing request", func(t *testing.T) {
		status, err := f.svc.CheckCaretakerStatus(context.Background(), caretaking.Viewer{ID: primary.ID})
		require.NoError(t, err)
		require.NotNil(t, status.OutgoingRequest)
		assert.Nil(t, status.IncomingRequest)
		assert.Nil(t, status.ActiveDelegation)
	})

	t.Run("caretaker sees the incoming request", func(t *testing.T) {
		status, err := f.svc.CheckCaretakerStatus(context.Background(), caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)
		assert.Nil(t, status.OutgoingRequest)
		require.NotNil(t, status.IncomingRequest)
		assert.Equal(t, []string{"approve", "reject"}, status.IncomingRequest.AvailableActions)
	})

	t.Run("caretaker sees the users they stand in for", func(t *testing.T) {
		other := testUser("other")
		f := newFixture(primary, caretaker, other)
		d := &model.ActiveDelegation{
			PrimaryUserID: other.ID,
			CaretakerID:   caretaker.ID,
			Reason:        model.ReasonLeave,
			EndDate:       futureDate(30),
			RequestID:     uuid.New(),
		}
		require.NoError(t, f.delegation.CreateActiveDelegation(context.Background(), d))

		status, err := f.svc.CheckCaretakerStatus(context.Background(), caretaking.Viewer{ID: caretaker.ID})
		require.NoError(t, err)
		require.Len(t, status.Caretakees, 1)
		assert.Equal(t, d.ID.String(), status.Caretakees[0].ID)

		status, err = f.svc.CheckCaretakerStatus(context.Background(), caretaking.Viewer{ID: primary.ID})
		require.NoError(t, err)
		assert.Empty(t, status.Caretakees)
	})
}

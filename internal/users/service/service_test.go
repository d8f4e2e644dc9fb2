package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"sales_leads_backend/internal/auth/password"
	"sales_leads_backend/internal/events"
	"sales_leads_backend/internal/users/repository"
	"sales_leads_backend/internal/users/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

type fakeRepo struct {
	mu      sync.Mutex
	users   map[int64]repository.User
	perms   map[int64][]repository.Permission
	nextID  int64
	failAll error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: map[int64]repository.User{
			1: {ID: 1, Username: "admin", Email: "admin@localhost", RoleID: 1, Active: true, ServiceIDs: []int64{}},
		},
		perms:  map[int64][]repository.Permission{1: {{ID: 4, Name: "Manage Users"}}},
		nextID: 2,
	}
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (repository.User, error) {
	if f.failAll != nil {
		return repository.User{}, f.failAll
	}
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetByLogin(_ context.Context, login string) (repository.User, error) {
	for _, u := range f.users {
		if u.Active && (u.Username == login || u.Email == login) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeRepo) List(context.Context) ([]repository.User, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []repository.User
	for id := int64(1); id < f.nextID; id++ {
		if u, ok := f.users[id]; ok && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, in repository.UserFields) (repository.User, error) {
	for _, u := range f.users {
		if u.Email == in.Email {
			return repository.User{}, repository.ErrEmailTaken
		}
	}
	for _, id := range in.ServiceIDs {
		if id > 10 {
			return repository.User{}, repository.ErrInvalidReference
		}
	}
	u := repository.User{ID: f.nextID, Username: in.Username, Email: in.Email, PasswordHash: in.PasswordHash,
		RoleID: in.RoleID, Active: true, ServiceIDs: in.ServiceIDs}
	f.users[u.ID] = u
	f.nextID++
	return u, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, in repository.UserFields) (repository.User, error) {
	u, ok := f.users[id]
	if !ok || !u.Active {
		return repository.User{}, repository.ErrNotFound
	}
	u.Username, u.Email, u.RoleID, u.ServiceIDs = in.Username, in.Email, in.RoleID, in.ServiceIDs
	if in.PasswordHash != "" {
		u.PasswordHash = in.PasswordHash
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeRepo) Deactivate(_ context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok || !u.Active {
		return repository.ErrNotFound
	}
	u.Active = false
	f.users[id] = u
	return nil
}

func (f *fakeRepo) SetPassword(_ context.Context, id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeRepo) Permissions(_ context.Context, id int64) ([]repository.Permission, error) {
	return f.perms[id], nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *events.InMemoryBus, *[]events.UserDeactivated) {
	t.Helper()
	repo := newFakeRepo()
	bus := events.NewInMemoryBus(logger.Discard())
	var mu sync.Mutex
	got := &[]events.UserDeactivated{}
	bus.Subscribe(events.UserDeactivated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		*got = append(*got, e.(events.UserDeactivated))
		return nil
	}))
	return New(repo, bus, logger.Discard()), repo, bus, got
}

func TestCreateHashesPasswordAndNormalizes(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	user, err := svc.Create(context.Background(), transport.CreateUserRequest{
		Username:           "  priya ",
		Email:              " Priya@Example.COM ",
		Password:           "Secr3t!pass",
		RoleID:             2,
		AssignedServiceIDs: []int64{4, 2, 4},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Username != "priya" || user.Email != "priya@example.com" {
		t.Fatalf("not normalized: %+v", user)
	}
	if !reflect.DeepEqual(user.AssignedServiceIDs, []int64{2, 4}) {
		t.Fatalf("service set = %v", user.AssignedServiceIDs)
	}
	stored := repo.users[user.ID]
	if err := password.Compare(stored.PasswordHash, "Secr3t!pass"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestCreateTranslatesStoreErrors(t *testing.T) {
	cases := []struct {
		name  string
		email string
		ids   []int64
		kind  apperr.Kind
	}{
		{name: "duplicate email", email: "ADMIN@localhost", kind: apperr.KindConflict},
		{name: "unknown service", email: "new@example.com", ids: []int64{99}, kind: apperr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _, _ := newTestService(t)
			_, err := svc.Create(context.Background(), transport.CreateUserRequest{
				Username: "x", Email: tc.email, Password: "Secr3t!pass", RoleID: 2, AssignedServiceIDs: tc.ids,
			})
			if !apperr.Is(err, tc.kind) {
				t.Fatalf("expected kind %d, got %v", tc.kind, err)
			}
		})
	}
}

func TestUpdateReplacesServiceSetAndKeepsPassword(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, transport.CreateUserRequest{
		Username: "dev", Email: "dev@example.com", Password: "Secr3t!pass", RoleID: 2, AssignedServiceIDs: []int64{1, 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	before := repo.users[created.ID].PasswordHash

	updated, err := svc.Update(ctx, created.ID, transport.UpdateUserRequest{
		Username: "dev", Email: "dev@example.com", RoleID: 2, AssignedServiceIDs: []int64{3},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !reflect.DeepEqual(updated.AssignedServiceIDs, []int64{3}) {
		t.Fatalf("service set = %v", updated.AssignedServiceIDs)
	}
	if repo.users[created.ID].PasswordHash != before {
		t.Fatal("blank password must keep the stored hash")
	}

	if _, err := svc.Update(ctx, 404, transport.UpdateUserRequest{Username: "x", Email: "x@y.z", RoleID: 2}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	svc, repo, bus, got := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, transport.CreateUserRequest{Username: "s", Email: "s@example.com", Password: "Secr3t!pass", RoleID: 2})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Deactivate(ctx, 1, 1); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("self deactivation: %v", err)
	}
	if err := svc.Deactivate(ctx, 1, created.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	bus.Wait()
	if repo.users[created.ID].Active {
		t.Fatal("user still active")
	}
	if _, ok := repo.users[created.ID]; !ok {
		t.Fatal("user must be kept, not removed")
	}
	if len(*got) != 1 || (*got)[0].UserID != created.ID || (*got)[0].ByID != 1 {
		t.Fatalf("events = %+v", *got)
	}
	if err := svc.Deactivate(ctx, 1, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second deactivation: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list after deactivation: %v %v", list, err)
	}
	if _, err := svc.Me(ctx, created.ID); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("deactivated caller: %v", err)
	}
}

func TestPermissions(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Permissions(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.RoleID != 1 || len(resp.Permissions) != 1 || resp.Permissions[0].Name != "Manage Users" {
		t.Fatalf("unexpected %+v", resp)
	}
	if _, err := svc.Permissions(ctx, 9); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestStoreFailureIsTransient(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.failAll = errors.New("pool exhausted")
	if _, err := svc.List(context.Background()); !apperr.Is(err, apperr.KindTransient) {
		t.Fatalf("expected transient, got %v", err)
	}
}

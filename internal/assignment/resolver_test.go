package assignment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"
)

// fakeStore keeps active users with their service sets.
type fakeStore struct {
	services    map[int64][]int64 // user id -> service ids
	inactive    map[int64]bool
	err         error
	lookups     int
	sawDeadline bool
}

func (s *fakeStore) FirstActiveOwner(ctx context.Context, serviceTypeID int64) (int64, bool, error) {
	s.lookups++
	_, s.sawDeadline = ctx.Deadline()
	if s.err != nil {
		return 0, false, s.err
	}
	var best int64
	for uid, ids := range s.services {
		if s.inactive[uid] {
			continue
		}
		for _, id := range ids {
			if id == serviceTypeID && (best == 0 || uid < best) {
				best = uid
			}
		}
	}
	return best, best != 0, nil
}

func (s *fakeStore) IsActiveUser(_ context.Context, userID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, known := s.services[userID]
	return known && !s.inactive[userID], nil
}

func ptr(v int64) *int64 { return &v }

func TestResolve(t *testing.T) {
	store := &fakeStore{
		services: map[int64][]int64{
			1: {},
			4: {3, 7},
			7: {3, 5},
			9: {5},
			3: {8},
		},
		inactive: map[int64]bool{3: true},
	}
	r := New(store, 1, time.Second, logger.Discard())

	cases := []struct {
		name    string
		service *int64
		want    int64
	}{
		{name: "lowest id wins", service: ptr(3), want: 4},
		{name: "single match", service: ptr(7), want: 4},
		{name: "another set", service: ptr(5), want: 7},
		{name: "only inactive user matches", service: ptr(8), want: 1},
		{name: "unknown service", service: ptr(999), want: 1},
		{name: "nil service", service: nil, want: 1},
		{name: "zero service", service: ptr(0), want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(context.Background(), tc.service); got != tc.want {
				t.Fatalf("Resolve() = %d, want %d", got, tc.want)
			}
		})
	}
	if !store.sawDeadline {
		t.Fatal("expected lookups to carry a deadline")
	}
}

func TestResolveFallsBackOnStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	r := New(store, 6, 0, logger.Discard())

	if got := r.Resolve(context.Background(), ptr(3)); got != 6 {
		t.Fatalf("Resolve() = %d, want default owner 6", got)
	}
	if store.lookups != 1 {
		t.Fatalf("expected a single lookup, got %d", store.lookups)
	}
}

func TestAssign(t *testing.T) {
	store := &fakeStore{
		services: map[int64][]int64{1: {}, 2: {4}, 5: {}},
		inactive: map[int64]bool{5: true},
	}
	r := New(store, 1, time.Second, logger.Discard())
	ctx := context.Background()

	if got, err := r.Assign(ctx, nil, 4); err != nil || got != 2 {
		t.Fatalf("resolved owner = %d, %v", got, err)
	}
	if got, err := r.Assign(ctx, ptr(1), 4); err != nil || got != 1 {
		t.Fatalf("explicit owner = %d, %v", got, err)
	}

	_, err := r.Assign(ctx, ptr(5), 4)
	if !apperr.Is(err, apperr.KindValidation) || !errors.Is(err, ErrInactiveOwner) {
		t.Fatalf("soft-deleted owner: got %v", err)
	}
	if _, err := r.Assign(ctx, ptr(77), 4); !errors.Is(err, ErrInactiveOwner) {
		t.Fatalf("unknown owner: got %v", err)
	}
}

func TestVerifyDefaultOwner(t *testing.T) {
	store := &fakeStore{services: map[int64][]int64{1: {}}, inactive: map[int64]bool{1: true}}
	if err := New(store, 1, 0, logger.Discard()).VerifyDefaultOwner(context.Background()); !errors.Is(err, ErrInactiveOwner) {
		t.Fatalf("expected ErrInactiveOwner, got %v", err)
	}
	store.inactive = nil
	if err := New(store, 1, 0, logger.Discard()).VerifyDefaultOwner(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFirstActiveOwnerQueryOrdersByID(t *testing.T) {
	q := strings.ToLower(firstActiveOwnerQuery)
	for _, fragment := range []string{"u.active", "order by u.id asc", "limit 1", "user_service_types"} {
		if !strings.Contains(q, fragment) {
			t.Fatalf("query missing %q", fragment)
		}
	}
}

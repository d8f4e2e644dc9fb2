package repository

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"sales_leads_backend/platform/clock"
	"sales_leads_backend/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testPool connects to TEST_DATABASE_URL and applies migrations, or skips.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func sampleFields() LeadFields {
	return LeadFields{
		Name:                "Asha Rao",
		Mobile:              "+919876543210",
		Email:               "asha@example.com",
		City:                "Pune",
		ServiceTypeID:       3,
		IndustryTypeID:      20,
		ContactPreferenceID: 1,
		PreferredDate:       "2024-05-02",
		PreferredTime:       "Morning",
		Requirements:        "Industry: Space Tourism",
		LeadSourceID:        2,
		CheckboxIDs:         []int64{2, 5},
		StatusID:            1,
		LikelihoodID:        1,
		AssignedTo:          1,
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	pool := testPool(t)
	now := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)
	repo := New(pool, clock.Fixed(now), time.Second)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateLeadParams{LeadFields: sampleFields()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, created.ID) })

	if created.CreatedAt != "2024-05-01 12:00:00" || created.UpdatedAt != created.CreatedAt {
		t.Fatalf("unexpected timestamps %q / %q", created.CreatedAt, created.UpdatedAt)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, created) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, created)
	}

	want := sampleFields()
	if !reflect.DeepEqual(LeadFields{
		Name: got.Name, Mobile: got.Mobile, Email: got.Email, City: got.City,
		ServiceTypeID: got.ServiceTypeID, IndustryTypeID: got.IndustryTypeID, ContactPreferenceID: got.ContactPreferenceID,
		PreferredDate: got.PreferredDate, PreferredTime: got.PreferredTime, Requirements: got.Requirements,
		LeadSourceID: got.LeadSourceID, CheckboxIDs: got.CheckboxIDs, StatusID: got.StatusID,
		LikelihoodID: got.LikelihoodID, AssignedTo: got.AssignedTo,
	}, want) {
		t.Fatalf("stored fields differ from draft: %+v", got)
	}
}

func TestDeleteMissingLeadKeepsFollowups(t *testing.T) {
	pool := testPool(t)
	repo := New(pool, clock.System{}, time.Second)
	ctx := context.Background()

	lead, err := repo.Create(ctx, CreateLeadParams{LeadFields: sampleFields()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, lead.ID) })
	if _, err := repo.CreateFollowup(ctx, CreateFollowupParams{
		LeadID: lead.ID, Description: "called", Medium: "Call", AttendedBy: 1, FollowupDate: "2024-05-03 10:00:00",
	}); err != nil {
		t.Fatalf("followup: %v", err)
	}

	if err := repo.Delete(ctx, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	items, err := repo.ListFollowups(ctx, lead.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("followups changed: %v %v", items, err)
	}

	if err := repo.Delete(ctx, lead.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, lead.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected lead gone, got %v", err)
	}
	if items, _ := repo.ListFollowups(ctx, lead.ID); len(items) != 0 {
		t.Fatalf("followups survived cascading delete: %v", items)
	}
}

func TestPatchRejectsUnknownStatus(t *testing.T) {
	pool := testPool(t)
	repo := New(pool, clock.System{}, time.Second)
	ctx := context.Background()

	lead, err := repo.Create(ctx, CreateLeadParams{LeadFields: sampleFields()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, lead.ID) })

	if _, err := repo.UpdateStatus(ctx, lead.ID, 999); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if _, err := repo.UpdateLikelihood(ctx, -1, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	patched, err := repo.UpdateStatus(ctx, lead.ID, 2)
	if err != nil || patched.StatusID != 2 {
		t.Fatalf("patch: %+v %v", patched, err)
	}
}

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sales_leads_backend/internal/categories"
	"sales_leads_backend/internal/email"
	"sales_leads_backend/internal/events"
	leadrepo "sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/notification/partner"
	userrepo "sales_leads_backend/internal/users/repository"
	"sales_leads_backend/platform/logger"
)

type leadStore map[int64]leadrepo.Lead

func (s leadStore) GetByID(_ context.Context, id int64) (leadrepo.Lead, error) {
	l, ok := s[id]
	if !ok {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return l, nil
}

type userStore map[int64]userrepo.User

func (s userStore) GetByID(_ context.Context, id int64) (userrepo.User, error) {
	u, ok := s[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return u, nil
}

type sentMail struct {
	to    string
	leads []email.LeadSummary
}

type testSender struct {
	mu       sync.Mutex
	assigned []sentMail
	digests  []sentMail
	err      error
}

func (s *testSender) SendLeadAssignedEmail(_ context.Context, to string, lead email.LeadSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned = append(s.assigned, sentMail{to: to, leads: []email.LeadSummary{lead}})
	return s.err
}

func (s *testSender) SendLeadsTransferredEmail(_ context.Context, to, _ string, leads []email.LeadSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests = append(s.digests, sentMail{to: to, leads: leads})
	return s.err
}

type queue struct {
	ids []int64
	err error
}

func (q *queue) EnqueuePartnerLead(_ context.Context, id int64) error {
	q.ids = append(q.ids, id)
	return q.err
}

// partnerServer records posted payloads and answers with status.
type partnerServer struct {
	mu     sync.Mutex
	posted []partner.Lead
	status int
}

func (p *partnerServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var lead partner.Lead
	_ = json.NewDecoder(r.Body).Decode(&lead)
	p.mu.Lock()
	p.posted = append(p.posted, lead)
	p.mu.Unlock()
	w.WriteHeader(p.status)
}

var (
	owners = userStore{
		4: {ID: 4, Username: "ravi", Email: "ravi@example.com", Active: true},
		5: {ID: 5, Username: "gone", Email: "gone@example.com", Active: false},
	}
	stored = leadStore{
		10: {ID: 10, Name: "Asha", Mobile: "+919876543210", City: "Pune", ServiceTypeID: 7, LeadSourceID: 1, AssignedTo: 4, CheckboxIDs: []int64{2}},
		11: {ID: 11, Name: "Kabir", ServiceTypeID: 2, LeadSourceID: 1, AssignedTo: 4},
		12: {ID: 12, Name: "Meera", ServiceTypeID: 2, LeadSourceID: 1, AssignedTo: 5},
	}
)

func newModule(t *testing.T, sender email.Sender, partnerURL string) *Module {
	t.Helper()
	reg, err := categories.Default()
	if err != nil {
		t.Fatal(err)
	}
	client := partner.NewClientWithHTTP(partnerURL, time.Second, nil)
	return New(stored, owners, sender, client, reg, logger.Discard())
}

func TestLeadCreatedMailsActiveOwner(t *testing.T) {
	sender := &testSender{}
	m := newModule(t, sender, "")

	err := m.Handle(context.Background(), events.LeadCreated{LeadID: 10, AssignedTo: 4, ServiceTypeID: 7, LeadSourceID: 1, LeadName: "Asha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.assigned) != 1 || sender.assigned[0].to != "ravi@example.com" {
		t.Fatalf("mails = %+v", sender.assigned)
	}
	got := sender.assigned[0].leads[0]
	if got.Service != "Search Engine Optimisation (SEO)" || got.Source != "Website" || got.City != "Pune" {
		t.Fatalf("summary = %+v", got)
	}

	_ = m.Handle(context.Background(), events.LeadCreated{LeadID: 12, AssignedTo: 5})
	_ = m.Handle(context.Background(), events.LeadCreated{LeadID: 13, AssignedTo: 99})
	if len(sender.assigned) != 1 {
		t.Fatal("inactive or unknown owners must not be mailed")
	}
}

func TestMailFailureIsSwallowed(t *testing.T) {
	m := newModule(t, &testSender{err: errors.New("smtp down")}, "")
	if err := m.Handle(context.Background(), events.LeadCreated{LeadID: 10, AssignedTo: 4}); err != nil {
		t.Fatalf("handler must not fail: %v", err)
	}
}

func TestWebsiteFormPostsToPartner(t *testing.T) {
	srv := &partnerServer{status: http.StatusOK}
	ts := httptest.NewServer(srv)
	defer ts.Close()
	m := newModule(t, &testSender{}, ts.URL)

	if err := m.Handle(context.Background(), events.WebsiteFormSubmitted{LeadID: 10}); err != nil {
		t.Fatal(err)
	}
	if len(srv.posted) != 1 {
		t.Fatalf("posted %d leads", len(srv.posted))
	}
	got := srv.posted[0]
	if got.ID != 10 || got.AssignedTo != 4 || got.WebsiteType != 7 || got.MobileNumber != "+919876543210" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestWebsiteFormPartnerFailureIsSwallowed(t *testing.T) {
	ts := httptest.NewServer(&partnerServer{status: http.StatusInternalServerError})
	defer ts.Close()
	m := newModule(t, &testSender{}, ts.URL)

	if err := m.Handle(context.Background(), events.WebsiteFormSubmitted{LeadID: 10}); err != nil {
		t.Fatalf("handler must not fail: %v", err)
	}
	if err := m.NotifyPartner(context.Background(), 10); err == nil {
		t.Fatal("NotifyPartner must report the failure for job retries")
	}
}

func TestWebsiteFormUsesQueueWhenSet(t *testing.T) {
	srv := &partnerServer{status: http.StatusOK}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cases := []struct {
		name       string
		queueErr   error
		wantPosted int
	}{
		{name: "queued", wantPosted: 0},
		{name: "queue down falls back inline", queueErr: errors.New("redis down"), wantPosted: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv.posted = nil
			q := &queue{err: tc.queueErr}
			m := newModule(t, &testSender{}, ts.URL)
			m.SetPartnerQueue(q)

			_ = m.Handle(context.Background(), events.WebsiteFormSubmitted{LeadID: 11})
			if len(q.ids) != 1 || q.ids[0] != 11 {
				t.Fatalf("queued = %v", q.ids)
			}
			if len(srv.posted) != tc.wantPosted {
				t.Fatalf("posted %d, want %d", len(srv.posted), tc.wantPosted)
			}
		})
	}
}

func TestPartnerDisabledSkipsEverything(t *testing.T) {
	q := &queue{}
	m := newModule(t, &testSender{}, "")
	m.SetPartnerQueue(q)
	_ = m.Handle(context.Background(), events.WebsiteFormSubmitted{LeadID: 10})
	if len(q.ids) != 0 {
		t.Fatal("nothing may be queued without a partner url")
	}
}

func TestLeadsTransferredSendsOneDigestPerActiveOwner(t *testing.T) {
	sender := &testSender{}
	m := newModule(t, sender, "")

	err := m.Handle(context.Background(), events.LeadsTransferred{
		Transferred: 3,
		LeadIDs:     []int64{10, 11, 12},
		Owners:      []int64{4, 4, 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.digests) != 1 || sender.digests[0].to != "ravi@example.com" || len(sender.digests[0].leads) != 2 {
		t.Fatalf("digests = %+v", sender.digests)
	}
}

func TestRegisterHandlersSubscribesThroughBus(t *testing.T) {
	sender := &testSender{}
	m := newModule(t, sender, "")
	bus := events.NewInMemoryBus(logger.Discard())
	m.RegisterHandlers(bus)

	bus.Publish(context.Background(), events.LeadCreated{LeadID: 10, AssignedTo: 4})
	bus.Publish(context.Background(), events.LeadDeleted{LeadID: 10, DeletedBy: 1})
	bus.Wait()

	if len(sender.assigned) != 1 {
		t.Fatalf("mails = %d", len(sender.assigned))
	}
}

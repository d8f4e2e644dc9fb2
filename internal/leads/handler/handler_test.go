package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"sales_leads_backend/internal/adapters/storage"
	"sales_leads_backend/internal/leads/access"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type stubLeads struct {
	leads   map[int64]repository.Lead
	deleted []int64
	raw     []byte
}

func (s *stubLeads) Create(_ context.Context, raw []byte) (repository.Lead, error) {
	s.raw = raw
	if !json.Valid(raw) {
		return repository.Lead{}, apperr.BadRequest("invalid request body")
	}
	return repository.Lead{ID: 10, Name: "Asha", AssignedTo: 7}, nil
}

func (s *stubLeads) GetByID(_ context.Context, id int64) (repository.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (s *stubLeads) Update(_ context.Context, id int64, req transport.UpdateLeadRequest) (repository.Lead, error) {
	lead := s.leads[id]
	lead.Name = req.Name
	return lead, nil
}

func (s *stubLeads) UpdateStatus(_ context.Context, id, statusID int64) (repository.Lead, error) {
	lead := s.leads[id]
	lead.StatusID = statusID
	return lead, nil
}

func (s *stubLeads) UpdateLikelihood(_ context.Context, id, likelihoodID int64) (repository.Lead, error) {
	lead := s.leads[id]
	lead.LikelihoodID = likelihoodID
	return lead, nil
}

func (s *stubLeads) Delete(_ context.Context, id, _ int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

// stubVisibility knows two users: 1 is an admin, 7 a scoped user serving service 3.
type stubVisibility struct {
	policies []access.Policy
}

func (v *stubVisibility) Requester(_ context.Context, userID int64) (access.Requester, error) {
	switch userID {
	case 1:
		return access.Requester{UserID: 1, Role: access.RoleAdmin}, nil
	case 7:
		return access.Requester{UserID: 7, Role: access.RoleScoped, AssignedServiceIDs: []int64{3}}, nil
	}
	return access.Requester{}, apperr.Unauthorized("account is not active")
}

func (v *stubVisibility) List(_ context.Context, req access.Requester, policy access.Policy, _ access.Filters) ([]repository.Lead, error) {
	v.policies = append(v.policies, policy)
	if (policy == access.PolicyAll || policy == access.PolicyCurrentPeriod) && !req.IsAdmin() {
		return nil, apperr.Forbidden("view requires admin role")
	}
	return []repository.Lead{{ID: 1, AssignedTo: req.UserID}}, nil
}

func (v *stubVisibility) Recent(ctx context.Context, req access.Requester, policy access.Policy) ([]repository.Lead, error) {
	return v.List(ctx, req, policy, access.Filters{})
}

func (v *stubVisibility) CountsByStatus(_ context.Context, _ access.Requester, _ access.Policy, _ access.Filters) (access.StatusCounts, error) {
	return access.StatusCounts{Statuses: []access.Count{{ID: 1, Name: "New", Count: 2}, {ID: 2, Name: "Contacted", Count: 0}}, Total: 2}, nil
}

func (v *stubVisibility) SourceShares(_ context.Context, _ access.Requester, _ access.Policy, _ access.Filters) ([]access.SourceShare, error) {
	return []access.SourceShare{{ID: 1, Name: "Website", Count: 1, Percent: 100}}, nil
}

func (v *stubVisibility) CanView(req access.Requester, policy access.Policy, lead repository.Lead) error {
	scope := access.Scope{Policy: policy, UserID: req.UserID, ServiceIDs: req.AssignedServiceIDs}
	if !scope.Matches(lead) {
		return apperr.Forbidden("lead is outside your scope")
	}
	return nil
}

type stubFollowups struct {
	created []transport.CreateFollowupForm
	docs    []string
}

func (s *stubFollowups) Create(_ context.Context, actorID int64, form transport.CreateFollowupForm, doc *storage.Document) (repository.Followup, error) {
	s.created = append(s.created, form)
	if doc != nil {
		s.docs = append(s.docs, doc.FileName+"|"+doc.ContentType)
	}
	return repository.Followup{ID: 1, LeadID: form.LeadID, AttendedBy: actorID, Description: form.Description}, nil
}

func (s *stubFollowups) ListForLead(_ context.Context, leadID int64) (repository.Lead, []transport.FollowupResponse, error) {
	return repository.Lead{ID: leadID}, []transport.FollowupResponse{{ID: 1, LeadID: leadID}}, nil
}

func (s *stubFollowups) Today(_ context.Context, userID int64) (string, []transport.FollowupResponse, error) {
	return "2024-05-03", []transport.FollowupResponse{{ID: 4, AttendedBy: userID}}, nil
}

type fixture struct {
	engine     *gin.Engine
	leads      *stubLeads
	visibility *stubVisibility
	followups  *stubFollowups
}

func newFixture() fixture {
	gin.SetMode(gin.TestMode)
	f := fixture{
		leads: &stubLeads{leads: map[int64]repository.Lead{
			5: {ID: 5, AssignedTo: 7, ServiceTypeID: 9},
			6: {ID: 6, AssignedTo: 2, ServiceTypeID: 3},
			8: {ID: 8, AssignedTo: 2, ServiceTypeID: 9},
		}},
		visibility: &stubVisibility{},
		followups:  &stubFollowups{},
	}
	h := New(f.leads, f.followups, f.visibility, validator.New(), 1<<20)

	engine := gin.New()
	// Tests authenticate through headers instead of signed tokens.
	api := engine.Group("/api/v1", func(c *gin.Context) {
		var uid, role int64
		switch c.GetHeader("X-Test-User") {
		case "admin":
			uid, role = 1, httpkit.RoleAdmin
		case "scoped":
			uid, role = 7, httpkit.RoleScoped
		default:
			c.Next()
			return
		}
		c.Set(httpkit.ContextUserIDKey, uid)
		c.Set(httpkit.ContextRoleKey, role)
		c.Next()
	})
	h.RegisterRoutes(api.Group("/leads"))
	h.RegisterFollowupRoutes(api.Group("/followups"))
	f.engine = engine
	return f
}

func (f fixture) do(method, path, user string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) httpkit.Envelope {
	t.Helper()
	var env httpkit.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestListPicksDefaultView(t *testing.T) {
	cases := []struct {
		name       string
		user       string
		query      string
		wantStatus int
		wantView   access.Policy
	}{
		{name: "admin default", user: "admin", wantStatus: http.StatusOK, wantView: access.PolicyAll},
		{name: "scoped default", user: "scoped", wantStatus: http.StatusOK, wantView: access.PolicyOwnedOnly},
		{name: "scoped service view", user: "scoped", query: "?view=owned_or_service", wantStatus: http.StatusOK, wantView: access.PolicyOwnedOrServiceMatched},
		{name: "scoped asks for all", user: "scoped", query: "?view=all", wantStatus: http.StatusForbidden, wantView: access.PolicyAll},
		{name: "unknown view", user: "admin", query: "?view=everything", wantStatus: http.StatusBadRequest},
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(http.MethodGet, "/api/v1/leads"+tc.query, tc.user, nil, "")
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantView == "" {
				if len(f.visibility.policies) != 0 {
					t.Fatalf("store must not be queried, got %v", f.visibility.policies)
				}
				return
			}
			if len(f.visibility.policies) != 1 || f.visibility.policies[0] != tc.wantView {
				t.Fatalf("policies = %v, want [%s]", f.visibility.policies, tc.wantView)
			}
		})
	}
}

func TestCreatePassesRawBody(t *testing.T) {
	f := newFixture()
	body := []byte(`{"name":"Asha","serviceTypeId":3,"industryTypeId":2}`)

	rec := f.do(http.MethodPost, "/api/v1/leads", "scoped", body, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if string(f.leads.raw) != string(body) {
		t.Fatalf("raw body = %q", f.leads.raw)
	}

	rec = f.do(http.MethodPost, "/api/v1/leads", "scoped", []byte(`{`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d", rec.Code)
	}
}

func TestSingleLeadVisibility(t *testing.T) {
	cases := []struct {
		name string
		user string
		path string
		want int
	}{
		{name: "admin sees any lead", user: "admin", path: "/api/v1/leads/8", want: http.StatusOK},
		{name: "scoped sees own lead", user: "scoped", path: "/api/v1/leads/5", want: http.StatusOK},
		{name: "scoped sees service lead", user: "scoped", path: "/api/v1/leads/6", want: http.StatusOK},
		{name: "scoped denied other lead", user: "scoped", path: "/api/v1/leads/8", want: http.StatusForbidden},
		{name: "missing lead", user: "admin", path: "/api/v1/leads/99", want: http.StatusNotFound},
		{name: "bad id", user: "admin", path: "/api/v1/leads/abc", want: http.StatusBadRequest},
		{name: "followups of denied lead", user: "scoped", path: "/api/v1/leads/8/followups", want: http.StatusForbidden},
		{name: "followups of own lead", user: "scoped", path: "/api/v1/leads/5/followups", want: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newFixture().do(http.MethodGet, tc.path, tc.user, nil, "")
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestPatchStatusValidatesBody(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPatch, "/api/v1/leads/5/status", "scoped", []byte(`{"statusId":0}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero status: status = %d", rec.Code)
	}

	rec = f.do(http.MethodPatch, "/api/v1/leads/5/status", "scoped", []byte(`{"statusId":3}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	data := decode(t, rec).Data.(map[string]any)
	if data["statusId"].(float64) != 3 {
		t.Fatalf("unexpected body %v", data)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newFixture()
	if rec := f.do(http.MethodDelete, "/api/v1/leads/5", "scoped", nil, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("scoped delete: status = %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/v1/leads/5", "admin", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("admin delete: status = %d", rec.Code)
	}
	if len(f.leads.deleted) != 1 || f.leads.deleted[0] != 5 {
		t.Fatalf("deleted = %v", f.leads.deleted)
	}
}

func TestCountsKeepZeroRows(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/api/v1/leads/counts", "admin", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data transport.CountsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data.Statuses) != 2 || body.Data.Statuses[1].Count != 0 || body.Data.Total != 2 {
		t.Fatalf("unexpected counts %+v", body.Data)
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileName, contentType string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="document"; filename="`+fileName+`"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte("%PDF-1.4"))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), w.FormDataContentType()
}

func TestCreateFollowupMultipart(t *testing.T) {
	f := newFixture()
	fields := map[string]string{"leadId": "5", "description": "Called back", "medium": "Phone", "followupDate": "2024-05-03T10:30"}

	body, ct := multipartBody(t, fields, "quote.pdf", "application/pdf")
	rec := f.do(http.MethodPost, "/api/v1/followups", "scoped", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if len(f.followups.docs) != 1 || f.followups.docs[0] != "quote.pdf|application/pdf" {
		t.Fatalf("document not forwarded: %v", f.followups.docs)
	}

	fields["leadId"] = "8"
	body, ct = multipartBody(t, fields, "", "")
	if rec := f.do(http.MethodPost, "/api/v1/followups", "scoped", body, ct); rec.Code != http.StatusForbidden {
		t.Fatalf("lead outside scope: status = %d", rec.Code)
	}

	fields["leadId"] = "5"
	fields["followupDate"] = "tomorrow"
	body, ct = multipartBody(t, fields, "", "")
	if rec := f.do(http.MethodPost, "/api/v1/followups", "scoped", body, ct); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d", rec.Code)
	}
	if len(f.followups.created) != 1 {
		t.Fatalf("created = %d, want 1", len(f.followups.created))
	}
}

func TestTodayFollowups(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/api/v1/followups/today", "scoped", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"day":"2024-05-03"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

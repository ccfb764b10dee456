package courses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tenantedu/campus/internal/http/middleware"
	"github.com/tenantedu/campus/pkg/domain"
	"github.com/tenantedu/campus/pkg/repository"
)

type fakeCourseStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.Course
	created []*domain.Course
}

func (s *fakeCourseStore) CreateTx(ctx context.Context, q repository.Querier, course *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, course)
	return nil
}

func (s *fakeCourseStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Course, error) {
	course, ok := s.byID[id]
	if !ok || course.TenantID != tenantID {
		return nil, domain.ErrCourseNotFound
	}
	return course, nil
}

func (s *fakeCourseStore) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	return false, nil
}

func (s *fakeCourseStore) List(ctx context.Context, tenantID uuid.UUID, publishedOnly bool, limit, offset int) ([]*domain.Course, error) {
	return nil, nil
}

func (s *fakeCourseStore) Update(ctx context.Context, course *domain.Course) error {
	return nil
}

func (s *fakeCourseStore) SoftDeleteTx(ctx context.Context, q repository.Querier, tenantID, id uuid.UUID) error {
	return nil
}

type fakeMaterialStore struct {
	created []*domain.Material
}

func (s *fakeMaterialStore) CreateTx(ctx context.Context, q repository.Querier, m *domain.Material) error {
	s.created = append(s.created, m)
	return nil
}

func (s *fakeMaterialStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Material, error) {
	return nil, fmt.Errorf("material not found")
}

func (s *fakeMaterialStore) ListByCourse(ctx context.Context, tenantID, courseID uuid.UUID) ([]*domain.Material, error) {
	return nil, nil
}

func (s *fakeMaterialStore) DeleteTx(ctx context.Context, q repository.Querier, tenantID, id uuid.UUID) error {
	return nil
}

// fakeQuotaStore admits or rejects through the same entitlement
// predicates the conditional UPDATEs encode, serialized by a mutex the
// way row locks serialize the real counters.
type fakeQuotaStore struct {
	mu          sync.Mutex
	courseCount int
	storageUsed int64
}

func (s *fakeQuotaStore) IncrementCourseCountTx(ctx context.Context, q repository.Querier, id uuid.UUID, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ents := domain.Entitlements{MaxCourses: limit}
	if !ents.CanAddCourse(s.courseCount) {
		return domain.ErrCourseLimitReached
	}
	s.courseCount++
	return nil
}

func (s *fakeQuotaStore) DecrementCourseCountTx(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courseCount--
	return nil
}

func (s *fakeQuotaStore) ReserveStorageTx(ctx context.Context, q repository.Querier, id uuid.UUID, bytes, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ents := domain.Entitlements{StorageLimitBytes: limit}
	if !ents.CanUseStorage(s.storageUsed, bytes) {
		return domain.ErrStorageLimitReached
	}
	s.storageUsed += bytes
	return nil
}

func (s *fakeQuotaStore) ReleaseStorageTx(ctx context.Context, q repository.Querier, id uuid.UUID, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storageUsed -= bytes
	return nil
}

func newTestHandler(courses *fakeCourseStore, materials *fakeMaterialStore, quota *fakeQuotaStore) *Handler {
	return &Handler{
		logger:    slog.Default(),
		courses:   courses,
		materials: materials,
		tenants:   quota,
		runTx: func(ctx context.Context, fn func(q repository.Querier) error) error {
			return fn(nil)
		},
	}
}

func courseRequest(t *testing.T, method, target string, body any, tenant *domain.Tenant, user *domain.User) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	r := httptest.NewRequest(method, target, &buf)
	ctx := middleware.WithTenant(r.Context(), tenant)
	ctx = middleware.WithUser(ctx, user)
	return r.WithContext(ctx)
}

func decodeUpgradeBody(t *testing.T, w *httptest.ResponseRecorder) (upgradeRequired bool, currentPlan string) {
	t.Helper()
	var body struct {
		UpgradeRequired bool   `json:"upgrade_required"`
		CurrentPlan     string `json:"current_plan"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.UpgradeRequired, body.CurrentPlan
}

func TestCreate_CourseQuotaBoundary(t *testing.T) {
	instructor := &domain.User{ID: uuid.New(), Role: domain.RoleInstructor, Status: domain.UserStatusActive}
	freeTenant := &domain.Tenant{ID: uuid.New(), Status: domain.TenantStatusActive, Tier: domain.TierFree}
	limit := freeTenant.Entitlements().MaxCourses

	tests := []struct {
		name        string
		courseCount int
		wantStatus  int
		wantCreated int
	}{
		{
			name:        "one slot left",
			courseCount: limit - 1,
			wantStatus:  http.StatusCreated,
			wantCreated: 1,
		},
		{
			name:        "at the limit",
			courseCount: limit,
			wantStatus:  http.StatusPaymentRequired,
			wantCreated: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courses := &fakeCourseStore{}
			quota := &fakeQuotaStore{courseCount: tt.courseCount}
			h := newTestHandler(courses, &fakeMaterialStore{}, quota)

			body := map[string]any{"code": "GO-101", "title": "Intro", "delivery": "online"}
			w := httptest.NewRecorder()
			h.Create(w, courseRequest(t, http.MethodPost, "/v1/courses", body, freeTenant, instructor))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if len(courses.created) != tt.wantCreated {
				t.Errorf("created courses = %d, want %d", len(courses.created), tt.wantCreated)
			}
			if tt.wantStatus == http.StatusPaymentRequired {
				upgrade, plan := decodeUpgradeBody(t, w)
				if !upgrade {
					t.Error("upgrade_required should be true")
				}
				if plan != "free" {
					t.Errorf("current_plan = %q, want %q", plan, "free")
				}
			}
		})
	}
}

func TestCreate_ConcurrentAtBoundary(t *testing.T) {
	instructor := &domain.User{ID: uuid.New(), Role: domain.RoleInstructor, Status: domain.UserStatusActive}
	freeTenant := &domain.Tenant{ID: uuid.New(), Status: domain.TenantStatusActive, Tier: domain.TierFree}
	limit := freeTenant.Entitlements().MaxCourses

	courses := &fakeCourseStore{}
	quota := &fakeQuotaStore{courseCount: limit - 1}
	h := newTestHandler(courses, &fakeMaterialStore{}, quota)

	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := map[string]any{"code": fmt.Sprintf("GO-%d", i), "title": "Intro", "delivery": "online"}
			w := httptest.NewRecorder()
			h.Create(w, courseRequest(t, http.MethodPost, "/v1/courses", body, freeTenant, instructor))
			statuses[i] = w.Code
		}(i)
	}
	wg.Wait()

	var created, rejected int
	for _, code := range statuses {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusPaymentRequired:
			rejected++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 1 || rejected != 1 {
		t.Errorf("got %d created and %d rejected, want exactly one of each", created, rejected)
	}
	if len(courses.created) != 1 {
		t.Errorf("stored courses = %d, want 1", len(courses.created))
	}
	if quota.courseCount != limit {
		t.Errorf("course count = %d, want %d", quota.courseCount, limit)
	}
}

func TestCreate_UpgradeLiftsQuota(t *testing.T) {
	instructor := &domain.User{ID: uuid.New(), Role: domain.RoleInstructor, Status: domain.UserStatusActive}
	tenant := &domain.Tenant{ID: uuid.New(), Status: domain.TenantStatusActive, Tier: domain.TierFree}

	courses := &fakeCourseStore{}
	quota := &fakeQuotaStore{courseCount: tenant.Entitlements().MaxCourses}
	h := newTestHandler(courses, &fakeMaterialStore{}, quota)

	body := map[string]any{"code": "GO-201", "title": "Concurrency", "delivery": "online"}
	w := httptest.NewRecorder()
	h.Create(w, courseRequest(t, http.MethodPost, "/v1/courses", body, tenant, instructor))
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status before upgrade = %d, want %d", w.Code, http.StatusPaymentRequired)
	}

	tenant.Tier = domain.TierStarter
	w = httptest.NewRecorder()
	h.Create(w, courseRequest(t, http.MethodPost, "/v1/courses", body, tenant, instructor))
	if w.Code != http.StatusCreated {
		t.Fatalf("status after upgrade = %d, want %d", w.Code, http.StatusCreated)
	}
	if len(courses.created) != 1 {
		t.Errorf("stored courses = %d, want 1", len(courses.created))
	}
}

func TestAddMaterial_StorageBoundary(t *testing.T) {
	instructor := &domain.User{ID: uuid.New(), Role: domain.RoleInstructor, Status: domain.UserStatusActive}
	tenant := &domain.Tenant{ID: uuid.New(), Status: domain.TenantStatusActive, Tier: domain.TierFree}
	limit := tenant.Entitlements().StorageLimitBytes

	course := &domain.Course{ID: uuid.New(), TenantID: tenant.ID, InstructorID: instructor.ID}

	tests := []struct {
		name       string
		used       int64
		size       int64
		wantStatus int
	}{
		{
			name:       "exact fit",
			used:       limit - 1024,
			size:       1024,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "one byte over",
			used:       limit - 1024,
			size:       1025,
			wantStatus: http.StatusPaymentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courses := &fakeCourseStore{byID: map[uuid.UUID]*domain.Course{course.ID: course}}
			materials := &fakeMaterialStore{}
			quota := &fakeQuotaStore{storageUsed: tt.used}
			h := newTestHandler(courses, materials, quota)

			body := map[string]any{"name": "syllabus.pdf", "size_bytes": tt.size}
			target := "/v1/courses/" + course.ID.String() + "/materials"
			r := courseRequest(t, http.MethodPost, target, body, tenant, instructor)
			r = withCourseID(r, course.ID)
			w := httptest.NewRecorder()
			h.AddMaterial(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			wantCreated := 0
			if tt.wantStatus == http.StatusCreated {
				wantCreated = 1
			}
			if len(materials.created) != wantCreated {
				t.Errorf("created materials = %d, want %d", len(materials.created), wantCreated)
			}
		})
	}
}

func withCourseID(r *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseID", id.String())
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/mailer"
	"github.com/gettruefans/truefans-api/internal/pkg/payments"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
)

type fakeBrandRepository struct {
	mu        sync.Mutex
	brands    map[uint]domain.Brand
	locations map[uint]domain.Location
	nextID    uint
}

func newFakeBrandRepository() *fakeBrandRepository {
	return &fakeBrandRepository{
		brands:    map[uint]domain.Brand{},
		locations: map[uint]domain.Location{},
	}
}

func (r *fakeBrandRepository) Create(_ context.Context, brand domain.Brand) (domain.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	brand.ID = r.nextID
	brand.CreatedAt = time.Now()
	r.brands[brand.ID] = brand
	return brand, nil
}

func (r *fakeBrandRepository) FindByID(_ context.Context, id uint) (domain.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.brands[id]
	if !ok {
		return domain.Brand{}, ErrBrandNotFound
	}
	return b, nil
}

func (r *fakeBrandRepository) FindByOwner(_ context.Context, ownerID uint) ([]domain.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Brand
	for _, b := range r.brands {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeBrandRepository) FindNearby(_ context.Context, point domain.GeoPoint, radiusMeters float64, limit int) ([]domain.NearbyBrand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.NearbyBrand
	for _, b := range r.brands {
		if !b.Location.IsSet() {
			continue
		}
		if d := point.DistanceMeters(b.Location); d <= radiusMeters {
			out = append(out, domain.NearbyBrand{Brand: b, DistanceMeters: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBrandRepository) UpdateProfile(_ context.Context, brand domain.Brand) (domain.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.brands[brand.ID]
	if !ok {
		return domain.Brand{}, ErrBrandNotFound
	}
	brand.Promotion = current.Promotion
	brand.BillingCustomerID = current.BillingCustomerID
	brand.SubscriptionStatus = current.SubscriptionStatus
	r.brands[brand.ID] = brand
	return brand, nil
}

func (r *fakeBrandRepository) UpdatePromotion(_ context.Context, brandID uint, promo domain.Promotion) (domain.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.brands[brandID]
	if !ok {
		return domain.Brand{}, ErrBrandNotFound
	}
	b.Promotion = promo
	r.brands[brandID] = b
	return b, nil
}

func (r *fakeBrandRepository) UpdateBilling(_ context.Context, brandID uint, customerID string, status domain.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.brands[brandID]
	if !ok {
		return ErrBrandNotFound
	}
	b.BillingCustomerID = customerID
	b.SubscriptionStatus = status
	r.brands[brandID] = b
	return nil
}

func (r *fakeBrandRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.brands[id]; !ok {
		return ErrBrandNotFound
	}
	delete(r.brands, id)
	return nil
}

func (r *fakeBrandRepository) CreateLocation(_ context.Context, location domain.Location) (domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	location.ID = r.nextID
	r.locations[location.ID] = location
	return location, nil
}

func (r *fakeBrandRepository) FindLocations(_ context.Context, brandID uint) ([]domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Location
	for _, l := range r.locations {
		if l.BrandID == brandID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeBrandRepository) UpdateLocation(_ context.Context, location domain.Location) (domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.locations[location.ID]
	if !ok || current.BrandID != location.BrandID {
		return domain.Location{}, ErrLocationNotFound
	}
	r.locations[location.ID] = location
	return location, nil
}

func (r *fakeBrandRepository) DeleteLocation(_ context.Context, brandID, locationID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.locations[locationID]
	if !ok || current.BrandID != brandID {
		return ErrLocationNotFound
	}
	delete(r.locations, locationID)
	return nil
}

type fakeTemplateRepository struct {
	mu        sync.Mutex
	templates map[uint]domain.PassTemplate
	nextID    uint
}

func newFakeTemplateRepository() *fakeTemplateRepository {
	return &fakeTemplateRepository{templates: map[uint]domain.PassTemplate{}}
}

func (r *fakeTemplateRepository) Create(_ context.Context, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	tmpl.ID = r.nextID
	tmpl.Active = true
	r.templates[tmpl.ID] = tmpl
	return tmpl, nil
}

func (r *fakeTemplateRepository) FindByID(_ context.Context, id uint) (domain.PassTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.templates[id]
	if !ok {
		return domain.PassTemplate{}, ErrTemplateNotFound
	}
	return t, nil
}

func (r *fakeTemplateRepository) FindByBrand(_ context.Context, brandID uint, activeOnly bool) ([]domain.PassTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.PassTemplate
	for _, t := range r.templates {
		if t.BrandID == brandID && (!activeOnly || t.Active) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTemplateRepository) Update(_ context.Context, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.templates[tmpl.ID]
	if !ok || current.BrandID != tmpl.BrandID {
		return domain.PassTemplate{}, ErrTemplateNotFound
	}
	tmpl.Active = current.Active
	r.templates[tmpl.ID] = tmpl
	return tmpl, nil
}

func (r *fakeTemplateRepository) SetActive(_ context.Context, brandID, id uint, active bool) (domain.PassTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.templates[id]
	if !ok || t.BrandID != brandID {
		return domain.PassTemplate{}, ErrTemplateNotFound
	}
	t.Active = active
	r.templates[id] = t
	return t, nil
}

type fakeDinerRepository struct {
	mu     sync.Mutex
	diners []domain.Diner
}

func (r *fakeDinerRepository) Create(_ context.Context, diner domain.Diner) (domain.Diner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	diner.ID = uint(len(r.diners) + 1)
	diner.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.diners = append(r.diners, diner)
	return diner, nil
}

func (r *fakeDinerRepository) FindByBrand(_ context.Context, brandID uint) ([]domain.Diner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Diner
	for _, d := range r.diners {
		if d.BrandID == brandID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDinerRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.diners {
		if d.ID == id {
			r.diners = append(r.diners[:i], r.diners[i+1:]...)
			return nil
		}
	}
	return ErrDinerNotFound
}

func (r *fakeDinerRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diners)
}

type fakePassRepository struct {
	mu     sync.Mutex
	passes map[string]domain.IssuedPass
	nextID uint
}

func newFakePassRepository() *fakePassRepository {
	return &fakePassRepository{passes: map[string]domain.IssuedPass{}}
}

func (r *fakePassRepository) Create(_ context.Context, pass domain.IssuedPass) (domain.IssuedPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.passes[pass.Serial]; ok {
		return domain.IssuedPass{}, ErrDuplicate
	}
	r.nextID++
	pass.ID = r.nextID
	r.passes[pass.Serial] = pass
	return pass, nil
}

func (r *fakePassRepository) FindBySerial(_ context.Context, serial string) (domain.IssuedPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.passes[serial]
	if !ok {
		return domain.IssuedPass{}, ErrIssuedPassNotFound
	}
	return p, nil
}

func (r *fakePassRepository) FindByBrand(_ context.Context, brandID uint, filter domain.PassFilter) ([]domain.IssuedPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.IssuedPass
	for _, p := range r.passes {
		if p.BrandID != brandID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.DinerPhone != "" && p.DinerPhone != filter.DinerPhone {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePassRepository) FindActiveForDiner(_ context.Context, brandID uint, templateID *uint, phone string, now time.Time) (domain.IssuedPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.passes {
		if p.BrandID == brandID && p.DinerPhone == phone && sameTemplate(p.TemplateID, templateID) && usable(p, now) {
			return p, nil
		}
	}
	return domain.IssuedPass{}, ErrIssuedPassNotFound
}

// usable mirrors the filter the stores apply before recording a visit.
func usable(p domain.IssuedPass, now time.Time) bool {
	return p.IsActive && p.Status == domain.PassActive && !p.IsExpired(now)
}

func sameTemplate(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakePassRepository) SetStatus(_ context.Context, serial string, status domain.PassStatus, active bool) (domain.IssuedPass, error) {
	return r.modify(serial, func(p *domain.IssuedPass) {
		p.Status = status
		p.IsActive = active
	})
}

func (r *fakePassRepository) Commit(_ context.Context, serial, artifactURL string) (domain.IssuedPass, error) {
	return r.modify(serial, func(p *domain.IssuedPass) {
		p.Status = domain.PassActive
		p.IsActive = true
		p.ArtifactURL = artifactURL
	})
}

func (r *fakePassRepository) UpdateCounters(_ context.Context, serial string, u domain.CounterUpdate) (domain.IssuedPass, error) {
	return r.modify(serial, func(p *domain.IssuedPass) {
		if u.Points != nil {
			p.Points = *u.Points
		}
		if u.Visits != nil {
			p.Visits = *u.Visits
		}
		p.Points = max(p.Points+u.PointsDelta, 0)
		p.Visits = max(p.Visits+u.VisitsDelta, 0)
	})
}

func (r *fakePassRepository) RecordVisit(_ context.Context, serial string, brandID uint, now time.Time) (domain.IssuedPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.passes[serial]
	if !ok || p.BrandID != brandID || !usable(p, now) {
		return domain.IssuedPass{}, ErrIssuedPassNotFound
	}
	p.Visits++
	p.LastUsedAt = &now
	r.passes[serial] = p
	return p, nil
}

func (r *fakePassRepository) ExpireDue(_ context.Context, brandID uint, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for serial, p := range r.passes {
		if p.BrandID == brandID && p.Status == domain.PassActive && p.IsExpired(now) {
			p.Status = domain.PassExpired
			p.IsActive = false
			r.passes[serial] = p
			n++
		}
	}
	return n, nil
}

func (r *fakePassRepository) modify(serial string, fn func(p *domain.IssuedPass)) (domain.IssuedPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.passes[serial]
	if !ok {
		return domain.IssuedPass{}, ErrIssuedPassNotFound
	}
	fn(&p)
	r.passes[serial] = p
	return p, nil
}

func (r *fakePassRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.passes)
}

type fakeUserRepository struct {
	mu     sync.Mutex
	users  map[string]domain.User
	nextID uint
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]domain.User{}}
}

func (r *fakeUserRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Email]; ok {
		return domain.User{}, ErrUserEmailExists
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.Email] = user
	return user, nil
}

func (r *fakeUserRepository) FindByID(_ context.Context, id uint) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

func (r *fakeUserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepository) FindStaffByBrand(_ context.Context, brandID uint) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.User
	for _, u := range r.users {
		if u.IsStaffOf(brandID) {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeBuilder records what it was asked to build and fails with err when
// set.
type fakeBuilder struct {
	mu       sync.Mutex
	err      error
	contents []pkpass.Content
}

func (b *fakeBuilder) Build(ctx context.Context, c pkpass.Content) (pkpass.Archive, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.contents = append(b.contents, c)
	if b.err != nil {
		return pkpass.Archive{}, b.err
	}
	if err := ctx.Err(); err != nil {
		return pkpass.Archive{}, errors.Join(pkpass.ErrBuild, err)
	}
	return pkpass.Archive{Data: []byte("pkpass:" + c.SerialNumber)}, nil
}

func (b *fakeBuilder) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *fakeBuilder) last() pkpass.Content {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contents[len(b.contents)-1]
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendPassIssued(ctx context.Context, msg mailer.PassIssued) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return m.Called(ctx, key, contentType, data).Error(0)
}

func (m *mockArtifactStore) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, email, paymentMethodID string) (string, error) {
	args := m.Called(ctx, email, paymentMethodID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, customerID string) (payments.Subscription, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(payments.Subscription), args.Error(1)
}

func (m *mockGateway) GetSubscription(ctx context.Context, id string) (payments.Subscription, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(payments.Subscription), args.Error(1)
}

func (m *mockGateway) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (payments.Subscription, error) {
	args := m.Called(ctx, id, cancel)
	return args.Get(0).(payments.Subscription), args.Error(1)
}

type fakeSubscriptionRepository struct {
	mu   sync.Mutex
	subs map[uint]domain.Subscription
}

func newFakeSubscriptionRepository() *fakeSubscriptionRepository {
	return &fakeSubscriptionRepository{subs: map[uint]domain.Subscription{}}
}

func (r *fakeSubscriptionRepository) Create(_ context.Context, sub domain.Subscription) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub.ID = uint(len(r.subs) + 1)
	r.subs[sub.BrandID] = sub
	return sub, nil
}

func (r *fakeSubscriptionRepository) FindByBrand(_ context.Context, brandID uint) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[brandID]
	if !ok {
		return domain.Subscription{}, ErrSubscriptionNotFound
	}
	return s, nil
}

func (r *fakeSubscriptionRepository) Update(_ context.Context, sub domain.Subscription) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[sub.BrandID] = sub
	return sub, nil
}

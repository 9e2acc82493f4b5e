package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/mailer"
	"github.com/gettruefans/truefans-api/internal/pkg/passid"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type passFixture struct {
	svc       *PassService
	brands    *fakeBrandRepository
	templates *fakeTemplateRepository
	diners    *fakeDinerRepository
	passes    *fakePassRepository
	builder   *fakeBuilder

	owner domain.User
	staff domain.User
	brand domain.Brand
	tmpl  domain.PassTemplate
}

func newPassFixture(t *testing.T, conf PassConfig) *passFixture {
	t.Helper()

	f := &passFixture{
		brands:    newFakeBrandRepository(),
		templates: newFakeTemplateRepository(),
		diners:    &fakeDinerRepository{},
		passes:    newFakePassRepository(),
		builder:   &fakeBuilder{},
		owner:     domain.User{ID: 1, Role: domain.RoleOwner, Email: "owner@tacobros.test"},
	}
	if conf.PublicURL == "" {
		conf.PublicURL = "https://api.truefans.test/"
	}

	ctx := context.Background()
	var err error
	f.brand, err = f.brands.Create(ctx, domain.Brand{
		Name:    "Taco Bros",
		OwnerID: f.owner.ID,
		Wallet: domain.WalletStyling{
			PrimaryColor:   "#E63946",
			SecondaryColor: "#F1FAEE",
			CardBackground: "#1D3557",
			CardTextColor:  "#FFFFFF",
			CustomMessage:  "Thanks for eating with us!",
		},
	})
	require.NoError(t, err)

	f.tmpl, err = f.templates.Create(ctx, domain.PassTemplate{
		BrandID:      f.brand.ID,
		Name:         "Taco Tuesday Club",
		Benefits:     "Free taco on your 5th visit",
		ValidityDays: 30,
		Punches:      5,
	})
	require.NoError(t, err)

	brandID := f.brand.ID
	f.staff = domain.User{ID: 2, Role: domain.RoleStaff, BrandID: &brandID}

	f.svc = NewPassService(f.passes, f.brands, f.templates, f.diners, f.builder, conf)
	f.svc.now = func() time.Time { return testNow }

	return f
}

func (f *passFixture) registration() domain.Registration {
	templateID := f.tmpl.ID
	return domain.Registration{
		Name:       "Maria Lopez",
		Phone:      "555-0100",
		Birthday:   "1990-04-12",
		BrandID:    f.brand.ID,
		TemplateID: &templateID,
	}
}

func TestPassService_Issue_TacoBros(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	pass, artifact, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	assert.True(t, passid.Valid(pass.Serial))
	assert.Equal(t, domain.PassActive, pass.Status)
	assert.True(t, pass.IsActive)
	assert.Equal(t, "Maria Lopez", pass.DinerName)
	assert.Equal(t, 0, pass.Visits)
	assert.Equal(t, testNow.AddDate(0, 0, 30), pass.ExpiresAt)
	assert.Equal(t, "https://api.truefans.test/api/v1/digital-passes/"+pass.Serial+"/wallet", pass.ArtifactURL)

	assert.Equal(t, pass.Serial+".pkpass", artifact.FileName)
	assert.Equal(t, pkpass.ContentType, artifact.ContentType)
	assert.NotEmpty(t, artifact.Data)

	content := f.builder.last()
	assert.Equal(t, pass.Serial, content.SerialNumber)
	assert.Equal(t, "Taco Bros", content.OrganizationName)
	assert.Equal(t, "Taco Tuesday Club", content.Description)
	assert.Equal(t, "#1D3557", content.BackgroundColor)
	assert.Equal(t, "#FFFFFF", content.ForegroundColor)
	assert.Equal(t, "#F1FAEE", content.LabelColor)
	assert.False(t, content.Voided)

	result, err := f.svc.Validate(ctx, f.staff, pass.Serial, 0)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, 1, result.Visits)
	assert.Equal(t, "Maria Lopez", result.Diner.Name)
	assert.Equal(t, "555-0100", result.Diner.Phone)

	stored, err := f.svc.GetPass(ctx, f.owner, pass.Serial)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Visits)
	require.NotNil(t, stored.LastUsedAt)
	assert.Equal(t, testNow, *stored.LastUsedAt)
}

func TestPassService_Issue_DefaultValidity(t *testing.T) {
	f := newPassFixture(t, PassConfig{DefaultValidityDays: 90})

	reg := f.registration()
	reg.TemplateID = nil

	pass, _, err := f.svc.Issue(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(0, 0, 90), pass.ExpiresAt)
	assert.Nil(t, pass.TemplateID)
}

func TestPassService_Issue_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *domain.Registration)
	}{
		{name: "missing name", modify: func(r *domain.Registration) { r.Name = "  " }},
		{name: "missing phone", modify: func(r *domain.Registration) { r.Phone = "" }},
		{name: "bad birthday", modify: func(r *domain.Registration) { r.Birthday = "12/04/1990" }},
		{name: "missing brand", modify: func(r *domain.Registration) { r.BrandID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPassFixture(t, PassConfig{})
			reg := f.registration()
			tt.modify(&reg)

			_, _, err := f.svc.Issue(context.Background(), reg)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, f.diners.count())
			assert.Zero(t, f.passes.count())
		})
	}
}

func TestPassService_Issue_UnresolvedWritesNothing(t *testing.T) {
	t.Run("unknown brand", func(t *testing.T) {
		f := newPassFixture(t, PassConfig{})
		reg := f.registration()
		reg.BrandID = 999

		_, _, err := f.svc.Issue(context.Background(), reg)
		assert.ErrorIs(t, err, ErrBrandNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Zero(t, f.diners.count())
		assert.Zero(t, f.passes.count())
	})

	t.Run("unknown template", func(t *testing.T) {
		f := newPassFixture(t, PassConfig{})
		reg := f.registration()
		missing := uint(999)
		reg.TemplateID = &missing

		_, _, err := f.svc.Issue(context.Background(), reg)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Zero(t, f.diners.count())
		assert.Zero(t, f.passes.count())
	})

	t.Run("inactive template", func(t *testing.T) {
		f := newPassFixture(t, PassConfig{})
		_, err := f.templates.SetActive(context.Background(), f.brand.ID, f.tmpl.ID, false)
		require.NoError(t, err)

		_, _, err = f.svc.Issue(context.Background(), f.registration())
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Zero(t, f.passes.count())
	})

	t.Run("template of another brand", func(t *testing.T) {
		f := newPassFixture(t, PassConfig{})
		other, err := f.brands.Create(context.Background(), domain.Brand{Name: "Burger Barn", OwnerID: 7})
		require.NoError(t, err)

		reg := f.registration()
		reg.BrandID = other.ID

		_, _, err = f.svc.Issue(context.Background(), reg)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Zero(t, f.diners.count())
		assert.Zero(t, f.passes.count())
	})
}

func TestPassService_Issue_UniqueSerials(t *testing.T) {
	f := newPassFixture(t, PassConfig{})

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		reg := f.registration()
		reg.Phone = fmt.Sprintf("555-01%02d", i)

		pass, _, err := f.svc.Issue(context.Background(), reg)
		require.NoError(t, err)
		assert.False(t, seen[pass.Serial], "serial %s issued twice", pass.Serial)
		seen[pass.Serial] = true
	}
}

func TestPassService_Issue_SerialCollision(t *testing.T) {
	f := newPassFixture(t, PassConfig{})

	serials := []string{
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}
	f.svc.newSerial = func() (string, error) {
		s := serials[0]
		serials = serials[1:]
		return s, nil
	}

	first, _, err := f.svc.Issue(context.Background(), f.registration())
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", first.Serial)

	second, _, err := f.svc.Issue(context.Background(), f.registration())
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", second.Serial)

	f.svc.newSerial = func() (string, error) { return "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", nil }
	_, _, err = f.svc.Issue(context.Background(), f.registration())
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 2, f.passes.count())
	assert.Equal(t, 2, f.diners.count())
}

func TestPassService_Issue_BuildFailureThenRegenerate(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	f.builder.fail(fmt.Errorf("%w: zip: short write", pkpass.ErrBuild))

	_, _, err := f.svc.Issue(ctx, f.registration())
	require.Error(t, err)

	var issuanceErr *IssuanceError
	require.ErrorAs(t, err, &issuanceErr)
	assert.True(t, issuanceErr.Retryable())
	assert.ErrorIs(t, err, ErrBuild)

	failed, err := f.passes.FindBySerial(ctx, issuanceErr.Serial)
	require.NoError(t, err)
	assert.Equal(t, domain.PassFailed, failed.Status)
	assert.False(t, failed.IsActive)

	_, err = f.svc.Validate(ctx, f.staff, failed.Serial, 0)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	f.builder.fail(nil)

	artifact, err := f.svc.WalletFile(ctx, failed.Serial, pkpass.PlatformIOS)
	require.NoError(t, err)
	assert.Equal(t, failed.Serial+".pkpass", artifact.FileName)

	regenerated, err := f.passes.FindBySerial(ctx, failed.Serial)
	require.NoError(t, err)
	assert.Equal(t, domain.PassActive, regenerated.Status)
	assert.True(t, regenerated.IsActive)
	assert.NotEmpty(t, regenerated.ArtifactURL)

	_, err = f.svc.WalletFile(ctx, failed.Serial, pkpass.PlatformIOS)
	require.NoError(t, err)
}

func TestPassService_Issue_MissingCredentialsNotRetryable(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	f.builder.fail(fmt.Errorf("%w: cert path not set", pkpass.ErrMissingCredentials))

	_, _, err := f.svc.Issue(context.Background(), f.registration())

	var issuanceErr *IssuanceError
	require.ErrorAs(t, err, &issuanceErr)
	assert.False(t, issuanceErr.Retryable())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestPassService_Issue_Dedupe(t *testing.T) {
	f := newPassFixture(t, PassConfig{DedupeRegistrations: true})
	ctx := context.Background()

	first, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	again, artifact, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)
	assert.Equal(t, first.Serial, again.Serial)
	assert.Equal(t, first.Serial+".pkpass", artifact.FileName)
	assert.Equal(t, 1, f.diners.count())
	assert.Equal(t, 1, f.passes.count())

	reg := f.registration()
	reg.Phone = "555-0199"
	other, _, err := f.svc.Issue(ctx, reg)
	require.NoError(t, err)
	assert.NotEqual(t, first.Serial, other.Serial)
}

func TestPassService_Issue_WithArtifactStore(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	store := &mockArtifactStore{}
	f.svc.WithArtifactStore(store)

	f.svc.newSerial = func() (string, error) { return "0123456789abcdef0123456789abcdef", nil }
	key := "passes/0123456789abcdef0123456789abcdef.pkpass"

	store.On("Put", mock.Anything, key, pkpass.ContentType, mock.Anything).Return(nil).Once()
	store.On("URL", mock.Anything, key).Return("https://r2.test/"+key+"?X-Amz-Signature=abc", nil).Once()

	pass, _, err := f.svc.Issue(context.Background(), f.registration())
	require.NoError(t, err)
	assert.Equal(t, "https://r2.test/"+key+"?X-Amz-Signature=abc", pass.ArtifactURL)
	store.AssertExpectations(t)
}

func TestPassService_Issue_UploadFailure(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	store := &mockArtifactStore{}
	f.svc.WithArtifactStore(store)

	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, _, err := f.svc.Issue(context.Background(), f.registration())

	var issuanceErr *IssuanceError
	require.ErrorAs(t, err, &issuanceErr)
	assert.True(t, issuanceErr.Retryable())
	assert.True(t, passid.Valid(issuanceErr.Serial))

	stored, err := f.passes.FindBySerial(context.Background(), issuanceErr.Serial)
	require.NoError(t, err)
	assert.Equal(t, domain.PassFailed, stored.Status)
	assert.False(t, stored.IsActive)
	assert.Empty(t, stored.ArtifactURL)
}

func TestPassService_Issue_ArchiveDir(t *testing.T) {
	dir := t.TempDir()
	f := newPassFixture(t, PassConfig{ArchiveDir: dir})

	pass, artifact, err := f.svc.Issue(context.Background(), f.registration())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, pass.Serial+".pkpass"))
	require.NoError(t, err)
	assert.Equal(t, artifact.Data, data)
}

func TestPassService_Issue_ArchiveDirUnwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	f := newPassFixture(t, PassConfig{ArchiveDir: blocker})

	_, _, err := f.svc.Issue(context.Background(), f.registration())

	var issuanceErr *IssuanceError
	require.ErrorAs(t, err, &issuanceErr)
	assert.True(t, issuanceErr.Retryable())

	stored, err := f.passes.FindBySerial(context.Background(), issuanceErr.Serial)
	require.NoError(t, err)
	assert.Equal(t, domain.PassFailed, stored.Status)
}

func TestPassService_Issue_Notification(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	notifier := &mockNotifier{}
	f.svc.WithNotifier(notifier)

	reg := f.registration()
	reg.Email = "maria@example.com"

	notifier.On("SendPassIssued", mock.Anything, mock.MatchedBy(func(msg mailer.PassIssued) bool {
		return msg.To == "maria@example.com" && msg.BrandName == "Taco Bros" && msg.DinerName == "Maria Lopez" && msg.DownloadURL != ""
	})).Return("", errors.New("resend: 503")).Once()

	pass, _, err := f.svc.Issue(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, domain.PassActive, pass.Status)
	notifier.AssertExpectations(t)

	reg.Email = ""
	_, _, err = f.svc.Issue(context.Background(), reg)
	require.NoError(t, err)
	notifier.AssertNumberOfCalls(t, "SendPassIssued", 1)
}

func TestPassService_Validate_CrossRestaurant(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	pass, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	otherOwner := domain.User{ID: 7, Role: domain.RoleOwner}
	other, err := f.brands.Create(ctx, domain.Brand{Name: "Burger Barn", OwnerID: otherOwner.ID})
	require.NoError(t, err)
	otherStaff := domain.User{ID: 8, Role: domain.RoleStaff, BrandID: &other.ID}

	_, err = f.svc.Validate(ctx, otherStaff, pass.Serial, 0)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	_, err = f.svc.Validate(ctx, otherStaff, pass.Serial, f.brand.ID)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	_, err = f.svc.Validate(ctx, otherOwner, pass.Serial, other.ID)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	_, err = f.svc.Validate(ctx, otherOwner, pass.Serial, f.brand.ID)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	_, err = f.svc.GetPass(ctx, otherOwner, pass.Serial)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	stored, err := f.passes.FindBySerial(ctx, pass.Serial)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Visits)

	result, err := f.svc.Validate(ctx, f.owner, pass.Serial, f.brand.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Visits)
}

func TestPassService_Validate_OwnerNeedsBrand(t *testing.T) {
	f := newPassFixture(t, PassConfig{})

	_, err := f.svc.Validate(context.Background(), f.owner, "0123456789abcdef0123456789abcdef", 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPassService_Validate_Concurrent(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	pass, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Validate(ctx, f.staff, pass.Serial, 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	stored, err := f.passes.FindBySerial(ctx, pass.Serial)
	require.NoError(t, err)
	assert.Equal(t, n, stored.Visits)
}

func TestPassService_Validate_Expired(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	pass, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return pass.ExpiresAt.Add(time.Minute) }

	_, err = f.svc.Validate(ctx, f.staff, pass.Serial, 0)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	stored, err := f.passes.FindBySerial(ctx, pass.Serial)
	require.NoError(t, err)
	assert.Equal(t, domain.PassExpired, stored.Status)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 0, stored.Visits)

	_, err = f.svc.WalletFile(ctx, pass.Serial, pkpass.PlatformIOS)
	require.NoError(t, err)
	assert.True(t, f.builder.last().Voided)
}

func TestPassService_UpdateCounters(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	pass, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	points := 40
	updated, err := f.svc.UpdateCounters(ctx, f.staff, pass.Serial, domain.CounterUpdate{Points: &points, VisitsDelta: 2})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Points)
	assert.Equal(t, 2, updated.Visits)

	updated, err = f.svc.UpdateCounters(ctx, f.owner, pass.Serial, domain.CounterUpdate{PointsDelta: -100})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Points)

	_, err = f.svc.UpdateCounters(ctx, f.owner, pass.Serial, domain.CounterUpdate{})
	assert.ErrorIs(t, err, ErrValidation)

	negative := -1
	_, err = f.svc.UpdateCounters(ctx, f.owner, pass.Serial, domain.CounterUpdate{Visits: &negative})
	assert.ErrorIs(t, err, ErrValidation)

	huge := domain.MaxCounterValue + 1
	_, err = f.svc.UpdateCounters(ctx, f.owner, pass.Serial, domain.CounterUpdate{Points: &huge})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UpdateCounters(ctx, f.owner, pass.Serial, domain.CounterUpdate{PointsDelta: -huge})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UpdateCounters(ctx, domain.User{ID: 7, Role: domain.RoleOwner}, pass.Serial, domain.CounterUpdate{PointsDelta: 1})
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)
}

func TestPassService_Revoke(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	pass, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	_, err = f.svc.Revoke(ctx, f.staff, pass.Serial)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	revoked, err := f.svc.Revoke(ctx, f.owner, pass.Serial)
	require.NoError(t, err)
	assert.Equal(t, domain.PassRevoked, revoked.Status)
	assert.False(t, revoked.IsActive)

	_, err = f.svc.Validate(ctx, f.staff, pass.Serial, 0)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	_, err = f.svc.WalletFile(ctx, pass.Serial, pkpass.PlatformIOS)
	require.NoError(t, err)
	assert.True(t, f.builder.last().Voided)
}

func TestPassService_ListBrandPasses(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	first, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	reg := f.registration()
	reg.TemplateID = nil
	second, _, err := f.svc.Issue(ctx, reg)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return first.ExpiresAt.Add(time.Hour) }

	expired, err := f.svc.ListBrandPasses(ctx, f.owner, f.brand.ID, domain.PassFilter{Status: domain.PassExpired})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, first.Serial, expired[0].Serial)

	active, err := f.svc.ListBrandPasses(ctx, f.owner, f.brand.ID, domain.PassFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.Serial, active[0].Serial)

	_, err = f.svc.ListBrandPasses(ctx, f.staff, f.brand.ID, domain.PassFilter{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPassService_ListBrandPasses_ByPhone(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	maria, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	reg := f.registration()
	reg.Name = "Sam Ortiz"
	reg.Phone = "555-0199"
	_, _, err = f.svc.Issue(ctx, reg)
	require.NoError(t, err)

	held, err := f.svc.ListBrandPasses(ctx, f.staff, f.brand.ID, domain.PassFilter{DinerPhone: "555-0100"})
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, maria.Serial, held[0].Serial)

	otherBrandID := f.brand.ID + 100
	otherStaff := domain.User{ID: 9, Role: domain.RoleStaff, BrandID: &otherBrandID}
	_, err = f.svc.ListBrandPasses(ctx, otherStaff, f.brand.ID, domain.PassFilter{DinerPhone: "555-0100"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPassService_WalletFile(t *testing.T) {
	f := newPassFixture(t, PassConfig{})
	ctx := context.Background()

	_, err := f.svc.WalletFile(ctx, "0123456789abcdef0123456789abcdef", pkpass.PlatformIOS)
	assert.ErrorIs(t, err, ErrIssuedPassNotFound)

	pass, _, err := f.svc.Issue(ctx, f.registration())
	require.NoError(t, err)

	_, err = f.svc.WalletFile(ctx, pass.Serial, pkpass.PlatformAndroid)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = f.svc.Validate(ctx, f.staff, pass.Serial, 0)
	require.NoError(t, err)

	artifact, err := f.svc.WalletFile(ctx, pass.Serial, pkpass.PlatformIOS)
	require.NoError(t, err)
	assert.Equal(t, []byte("pkpass:"+pass.Serial), artifact.Data)

	visits := f.builder.last().StoreCard.PrimaryFields[0]
	assert.Equal(t, "visits", visits.Key)
	assert.Equal(t, 1, visits.Value)
}

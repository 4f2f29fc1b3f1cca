package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lighthouse-dashboard/internal/app"
	"github.com/JakeFAU/lighthouse-dashboard/internal/archive"
	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/config"
	"github.com/JakeFAU/lighthouse-dashboard/internal/pagespeed"
	"github.com/JakeFAU/lighthouse-dashboard/internal/policy/ratelimit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/memory"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/sqlite"
)

// MockRepository mocks the audit.Repository interface.
type MockRepository struct {
	mock.Mock
}

// ListURLs satisfies audit.URLRepository.
func (m *MockRepository) ListURLs(ctx context.Context) ([]audit.URLRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]audit.URLRecord)
	return records, args.Error(1)
}

// InsertURL satisfies audit.URLRepository.
func (m *MockRepository) InsertURL(ctx context.Context, rec audit.URLRecord) (audit.URLRecord, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(audit.URLRecord), args.Error(1)
}

// InsertResult satisfies audit.ResultRepository.
func (m *MockRepository) InsertResult(ctx context.Context, rec audit.ResultRecord) (audit.ResultRecord, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(audit.ResultRecord), args.Error(1)
}

// Ping satisfies audit.Repository.
func (m *MockRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Close satisfies audit.Repository.
func (m *MockRepository) Close() {
	m.Called()
}

type nopAuditor struct{}

func (nopAuditor) Audit(context.Context, string) (audit.Report, error) {
	return audit.Report{}, errors.New("not used")
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:    config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 30, SessionTTL: time.Hour},
		PageSpeed: config.PageSpeedConfig{BaseURL: "http://127.0.0.1:1/run", TimeoutSeconds: 5},
		DB:        config.DBConfig{Driver: config.DriverMemory},
		Archive:   config.ArchiveConfig{Driver: config.ArchiveNone},
		PubSub:    config.PubSubConfig{TopicName: "saved"},
	}
}

func TestHydrateReplacesStoreOnce(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListURLs", mock.Anything).Return([]audit.URLRecord{
		{URL: "https://a.example/", Title: "A"},
		{URL: "https://b.example/", Title: "B"},
		{URL: "https://a.example/", Title: "A again"},
	}, nil).Once()

	a, err := app.NewWithDeps(app.Deps{Config: testConfig(t), Repository: repo, Auditor: nopAuditor{}})
	require.NoError(t, err)
	a.Store().Replace([]audit.URLRecord{{URL: "https://stale.example/", Title: "stale"}})

	require.NoError(t, a.Hydrate(context.Background()))
	assert.Equal(t, []audit.URLRecord{
		{URL: "https://a.example/", Title: "A"},
		{URL: "https://b.example/", Title: "B"},
	}, a.Store().URLs())
	repo.AssertExpectations(t)
}

func TestHydrateFailureLeavesStoreEmpty(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListURLs", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	a, err := app.NewWithDeps(app.Deps{Config: testConfig(t), Repository: repo, Auditor: nopAuditor{}})
	require.NoError(t, err)

	err = a.Hydrate(context.Background())
	require.ErrorContains(t, err, "connection refused")
	assert.Zero(t, a.Store().Len())
	repo.AssertNumberOfCalls(t, "ListURLs", 1)
}

func TestNewWithDepsRequiresServices(t *testing.T) {
	t.Parallel()

	_, err := app.NewWithDeps(app.Deps{Auditor: nopAuditor{}})
	require.Error(t, err)
	_, err = app.NewWithDeps(app.Deps{Repository: memory.NewRepository()})
	require.Error(t, err)
}

func TestSessionsShareStoreWithApp(t *testing.T) {
	t.Parallel()

	a, err := app.NewWithDeps(app.Deps{
		Config:     testConfig(t),
		Repository: memory.NewRepository(audit.URLRecord{URL: "https://a.example/", Title: "A"}),
		Auditor:    nopAuditor{},
	})
	require.NoError(t, err)
	require.NoError(t, a.Hydrate(context.Background()))

	_, wf, err := a.Sessions().Create()
	require.NoError(t, err)
	assert.Len(t, wf.View().Entries, 0)
	assert.True(t, a.Store().Contains("https://a.example/"))
}

func TestNewMemoryDriver(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &memory.Repository{}, a.Repository())
	assert.IsType(t, &pagespeed.Client{}, a.Auditor())
	require.NoError(t, a.Hydrate(context.Background()))
	assert.Zero(t, a.Store().Len())
}

func TestNewSQLiteWithLocalArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.DB = config.DBConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "dash.db")}
	cfg.Archive = config.ArchiveConfig{Driver: config.ArchiveLocal, BaseDir: filepath.Join(dir, "archive"), Prefix: "audits"}

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &sqlite.Repository{}, a.Repository())
	assert.IsType(t, &archive.Auditor{}, a.Auditor())
	require.NoError(t, a.Repository().Ping(context.Background()))
	require.NoError(t, a.Hydrate(context.Background()))
}

func TestNewMemoryArchive(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Archive = config.ArchiveConfig{Driver: config.ArchiveMemory, Prefix: "audits"}

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &archive.Auditor{}, a.Auditor())
}

func TestNewThrottlesAudits(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.PageSpeed.RateLimitRPS = 2
	cfg.PageSpeed.RateLimitBurst = 1

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &ratelimit.Auditor{}, a.Auditor())
}

func TestOpenRepositoryUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.DB.Driver = "mysql"
	_, err := app.OpenRepository(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "unknown db driver")
}

func TestCloseReleasesRepository(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("Close").Return().Once()

	a, err := app.NewWithDeps(app.Deps{Config: testConfig(t), Repository: repo, Auditor: nopAuditor{}})
	require.NoError(t, err)
	a.Close()
	repo.AssertExpectations(t)
}

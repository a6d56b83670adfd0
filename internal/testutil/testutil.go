// Package testutil wires the form services over an in-memory database for
// handler and router tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	formapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/application/identity"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/auth"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/cache"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/persistence"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Admin credentials accepted by every Stack
const (
	AdminUsername = "admin"
	AdminPassword = "correct-horse"
)

// Stack is the service graph behind the HTTP layer
type Stack struct {
	DB         *persistence.Database
	Records    *persistence.GormFormRecordRepository
	Activity   *persistence.GormActivityRepository
	Counter    *cache.InMemoryConfirmationCounter
	Storage    *storage.StubObjectStorage
	JWTService *auth.JWTService
	Wizard     *formapp.WizardService
	Admin      *formapp.AdminService
	Auth       *identity.AuthService
}

// StackOption adjusts a Stack before its services are built
type StackOption func(*stackOptions)

type stackOptions struct {
	noExporter   bool
	deleteWindow time.Duration
	db           *gorm.DB
}

// WithoutExporter leaves object storage unconfigured
func WithoutExporter() StackOption {
	return func(o *stackOptions) { o.noExporter = true }
}

// WithDeleteWindow overrides the delete confirmation window
func WithDeleteWindow(d time.Duration) StackOption {
	return func(o *stackOptions) { o.deleteWindow = d }
}

// WithGormDB builds the stack on an already migrated connection instead of
// a fresh sqlite database
func WithGormDB(db *gorm.DB) StackOption {
	return func(o *stackOptions) { o.db = db }
}

// NewStack opens a fresh sqlite database and builds the services on it
func NewStack(t *testing.T, opts ...StackOption) *Stack {
	t.Helper()

	o := stackOptions{deleteWindow: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	db := &persistence.Database{DB: o.db}
	if o.db == nil {
		var err error
		db, err = persistence.NewDatabaseWithCustomLogger(
			&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"},
			logger.Default.LogMode(logger.Silent),
		)
		require.NoError(t, err, "Failed to open sqlite database")
		require.NoError(t, db.AutoMigrate(), "Failed to migrate sqlite database")
		t.Cleanup(func() { _ = db.Close() })
	}

	counter := cache.NewInMemoryConfirmationCounter()
	t.Cleanup(func() { _ = counter.Close() })

	hash, err := auth.HashPassword(AdminPassword)
	require.NoError(t, err)

	s := &Stack{
		DB:       db,
		Records:  persistence.NewGormFormRecordRepository(db.DB),
		Activity: persistence.NewGormActivityRepository(db.DB),
		Counter:  counter,
		Storage:  storage.NewStubObjectStorage(),
		JWTService: auth.NewJWTService(config.JWTConfig{
			Secret:                  "test-secret-key-that-is-long-enough",
			AccessTokenExpiration:   time.Hour,
			ClientSessionExpiration: time.Hour,
			Issuer:                  "ds160-test",
		}),
	}

	var exporter formapp.RecordExporter
	if !o.noExporter {
		exporter = storage.NewRecordExporter(s.Storage, "exports", 15*time.Minute, zap.NewNop())
	}

	s.Wizard = formapp.NewWizardService(formapp.WizardServiceConfig{
		Records:  s.Records,
		Activity: s.Activity,
	})
	s.Admin = formapp.NewAdminService(formapp.AdminServiceConfig{
		Records:      s.Records,
		Activity:     s.Activity,
		Counter:      counter,
		Exporter:     exporter,
		DeleteWindow: o.deleteWindow,
	})
	s.Auth = identity.NewAuthService(
		config.AdminConfig{Username: AdminUsername, PasswordHash: hash},
		s.Records,
		s.JWTService,
		zap.NewNop(),
	)
	return s
}

// CreateClient issues a token through the admin service
func (s *Stack) CreateClient(t *testing.T, name string) string {
	t.Helper()
	summary, err := s.Admin.CreateClient(context.Background(), formapp.CreateClientRequest{ClientName: name})
	require.NoError(t, err)
	return summary.Token
}

// AdminToken returns a valid dashboard bearer token
func (s *Stack) AdminToken(t *testing.T) string {
	t.Helper()
	issued, err := s.JWTService.GenerateAdminToken(AdminUsername)
	require.NoError(t, err)
	return issued.Token
}

// SessionToken returns a client session bound to formToken
func (s *Stack) SessionToken(t *testing.T, formToken string) string {
	t.Helper()
	issued, err := s.JWTService.GenerateClientSession(formToken)
	require.NoError(t, err)
	return issued.Token
}

// StepFields returns a payload that satisfies every required field of step
func StepFields(step int) map[string]any {
	def, ok := form.GetStepDefinition(step)
	if !ok {
		return map[string]any{}
	}
	fields := make(map[string]any, len(def.RequiredFields))
	for _, key := range def.RequiredFields {
		fields[key] = "value-" + key
	}
	return fields
}

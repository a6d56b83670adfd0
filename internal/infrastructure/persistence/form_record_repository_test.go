package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFormTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every pooled connection would get its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(formModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRecord(t *testing.T, token, name string) *form.FormRecord {
	t.Helper()
	record, err := form.NewFormRecord(token, name, "")
	require.NoError(t, err)
	return record
}

// newMockFormRecordRepository creates a GormFormRecordRepository with a mocked SQL connection
func newMockFormRecordRepository(t *testing.T) (*GormFormRecordRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormFormRecordRepository(gormDB), mock, mockDB
}

func TestColumnsForPatch(t *testing.T) {
	t.Run("progress only", func(t *testing.T) {
		cols := columnsForPatch(form.PatchProgress)
		assert.Contains(t, cols, "fields")
		assert.Contains(t, cols, "completed_steps")
		assert.Contains(t, cols, "updated_at")
		assert.Contains(t, cols, "version")
		assert.NotContains(t, cols, "payment_status")
		assert.NotContains(t, cols, "is_active")
		assert.NotContains(t, cols, "client_name")
	})

	t.Run("payment never touches progress", func(t *testing.T) {
		cols := columnsForPatch(form.PatchPayment)
		assert.ElementsMatch(t, []string{"payment_status", "amount_due", "amount_paid", "updated_at", "version"}, cols)
	})

	t.Run("combined groups", func(t *testing.T) {
		cols := columnsForPatch(form.PatchProgress | form.PatchClient)
		assert.Contains(t, cols, "client_email")
		assert.Contains(t, cols, "current_step")
	})
}

func TestGormFormRecordRepository_Upsert_SQL(t *testing.T) {
	repo, mock, mockDB := newMockFormRecordRepository(t)
	defer mockDB.Close()

	record := newTestRecord(t, "ABCD1234", "Ana Lopez")

	// ids are generated by the domain, so gorm issues a plain INSERT without RETURNING
	mock.ExpectExec(`INSERT INTO "form_records" .* ON CONFLICT \("token"\) DO UPDATE SET .*"fields"="excluded"\."fields"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "id" FROM "form_records" WHERE token = \$1 LIMIT \$2`).
		WithArgs("ABCD1234", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(record.ID))

	id, err := repo.Upsert(context.Background(), record, form.PatchProgress)
	require.NoError(t, err)
	assert.Equal(t, record.ID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFormRecordRepository_Upsert_InsertOnlySQL(t *testing.T) {
	repo, mock, mockDB := newMockFormRecordRepository(t)
	defer mockDB.Close()

	record := newTestRecord(t, "ABCD1234", "Ana Lopez")

	mock.ExpectExec(`INSERT INTO "form_records" .* ON CONFLICT \("token"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT "id" FROM "form_records" WHERE token = \$1 LIMIT \$2`).
		WithArgs("ABCD1234", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	id, err := repo.Upsert(context.Background(), record, form.PatchNone)
	require.NoError(t, err)
	assert.NotEqual(t, record.ID, id, "a taken token reports the existing row's id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFormRecordRepository_Upsert_Failure(t *testing.T) {
	repo, mock, mockDB := newMockFormRecordRepository(t)
	defer mockDB.Close()

	record := newTestRecord(t, "ABCD1234", "Ana Lopez")

	mock.ExpectExec(`INSERT INTO "form_records"`).WillReturnError(sql.ErrConnDone)

	_, err := repo.Upsert(context.Background(), record, form.PatchProgress)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "ABCD1234")
}

func TestGormFormRecordRepository_FindByToken_NotFound_SQL(t *testing.T) {
	repo, mock, mockDB := newMockFormRecordRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "form_records" WHERE token = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("ZZZZ9999", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	record, err := repo.FindByToken(context.Background(), "ZZZZ9999")
	assert.Nil(t, record)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFormRecordRepository_RoundTrip(t *testing.T) {
	db := setupFormTestDB(t)
	repo := NewGormFormRecordRepository(db)
	ctx := context.Background()

	record := newTestRecord(t, "ABCD1234", "Ana Lopez")
	record.MergeFields(map[string]any{"surname": "Lopez", "given_name": "Ana", "has_other_names": false})
	record.MarkStepCompleted(1)
	record.CurrentStep = 2

	id, err := repo.Upsert(ctx, record, form.PatchProgress)
	require.NoError(t, err)
	assert.Equal(t, record.ID, id)

	loaded, err := repo.FindByToken(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, "Ana Lopez", loaded.ClientName)
	assert.Equal(t, "Lopez", loaded.Fields["surname"])
	assert.Equal(t, false, loaded.Fields["has_other_names"])
	assert.Equal(t, 2, loaded.CurrentStep)
	assert.Equal(t, []int{1}, loaded.CompletedSteps)
	assert.Equal(t, 14, loaded.Progress())
	assert.Equal(t, form.StatusInProgress, loaded.Status())
	assert.Equal(t, form.PaymentStatusPending, loaded.PaymentStatus)
	assert.True(t, loaded.IsActive)

	byID, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", byID.Token)

	t.Run("missing token", func(t *testing.T) {
		_, err := repo.FindByToken(ctx, "NOPE0000")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormFormRecordRepository_UpsertConflict(t *testing.T) {
	db := setupFormTestDB(t)
	repo := NewGormFormRecordRepository(db)
	ctx := context.Background()

	first := newTestRecord(t, "TOKEN001", "First Writer")
	firstID, err := repo.Upsert(ctx, first, form.PatchProgress|form.PatchClient)
	require.NoError(t, err)

	t.Run("second insert for the same token keeps the stored id", func(t *testing.T) {
		second := newTestRecord(t, "TOKEN001", "Second Writer")
		second.MergeFields(map[string]any{"surname": "Doe"})
		second.MarkStepCompleted(1)

		id, err := repo.Upsert(ctx, second, form.PatchProgress)
		require.NoError(t, err)
		assert.Equal(t, firstID, id)

		var count int64
		require.NoError(t, db.Table("form_records").Where("token = ?", "TOKEN001").Count(&count).Error)
		assert.Equal(t, int64(1), count)

		loaded, err := repo.FindByToken(ctx, "TOKEN001")
		require.NoError(t, err)
		assert.Equal(t, "Doe", loaded.Fields["surname"])
		// client group was not in the patch
		assert.Equal(t, "First Writer", loaded.ClientName)
	})

	t.Run("payment patch leaves progress untouched", func(t *testing.T) {
		stale := newTestRecord(t, "TOKEN001", "First Writer")
		due := decimal.NewFromInt(160)
		require.NoError(t, stale.SetPaymentStatus(form.PaymentStatusPartial, &due, nil))

		_, err := repo.Upsert(ctx, stale, form.PatchPayment)
		require.NoError(t, err)

		loaded, err := repo.FindByToken(ctx, "TOKEN001")
		require.NoError(t, err)
		assert.Equal(t, form.PaymentStatusPartial, loaded.PaymentStatus)
		assert.True(t, due.Equal(loaded.AmountDue))
		assert.Equal(t, []int{1}, loaded.CompletedSteps)
		assert.Equal(t, "Doe", loaded.Fields["surname"])
	})

	t.Run("comments and activation", func(t *testing.T) {
		loaded, err := repo.FindByToken(ctx, "TOKEN001")
		require.NoError(t, err)
		require.NoError(t, loaded.AddComment("admin", "called client"))
		require.NoError(t, loaded.Deactivate())

		_, err = repo.Upsert(ctx, loaded, form.PatchComments|form.PatchActivation)
		require.NoError(t, err)

		reloaded, err := repo.FindByToken(ctx, "TOKEN001")
		require.NoError(t, err)
		require.Len(t, reloaded.AdminComments, 1)
		assert.Equal(t, "called client", reloaded.AdminComments[0].Text)
		assert.False(t, reloaded.IsActive)
	})

	t.Run("insert-only upsert leaves the existing row alone", func(t *testing.T) {
		before, err := repo.FindByToken(ctx, "TOKEN001")
		require.NoError(t, err)

		colliding := newTestRecord(t, "TOKEN001", "Someone Else")
		id, err := repo.Upsert(ctx, colliding, form.PatchNone)
		require.NoError(t, err)
		assert.Equal(t, firstID, id)

		after, err := repo.FindByToken(ctx, "TOKEN001")
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
		assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
		assert.Equal(t, "First Writer", after.ClientName)
	})
}

func TestGormFormRecordRepository_FindAll(t *testing.T) {
	db := setupFormTestDB(t)
	repo := NewGormFormRecordRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		token string
		name  string
		at    time.Time
		steps []int
	}{
		{"AAAA0001", "Maria Garcia", base, nil},
		{"BBBB0002", "John Smith", base.Add(time.Hour), []int{1, 2}},
		{"CCCC0003", "Maria Ortiz", base.Add(time.Hour), []int{1, 2, 3, 4, 5, 6, 7}},
		{"DDDD0004", "Li Wei", base.Add(2 * time.Hour), []int{1}},
	}
	for _, s := range seed {
		r := newTestRecord(t, s.token, s.name)
		r.CreatedAt = s.at
		for _, step := range s.steps {
			r.MarkStepCompleted(step)
		}
		_, err := repo.Upsert(ctx, r, form.PatchProgress)
		require.NoError(t, err)
	}

	t.Run("orders by created_at desc then token asc", func(t *testing.T) {
		records, err := repo.FindAll(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, records, 4)
		tokens := []string{records[0].Token, records[1].Token, records[2].Token, records[3].Token}
		assert.Equal(t, []string{"DDDD0004", "BBBB0002", "CCCC0003", "AAAA0001"}, tokens)
	})

	t.Run("pages", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2
		filter.Page = 2
		records, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "CCCC0003", records[0].Token)
	})

	t.Run("search by name", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Search = "maria"
		records, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, records, 2)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("search wildcards match literally", func(t *testing.T) {
		for _, term := range []string{"%", "_", "Mar_a", "M%a"} {
			filter := shared.DefaultFilter()
			filter.Search = term
			records, err := repo.FindAll(ctx, filter)
			require.NoError(t, err)
			assert.Empty(t, records, "search %q", term)
		}

		filter := shared.DefaultFilter()
		filter.Search = "aaaa0001"
		records, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, records, 1)
	})

	t.Run("filter by status", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["status"] = string(form.StatusCompleted)
		records, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "CCCC0003", records[0].Token)
		assert.Equal(t, 100, records[0].Progress())
	})

	t.Run("exists by token", func(t *testing.T) {
		exists, err := repo.ExistsByToken(ctx, "AAAA0001")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByToken(ctx, "ZZZZ0000")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), stats.Total)
		assert.Equal(t, int64(4), stats.Active)
		assert.Equal(t, int64(1), stats.ByStatus[form.StatusDraft])
		assert.Equal(t, int64(2), stats.ByStatus[form.StatusInProgress])
		assert.Equal(t, int64(1), stats.ByStatus[form.StatusCompleted])
		assert.Equal(t, int64(4), stats.ByPaymentStatus[form.PaymentStatusPending])
		assert.True(t, stats.AmountDue.IsZero())
	})
}

func TestGormFormRecordRepository_DeleteByToken(t *testing.T) {
	db := setupFormTestDB(t)
	repo := NewGormFormRecordRepository(db)
	activity := NewGormActivityRepository(db)
	ctx := context.Background()

	record := newTestRecord(t, "DELE0001", "To Delete")
	id, err := repo.Upsert(ctx, record, form.PatchProgress)
	require.NoError(t, err)
	require.NoError(t, activity.AppendStepSnapshot(ctx, id, 1, map[string]any{"surname": "X"}))
	require.NoError(t, activity.AppendAuditLog(ctx, id, form.AuditActionStepSubmitted, 1, nil))

	require.NoError(t, repo.DeleteByToken(ctx, "DELE0001"))

	_, err = repo.FindByToken(ctx, "DELE0001")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	snapshots, err := activity.ListStepSnapshots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snapshots)

	logs, err := activity.ListAuditLogs(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)

	t.Run("deleting twice reports not found", func(t *testing.T) {
		err := repo.DeleteByToken(ctx, "DELE0001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, "100!%", likeEscaper.Replace("100%"))
	assert.Equal(t, "a!_b", likeEscaper.Replace("a_b"))
	assert.Equal(t, "hi!!", likeEscaper.Replace("hi!"))
	assert.Equal(t, "plain", likeEscaper.Replace("plain"))
}

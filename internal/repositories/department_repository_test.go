package repositories

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hr-backoffice/internal/entities"
	"hr-backoffice/migrations"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
)

var testPool *pgxpool.Pool

// TestMain connects to TEST_DATABASE_URL and applies migrations; without it the integration tests skip.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to test database: %v", err)
	}

	if err := migrations.Up(ctx, testPool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	code := m.Run()
	testPool.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL is not set")
	}
}

func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE TABLE users, positions, departments RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func newTestRepository() DepartmentRepositoryInterface {
	return NewDepartmentRepository(testPool, zap.NewNop(), 7301)
}

// insertDepartment creates a department the way the service does: placeholder then path.
func insertDepartment(t *testing.T, repo DepartmentRepositoryInterface, name, code string, parent *entities.Department) *entities.Department {
	t.Helper()
	ctx := context.Background()

	var created *entities.Department
	err := NewTxManager(testPool).RunInTransaction(ctx, func(tx pgx.Tx) error {
		d := entities.Department{Name: name, Code: code, Enabled: true}
		parentPath, level := "", 0
		if parent != nil {
			d.ParentID = &parent.ID
			parentPath, level = parent.DepPath, parent.Level+1
		}
		id, err := repo.Create(ctx, tx, d)
		if err != nil {
			return err
		}
		if err := repo.UpdatePath(ctx, tx, id, deppath.Encode(parentPath, id), level); err != nil {
			return err
		}
		created, err = repo.FindByID(ctx, tx, id)
		return err
	})
	require.NoError(t, err)
	return created
}

func TestDepartmentRepository_Integration_CreateAssignsPath(t *testing.T) {
	requireDB(t)
	cleanupTables(t, testPool)
	repo := newTestRepository()

	eng := insertDepartment(t, repo, "Engineering", "ENG", nil)
	backend := insertDepartment(t, repo, "Backend", "BE", eng)

	assert.Equal(t, "/1", eng.DepPath)
	assert.Equal(t, 0, eng.Level)
	assert.Equal(t, "/1/2", backend.DepPath)
	assert.Equal(t, 1, backend.Level)
	require.NotNil(t, backend.ParentID)
	assert.Equal(t, eng.ID, *backend.ParentID)
	assert.NotNil(t, backend.CreatedAt)
}

func TestDepartmentRepository_Integration_UniqueConstraints(t *testing.T) {
	requireDB(t)
	cleanupTables(t, testPool)
	repo := newTestRepository()
	ctx := context.Background()

	insertDepartment(t, repo, "Engineering", "ENG", nil)

	_, err := repo.Create(ctx, nil, entities.Department{Name: "Other", Code: "ENG"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	_, err = repo.Create(ctx, nil, entities.Department{Name: "Engineering", Code: "OTHER"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	exists, err := repo.ExistsByCode(ctx, nil, "ENG", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByCode(ctx, nil, "ENG", 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDepartmentRepository_Integration_SubtreeUsesSegmentBoundary(t *testing.T) {
	requireDB(t)
	cleanupTables(t, testPool)
	repo := newTestRepository()
	ctx := context.Background()

	root := insertDepartment(t, repo, "Root", "ROOT", nil)
	two := insertDepartment(t, repo, "Two", "TWO", root)
	for i := 3; i < 23; i++ {
		insertDepartment(t, repo, "Filler "+string(rune('A'+i)), "F"+string(rune('A'+i)), root)
	}
	twentyThree := insertDepartment(t, repo, "Twenty Three", "T23", root)
	child := insertDepartment(t, repo, "Under Two", "U2", two)

	require.Equal(t, "/1/23", twentyThree.DepPath)

	subtree, err := repo.FindSubtree(ctx, nil, two.DepPath, false)
	require.NoError(t, err)
	ids := make([]uint64, 0, len(subtree))
	for _, d := range subtree {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []uint64{two.ID, child.ID}, ids)
}

func TestDepartmentRepository_Integration_SearchEscapesWildcards(t *testing.T) {
	requireDB(t)
	cleanupTables(t, testPool)
	repo := newTestRepository()
	ctx := context.Background()

	insertDepartment(t, repo, "Engineering", "ENG", nil)
	insertDepartment(t, repo, "100% Sales", "SALES", nil)

	found, err := repo.SearchByName(ctx, nil, "eng")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Engineering", found[0].Name)

	found, err = repo.SearchByName(ctx, nil, "%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100% Sales", found[0].Name)
}

func TestDepartmentRepository_Integration_UpdatePathsAndDelete(t *testing.T) {
	requireDB(t)
	cleanupTables(t, testPool)
	repo := newTestRepository()
	ctx := context.Background()

	a := insertDepartment(t, repo, "A", "A", nil)
	b := insertDepartment(t, repo, "B", "B", a)

	err := NewTxManager(testPool).RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := repo.LockHierarchy(ctx, tx, true); err != nil {
			return err
		}
		if err := repo.UpdateParent(ctx, tx, b.ID, nil, nil); err != nil {
			return err
		}
		return repo.UpdatePaths(ctx, tx, []PathUpdate{{ID: b.ID, DepPath: deppath.Root(b.ID), Level: 0}})
	})
	require.NoError(t, err)

	roots, err := repo.FindChildren(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, roots, 2)

	count, err := repo.CountChildren(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = testPool.Exec(ctx, `INSERT INTO users (fio, department_id) VALUES ('Test Employee', $1)`, a.ID)
	require.NoError(t, err)

	employees, err := NewEmployeeDirectory(testPool).CountByDepartment(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, employees)

	err = repo.Delete(ctx, nil, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInUse)

	require.NoError(t, repo.Delete(ctx, nil, b.ID))
	_, err = repo.FindByID(ctx, nil, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

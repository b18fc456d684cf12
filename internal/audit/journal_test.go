package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resbot/internal/testutil"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestJournal opens a journal in a temp dir with deterministic IDs and clock.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "audit.db"),
		WithIDGenerator(testutil.NewSequenceIDs("entry")),
		WithClock(testutil.NewStepClock(epoch, time.Second).Now))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		j.Close()
	}

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	var name string
	err = j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_audit_case_number'",
	).Scan(&name)
	assert.NoError(t, err)
}

func pragmaValue(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	var value string
	require.NoError(t, db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value))
	return value
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	assert.Equal(t, "wal", pragmaValue(t, j.db, "journal_mode"))
	assert.Equal(t, "1", pragmaValue(t, j.db, "synchronous"))
	assert.Equal(t, "5000", pragmaValue(t, j.db, "busy_timeout"))
	assert.Equal(t, fmt.Sprint(schemaVersion()), pragmaValue(t, j.db, "user_version"))
}

func TestOpen_UpgradesVersionZeroDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO audit_entries (id, at, command, outcome) VALUES ('old', '2023-01-01T00:00:00Z', 'resolution', 'ok')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, "1", pragmaValue(t, j.db, "user_version"))
	var name string
	require.NoError(t, j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_audit_case_number'",
	).Scan(&name))

	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ID)
}

func TestOpen_RejectsNewerSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion()+1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestAppend_FillsIdentity(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	e, err := j.Append(ctx, Entry{Command: "resolution", CaseNumber: "2024-01", Outcome: OutcomeOK})
	require.NoError(t, err)

	assert.Equal(t, "entry-1", e.ID)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, epoch, e.At)
}

func TestAppend_DefaultIDIsUUIDv7(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer j.Close()

	e, err := j.Append(context.Background(), Entry{Command: "reloadresolutions", Outcome: OutcomeOK})
	require.NoError(t, err)

	parsed, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestAppend_DuplicateIDFails(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	_, err := j.Append(ctx, Entry{ID: "same", Command: "a", Outcome: OutcomeOK})
	require.NoError(t, err)
	_, err = j.Append(ctx, Entry{ID: "same", Command: "b", Outcome: OutcomeOK})
	assert.Error(t, err)
}

func TestRecent_NewestFirst(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	for _, cmd := range []string{"resolution", "createresolution", "reloadresolutions"} {
		_, err := j.Append(ctx, Entry{
			Command:  cmd,
			UserID:   "42",
			UserName: "clerk",
			GuildID:  "g1",
			Outcome:  OutcomeOK,
		})
		require.NoError(t, err)
	}
	_, err := j.Append(ctx, Entry{Command: "createresolution", CaseNumber: "2024-01", Outcome: OutcomeExists, Detail: "dup"})
	require.NoError(t, err)

	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, int64(4), entries[0].Seq)
	assert.Equal(t, OutcomeExists, entries[0].Outcome)
	assert.Equal(t, "2024-01", entries[0].CaseNumber)
	assert.Equal(t, "dup", entries[0].Detail)
	assert.Equal(t, epoch.Add(3*time.Second), entries[0].At)

	assert.Equal(t, "reloadresolutions", entries[1].Command)
	assert.Equal(t, "clerk", entries[1].UserName)
	assert.Equal(t, "createresolution", entries[2].Command)
}

func TestRecent_Empty(t *testing.T) {
	j := createTestJournal(t)

	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	entries, err = j.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, (&Journal{}).Close())
}

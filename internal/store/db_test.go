package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/internal/pipeline"
)

var _ pipeline.Ledger = (*Store)(nil)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRecordsRun(t *testing.T) {
	s := openStore(t)

	spec := model.JobSpec{
		ID:      "emp",
		Query:   "SELECT * FROM emp",
		Target:  "public.emp",
		OutFile: "/out/emp",
		Source:  model.SourceSpec{Driver: "oracle", Database: "h/x", Password: "tiger"},
	}
	require.NoError(t, s.SaveRun("run-1", model.RunSpec{Sessions: 2, Jobs: []model.JobSpec{spec}}, time.Now()))
	require.NoError(t, s.SaveJob("run-1", spec))
	require.NoError(t, s.UpdateJobStatus("emp", model.StateStreaming))
	require.NoError(t, s.SaveJobError("emp", errors.New("row 7: boom")))
	require.NoError(t, s.SaveJobError("emp", nil))
	require.NoError(t, s.SaveJobResult(model.JobResult{
		JobID:          "emp",
		State:          model.StateDone,
		RowsDispatched: 42,
		RowErrors:      1,
		BytesWritten:   1024,
		OutputPath:     "/out/emp.sql.gz",
	}))
	require.NoError(t, s.FinishRun(model.RunSummary{RunID: "run-1", Succeeded: 1, RowsDispatched: 42, RowErrors: 1}))

	jobs, err := s.ListJobs(0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	j := jobs[0]
	assert.Equal(t, "run-1", j.RunID)
	assert.Equal(t, "emp", j.JobID)
	assert.Equal(t, "done", j.Status)
	assert.EqualValues(t, 42, j.RowsDispatched)
	assert.Equal(t, "/out/emp.sql.gz", j.OutputPath)
	assert.Equal(t, "SELECT * FROM emp", j.Spec.Query)
	assert.Empty(t, j.Spec.Source.Password, "passwords are never persisted")

	got, err := s.GetJob(j.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"row 7: boom"}, got.Errors)

	var succeeded int
	var finished sql.NullTime
	require.NoError(t, s.db.QueryRow(`SELECT succeeded, finished_at FROM runs WHERE id = ?`, "run-1").Scan(&succeeded, &finished))
	assert.Equal(t, 1, succeeded)
	assert.True(t, finished.Valid)
}

func TestStoreSeparatesRuns(t *testing.T) {
	s := openStore(t)
	spec := model.JobSpec{ID: "emp", Target: "public.emp"}

	for _, run := range []string{"run-1", "run-2"} {
		require.NoError(t, s.SaveRun(run, model.RunSpec{}, time.Now()))
		require.NoError(t, s.SaveJob(run, spec))
		require.NoError(t, s.UpdateJobStatus("emp", model.StateDone))
	}

	jobs, err := s.ListJobs(0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "run-2", jobs[0].RunID)
	assert.NotEqual(t, jobs[0].ID, jobs[1].ID)

	limited, err := s.ListJobs(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreUnknownJob(t *testing.T) {
	s := openStore(t)

	err := s.UpdateJobStatus("ghost", model.StateDone)
	assert.True(t, errors.Is(err, ErrJobNotFound))

	_, err = s.GetJob("ghost")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

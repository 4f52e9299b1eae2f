package emitter

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

func testBatch() *Batch {
	tbl := model.NewTable("id", "name", "score")
	tbl.Append(model.Row{"id": int64(1), "name": "alice", "score": 9.5})
	tbl.Append(model.Row{"id": int64(2), "name": "bob", "score": nil})
	return &Batch{
		RunID:      "run-1",
		Source:     config.SourceLocal,
		IngestedAt: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
		Table:      tbl,
	}
}

// mockWriteCloser is a testify mock for io.WriteCloser.
type mockWriteCloser struct {
	mock.Mock
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	args := m.Called(p)
	if err := args.Error(0); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (m *mockWriteCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}

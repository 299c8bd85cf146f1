package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	journal, err := NewJournal(DefaultJournalConfig(dir))
	require.NoError(t, err)
	require.NoError(t, journal.Start(context.Background()))

	l := New(journal)
	want := make([]schema.Trade, 0, 5)
	for i := 0; i < 5; i++ {
		stored, err := l.Append(schema.Trade{
			StrategyID:  "s1",
			Symbol:      "ACME",
			Qty:         schema.Quantity(i + 1),
			Price:       10000,
			Fees:        50,
			RealizedPnL: schema.PnL(i * 100),
			Timestamp:   int64(i),
			Note:        "test",
		})
		require.NoError(t, err)
		want = append(want, stored)
	}
	require.NoError(t, journal.Close())

	got, err := ReadJournal(dir, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJournalTryAppendBeforeStart(t *testing.T) {
	journal, err := NewJournal(DefaultJournalConfig(t.TempDir()))
	require.NoError(t, err)
	assert.ErrorIs(t, journal.TryAppend(schema.Trade{}), ErrJournalNotStarted)
}

func TestJournalTryAppendAfterClose(t *testing.T) {
	journal, err := NewJournal(DefaultJournalConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, journal.Start(context.Background()))
	require.NoError(t, journal.Close())
	assert.ErrorIs(t, journal.TryAppend(schema.Trade{}), ErrJournalClosed)
}

func TestJournalSegmentRotationBySize(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultJournalConfig(dir)
	cfg.SegmentMaxBytes = 64
	journal, err := NewJournal(cfg)
	require.NoError(t, err)
	require.NoError(t, journal.Start(context.Background()))

	l := New(journal)
	for i := 0; i < 4; i++ {
		_, err := l.Append(schema.Trade{StrategyID: "s1", Symbol: "ACME", Qty: 1, Price: 10000})
		require.NoError(t, err)
	}
	require.NoError(t, journal.Close())

	got, err := ReadJournal(dir, "")
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, tr := range got {
		assert.Equal(t, uint64(i+1), tr.ID)
	}
}

func TestJournalConfigValidate(t *testing.T) {
	cfg := DefaultJournalConfig("")
	assert.Error(t, cfg.Validate())

	cfg = DefaultJournalConfig(t.TempDir())
	assert.NoError(t, cfg.Validate())
}

package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-steward/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCSVSink_RoutesExceptions(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "audit-log.csv")
	flaggedPath := filepath.Join(dir, "flagged-items.csv")

	sink, err := NewCSVSink(mainPath, flaggedPath)
	require.NoError(t, err)

	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, model.AuditRecord{
		Timestamp: ts, Item: "HAMACHI LOIN", Vendor: "True World Foods", Product: "hamachi loin",
		Category: "Food Purchases", LedgerCode: "5001", UnitClass: model.UnitWeight, Status: model.StatusApproved,
	}))
	require.NoError(t, sink.Append(ctx, model.AuditRecord{
		Timestamp: ts, Item: `DASHI "KOMBU", 1KG`, Status: model.StatusFlagged, Notes: "Validation: Size is required",
	}))
	require.NoError(t, sink.Append(ctx, model.AuditRecord{Timestamp: ts, Item: "SOY SAUCE", Status: model.StatusStuck}))
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{
		"Timestamp,Item,Vendor,Product,Category,GL_Code,Family_Unit,Status,Notes",
		"2026-03-04T05:06:07Z,HAMACHI LOIN,True World Foods,hamachi loin,Food Purchases,5001,Weight,APPROVED,",
	}, readLines(t, mainPath))
	assert.Equal(t, []string{
		"Timestamp,Item,Vendor,Product,Category,GL_Code,Family_Unit,Status,Notes",
		`2026-03-04T05:06:07Z,"DASHI ""KOMBU"", 1KG",,,,,,FLAGGED,Validation: Size is required`,
		"2026-03-04T05:06:07Z,SOY SAUCE,,,,,,STUCK,",
	}, readLines(t, flaggedPath))
}

func TestCSVSink_AppendsWithoutRepeatingHeader(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "logs", "recat-log.csv")
	errorsPath := filepath.Join(dir, "logs", "recat-errors.csv")

	for i := 0; i < 2; i++ {
		sink, err := NewCSVSink(mainPath, errorsPath)
		require.NoError(t, err)
		require.NoError(t, sink.Append(context.Background(), model.AuditRecord{Item: "NAPKIN", Status: model.StatusUpdated}))
		require.NoError(t, sink.Close())
	}

	lines := readLines(t, mainPath)
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Len(t, readLines(t, errorsPath), 1)
}

func TestCSVSink_AppendAfterClose(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewCSVSink(filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	require.Error(t, sink.Append(context.Background(), model.AuditRecord{Status: model.StatusApproved}))
}

func TestReadHistory_ReadsWhatTheSinkWrote(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "audit-log.csv")

	sink, err := NewCSVSink(mainPath, filepath.Join(dir, "flagged.csv"))
	require.NoError(t, err)
	records := []model.AuditRecord{
		{Item: "PAPER TOWEL ROLL", Vendor: "Sysco", Category: "Food Purchases", LedgerCode: "5000", Status: model.StatusApproved},
		{Item: "OHTA WASABI", Vendor: "Ohta Foods", Category: "Food Purchases", LedgerCode: "5001", Status: model.StatusSkipped},
	}
	for _, r := range records {
		require.NoError(t, sink.Append(context.Background(), r))
	}
	require.NoError(t, sink.Close())

	got, err := ReadHistory(mainPath)
	require.NoError(t, err)

	want := []model.HistoryItem{
		{Description: "PAPER TOWEL ROLL", Vendor: "Sysco", Category: "Food Purchases", LedgerCode: "5000", Status: model.StatusApproved},
		{Description: "OHTA WASABI", Vendor: "Ohta Foods", Category: "Food Purchases", LedgerCode: "5001", Status: model.StatusSkipped},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadHistory() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHistory(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		items, err := ParseHistory(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("missing status column", func(t *testing.T) {
		_, err := ParseHistory(strings.NewReader("Item,Vendor\nA,B\n"))
		require.Error(t, err)
	})

	t.Run("short rows and blank items", func(t *testing.T) {
		input := "\ufeffTimestamp,Item,Vendor,Product,Category,GL_Code,Family_Unit,Status,Notes\n" +
			"t,LEMON,Sysco\n" +
			"t,,Sysco,,,,,APPROVED,\n"
		items, err := ParseHistory(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, []model.HistoryItem{{Description: "LEMON", Vendor: "Sysco"}}, items)
	})
}

func TestReadHistory_MissingFile(t *testing.T) {
	_, err := ReadHistory(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMultiSink(t *testing.T) {
	first := &MemorySink{}
	failing := &MemorySink{Err: errors.New("disk full")}
	last := &MemorySink{}

	err := MultiSink{first, failing, nil, last}.Append(context.Background(), model.AuditRecord{Status: model.StatusApproved})
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, []model.RecordStatus{model.StatusApproved}, first.Statuses())
	assert.Equal(t, []model.RecordStatus{model.StatusApproved}, last.Statuses())
}

type ctxSink struct {
	MemorySink
}

func (c *ctxSink) Append(ctx context.Context, record model.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MemorySink.Append(ctx, record)
}

func TestDetached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &ctxSink{}
	require.ErrorIs(t, inner.Append(ctx, model.AuditRecord{Item: "ONION"}), context.Canceled)

	require.NoError(t, Detached(inner).Append(ctx, model.AuditRecord{Item: "ONION", Status: model.StatusApproved}))
	assert.Equal(t, []model.RecordStatus{model.StatusApproved}, inner.Statuses())
}

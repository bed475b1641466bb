package batch_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/paragraph-tools/multigrm/internal/batch"
	"github.com/paragraph-tools/multigrm/internal/log"
	"github.com/paragraph-tools/multigrm/internal/model"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t.Parallel()
	outcomes := []model.Outcome{
		model.Success(model.Record{"id": "a"}),
		model.Failure(nil, errors.New("exit status 1"), []string{"x"}),
		model.Success(model.Record{"id": "c"}),
	}

	res := batch.Aggregate(outcomes, 3*time.Second)
	require.Equal(t, batch.Summary{Total: 3, Failed: 1, Elapsed: 3 * time.Second}, res.Summary)
	require.Len(t, res.Records, 3)
	require.Equal(t, "a", res.Records[0]["id"])
	require.True(t, res.Records[1].HasError())
	require.Equal(t, "c", res.Records[2]["id"])
}

func TestSummaryLog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, slog.LevelInfo)
	batch.Summary{Total: 3, Failed: 1, Elapsed: time.Second}.Log(t.Context(), logger)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "WARN", rec["level"])
	require.EqualValues(t, 3, rec["total"])
	require.EqualValues(t, 1, rec["failed"])
	require.Equal(t, "1s", rec["elapsed"])
}

func TestEncode(t *testing.T) {
	t.Parallel()
	records := []model.Record{
		{"zeta": 1, "alpha": map[string]any{"b": 2, "a": 1}},
		model.Failure(nil, errors.New("boom"), nil).Result(),
	}

	var buf bytes.Buffer
	require.NoError(t, batch.Encode(&buf, records))

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	text := string(raw)

	// sorted keys, four space indent
	require.Less(t, strings.Index(text, `"alpha"`), strings.Index(text, `"zeta"`))
	require.Contains(t, text, "\n        \"alpha\": {")
	require.Contains(t, text, `"exception": "boom"`)

	decoded, err := batch.Decode(bytes.NewReader(mustGzip(t, raw)))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, json.Number("1"), decoded[0]["zeta"])
	require.True(t, decoded[1].HasError())
}

func TestEncode_SymbolicAllele(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, batch.Encode(&buf, []model.Record{{"alt": "<DEL>"}}))

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"alt": "<DEL>"`)
}

func TestDecode_TrailingData(t *testing.T) {
	t.Parallel()
	_, err := batch.Decode(bytes.NewReader(mustGzip(t, []byte("[]\n[{}]"))))
	require.ErrorIs(t, err, model.ErrTrailingData)
}

func TestEncode_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, batch.Encode(&buf, nil))
	decoded, err := batch.Decode(&buf)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	require.Empty(t, decoded)
}

func TestDecode_NotGzip(t *testing.T) {
	t.Parallel()
	_, err := batch.Decode(strings.NewReader("[]"))
	require.ErrorContains(t, err, "decompressing result")
}

func mustGzip(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(b)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

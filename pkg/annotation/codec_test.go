package annotation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	s := newTestStore()
	_, _ = s.Add(90, f(100), "JUKE", "LEFT,RIGHT", "2")
	_, _ = s.Add(65, f(70), "SPIN", "", "1")
	_, _ = s.Add(30, nil, "TACKLE", "", "")

	data, err := s.ExportCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "TagName,StartTime,EndTime,Modifiers,Down", lines[0])
	//ascending start order, minute-dot-second times
	assert.Equal(t, "TACKLE,0.30,,,", lines[1])
	assert.Equal(t, "SPIN,1.05,1.10,,1", lines[2])
	//field with a comma is quoted
	assert.Equal(t, `JUKE,1.30,1.40,"LEFT,RIGHT",2`, lines[3])
}

func TestExportJSON(t *testing.T) {
	s := newTestStore()
	_, _ = s.Add(65, f(70), "SPIN", "LEFT", "1")

	data, err := s.ExportJSON()
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"TagName": "SPIN"`)
	assert.Contains(t, text, `"StartTime": "1.05"`)
	assert.Contains(t, text, `"EndTime": "1.10"`)
	assert.Contains(t, text, `"Modifiers": "LEFT"`)
	assert.Contains(t, text, `"Down": "1"`)
	//pretty printed with two-space indent
	assert.True(t, strings.HasPrefix(text, "[\n  {"))
}

func TestExportFileName(t *testing.T) {
	assert.Regexp(t, `^annotations_\d+\.csv$`, ExportFileName("csv"))
	assert.Regexp(t, `^annotations_\d+\.json$`, ExportFileName("json"))
}

func TestImportCSV(t *testing.T) {
	t.Run("imports well-formed rows", func(t *testing.T) {
		s := newTestStore()
		res, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,EndTime,Modifiers,Down\n" +
				"SPIN,1.05,1.10,LEFT,1\n" +
				"JUKE,45,50,,2\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Imported)
		assert.Equal(t, 0, res.Skipped)

		snap := s.Snapshot()
		require.Len(t, snap, 2)
		assert.Equal(t, 45.0, snap[0].StartKey)
		assert.Equal(t, "JUKE", snap[0].TagName)
		assert.Equal(t, 65.0, snap[1].StartKey)
		require.NotNil(t, snap[1].EndKey)
		assert.Equal(t, 70.0, *snap[1].EndKey)
	})

	t.Run("header is case-insensitive and order-independent", func(t *testing.T) {
		s := newTestStore()
		res, err := s.ImportCSV(strings.NewReader(
			"starttime,TAGNAME,Modifiers,ENDTIME,down\n" +
				"1.05,SPIN,LEFT,1.10,3\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Imported)

		rec := s.Snapshot()[0]
		assert.Equal(t, "SPIN", rec.TagName)
		assert.Equal(t, "LEFT", rec.Modifier)
		assert.Equal(t, "3", rec.Down)
	})

	t.Run("missing required header rejects wholesale", func(t *testing.T) {
		s := newTestStore()
		_, _ = s.Add(1.0, nil, "KEEP", "", "")

		_, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,Modifiers\nSPIN,1.05,LEFT\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "endtime")

		//store untouched after a failed import
		require.Equal(t, 1, s.Len())
		assert.Equal(t, "KEEP", s.Snapshot()[0].TagName)
	})

	t.Run("replaces existing contents", func(t *testing.T) {
		s := newTestStore()
		_, _ = s.Add(1.0, nil, "OLD", "", "")

		_, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,EndTime,Modifiers\nSPIN,1.05,1.10,\n"))
		require.NoError(t, err)

		snap := s.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, "SPIN", snap[0].TagName)
	})

	t.Run("skips rows with empty tag or bad start", func(t *testing.T) {
		s := newTestStore()
		res, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,EndTime,Modifiers\n" +
				",1.05,1.10,\n" +
				"SPIN,junk,1.10,\n" +
				"SPIN,2.75,3.00,\n" + //seconds out of range
				"JUKE,1.05,1.10,\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Imported)
		assert.Equal(t, 3, res.Skipped)
		assert.Equal(t, "JUKE", s.Snapshot()[0].TagName)
	})

	t.Run("end falls back to start when undecodable", func(t *testing.T) {
		s := newTestStore()
		_, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,EndTime,Modifiers\nSPIN,1.05,junk,\n"))
		require.NoError(t, err)

		rec := s.Snapshot()[0]
		require.NotNil(t, rec.EndKey)
		assert.Equal(t, rec.StartKey, *rec.EndKey)
	})

	t.Run("duplicate rows dedupe through the add path", func(t *testing.T) {
		s := newTestStore()
		res, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,EndTime,Modifiers\n" +
				"SPIN,1.05,1.10,\n" +
				"spin,1.05,1.10,\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Imported)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("handles quoted fields with embedded commas and quotes", func(t *testing.T) {
		s := newTestStore()
		_, err := s.ImportCSV(strings.NewReader(
			"TagName,StartTime,EndTime,Modifiers\n" +
				"\"SPIN, HARD\",1.05,1.10,\"said \"\"go\"\"\"\n"))
		require.NoError(t, err)

		rec := s.Snapshot()[0]
		assert.Equal(t, "SPIN, HARD", rec.TagName)
		assert.Equal(t, `said "go"`, rec.Modifier)
	})
}

func TestImportRoundTrip(t *testing.T) {
	src := newTestStore()
	_, _ = src.Add(90, f(100), "JUKE", "LEFT,RIGHT", "2")
	_, _ = src.Add(65, f(70), "SPIN", "", "1")
	_, _ = src.Add(30, nil, "TACKLE", "", "4")

	data, err := src.ExportCSV()
	require.NoError(t, err)

	dst := newTestStore()
	res, err := dst.ImportCSV(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Equal(t, 3, res.Imported)

	got := dst.Snapshot()
	want := src.Snapshot()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].StartKey, got[i].StartKey, "row %d start", i)
		assert.Equal(t, want[i].TagName, got[i].TagName, "row %d tag", i)
		assert.Equal(t, want[i].Modifier, got[i].Modifier, "row %d modifier", i)
		assert.Equal(t, want[i].Down, got[i].Down, "row %d down", i)
		if want[i].EndKey != nil {
			require.NotNil(t, got[i].EndKey, "row %d end", i)
			assert.Equal(t, *want[i].EndKey, *got[i].EndKey, "row %d end", i)
		} else {
			//a point annotation exports an empty end and re-imports zero-width
			require.NotNil(t, got[i].EndKey, "row %d end", i)
			assert.Equal(t, want[i].StartKey, *got[i].EndKey, "row %d end", i)
		}
	}

	t.Run("importing twice is idempotent", func(t *testing.T) {
		res, err := dst.ImportCSV(strings.NewReader(string(data)))
		require.NoError(t, err)
		assert.Equal(t, 3, res.Imported)

		again := dst.Snapshot()
		require.Len(t, again, len(got))
		for i := range got {
			assert.Equal(t, got[i].StartKey, again[i].StartKey)
			assert.Equal(t, got[i].TagName, again[i].TagName)
			assert.Equal(t, got[i].Modifier, again[i].Modifier)
			assert.Equal(t, got[i].Down, again[i].Down)
		}
	})
}

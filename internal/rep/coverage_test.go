package rep

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	m "github.com/whr0724/genprog-code/internal/model"
)

func TestInstrumentWrapsEveryNumberedStatement(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	files, err := v.Instrument("/tmp/trace.txt", CoverageOptions{})
	require.NoError(t, err)

	instrumented := files["/project/main.go"]
	require.Contains(t, instrumented, "gpTrace(1)")
	require.Contains(t, instrumented, "gpTrace(2)")
	require.Contains(t, instrumented, "gpTrace(3)")

	// The trace call runs before the statement it covers.
	require.Less(t, strings.Index(instrumented, "gpTrace(2)"), strings.Index(instrumented, "a = a + 1"))
}

func TestInstrumentEmitsHelper(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	files, err := v.Instrument("/tmp/trace.txt", CoverageOptions{})
	require.NoError(t, err)

	helper := files[m.Path(CoverageHelperFile)]
	require.Contains(t, helper, "package main")
	require.Contains(t, helper, "func gpTrace(id int)")
	require.Contains(t, helper, `"/tmp/trace.txt"`)

	// Plain mode holds the file open; no per-emission sync.
	require.Contains(t, helper, "gpTraceFile")
	require.NotContains(t, helper, "gpTraceSeen")
}

func TestInstrumentUniqMode(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	files, err := v.Instrument("/tmp/trace.txt", CoverageOptions{Uniq: true})
	require.NoError(t, err)

	helper := files[m.Path(CoverageHelperFile)]

	// One byte per statement id, sized max_atom + 1.
	require.Contains(t, helper, "var gpTraceSeen [4]byte")
}

func TestInstrumentMultithreadMode(t *testing.T) {
	v := newPatchVariant(t, computeSrc)

	files, err := v.Instrument("/tmp/trace.txt", CoverageOptions{Multithread: true, Uniq: true})
	require.NoError(t, err)

	helper := files[m.Path(CoverageHelperFile)]

	// Multithread mode reopens and flushes per emission.
	require.Contains(t, helper, "f.Sync()")
	require.NotContains(t, helper, "var gpTraceFile")

	// Modes compose.
	require.Contains(t, helper, "gpTraceSeen")
}

func TestInstrumentAppliesPendingEdits(t *testing.T) {
	v := newPatchVariant(t, computeSrc)
	require.NoError(t, v.Delete(2))

	files, err := v.Instrument("/tmp/trace.txt", CoverageOptions{})
	require.NoError(t, err)

	instrumented := files["/project/main.go"]
	require.NotContains(t, instrumented, "a = a + 1")

	// The deleted statement's slot still reports execution.
	require.Contains(t, instrumented, "gpTrace(2)")
}

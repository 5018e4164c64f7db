package discovery

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/dom"
	"github.com/jonathan/applypilot/internal/dom/domtest"
	"github.com/jonathan/applypilot/internal/types"
)

func TestDiscover_ExtractsMetadata(t *testing.T) {
	frame := domtest.MustFrame(`
		<form>
			<label for="fn">First Name</label>
			<input id="fn" name="first_name" type="text" required>
			<input name="email" type="email" placeholder="you@example.com" aria-label="Work Email">
			<textarea name="cover"></textarea>
			<select name="country"><option value="US">United States</option></select>
			<div contenteditable="true" role="textbox"></div>
			<fieldset>
				<legend>Are you a veteran?</legend>
				<input type="radio" name="vet" value="yes">
			</fieldset>
		</form>`)

	candidates, err := Discover(context.Background(), domtest.NewTree(frame))
	require.NoError(t, err)
	require.Len(t, candidates, 6)

	first := candidates[0]
	assert.Equal(t, "first_name", first.FieldID)
	assert.Equal(t, "fn", first.DOMID)
	assert.Equal(t, "First Name", first.Label)
	assert.Equal(t, types.KindText, first.Kind)
	assert.True(t, first.Required)

	email := candidates[1]
	assert.Equal(t, "Work Email", email.AriaName)
	assert.Equal(t, "you@example.com", email.Placeholder)

	assert.Equal(t, types.KindTextarea, candidates[2].Kind)
	assert.Equal(t, types.KindSelect, candidates[3].Kind)
	assert.Equal(t, types.KindRichText, candidates[4].Kind)

	radio := candidates[5]
	assert.Equal(t, types.KindRadio, radio.Kind)
	assert.Equal(t, "Are you a veteran?", radio.QuestionText)
}

func TestDiscover_SkipsUnfillableControls(t *testing.T) {
	frame := domtest.MustFrame(`
		<form>
			<input type="submit" value="Apply">
			<input type="button" value="Back">
			<input type="reset">
			<input type="image">
			<input type="hidden" name="token">
			<input type="file" name="resume">
			<input type="text" name="keep">
		</form>`)

	candidates, err := Discover(context.Background(), domtest.NewTree(frame))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "keep", candidates[0].FieldID)
}

func TestDiscover_SkipsHiddenAndDisabled(t *testing.T) {
	frame := domtest.MustFrame(`
		<form>
			<input type="text" name="disabled" disabled>
			<input type="text" name="nodisplay" style="display: none">
			<input type="text" name="invisible" style="visibility:hidden">
			<input type="text" name="hiddenattr" hidden>
			<input type="text" name="visible">
		</form>`)

	candidates, err := Discover(context.Background(), domtest.NewTree(frame))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "visible", candidates[0].FieldID)
}

func TestDiscover_InaccessibleFrameIsSkipped(t *testing.T) {
	a := domtest.MustFrame(`<input type="text" name="outer">`)
	b := domtest.MustFrame(`<input type="text" name="inner">`)
	tree := domtest.NewTree(a, domtest.ErrorFrame{}, b)

	candidates, err := Discover(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "outer", candidates[0].FieldID)
	assert.Equal(t, "inner", candidates[1].FieldID)
}

func TestDiscover_HandlesAreUniqueAndStable(t *testing.T) {
	frame := domtest.MustFrame(`
		<form>
			<input type="text" name="a">
			<input type="text">
			<input type="text">
		</form>`)
	tree := domtest.NewTree(frame)

	first, err := Discover(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, first, 3)

	seen := map[string]bool{}
	for _, c := range first {
		require.NotEmpty(t, c.ResolutionHandle)
		assert.False(t, seen[c.ResolutionHandle], "handle %q assigned twice", c.ResolutionHandle)
		seen[c.ResolutionHandle] = true
	}

	// A second pass over the unmodified document must reuse the markers
	// written during the first pass.
	second, err := Discover(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].ResolutionHandle, second[i].ResolutionHandle)
	}
}

func TestDiscover_BoundsCandidateCount(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<form>")
	for i := 0; i < MaxCandidates+50; i++ {
		fmt.Fprintf(&sb, `<input type="text" name="f%d">`, i)
	}
	sb.WriteString("</form>")

	candidates, err := Discover(context.Background(), domtest.NewTree(domtest.MustFrame(sb.String())))
	require.NoError(t, err)
	assert.Len(t, candidates, MaxCandidates)
}

func TestDiscover_MarkerIsWrittenToDocument(t *testing.T) {
	frame := domtest.MustFrame(`<input type="text" name="a">`)
	_, err := Discover(context.Background(), domtest.NewTree(frame))
	require.NoError(t, err)

	node := frame.NodeFor(`input[name="a"]`)
	require.NotNil(t, node)
	assert.NotEmpty(t, node.Attr(dom.MarkerAttr))
}

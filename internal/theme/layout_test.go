package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSnippet(t *testing.T) {
	s := RenderSnippet("TRK123", "")

	assert.Contains(t, s, "TRK123")
	assert.Contains(t, s, DefaultScriptURL)
	assert.True(t, strings.HasSuffix(s, "\n"))
	assert.Equal(t, s, RenderSnippet("TRK123", ""))

	escaped := RenderSnippet(`"><script>`, "https://cdn.example.com/t.js")
	assert.NotContains(t, escaped, `"><script>`)
}

func TestInsertBeforeHeadClose(t *testing.T) {
	layout := ParseLayout("<html><head></head></html>")
	snippet := RenderSnippet("TRK123", "")

	inserted, err := layout.InsertBeforeHeadClose("TRK123", snippet)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "<html><head>"+snippet+"</head></html>", layout.String())
	assert.Equal(t, 1, strings.Count(layout.String(), "TRK123\""))
}

func TestInsertIsIdempotent(t *testing.T) {
	snippet := RenderSnippet("TRK123", "")
	first := ParseLayout("<html><head><title>x</title></head><body></body></html>")
	_, err := first.InsertBeforeHeadClose("TRK123", snippet)
	require.NoError(t, err)

	again := ParseLayout(first.String())
	assert.True(t, again.HasSnippet("TRK123"))

	inserted, err := again.InsertBeforeHeadClose("TRK123", snippet)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.String(), again.String())
	assert.Equal(t, 1, strings.Count(again.String(), "archie-tracking:begin"))
}

func TestInsertFailsWithoutHeadClose(t *testing.T) {
	layout := ParseLayout("<html><body>no head here</body></html>")
	assert.False(t, layout.HasHeadClose())

	_, err := layout.InsertBeforeHeadClose("TRK123", RenderSnippet("TRK123", ""))
	assert.ErrorIs(t, err, ErrHeadMarkerMissing)
	assert.Equal(t, "<html><body>no head here</body></html>", layout.String())
}

func TestParseLayoutRoundTrips(t *testing.T) {
	sources := []string{
		"",
		"<html><HEAD></HEAD></html>",
		"<html><head>" + RenderSnippet("OLD", "") + "</head></html>",
		"<html><head><!-- archie-tracking:begin broken</head><body></body></html>",
		"{% liquid %}<head>\n{{ content_for_header }}\n</head>\n<body></Head></body>",
	}
	for _, src := range sources {
		assert.Equal(t, src, ParseLayout(src).String())
	}
}

func TestParseLayoutOnlyFirstHeadClose(t *testing.T) {
	layout := ParseLayout("<head></head><template><head></head></template>")

	count := 0
	for _, n := range layout.Nodes {
		if n.Kind == NodeHeadClose {
			count++
		}
	}
	assert.Equal(t, 1, count)

	_, err := layout.InsertBeforeHeadClose("T1", "<s/>")
	require.NoError(t, err)
	assert.Equal(t, "<head><s/></head><template><head></head></template>", layout.String())
}

func TestDifferentTrackingIDIsInserted(t *testing.T) {
	layout := ParseLayout("<head>" + RenderSnippet("OLD", "") + "</head>")
	assert.True(t, layout.HasSnippet("OLD"))

	inserted, err := layout.InsertBeforeHeadClose("NEW", RenderSnippet("NEW", ""))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.True(t, ParseLayout(layout.String()).HasSnippet("NEW"))
}

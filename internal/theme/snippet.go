package theme

import (
	"fmt"
	"html"
)

// DefaultScriptURL serves the storefront tracking script
const DefaultScriptURL = "https://cdn.archie.app/track.js"

const (
	snippetBeginPrefix = "<!-- archie-tracking:begin "
	snippetBeginSuffix = " -->"
	snippetEnd         = "<!-- archie-tracking:end -->"
)

// RenderSnippet renders the tracking snippet for a storefront. The output is a pure
// function of its inputs and always ends with a newline.
func RenderSnippet(trackingID, scriptURL string) string {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	id := html.EscapeString(trackingID)
	return fmt.Sprintf(
		"%s%s%s<script async src=\"%s\" data-tracking-id=\"%s\"></script>%s\n",
		snippetBeginPrefix, id, snippetBeginSuffix,
		html.EscapeString(scriptURL), id,
		snippetEnd,
	)
}

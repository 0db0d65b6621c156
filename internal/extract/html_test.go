package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLExtract(t *testing.T) {
	t.Parallel()

	page := []byte(`<!DOCTYPE html>
<html>
<head>
  <title>Quarterly Notice</title>
  <style>body { color: red; }</style>
</head>
<body>
  <nav>Home | About</nav>
  <script>console.log("tracking");</script>
  <main>
    <h1>Notice   of   Filing</h1>
    <p>The   agency   published a  rule.</p>
  </main>
  <footer>Copyright</footer>
</body>
</html>`)

	got, err := NewHTML().Extract(page, "https://example.com/notice")
	require.NoError(t, err)

	require.Contains(t, got.Text, "Notice of Filing")
	require.Contains(t, got.Text, "The agency published a rule.")
	require.NotContains(t, got.Text, "tracking")
	require.NotContains(t, got.Text, "color: red")
	require.NotContains(t, got.Text, "Home | About")
	require.NotContains(t, got.Text, "Copyright")
	require.Equal(t, "Quarterly Notice", got.Metadata["title"])
}

func TestHTMLExtractFragmentWithoutBody(t *testing.T) {
	t.Parallel()

	got, err := NewHTML().Extract([]byte(`<div>bare fragment</div>`), "https://example.com/f")
	require.NoError(t, err)
	require.Contains(t, got.Text, "bare fragment")
}

func TestHTMLExtractEmptyPage(t *testing.T) {
	t.Parallel()

	got, err := NewHTML().Extract([]byte(`<html><body></body></html>`), "https://example.com/e")
	require.NoError(t, err)
	require.Empty(t, got.Text)
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	in := "  first   line  \n\n\n second\tline \n"
	require.Equal(t, "first line\nsecond line", collapseWhitespace(in))
}

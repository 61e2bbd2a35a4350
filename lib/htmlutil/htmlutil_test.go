package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	node, err := html.Parse(strings.NewReader("<div><h3>Title</h3> and <a>a link</a></div>"))
	require.NoError(t, err)
	require.Equal(t, "Title and a link", GetText(node))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText("  a \n\t b    c\n"))
	require.Equal(t, "single spaces stay", CleanText("single spaces stay"))
	require.Empty(t, CleanText(" \n "))
}

func TestAbsolute(t *testing.T) {
	base, err := url.Parse("https://www.cisa.gov/uscert/")
	require.NoError(t, err)

	require.Equal(t, "https://www.cisa.gov/ncas/alerts", Absolute(base, "/ncas/alerts"))
	require.Equal(t, "https://example.com/x", Absolute(base, "https://example.com/x"))
	require.Equal(t, "https://www.cisa.gov/uscert/relative", Absolute(base, "relative"))
	require.Empty(t, Absolute(base, ""))
	require.Equal(t, "/ncas/alerts", Absolute(nil, "/ncas/alerts"))
}

package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLHelpersEscape(t *testing.T) {
	require.Equal(t, "<b>a &lt;b&gt; &amp; c</b>", Bold("a <b> & c"))
	require.Equal(t, "<code>New Coin Created!</code>", Code("New Coin Created!"))
	require.Equal(t, "<b>Name:</b> Pepe&#39;s", Field("Name", "Pepe's"))
	require.Equal(t, "<a href='https://x.test/token/0xA?a=1&amp;b=2'>0xA</a>", Link("https://x.test/token/0xA?a=1&b=2", "0xA"))
}

package papers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `<html><body><div id="content"><dl>
<dt class="ptitle"><br><a href="/content/CVPR2024/html/Smith_Fast_Things_CVPR_2024_paper.html">Fast Things</a></dt>
<dd>
<form id="form-Ann" action="/CVPR2024" method="post" class="authsearch">
<input type="hidden" name="query_author" value="Ann Smith">
<a href="#" onclick="document.getElementById('form-Ann').submit();">Ann Smith</a>,
</form>
<form id="form-Bo" action="/CVPR2024" method="post" class="authsearch">
<input type="hidden" name="query_author" value="Bo Chen">
<a href="#" onclick="document.getElementById('form-Bo').submit();">Bo Chen</a>
</form>
</dd>
<dd>[<a href="/content/CVPR2024/papers/Smith_Fast_Things_CVPR_2024_paper.pdf">pdf</a>]</dd>
<dt class="ptitle"><br><a href="/content/CVPR2024/html/Lone_Paper_CVPR_2024_paper.html">  Lone Paper  </a></dt>
<dt class="other"><a href="/ignored">Not a paper</a></dt>
</dl></div></body></html>`

func TestParse(t *testing.T) {
	papers, err := Parse(strings.NewReader(listing))
	require.NoError(t, err)
	require.Len(t, papers, 2)

	assert.Equal(t, "Fast Things", papers[0].Title)
	assert.Equal(t, "/content/CVPR2024/html/Smith_Fast_Things_CVPR_2024_paper.html", papers[0].Link)
	assert.Equal(t, []string{"Ann Smith", "Bo Chen"}, papers[0].Authors)

	assert.Equal(t, "Lone Paper", papers[1].Title)
	assert.Empty(t, papers[1].Authors)
}

func TestFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, []Paper{{Title: "Fast Things", Link: "/x", Authors: []string{"Ann Smith", "Bo Chen"}}}))
	assert.Equal(t, "Title: Fast Things\nLink: /x\nAuthors: Ann Smith, Bo Chen\n\n", buf.String())
}

func TestFetchSavesMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("day"))
		_, _ = w.Write([]byte(listing))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "raw.html")
	n, err := Fetch(context.Background(), srv.Client(), srv.URL+"/CVPR2024?day=all", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(listing)), n)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, listing, string(saved))
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "raw.html")
	_, err := Fetch(context.Background(), srv.Client(), srv.URL, path)
	assert.ErrorContains(t, err, "503")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

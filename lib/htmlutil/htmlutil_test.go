package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestTextNodes(t *testing.T) {
	doc := mustDoc(t, `<div id="d">
		<h4>Description</h4>
		<p>first <b>bold</b> rest</p>
		<script>var x = 1;</script>
		<p>  </p>
	</div>`)

	require.Equal(
		t,
		[]string{"Description", "first", "bold", "rest"},
		TextNodes(doc.Find("#d")),
	)
}

func TestOwnText(t *testing.T) {
	doc := mustDoc(t, `<span class="vich1">Acme Corp <span>ACME</span></span>`)
	require.Equal(t, "Acme Corp", OwnText(doc.Find("span.vich1")))
	require.Equal(t, "", OwnText(doc.Find("span.missing")))
}

func TestGetAnchors(t *testing.T) {
	doc := mustDoc(t, `<div>
		<a href="/idea/Acme/123">  Acme
			Corp </a>
		<a href="https://other.example/x">Other</a>
	</div>`)
	base, err := url.Parse("https://www.valueinvestorsclub.com/ideas/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), base, doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Acme Corp", Href: "https://www.valueinvestorsclub.com/idea/Acme/123"},
		{Name: "Other", Href: "https://other.example/x"},
	}, anchors)
}

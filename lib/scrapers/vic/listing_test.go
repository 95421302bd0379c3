package vic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"vicharvest/lib/restyutil"
	"vicharvest/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func renderListing(links []string, loadMore string, withDateJump bool) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if withDateJump {
		b.WriteString(`<form action="/ideas/" method="get">`)
		b.WriteString(`<input type="hidden" name="sort" value="date">`)
		b.WriteString(`<input type="text" id="dash_goto_date" name="goto_date">`)
		b.WriteString(`<button id="dash_goto_date_btn">Go</button></form>`)
	}
	for _, link := range links {
		fmt.Fprintf(&b, `<div class="entry"><a href="%s">idea</a><a href="/member/x/1">x</a></div>`, link)
	}
	if loadMore != "" {
		fmt.Fprintf(&b, `<a class="load-more load_more_ideas" href="%s">Load more</a>`, loadMore)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newListingServer(t testing.TB) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ideas/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("goto_date") == "03/01/2021" && r.URL.Query().Get("sort") == "date":
			fmt.Fprint(w, renderListing([]string{"/idea/CCC/3", "/idea/CCC/3/messages"}, "/ideas/more?page=2", true))
		case r.URL.Query().Get("goto_date") != "":
			w.WriteHeader(http.StatusBadRequest)
		default:
			fmt.Fprint(w, renderListing([]string{"/idea/AAA/1", "/idea/BBB/2"}, "/ideas/more?page=2", true))
		}
	})
	mux.HandleFunc("/ideas/more", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "2":
			fmt.Fprint(w, renderListing([]string{"/idea/DDD/4"}, "/ideas/more?page=3", false))
		case "3":
			fmt.Fprint(w, renderListing([]string{"/idea/DDD/4"}, "/ideas/more?page=4", false))
		case "4":
			fmt.Fprint(w, renderListing(nil, "", false))
		case "blocked":
			w.WriteHeader(http.StatusForbidden)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t testing.TB, baseUrl string, tel telemetry.API) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl:           baseUrl,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	}, tel)
	require.NoError(t, err)
	return client
}

func TestListing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:vic")
	defer cleanup()

	server := newListingServer(t)
	client := newTestClient(t, server.URL, telemetry.SlogAPI{})
	ctx := context.Background()

	listing, err := client.OpenListing(ctx)
	require.NoError(t, err)

	links, err := listing.Links(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{server.URL + "/idea/AAA/1", server.URL + "/idea/BBB/2"}, links)

	err = listing.GotoDate(ctx, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	links, err = listing.Links(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{server.URL + "/idea/CCC/3", server.URL + "/idea/CCC/3/messages"}, links)

	added, err := listing.LoadMore(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	_, err = listing.LoadMore(ctx)
	require.ErrorIs(t, err, ErrNoNewItems)

	_, err = listing.LoadMore(ctx)
	require.ErrorIs(t, err, ErrNoNewItems)

	_, err = listing.LoadMore(ctx)
	require.ErrorIs(t, err, ErrListingExhausted)

	links, err = listing.Links(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{
		server.URL + "/idea/CCC/3",
		server.URL + "/idea/CCC/3/messages",
		server.URL + "/idea/DDD/4",
	}, links)
}

func TestListingMissingDateJump(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ideas/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, renderListing([]string{"/idea/AAA/1"}, "", false))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tel := &telemetry.Recorder{}
	client := newTestClient(t, server.URL, tel)

	listing, err := client.OpenListing(context.Background())
	require.NoError(t, err)

	err = listing.GotoDate(context.Background(), time.Now())
	require.ErrorIs(t, err, ErrNavigation)
	require.Len(t, tel.Reports("broken", report_listing_goto_date), 1)

	_, err = listing.LoadMore(context.Background())
	require.ErrorIs(t, err, ErrListingExhausted)
}

func TestClientBlocked(t *testing.T) {
	server := newListingServer(t)
	tel := &telemetry.Recorder{}
	client := newTestClient(t, server.URL, tel)

	_, err := client.FetchIdea(context.Background(), "/ideas/more?page=blocked")
	require.ErrorIs(t, err, ErrBlocked)
	require.NotEmpty(t, tel.Reports("warning", report_client_get))
}

func TestClientFetchIdea(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/idea/ACME/1234", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "testdata/idea.html")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, telemetry.SlogAPI{})
	link := server.URL + "/idea/ACME/1234"

	doc, err := client.FetchIdea(context.Background(), link)
	require.NoError(t, err)

	idea := ParseIdea(context.Background(), doc, link)
	require.Equal(t, "ACME", idea.Ticker)
	require.Equal(t, "sale process begins Q3.", idea.Catalysts)
}

func TestClientDumpHttp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/idea/ACME/1234", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "testdata/idea.html")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	output, err := restyutil.NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := newTestClient(t, server.URL, telemetry.SlogAPI{})
	restyutil.InstrumentClient(client.Http, nil, output)

	_, err = client.FetchIdea(context.Background(), server.URL+"/idea/ACME/1234")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	contents, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(contents), "GET "+server.URL+"/idea/ACME/1234")
	require.Contains(t, string(contents), "Catalyst")
}

func TestClientResetState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		fmt.Fprint(w, "<html></html>")
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			fmt.Fprint(w, `<html><body><p id="state">none</p></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><p id="state">cookie</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, telemetry.SlogAPI{})
	ctx := context.Background()

	_, _, err := client.get(ctx, "/set")
	require.NoError(t, err)
	doc, _, err := client.get(ctx, "/check")
	require.NoError(t, err)
	require.Equal(t, "cookie", doc.Find("#state").Text())

	client.ResetState()
	doc, _, err = client.get(ctx, "/check")
	require.NoError(t, err)
	require.Equal(t, "none", doc.Find("#state").Text())
}

package vic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"
	"vicharvest/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://www.valueinvestorsclub.com"

const (
	report_client_get         = "client.get"
	report_client_fetch_idea  = "client.fetch-idea"
	report_client_reset_state = "client.reset-state"
)

// ErrBlocked is returned when the site answers with an error status, which
// in practice means the current network identity has been blocked.
var ErrBlocked = errors.New("request rejected by site")

type ClientOptions struct {
	BaseUrl string
	// RequestsPerSecond limits outgoing requests, 0 means 2 per second.
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	}

	tel = telemetry.NewScopedAPI("vic_scraper", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.Timeout)

	// burst >= 1 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
		tel:     tel,
	}, nil
}

// ResetState drops every cookie, it should be called after the network
// identity changes so the new identity does not carry the old session.
func (c *Client) ResetState() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		c.tel.ReportBroken(report_client_reset_state, err)
		return
	}
	c.Http.SetCookieJar(jar)
}

// get fetches and parses a page, it returns the final url of the page so
// relative links on it can be resolved.
func (c *Client) get(ctx context.Context, endpoint string) (*goquery.Document, *url.URL, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(report_client_get, fmt.Errorf("fetch: %w", err), endpoint)
		return nil, nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("%w: %s %s", ErrBlocked, res.Status(), endpoint)
		c.tel.ReportWarning(report_client_get, err)
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_get, fmt.Errorf("parse: %w", err), endpoint)
		return nil, nil, err
	}

	pageUrl := c.BaseUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		pageUrl = res.RawResponse.Request.URL
	}
	return doc, pageUrl, nil
}

// FetchIdea fetches an idea's detail page.
func (c *Client) FetchIdea(ctx context.Context, link string) (*goquery.Document, error) {
	c.tel.ReportDebug(report_client_fetch_idea, link)

	doc, _, err := c.get(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("fetch idea %s: %w", link, err)
	}
	return doc, nil
}

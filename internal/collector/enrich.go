package collector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// EnricherConfig tunes the website scrape.
type EnricherConfig struct {
	UserAgent string
	Timeout   time.Duration
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Social platforms recognized in outbound links, keyed by host.
var socialHosts = map[string]string{
	"facebook.com":  "facebook",
	"instagram.com": "instagram",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"linkedin.com":  "linkedin",
	"youtube.com":   "youtube",
	"tiktok.com":    "tiktok",
	"yelp.com":      "yelp",
}

// WebEnricher visits a candidate's website and pulls social profile links and
// a contact email from the landing page. All fields are fill-only; existing
// candidate data is never replaced.
type WebEnricher struct {
	base   *colly.Collector
	cfg    EnricherConfig
	logger *zap.Logger
}

// NewWebEnricher constructs a WebEnricher.
func NewWebEnricher(cfg EnricherConfig, logger *zap.Logger) *WebEnricher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
	)
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	base.SetRequestTimeout(cfg.Timeout)
	return &WebEnricher{base: base, cfg: cfg, logger: logger}
}

// Enrich scrapes the candidate's website landing page. Returns an error only
// when the site cannot be fetched; a page with nothing useful is not an error.
func (e *WebEnricher) Enrich(ctx context.Context, cand *discovery.Candidate) error {
	if cand.Website == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(cand.Website); err != nil {
		return fmt.Errorf("invalid website url %q: %w", cand.Website, err)
	}

	found := struct {
		socials map[string]string
		email   string
	}{socials: make(map[string]string)}

	c := e.base.Clone()
	c.OnHTML("a[href]", func(el *colly.HTMLElement) {
		href := el.Attr("href")
		if strings.HasPrefix(href, "mailto:") {
			addr := strings.TrimPrefix(href, "mailto:")
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if found.email == "" && emailPattern.MatchString(addr) {
				found.email = addr
			}
			return
		}
		if platform, link := classifySocialURL(el.Request.AbsoluteURL(href)); platform != "" {
			if _, ok := found.socials[platform]; !ok {
				found.socials[platform] = link
			}
		}
	})
	c.OnResponse(func(resp *colly.Response) {
		if found.email != "" {
			return
		}
		if m := emailPattern.Find(resp.Body); m != nil {
			found.email = string(m)
		}
	})

	errCh := make(chan error, 1)
	go func() {
		err := c.Visit(cand.Website)
		c.Wait()
		errCh <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("visit %s: %w", cand.Website, err)
		}
	}

	if cand.Email == "" {
		cand.Email = found.email
	}
	for platform, link := range found.socials {
		if cand.Socials == nil {
			cand.Socials = make(map[string]string)
		}
		if _, ok := cand.Socials[platform]; !ok {
			cand.Socials[platform] = link
		}
	}
	return nil
}

// classifySocialURL returns the platform name for a recognized social profile
// link, or "" when the URL is not a social link.
func classifySocialURL(raw string) (platform, link string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	name, ok := socialHosts[host]
	if !ok || u.Path == "" || u.Path == "/" {
		return "", ""
	}
	return name, raw
}

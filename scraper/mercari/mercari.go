package mercari

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"mercari-scraper/config"
	"mercari-scraper/models"
	"mercari-scraper/utils"
)

// Collector paginates through Mercari search results for one keyword,
// streaming a PageBatch to the emit callback as each page completes.
//
// Contract: best-effort. Errors after the first page end the crawl and the
// listings collected so far are returned without an error. Only a failure
// to load the first results page is fatal.
type Collector struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewCollector creates a ready-to-use Collector.
func NewCollector(cfg *config.Config, logger *utils.Logger) *Collector {
	return &Collector{cfg: cfg, logger: logger}
}

// itemData mirrors the per-cell extraction result from the page.
type itemData struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Collect runs the crawl: navigate → wait for content → scroll → extract →
// check next page, looping until the next-page button disappears, the page
// limit is hit, or a later page stops loading. It returns every listing
// accumulated across all emitted batches, in crawl order.
func (c *Collector) Collect(ctx context.Context, keyword string, emit func(models.PageBatch) error) ([]models.Listing, error) {
	session, err := NewSession(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	page := session.Page()

	searchURL := c.cfg.SearchURL(keyword)
	c.logger.Info("[mercari] Searching %q — %s", keyword, searchURL)

	navCtx, cancelNav := context.WithTimeout(page, c.cfg.PageLoadTimeout)
	err = chromedp.Run(navCtx, chromedp.Navigate(searchURL))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("mercari: navigate %s: %w", searchURL, err)
	}

	var all []models.Listing
	pageNum := 1

	for {
		if c.cfg.MaxPages > 0 && pageNum > c.cfg.MaxPages {
			c.logger.Info("[mercari] Page limit (%d) reached — stopping", c.cfg.MaxPages)
			break
		}

		if err := c.randomWait(ctx); err != nil {
			c.logger.Warn("[mercari] Cancelled while waiting before page %d", pageNum)
			break
		}

		if err := c.waitForContent(page); err != nil {
			if pageNum == 1 {
				return nil, fmt.Errorf("mercari: no listings appeared on the first page: %w", err)
			}
			c.logger.Info("[mercari] Page %d shows no more content — stopping", pageNum)
			break
		}

		c.scroll(page)

		listings, err := c.extract(page, pageNum)
		if err != nil {
			c.logger.Error("[mercari] Page %d extraction failed: %v — keeping %d listings", pageNum, err, len(all))
			break
		}

		hasNext, err := c.hasNextButton(page)
		if err != nil {
			c.logger.Error("[mercari] Page %d next-button check failed: %v — keeping %d listings", pageNum, err, len(all))
			break
		}

		all = append(all, listings...)
		batch := models.PageBatch{
			Number:      pageNum,
			Listings:    listings,
			IsFirstPage: pageNum == 1,
		}
		if err := emit(batch); err != nil {
			c.logger.Error("[mercari] Persisting page %d failed: %v — keeping %d listings", pageNum, err, len(all))
			break
		}
		c.logger.Info("[mercari] Page %d done — %d listings (running total: %d)", pageNum, len(listings), len(all))

		if !hasNext {
			c.logger.Info("[mercari] No more pages")
			break
		}

		if err := c.clickNext(page); err != nil {
			c.logger.Error("[mercari] Page transition from %d failed: %v — keeping %d listings", pageNum, err, len(all))
			break
		}
		pageNum++
	}

	c.logger.Info("[mercari] Crawl complete — %d pages, %d listings", pageNum, len(all))
	return all, nil
}

// randomWait sleeps a random duration within [MinPageWait, MaxPageWait]
// so page requests are not uniformly timed.
func (c *Collector) randomWait(ctx context.Context) error {
	min, max := c.cfg.MinPageWait, c.cfg.MaxPageWait
	delay := min
	if max > min {
		delay = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitForContent waits for at least one item cell, bounded by the page-load
// timeout.
func (c *Collector) waitForContent(page context.Context) error {
	ctx, cancel := context.WithTimeout(page, c.cfg.PageLoadTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitReady(c.cfg.ItemCellSelector, chromedp.ByQuery))
}

// scroll steps through the configured scroll fractions to trigger
// lazy-loaded cells. Best effort; extraction proceeds regardless.
func (c *Collector) scroll(page context.Context) {
	for _, fraction := range c.cfg.ScrollFractions {
		err := chromedp.Run(page,
			chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, document.body.scrollHeight*%g)", fraction), nil),
			chromedp.Sleep(c.cfg.ScrollWait),
		)
		if err != nil {
			c.logger.Debug("[mercari] Scroll to %g failed: %v", fraction, err)
			return
		}
	}
}

// extract reads name and price from every item cell on the current page.
// Cells missing either field are logged and skipped, never fatal.
func (c *Collector) extract(page context.Context, pageNum int) ([]models.Listing, error) {
	expr := fmt.Sprintf(`
		(() => {
			const cells = document.querySelectorAll(%q);
			const out = [];
			cells.forEach(cell => {
				const nameEl = cell.querySelector(%q);
				const priceEl = cell.querySelector(%q);
				out.push({
					name: nameEl ? nameEl.innerText : "",
					price: priceEl ? priceEl.innerText : "",
				});
			});
			return out;
		})()
	`, c.cfg.ItemCellSelector, c.cfg.ItemNameSelector, c.cfg.ItemPriceSelector)

	var cells []itemData
	if err := chromedp.Run(page, chromedp.Evaluate(expr, &cells)); err != nil {
		return nil, fmt.Errorf("mercari: extract page %d: %w", pageNum, err)
	}

	listings := make([]models.Listing, 0, len(cells))
	for i, cell := range cells {
		name := strings.TrimSpace(cell.Name)
		price := strings.TrimSpace(cell.Price)
		if name == "" || price == "" {
			c.logger.Debug("[mercari] Page %d item %d: missing name or price — skipped", pageNum, i+1)
			continue
		}
		listings = append(listings, models.Listing{Name: name, Price: price})
	}

	c.logger.Debug("[mercari] Page %d — %d cells, %d extracted", pageNum, len(cells), len(listings))
	return listings, nil
}

// hasNextButton reports whether the next-page affordance is present.
func (c *Collector) hasNextButton(page context.Context) (bool, error) {
	var present bool
	expr := fmt.Sprintf("document.querySelector(%q) !== null", c.cfg.NextButtonSelector)
	if err := chromedp.Run(page, chromedp.Evaluate(expr, &present)); err != nil {
		return false, fmt.Errorf("mercari: next-button query: %w", err)
	}
	return present, nil
}

// clickNext triggers the next-page button. A click failure ends the crawl
// with whatever was collected so far.
func (c *Collector) clickNext(page context.Context) error {
	ctx, cancel := context.WithTimeout(page, c.cfg.PageLoadTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Click(c.cfg.NextButtonSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("mercari: click next page: %w", err)
	}
	return nil
}

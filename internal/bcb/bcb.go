/*
Package bcb retrieves Pix-related normativos from the Banco Central do Brasil
portal. The primary strategy queries the normativo search listing (the portal
serves either JSON or HTML depending on endpoint and mood); when the listing
yields nothing, a sequential-probing fallback guesses the next resolution
numbers and checks each for existence.
*/
package bcb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"pixmonitor/internal/types"
)

const (
	userAgent = "PixMonitor/1.0 (PM Bot; contato@suainstituicao.com.br)"

	// defaultType is the normativo class this monitor tracks.
	defaultType = "Resolução BCB"

	// maxItems bounds how many candidates a single fetch may return.
	maxItems = 20

	// probeCount is how many sequential numbers the fallback checks.
	probeCount = 5

	// probeBaseline seeds the fallback when the history holds no numeric id.
	probeBaseline = 400
)

var (
	hrefNumberExpr = regexp.MustCompile(`(?i)numero=([0-9]+)`)
	textNumberExpr = regexp.MustCompile(`(?i)n[ºo°]?\.?\s*([0-9]+)`)
	idNumberExpr   = regexp.MustCompile(`([0-9]+)$`)
)

// Fetcher discovers candidate regulations on the BCB portal.
type Fetcher struct {
	client        *http.Client
	searchURL     string
	detailBaseURL string
	logger        *zap.Logger
	now           func() time.Time
}

func NewFetcher(client *http.Client, searchURL, detailBaseURL string, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{
		client:        client,
		searchURL:     searchURL,
		detailBaseURL: detailBaseURL,
		logger:        logger,
		now:           time.Now,
	}
}

// searchResponse mirrors the portal's JSON listing shape.
type searchResponse struct {
	Conteudo []searchItem `json:"conteudo"`
}

type searchItem struct {
	Numero         json.Number `json:"numero"`
	Tipo           string      `json:"tipo"`
	Titulo         string      `json:"titulo"`
	DataPublicacao string      `json:"dataPublicacao"`
	Ementa         string      `json:"ementa"`
}

// FetchLatest returns up to maxItems candidate regulations, newest first as
// served by the portal. A listing fetch failure is returned as an error (the
// run has nothing to work with); an empty listing triggers the sequential
// probing fallback. seenIDs feeds the fallback's numbering baseline.
func (f *Fetcher) FetchLatest(ctx context.Context, seenIDs []string) ([]types.Regulation, error) {
	items, err := f.fetchListing(ctx)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		f.logger.Warn("listing returned no items, falling back to sequential probing")
		items = f.probeSequential(ctx, seenIDs)
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

func (f *Fetcher) fetchListing(ctx context.Context) ([]types.Regulation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read listing body: %w", err)
	}

	// The portal has served both JSON and HTML for this listing over time.
	// Try JSON first, then fall back to row scraping on the same bytes.
	if items, ok := f.parseJSONListing(body); ok {
		return items, nil
	}
	return f.parseHTMLListing(body)
}

func (f *Fetcher) parseJSONListing(body []byte) ([]types.Regulation, bool) {
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false
	}

	items := make([]types.Regulation, 0, len(parsed.Conteudo))
	for _, item := range parsed.Conteudo {
		numero := item.Numero.String()
		if numero == "" {
			f.logger.Warn("listing item without number, skipping", zap.String("title", item.Titulo))
			continue
		}
		tipo := item.Tipo
		if tipo == "" {
			tipo = defaultType
		}
		items = append(items, types.Regulation{
			ID:          types.DeriveID(tipo, numero),
			Type:        tipo,
			Number:      numero,
			Title:       item.Titulo,
			PublishedAt: truncateDate(item.DataPublicacao),
			URL:         f.detailURL(tipo, numero),
			Abstract:    item.Ementa,
		})
	}
	return items, true
}

// parseHTMLListing extracts regulations from listing rows (table rows or
// result cards). The number comes from the detail link target when possible,
// from the visible text otherwise; rows without a number are skipped.
func (f *Fetcher) parseHTMLListing(body []byte) ([]types.Regulation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var items []types.Regulation
	seen := map[string]struct{}{}

	doc.Find("table tbody tr, .resultado-busca, .card-normativo").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href*='exibenormativo'], a[href*='numero=']").First()
		if link.Length() == 0 {
			link = row.Find("a").First()
		}
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		numero := extractNumber(hrefNumberExpr, href)
		if numero == "" {
			numero = extractNumber(textNumberExpr, row.Text())
		}
		if numero == "" {
			f.logger.Debug("listing row without extractable number, skipping",
				zap.String("text", strings.TrimSpace(link.Text())))
			return
		}

		id := types.DeriveID(defaultType, numero)
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = strings.TrimSpace(row.Find("h5, h4, strong").First().Text())
		}

		items = append(items, types.Regulation{
			ID:          id,
			Type:        defaultType,
			Number:      numero,
			Title:       title,
			PublishedAt: findRowDate(row),
			URL:         f.detailURL(defaultType, numero),
			Abstract:    strings.TrimSpace(row.Find("p, .ementa").First().Text()),
		})
	})

	return items, nil
}

var rowDateExpr = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)

func findRowDate(row *goquery.Selection) string {
	m := rowDateExpr.FindStringSubmatch(row.Text())
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
}

// probeSequential guesses the next resolution numbers after the highest one
// already recorded and checks each for existence with a cheap HEAD request.
// Hits get a full fetch to recover a title; publication date is unknown to
// the probe, so today's date is used.
func (f *Fetcher) probeSequential(ctx context.Context, seenIDs []string) []types.Regulation {
	base := highestNumber(seenIDs)
	if base == 0 {
		base = probeBaseline
	}

	var items []types.Regulation
	for n := base + 1; n <= base+probeCount; n++ {
		numero := strconv.Itoa(n)
		detail := f.detailURL(defaultType, numero)

		if !f.exists(ctx, detail) {
			continue
		}

		title := f.fetchTitle(ctx, detail)
		if title == "" {
			title = fmt.Sprintf("%s nº %s", defaultType, numero)
		}

		f.logger.Info("probe found regulation", zap.String("number", numero))
		items = append(items, types.Regulation{
			ID:          types.DeriveID(defaultType, numero),
			Type:        defaultType,
			Number:      numero,
			Title:       title,
			PublishedAt: f.now().UTC().Format("2006-01-02"),
			URL:         detail,
		})
	}
	return items
}

func (f *Fetcher) exists(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (f *Fetcher) detailURL(tipo, numero string) string {
	q := url.Values{}
	q.Set("tipo", tipo)
	q.Set("numero", numero)
	return f.detailBaseURL + "?" + q.Encode()
}

func extractNumber(expr *regexp.Regexp, s string) string {
	m := expr.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// highestNumber scans the dedup history for the largest trailing number.
func highestNumber(seenIDs []string) int {
	highest := 0
	for _, id := range seenIDs {
		m := idNumberExpr.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

func truncateDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

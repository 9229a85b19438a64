// Package feed fetches and parses the dedicated server's XML feeds.
package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"farmsim-notifier/pkg/farmsim"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 16 << 20

// ErrEmptyBody indicates the endpoint answered with an empty document.
var ErrEmptyBody = errors.New("empty response body")

// HTTPStatusError indicates a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsHTTPStatusError checks if an error is a non-2xx response error.
func IsHTTPStatusError(err error) bool {
	var status *HTTPStatusError
	return errors.As(err, &status)
}

// URLs holds the three feed endpoints.
type URLs struct {
	Server  string // dedicated-server-stats.xml
	Economy string // dedicated-server-stats.xml?file=economy
	Career  string // dedicated-server-savegame.html?file=careerSavegame
}

// Fetcher fetches the server-status, economy and career-save feeds.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
	urls   URLs
}

// New creates a new fetcher.
func New(client *http.Client, urls URLs, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
		urls:   urls,
	}
}

// Server fetches the server-status feed.
func (f *Fetcher) Server(ctx context.Context) (*farmsim.Server, error) {
	body, err := f.get(ctx, f.urls.Server, "server_status")
	if err != nil {
		return nil, err
	}
	return parseServer(body)
}

// Economy fetches the economy feed.
func (f *Fetcher) Economy(ctx context.Context) (*farmsim.Economy, error) {
	body, err := f.get(ctx, f.urls.Economy, "economy")
	if err != nil {
		return nil, err
	}
	return parseEconomy(body, f.logger)
}

// Career fetches the career savegame feed.
// Returns (nil, nil) when the server has no farm yet.
func (f *Fetcher) Career(ctx context.Context) (*farmsim.Career, error) {
	body, err := f.get(ctx, f.urls.Career, "career_savegame")
	if err != nil {
		return nil, err
	}
	return parseCareer(body)
}

func (f *Fetcher) get(ctx context.Context, url, purpose string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("no URL configured for %s", purpose)
	}

	f.logger.Debug("HTTP request starting",
		"method", "GET",
		"url", url,
		"purpose", purpose)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")

	startTime := time.Now()
	resp, err := f.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		f.logger.Warn("HTTP request failed",
			"purpose", purpose,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("fetch %s: %w", purpose, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	f.logger.Debug("HTTP request completed",
		"purpose", purpose,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"content_length", resp.ContentLength)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", purpose, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%s: %w", purpose, ErrEmptyBody)
	}
	return body, nil
}

type serverDoc struct {
	XMLName xml.Name `xml:"Server"`
	Name    string   `xml:"name,attr"`
	MapName string   `xml:"mapName,attr"`
	DayTime string   `xml:"dayTime,attr"`
	Slots   *struct {
		Capacity string `xml:"capacity,attr"`
		NumUsed  string `xml:"numUsed,attr"`
		Players  []struct {
			IsUsed  string `xml:"isUsed,attr"`
			IsAdmin string `xml:"isAdmin,attr"`
			Name    string `xml:",chardata"`
		} `xml:"Player"`
	} `xml:"Slots"`
	Vehicles []struct {
		Name string `xml:"name,attr"`
		Type string `xml:"type,attr"`
	} `xml:"Vehicles>Vehicle"`
	Mods []struct {
		FileName string `xml:"name,attr"`
		Version  string `xml:"version,attr"`
		Author   string `xml:"author,attr"`
		Title    string `xml:",chardata"`
	} `xml:"Mods>Mod"`
}

func parseServer(body []byte) (*farmsim.Server, error) {
	var doc serverDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse server status: %w", err)
	}
	if doc.Slots == nil {
		return nil, errors.New("parse server status: missing Slots element")
	}

	s := &farmsim.Server{
		Name:     orDefault(doc.Name, "N/A"),
		MapName:  orDefault(doc.MapName, "N/A"),
		DayTime:  parseInt(doc.DayTime),
		Online:   int(parseInt(doc.Slots.NumUsed)),
		Capacity: int(parseInt(doc.Slots.Capacity)),
	}

	for _, p := range doc.Slots.Players {
		if p.IsUsed != "true" {
			continue
		}
		s.Players = append(s.Players, farmsim.Player{
			Name:    orDefault(strings.TrimSpace(p.Name), "Unknown"),
			IsAdmin: p.IsAdmin == "true",
		})
	}

	for _, v := range doc.Vehicles {
		s.Vehicles = append(s.Vehicles, farmsim.Vehicle{
			Name: orDefault(v.Name, "Unknown"),
			Type: orDefault(v.Type, "Unknown Type"),
		})
	}

	for _, m := range doc.Mods {
		s.Mods = append(s.Mods, farmsim.Mod{
			Name:     orDefault(plainText(m.Title), "Unknown Mod"),
			FileName: m.FileName,
			Version:  orDefault(m.Version, "N/A"),
			Author:   orDefault(plainText(m.Author), "Unknown Author"),
		})
	}

	return s, nil
}

type economyDoc struct {
	FillTypes []struct {
		Name    string `xml:"fillType,attr"`
		Periods []struct {
			Period string `xml:"period,attr"`
			Price  string `xml:",chardata"`
		} `xml:"history>period"`
	} `xml:"fillTypes>fillType"`
}

// parseEconomy skips fill types with an unparsable price instead of dropping the document.
func parseEconomy(body []byte, logger *slog.Logger) (*farmsim.Economy, error) {
	var doc economyDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse economy: %w", err)
	}

	e := &farmsim.Economy{FillTypes: make(map[string][]farmsim.PricePoint, len(doc.FillTypes))}
fillTypes:
	for _, ft := range doc.FillTypes {
		if ft.Name == "" || len(ft.Periods) == 0 {
			continue
		}
		points := make([]farmsim.PricePoint, 0, len(ft.Periods))
		for _, p := range ft.Periods {
			price, err := strconv.Atoi(strings.TrimSpace(p.Price))
			if err != nil {
				logger.Warn("Skipping fill type with invalid price",
					"fill_type", ft.Name, "period", p.Period, "price", p.Price, "error", err)
				continue fillTypes
			}
			points = append(points, farmsim.PricePoint{Period: p.Period, Price: price})
		}
		e.FillTypes[strings.ToUpper(ft.Name)] = points
	}
	return e, nil
}

type careerDoc struct {
	XMLName  xml.Name `xml:"careerSavegame"`
	Settings *struct {
		CreationDate       string `xml:"creationDate"`
		SaveDate           string `xml:"saveDate"`
		EconomicDifficulty string `xml:"economicDifficulty"`
		TimeScale          string `xml:"timeScale"`
		MapTitle           string `xml:"mapTitle"`
		SavegameName       string `xml:"savegameName"`
	} `xml:"settings"`
	Statistics struct {
		Money    string `xml:"money"`
		PlayTime string `xml:"playTime"`
	} `xml:"statistics"`
}

func parseCareer(body []byte) (*farmsim.Career, error) {
	var doc careerDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse career savegame: %w", err)
	}
	if doc.Settings == nil {
		return nil, nil
	}

	timeScale := "1"
	if ts, err := decimal.NewFromString(strings.TrimSpace(doc.Settings.TimeScale)); err == nil {
		timeScale = ts.Truncate(0).String()
	}

	var money int64
	if m, err := decimal.NewFromString(strings.TrimSpace(doc.Statistics.Money)); err == nil {
		money = m.IntPart()
	}

	var playTime float64
	if pt, err := decimal.NewFromString(strings.TrimSpace(doc.Statistics.PlayTime)); err == nil {
		playTime = pt.InexactFloat64()
	}

	return &farmsim.Career{
		CreationDate:       orDefault(doc.Settings.CreationDate, "Unknown"),
		SaveDate:           orDefault(doc.Settings.SaveDate, "Unknown"),
		EconomicDifficulty: orDefault(doc.Settings.EconomicDifficulty, "Unknown"),
		TimeScale:          timeScale,
		Money:              money,
		MapTitle:           orDefault(doc.Settings.MapTitle, "Unknown"),
		SavegameName:       orDefault(doc.Settings.SavegameName, "Unknown"),
		PlayTime:           playTime,
	}, nil
}

// plainText strips markup and entities the server leaves in mod titles and authors.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "&<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func parseInt(s string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return d.IntPart()
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

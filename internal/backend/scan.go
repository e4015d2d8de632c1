package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"wealthlings/internal/game"
)

var ErrNoImage = errors.New("no image to scan")

type scanResponse struct {
	Success  bool `json:"success"`
	IsNew    bool `json:"is_new"`
	Creature struct {
		ID          string  `json:"id"`
		Ticker      string  `json:"ticker"`
		Name        string  `json:"name"`
		CompanyName string  `json:"company_name"`
		Sector      string  `json:"sector"`
		Personality string  `json:"personality"`
		Level       int     `json:"level"`
		Confidence  float64 `json:"confidence"`
	} `json:"creature"`
	MarketStorm struct {
		Active         bool    `json:"active"`
		Severity       float64 `json:"severity"`
		AffectedSector string  `json:"affected_sector"`
	} `json:"market_storm"`
}

// ScanClient uploads logo images to the brand-recognition backend.
type ScanClient struct {
	*Client
}

func NewScanClient(c *Client) *ScanClient {
	return &ScanClient{Client: c}
}

func (c *ScanClient) Scan(ctx context.Context, req game.ScanRequest) (game.Descriptor, error) {
	if req.Image == nil {
		return game.Descriptor{}, ErrNoImage
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "scan.jpg"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return game.Descriptor{}, err
	}
	if _, err := io.Copy(part, req.Image); err != nil {
		return game.Descriptor{}, fmt.Errorf("read image: %w", err)
	}
	if req.UserID != "" {
		if err := mw.WriteField("user_id", req.UserID); err != nil {
			return game.Descriptor{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return game.Descriptor{}, err
	}

	var out scanResponse
	if err := c.do(ctx, http.MethodPost, "/api/scan", mw.FormDataContentType(), &buf, &out); err != nil {
		return game.Descriptor{}, err
	}
	if !out.Success {
		return game.Descriptor{}, errors.New("backend did not recognise a brand")
	}
	return out.descriptor(), nil
}

func (r scanResponse) descriptor() game.Descriptor {
	cr := r.Creature
	archetype, ok := game.ParseArchetype(cr.Personality)
	if !ok {
		archetype = game.TrendChaser
	}
	brand := cr.CompanyName
	if brand == "" {
		brand = cr.Ticker
	}
	return game.Descriptor{
		ID:             cr.ID,
		Name:           cr.Name,
		Brand:          brand,
		Ticker:         cr.Ticker,
		Sector:         cr.Sector,
		Archetype:      archetype,
		Level:          cr.Level,
		AffectedSector: r.MarketStorm.Active && strings.EqualFold(r.MarketStorm.AffectedSector, cr.Sector),
	}
}

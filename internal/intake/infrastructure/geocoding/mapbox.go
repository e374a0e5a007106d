// Package geocoding Mapbox 正向地理编码适配器。
// 地理编码是尽力而为的增强：任何失败都返回 nil 坐标，由调用方降级处理。
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/risevoices/risevoices/internal/intake/domain"
)

const defaultBaseURL = "https://api.mapbox.com"

// MapboxGeocoder 调用 Mapbox Geocoding API 将城市/州解析为坐标
type MapboxGeocoder struct {
	client      *resty.Client
	accessToken string
}

// NewMapboxGeocoder 构造适配器。accessToken 为空时所有请求直接失败（返回 nil 坐标）。
func NewMapboxGeocoder(baseURL, accessToken string, timeout time.Duration) *MapboxGeocoder {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &MapboxGeocoder{client: client, accessToken: accessToken}
}

type mapboxResponse struct {
	Features []struct {
		// Center 为 [经度, 纬度]
		Center []float64 `json:"center"`
	} `json:"features"`
}

// Geocode 解析 "<city>, <state>, United States"。
// 取第一条结果；凭证缺失、非 2xx、空结果、网络异常一律返回 nil 坐标。
func (g *MapboxGeocoder) Geocode(ctx context.Context, city, state string) (*domain.Coordinates, error) {
	if g.accessToken == "" {
		return nil, errors.New("mapbox access token not configured")
	}

	query := fmt.Sprintf("%s, %s, United States", city, state)
	path := fmt.Sprintf("/geocoding/v5/mapbox.places/%s.json", url.PathEscape(query))

	var body mapboxResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_token": g.accessToken,
			"limit":        "1",
			"country":      "US",
		}).
		SetResult(&body).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("mapbox request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mapbox status %d", resp.StatusCode())
	}
	if len(body.Features) == 0 || len(body.Features[0].Center) < 2 {
		return nil, errors.New("mapbox returned no usable features")
	}

	center := body.Features[0].Center
	return &domain.Coordinates{Lat: center[1], Lng: center[0]}, nil
}

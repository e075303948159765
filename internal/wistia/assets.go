package wistia

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"autocap/internal/fileutil"
	"autocap/internal/services"
)

// MP4ContentType is the only asset type the captioner downloads or submits.
const MP4ContentType = "video/mp4"

// SmallestVideoAsset picks the MP4 asset with the smallest file size.
func SmallestVideoAsset(assets []Asset) (Asset, error) {
	candidates := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		if strings.EqualFold(strings.TrimSpace(asset.ContentType), MP4ContentType) && asset.URL != "" {
			candidates = append(candidates, asset)
		}
	}
	if len(candidates) == 0 {
		return Asset{}, services.Wrap(services.ErrNoAssetFound, "fetch", "assets",
			fmt.Sprintf("no %s asset among %d assets", MP4ContentType, len(assets)), nil)
	}
	return slices.MinFunc(candidates, func(a, b Asset) int {
		return cmp.Compare(a.FileSize, b.FileSize)
	}), nil
}

// DownloadAsset streams assetURL into dest through a temp file. Asset URLs
// are public delivery links, so no credentials are sent.
func (c *Client) DownloadAsset(ctx context.Context, assetURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return 0, fmt.Errorf("wistia: build download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("wistia: download asset: %w", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp); err != nil {
		return 0, fmt.Errorf("wistia: download asset: %w", err)
	}
	written, err := fileutil.WriteReaderAtomic(dest, resp.Body, resp.ContentLength)
	if err != nil {
		return written, fmt.Errorf("wistia: save asset: %w", err)
	}
	return written, nil
}

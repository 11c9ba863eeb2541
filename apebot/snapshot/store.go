package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/greatapesociety/apebot/apebot/marketplace"
)

// ErrCorruptSnapshot marks a snapshot file whose structure does not match
// the expected asset list shape. Fatal at startup; recoverable by
// re-fetching the collection from the marketplace.
var ErrCorruptSnapshot = errors.New("corrupt snapshot file")

// AssetFetcher is the slice of the marketplace client the store needs.
type AssetFetcher interface {
	GetAssets(ctx context.Context, offset, limit int) ([]marketplace.Asset, error)
}

// Load reads the asset list from a snapshot file.
func Load(path string) ([]marketplace.Asset, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot: %w", err)
	}

	var assets []marketplace.Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("stat snapshot: %w", err)
	}

	return assets, info.ModTime(), nil
}

// Save writes the full asset list to path. The write goes through a
// temporary file and a rename so a concurrent reader never observes a
// partially written snapshot.
func Save(assets []marketplace.Asset, path string) error {
	data, err := json.MarshalIndent(assets, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}

// IsStale reports whether the file's modification time differs from the
// last known one.
func IsStale(path string, lastKnown time.Time) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat snapshot: %w", err)
	}
	return !info.ModTime().Equal(lastKnown), nil
}

// FetchAll paginates the marketplace until maxOffset is reached or a page
// comes back empty. A failure mid-pagination returns everything fetched
// so far rather than discarding partial progress; only a failure before
// any asset was fetched surfaces as an error.
func FetchAll(ctx context.Context, client AssetFetcher, pageSize, maxOffset int) ([]marketplace.Asset, error) {
	var assets []marketplace.Asset

	for offset := 0; offset <= maxOffset; offset += pageSize {
		page, err := client.GetAssets(ctx, offset, pageSize)
		if err != nil {
			if len(assets) == 0 {
				return nil, fmt.Errorf("fetch assets at offset %d: %w", offset, err)
			}
			slog.Error("Only fetched assets up to current offset",
				slog.String("type", "error"),
				slog.Int("offset", offset-1),
				slog.Any("error", err))
			return assets, nil
		}
		if len(page) == 0 {
			break
		}
		assets = append(assets, page...)
	}

	return assets, nil
}

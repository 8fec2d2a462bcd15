package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/listingscan/internal/model"
)

// Default output file names per site.
const (
	Earth911CSVFile  = "earth911_electronics_recycling.csv"
	Earth911JSONFile = "earth911_electronics_recycling.json"
	BestBuyCSVFile   = "bestbuy_stores.csv"
	BestBuyJSONFile  = "bestbuy_stores.json"

	// ScreenshotFile is the store locator capture.
	ScreenshotFile = "bestbuy_page.png"
)

// FileNames returns the tabular and structured file names for site.
func FileNames(site model.Site) (csvName, jsonName string) {
	switch site {
	case model.SiteEarth911:
		return Earth911CSVFile, Earth911JSONFile
	case model.SiteBestBuy:
		return BestBuyCSVFile, BestBuyJSONFile
	default:
		return site.String() + ".csv", site.String() + ".json"
	}
}

// SaveFiles writes the run's records to dir as CSV and indented JSON and
// returns the paths written. A run without records writes nothing.
func SaveFiles(dir string, run *model.Run) ([]string, error) {
	if len(run.Records()) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	csvName, jsonName := FileNames(run.Site)
	targets := []struct {
		name   string
		writer func(*os.File) Writer
	}{
		{csvName, func(f *os.File) Writer { return NewCSVWriter(f) }},
		{jsonName, func(f *os.File) Writer { return NewJSONWriter(f, WithPrettyPrint()) }},
	}

	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		path := filepath.Join(dir, t.name)
		if err := writeFile(path, run, t.writer); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, run *model.Run, newWriter func(*os.File) Writer) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if _, err := newWriter(f).Write(run); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SaveScreenshot writes png to dir under ScreenshotFile.
func SaveScreenshot(dir string, png []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, ScreenshotFile)
	if err := os.WriteFile(path, png, 0o600); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"pm25-timeseries/config"
)

// Downloader fetches yearly archives and the metadata workbook into DataDir.
type Downloader struct {
	Client      *http.Client
	ArchiveURL  string
	MetadataURL string
	DataDir     string
}

func NewDownloader(cfg config.Configuration) *Downloader {
	return &Downloader{
		Client:      &http.Client{Timeout: time.Duration(cfg.DOWNLOAD_TIMEOUT_SECONDS) * time.Second},
		ArchiveURL:  cfg.ARCHIVE_URL,
		MetadataURL: cfg.METADATA_URL,
		DataDir:     cfg.DATA_DIR,
	}
}

// LocalPath returns where the extracted sheet of a year is stored.
func (d *Downloader) LocalPath(year int, entry config.ArchiveEntry) string {
	name := entry.LocalFilename
	if name == "" {
		name = fmt.Sprintf("%d_%s", year, filepath.Base(entry.PM25Filename))
	}
	return filepath.Join(d.DataDir, name)
}

// FetchArchive downloads the ZIP archive of one year and extracts its PM2.5
// sheet. An already extracted sheet is reused.
func (d *Downloader) FetchArchive(ctx context.Context, year int, entry config.ArchiveEntry) (string, error) {
	target := d.LocalPath(year, entry)
	if _, err := os.Stat(target); err == nil {
		log.WithFields(log.Fields{"year": year, "file": target}).Info("Using previously extracted sheet")
		return target, nil
	}

	body, err := d.get(ctx, d.ArchiveURL+entry.ArchiveID)
	if err != nil {
		return "", fmt.Errorf("download archive for year %d: %w", year, err)
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		log.Error(err)
		return "", fmt.Errorf("open archive for year %d: %w", year, err)
	}

	var names []string
	for _, f := range archive.File {
		names = append(names, f.Name)
		if f.Name != entry.PM25Filename {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			log.Error(err)
			return "", err
		}
		defer rc.Close()
		if err := writeAtomically(target, rc); err != nil {
			return "", err
		}
		log.WithFields(log.Fields{"year": year, "file": target}).Info("Archive downloaded")
		return target, nil
	}

	if len(names) > 5 {
		names = names[:5]
	}
	err = fmt.Errorf("file %s not found in archive %s, available: %v", entry.PM25Filename, entry.ArchiveID, names)
	log.Error(err)
	return "", err
}

// FetchMetadata downloads the station metadata workbook to target.
func (d *Downloader) FetchMetadata(ctx context.Context, target string) error {
	body, err := d.get(ctx, d.MetadataURL)
	if err != nil {
		return fmt.Errorf("download metadata: %w", err)
	}
	return writeAtomically(target, bytes.NewReader(body))
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
		log.Error(err)
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// writeAtomically writes to target + ".tmp" and renames it once complete.
func writeAtomically(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := target + config.GetTmpExtension()
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, target)
}

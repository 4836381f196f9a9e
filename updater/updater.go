// Package updater self-updates the tv binary from GitHub releases:
// check the latest tag, download the platform archive, verify its
// checksum, and swap the executable in place with a backup fallback.
package updater

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"toolview/version"
)

const (
	githubRepo        = "toolview-dev/toolview"
	githubLatestURL   = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	githubReleasesURL = "https://api.github.com/repos/" + githubRepo + "/releases"
	checksumAsset     = "SHA256SUMS"
)

// Release is the slice of the GitHub release payload we read.
type Release struct {
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// UpdateInfo describes whether and how to update.
type UpdateInfo struct {
	Available      bool
	CurrentVersion string
	LatestVersion  string
	DownloadURL    string
	ChecksumURL    string
}

// CheckForUpdates compares the running version against the newest GitHub
// release. Pre-releases are skipped unless asked for.
func CheckForUpdates(includePrerelease bool) (*UpdateInfo, error) {
	current := version.Get()

	release, err := fetchLatestRelease(includePrerelease)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}

	info := &UpdateInfo{
		Available:      isNewerVersion(current, release.TagName),
		CurrentVersion: current,
		LatestVersion:  release.TagName,
	}
	if !info.Available {
		return info, nil
	}

	assetName := assetNameForPlatform(release.TagName)
	for _, asset := range release.Assets {
		switch asset.Name {
		case assetName:
			info.DownloadURL = asset.BrowserDownloadURL
		case checksumAsset:
			info.ChecksumURL = asset.BrowserDownloadURL
		}
	}
	if info.DownloadURL == "" {
		return nil, fmt.Errorf("no release asset for platform %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	return info, nil
}

func fetchLatestRelease(includePrerelease bool) (*Release, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	if !includePrerelease {
		resp, err := client.Get(githubLatestURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var release Release
			if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
				return nil, err
			}
			return &release, nil
		case http.StatusNotFound:
			// Repos with only pre-releases 404 here; fall through to
			// the full listing.
		default:
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, string(body))
		}
	}

	resp, err := client.Get(githubReleasesURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no releases found on GitHub")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, string(body))
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, err
	}
	for _, release := range releases {
		if release.Prerelease && !includePrerelease {
			continue
		}
		return &release, nil
	}
	return nil, fmt.Errorf("no releases found on GitHub")
}

// isNewerVersion reports whether latest is ahead of current. A dev build
// always updates. Tags compare numerically per dotted component, with a
// pre-release suffix ranking below its release.
func isNewerVersion(current, latest string) bool {
	current = strings.TrimPrefix(strings.TrimSpace(current), "v")
	latest = strings.TrimPrefix(strings.TrimSpace(latest), "v")
	if current == "dev" || current == "" {
		return latest != ""
	}
	return compareVersions(latest, current) > 0
}

func compareVersions(a, b string) int {
	aCore, aPre, _ := strings.Cut(a, "-")
	bCore, bPre, _ := strings.Cut(b, "-")

	aParts := strings.Split(aCore, ".")
	bParts := strings.Split(bCore, ".")
	for i := 0; i < len(aParts) || i < len(bParts); i++ {
		an, bn := 0, 0
		if i < len(aParts) {
			an, _ = strconv.Atoi(aParts[i])
		}
		if i < len(bParts) {
			bn, _ = strconv.Atoi(bParts[i])
		}
		if an != bn {
			if an > bn {
				return 1
			}
			return -1
		}
	}

	// Same core: a release outranks any pre-release of it.
	switch {
	case aPre == bPre:
		return 0
	case aPre == "":
		return 1
	case bPre == "":
		return -1
	default:
		return strings.Compare(aPre, bPre)
	}
}

// assetNameForPlatform returns the release asset name for this build,
// e.g. toolview-v0.3.0-darwin-arm64.tar.gz.
func assetNameForPlatform(tag string) string {
	ext := ".tar.gz"
	if runtime.GOOS == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf("toolview-%s-%s-%s%s", tag, runtime.GOOS, runtime.GOARCH, ext)
}

// DownloadAndInstall fetches the release archive, verifies it when a
// checksum file is published, and replaces the running binary.
func DownloadAndInstall(info *UpdateInfo) error {
	tmpDir, err := os.MkdirTemp("", "toolview-update-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, filepath.Base(info.DownloadURL))
	if err := downloadFile(archivePath, info.DownloadURL); err != nil {
		return fmt.Errorf("failed to download update: %w", err)
	}

	if info.ChecksumURL != "" {
		checksumPath := filepath.Join(tmpDir, checksumAsset)
		if err := downloadFile(checksumPath, info.ChecksumURL); err != nil {
			return fmt.Errorf("failed to download checksums: %w", err)
		}
		checksums, err := parseChecksums(checksumPath)
		if err != nil {
			return fmt.Errorf("failed to parse checksums: %w", err)
		}
		if err := verifyChecksum(archivePath, checksums); err != nil {
			return fmt.Errorf("checksum verification failed: %w", err)
		}
	}

	binaryPath, err := extractBinary(archivePath, tmpDir)
	if err != nil {
		return fmt.Errorf("failed to extract binary: %w", err)
	}
	if err := replaceBinary(binaryPath); err != nil {
		return fmt.Errorf("failed to replace binary: %w", err)
	}
	return nil
}

func downloadFile(path string, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func parseChecksums(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	checksums := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) >= 2 {
			checksums[parts[1]] = parts[0]
		}
	}
	return checksums, nil
}

func verifyChecksum(path string, checksums map[string]string) error {
	name := filepath.Base(path)
	expected, ok := checksums[name]
	if !ok {
		return fmt.Errorf("no checksum found for %s", name)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return err
	}

	actual := hex.EncodeToString(hash.Sum(nil))
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// extractBinary pulls the single regular file out of the tar.gz archive.
func extractBinary(archivePath, destDir string) (string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return "", err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(header.Name))
		outFile, err := os.Create(destPath)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(outFile, tr); err != nil {
			outFile.Close()
			return "", err
		}
		outFile.Close()
		if err := os.Chmod(destPath, 0o755); err != nil {
			return "", err
		}
		return destPath, nil
	}
	return "", fmt.Errorf("no binary found in archive")
}

// replaceBinary swaps the running executable for the new one, restoring
// the backup if the copy fails midway.
func replaceBinary(newBinaryPath string) error {
	currentPath, err := os.Executable()
	if err != nil {
		return err
	}
	currentPath, err = filepath.EvalSymlinks(currentPath)
	if err != nil {
		return err
	}

	backupPath := currentPath + ".backup"
	if err := os.Rename(currentPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup current binary: %w", err)
	}
	if err := copyFile(newBinaryPath, currentPath); err != nil {
		os.Rename(backupPath, currentPath)
		return fmt.Errorf("failed to copy new binary: %w", err)
	}
	if err := os.Chmod(currentPath, 0o755); err != nil {
		return err
	}
	os.Remove(backupPath)
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	return err
}

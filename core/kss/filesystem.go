// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package kss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/logger"
)

// BlobRoute is the route prefix under which the local filesystem serves its blobs
const BlobRoute = "/blobs/"

// LocalFilesystem stores blobs in a local folder. Every key is a folder containing
// the data in "file" and its content type in "meta.json".
type LocalFilesystem struct {
	baseFolder string
	publicURL  string
}

type localMeta struct {
	ContentType string `json:"content_type"`
}

// NewLocalFilesystem returns a new LocalFilesystem. publicURL is the externally
// visible base URL of the service, it may be empty for relative URLs.
func NewLocalFilesystem(config LocalConfiguration, publicURL string) (*LocalFilesystem, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("BasePath must not be empty")
	}
	if err := os.MkdirAll(config.BasePath, 0700); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", config.BasePath, err)
	}
	logger.Default().Debugln("KSS local filesystem enabled in", config.BasePath)
	return &LocalFilesystem{baseFolder: config.BasePath, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// HandleRoutes adds the route /blobs/{key} GET to the router, which serves the stored blobs
func (f *LocalFilesystem) HandleRoutes(router *mux.Router) {
	logger.Default().Debugln("filesystem routes enabled")
	logger.Default().Debugln("  handle route: " + BlobRoute + "{key} GET")
	router.PathPrefix(BlobRoute).HandlerFunc(f.handler).Methods(http.MethodGet, http.MethodHead)
}

func (f *LocalFilesystem) handler(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	key, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), BlobRoute))
	if err != nil || ValidateKey(key) != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}
	rlog.Debugf("Filesystem: [%s] key: '%s'", r.Method, key)

	file, contentType, err := f.Download(r.Context(), key)
	if errors.Is(err, baas.ErrNotFound) {
		http.Error(w, "no such blob", http.StatusNotFound)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorf("Error 1205: cannot open key '%s'", key)
		http.Error(w, "Error 1205", http.StatusInternalServerError)
		return
	}
	defer file.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if seeker, ok := file.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), modTime(file), seeker)
		return
	}
	io.Copy(w, file)
}

func (f *LocalFilesystem) folder(key string) string {
	return filepath.Join(f.baseFolder, filepath.FromSlash(key))
}

// Upload implements baas.BlobStore
func (f *LocalFilesystem) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	folder := f.folder(key)
	if err := os.MkdirAll(folder, 0700); err != nil {
		return fmt.Errorf("cannot create folder for key '%s': %w", key, err)
	}
	dstFile, err := os.Create(filepath.Join(folder, "file"))
	if err != nil {
		return fmt.Errorf("cannot create file for key '%s': %w", key, err)
	}
	defer dstFile.Close()
	if _, err = io.Copy(dstFile, body); err != nil {
		return fmt.Errorf("cannot write key '%s': %w", key, err)
	}
	meta, _ := json.Marshal(localMeta{ContentType: contentType})
	if err = os.WriteFile(filepath.Join(folder, "meta.json"), meta, 0600); err != nil {
		return fmt.Errorf("cannot write meta of key '%s': %w", key, err)
	}
	logger.FromContext(ctx).Infof("Filesystem: stored key '%s'", key)
	return nil
}

// Download implements baas.BlobStore
func (f *LocalFilesystem) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", baas.ErrNotFound
	}
	folder := f.folder(key)
	file, err := os.Open(filepath.Join(folder, "file"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", baas.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	var meta localMeta
	if data, err := os.ReadFile(filepath.Join(folder, "meta.json")); err == nil {
		json.Unmarshal(data, &meta)
	}
	return file, meta.ContentType, nil
}

// Delete implements baas.BlobStore. It removes the key and everything stored below it.
func (f *LocalFilesystem) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return os.RemoveAll(f.folder(key))
}

// List implements baas.BlobStore
func (f *LocalFilesystem) List(ctx context.Context, prefix string) ([]baas.BlobInfo, error) {
	var infos []baas.BlobInfo
	err := filepath.WalkDir(f.baseFolder, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "file" {
			return nil
		}
		rel, err := filepath.Rel(f.baseFolder, filepath.Dir(p))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		stat, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, baas.BlobInfo{Key: key, Size: stat.Size(), LastModified: stat.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list prefix '%s': %w", prefix, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// URL implements baas.BlobStore. The URL points to the route added with HandleRoutes.
func (f *LocalFilesystem) URL(key string) string {
	segments := strings.Split(key, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return f.publicURL + BlobRoute + strings.Join(segments, "/")
}

func modTime(r io.Reader) time.Time {
	if file, ok := r.(*os.File); ok {
		if stat, err := file.Stat(); err == nil {
			return stat.ModTime()
		}
	}
	return time.Time{}
}

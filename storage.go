package wowsql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/WowSQL/wowsql-sdk-go/internal/objectkey"
)

// storageURLFormat expands a project slug into the hosted storage endpoint.
const storageURLFormat = "https://%s.storage.wowsql.com"

const defaultContentType = "application/octet-stream"

// FileDescriptor describes one stored object.
type FileDescriptor struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
	Bucket       string    `json:"bucket,omitempty"`
}

// SignedURL is a time-limited download link issued by the storage backend.
type SignedURL struct {
	FileURL   string    `json:"file_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QuotaInfo reports storage usage. UsedBytes and LimitBytes come from the
// server; the remaining fields are derived client-side.
type QuotaInfo struct {
	UsedBytes      int64
	LimitBytes     int64
	AvailableBytes int64
	UsedGB         float64
	AvailableGB    float64
	UsagePercent   float64
}

const bytesPerGB = 1 << 30

func newQuotaInfo(used, limit int64) *QuotaInfo {
	q := &QuotaInfo{UsedBytes: used, LimitBytes: limit}
	if avail := limit - used; avail > 0 {
		q.AvailableBytes = avail
	}
	q.UsedGB = float64(used) / bytesPerGB
	q.AvailableGB = float64(q.AvailableBytes) / bytesPerGB
	if limit > 0 {
		q.UsagePercent = 100 * float64(used) / float64(limit)
	}
	return q
}

// UploadOption customizes a single upload.
type UploadOption func(*uploadOptions)

type uploadOptions struct {
	bucket      string
	contentType string
}

// WithBucket stores the object under a bucket folder prefix; the effective
// key becomes bucket/key.
func WithBucket(bucket string) UploadOption {
	return func(o *uploadOptions) {
		o.bucket = bucket
	}
}

// WithContentType overrides content-type detection for an upload.
func WithContentType(ct string) UploadOption {
	return func(o *uploadOptions) {
		o.contentType = ct
	}
}

// StorageClient talks to the WowSQL storage API. Safe for concurrent use.
type StorageClient struct {
	t *transport
}

// NewStorageClient creates a storage client. projectOrURL is either a full
// base URL (contains "://") or a project slug, which expands to the hosted
// storage endpoint for that project.
func NewStorageClient(projectOrURL, apiKey string, opts ...Option) (*StorageClient, error) {
	if projectOrURL == "" {
		return nil, configurationError("project slug or base URL is required")
	}
	baseURL := projectOrURL
	if !strings.Contains(projectOrURL, "://") {
		baseURL = fmt.Sprintf(storageURLFormat, projectOrURL)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t, err := newTransport(baseURL, apiKey, o)
	if err != nil {
		return nil, err
	}
	return &StorageClient{t: t}, nil
}

// cleanKey validates a remote key and folds in the optional bucket prefix.
func cleanKey(remoteKey, bucket string) (string, error) {
	key, err := objectkey.Clean(remoteKey)
	if err != nil {
		return "", validationError(err.Error())
	}
	if bucket != "" {
		b, err := objectkey.Clean(bucket)
		if err != nil {
			return "", validationError("bucket: " + err.Error())
		}
		key = objectkey.Join(b, key)
	}
	return key, nil
}

func storagePath(key string) string {
	return "/v1/storage/" + objectkey.EscapePath(key)
}

// UploadFromPath uploads a local file under remoteKey, streaming the file
// body. The content type is taken from the file extension unless overridden
// with WithContentType. Quota is enforced by the server; the SDK performs no
// local precheck; call GetQuota first if you want one.
func (s *StorageClient) UploadFromPath(ctx context.Context, localPath, remoteKey string, opts ...UploadOption) (*FileDescriptor, error) {
	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}
	key, err := cleanKey(remoteKey, o.bucket)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, validationError("open " + localPath + ": " + err.Error())
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, validationError("stat " + localPath + ": " + err.Error())
	}

	ct := o.contentType
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(localPath))
	}
	if ct == "" {
		ct = defaultContentType
	}

	fd, err := s.upload(ctx, f, info.Size(), key, ct)
	if err != nil {
		return nil, err
	}
	fd.Bucket = o.bucket
	return fd, nil
}

// UploadFromReader uploads size bytes read from r under remoteKey. The
// reader is never closed; its lifecycle stays with the caller. Pass size -1
// when the length is unknown (the body is then sent chunked).
func (s *StorageClient) UploadFromReader(ctx context.Context, r io.Reader, size int64, remoteKey string, opts ...UploadOption) (*FileDescriptor, error) {
	var o uploadOptions
	for _, opt := range opts {
		opt(&o)
	}
	key, err := cleanKey(remoteKey, o.bucket)
	if err != nil {
		return nil, err
	}
	ct := o.contentType
	if ct == "" {
		ct = defaultContentType
	}
	fd, err := s.upload(ctx, r, size, key, ct)
	if err != nil {
		return nil, err
	}
	fd.Bucket = o.bucket
	return fd, nil
}

func (s *StorageClient) upload(ctx context.Context, body io.Reader, size int64, key, contentType string) (*FileDescriptor, error) {
	resp, err := s.t.stream(ctx, http.MethodPut, storagePath(key), nil, body, size, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode >= 400 {
		return nil, classifyResponse(resp.StatusCode, raw)
	}

	var wire struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(raw, &wire); err != nil || wire.Key == "" {
		return nil, schemaError(err, raw)
	}
	return &FileDescriptor{Key: wire.Key, Size: size, ContentType: contentType}, nil
}

// Download streams an object. The caller must close the returned reader.
func (s *StorageClient) Download(ctx context.Context, remoteKey string) (io.ReadCloser, *FileDescriptor, error) {
	key, err := cleanKey(remoteKey, "")
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.t.stream(ctx, http.MethodGet, storagePath(key), nil, nil, -1, "")
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, classifyResponse(resp.StatusCode, raw)
	}
	return resp.Body, fileInfoFromResponse(key, resp), nil
}

// DownloadToPath streams an object into a local file.
func (s *StorageClient) DownloadToPath(ctx context.Context, remoteKey, localPath string) error {
	body, _, err := s.Download(ctx, remoteKey)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return validationError("create " + localPath + ": " + err.Error())
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(localPath)
		return transportError(err)
	}
	return f.Close()
}

// GetFileURL requests a presigned download URL valid for the given expiry.
func (s *StorageClient) GetFileURL(ctx context.Context, remoteKey string, expiry time.Duration) (*SignedURL, error) {
	key, err := cleanKey(remoteKey, "")
	if err != nil {
		return nil, err
	}
	if expiry <= 0 {
		return nil, validationError("expiry must be positive")
	}
	query := url.Values{}
	query.Set("expires_in", strconv.Itoa(int(expiry/time.Second)))
	desc := &RequestDescriptor{
		Method: http.MethodGet,
		Path:   "/v1/storage/sign/" + objectkey.EscapePath(key),
		Query:  query,
	}
	var su SignedURL
	if err := s.t.doJSON(ctx, desc, &su); err != nil {
		return nil, err
	}
	return &su, nil
}

// ListFiles returns descriptors for objects whose key starts with prefix,
// in the server's order. An empty prefix lists everything.
func (s *StorageClient) ListFiles(ctx context.Context, prefix string) ([]FileDescriptor, error) {
	query := url.Values{}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	var wire struct {
		Objects []FileDescriptor `json:"objects"`
	}
	desc := &RequestDescriptor{Method: http.MethodGet, Path: "/v1/storage", Query: query}
	if err := s.t.doJSON(ctx, desc, &wire); err != nil {
		return nil, err
	}
	return wire.Objects, nil
}

// FileExists probes an object with a metadata request. A missing object is
// (false, nil); any other failure propagates as an error, never as a silent
// false.
func (s *StorageClient) FileExists(ctx context.Context, remoteKey string) (bool, error) {
	_, err := s.GetFileInfo(ctx, remoteKey)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetFileInfo fetches object metadata without the body.
func (s *StorageClient) GetFileInfo(ctx context.Context, remoteKey string) (*FileDescriptor, error) {
	key, err := cleanKey(remoteKey, "")
	if err != nil {
		return nil, err
	}
	resp, err := s.t.stream(ctx, http.MethodHead, storagePath(key), nil, nil, -1, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		// HEAD responses carry no body; classify on status alone.
		return nil, classifyResponse(resp.StatusCode, nil)
	}
	return fileInfoFromResponse(key, resp), nil
}

func fileInfoFromResponse(key string, resp *http.Response) *FileDescriptor {
	fd := &FileDescriptor{Key: key, ContentType: resp.Header.Get("Content-Type")}
	if resp.ContentLength >= 0 {
		fd.Size = resp.ContentLength
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			fd.LastModified = t
		}
	}
	return fd
}

// DeleteFile removes a single object.
func (s *StorageClient) DeleteFile(ctx context.Context, remoteKey string) error {
	key, err := cleanKey(remoteKey, "")
	if err != nil {
		return err
	}
	desc := &RequestDescriptor{Method: http.MethodDelete, Path: storagePath(key)}
	return s.t.doJSON(ctx, desc, nil)
}

// BatchDeleteError records one failed key of a batch delete.
type BatchDeleteError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *BatchDeleteError) Error() string {
	return fmt.Sprintf("delete %q: %v", e.Key, e.Err)
}

// Unwrap exposes the underlying typed error.
func (e *BatchDeleteError) Unwrap() error {
	return e.Err
}

// BatchDeleteResult reports the per-key outcome of DeleteFiles.
type BatchDeleteResult struct {
	Deleted []string
	Failed  []BatchDeleteError
}

// Err joins the per-key failures into one error, or nil when every key was
// deleted.
func (r *BatchDeleteResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i := range r.Failed {
		errs[i] = &r.Failed[i]
	}
	return errors.Join(errs...)
}

// DeleteFiles removes each key with its own request. The batch is not
// atomic: keys that fail are reported individually in the result while the
// rest are still deleted.
func (s *StorageClient) DeleteFiles(ctx context.Context, remoteKeys []string) *BatchDeleteResult {
	res := &BatchDeleteResult{}
	for _, key := range remoteKeys {
		if err := s.DeleteFile(ctx, key); err != nil {
			res.Failed = append(res.Failed, BatchDeleteError{Key: key, Err: err})
			continue
		}
		res.Deleted = append(res.Deleted, key)
	}
	return res
}

// GetQuota fetches storage usage and derives the convenience fields from
// the server's authoritative used/limit pair.
func (s *StorageClient) GetQuota(ctx context.Context) (*QuotaInfo, error) {
	var wire struct {
		UsedBytes  int64 `json:"used_bytes"`
		LimitBytes int64 `json:"limit_bytes"`
	}
	desc := &RequestDescriptor{Method: http.MethodGet, Path: "/v1/storage/quota"}
	if err := s.t.doJSON(ctx, desc, &wire); err != nil {
		return nil, err
	}
	return newQuotaInfo(wire.UsedBytes, wire.LimitBytes), nil
}

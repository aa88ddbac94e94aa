// Package tinypng shrinks PNG, JPEG and WebP images through the TinyPNG
// compression API.
//
// The service answers a POST of the raw image with 201 Created and a JSON
// body whose output.url points at the compressed result, which is then
// fetched with the same credentials. An optional signature file records the
// MD5 of every compressed output so that images which are already compressed
// are not sent again on the next run.
package tinypng

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"
)

// DefaultEndpoint is the public shrink endpoint.
const DefaultEndpoint = "https://api.tinify.com/shrink"

var compressible = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the arguments of a tinypng transform block.
type Options struct {
	Key         string `hcl:"key,optional"`
	Endpoint    string `hcl:"endpoint,optional"`
	SigFile     string `hcl:"sig_file,optional"`
	ParallelMax int    `hcl:"parallel_max,optional"`
	Timeout     string `hcl:"timeout,optional"`
}

// Transform compresses images through the remote service.
type Transform struct {
	opts    Options
	sigPath string
	client  *http.Client

	// mu serialises runs sharing the signature file.
	mu sync.Mutex
}

// New validates opts. The signature file is resolved against env.Root.
func New(env transform.Env, opts Options) (*Transform, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("endpoint must not be empty")
	}
	if opts.ParallelMax < 1 {
		return nil, fmt.Errorf("parallel_max must be at least 1, got %d", opts.ParallelMax)
	}
	timeout, err := time.ParseDuration(opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout '%s': %w", opts.Timeout, err)
	}
	return &Transform{
		opts:    opts,
		sigPath: env.Resolve(opts.SigFile),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Apply implements transform.Transform.
func (t *Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	logger := ctxlog.FromContext(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()

	sigs, err := t.loadSignatures()
	if err != nil {
		return nil, err
	}

	out := make([]*transform.File, len(files))
	var todo []int
	for i, f := range files {
		out[i] = f
		if !compressible[f.Ext()] {
			continue
		}
		if gjson.GetBytes(sigs, gjson.Escape(f.Path)).String() == digest(f.Contents) {
			logger.Debug("Image already compressed, skipping.", "file", f.Path)
			continue
		}
		todo = append(todo, i)
	}
	if len(todo) == 0 {
		return out, nil
	}
	if t.opts.Key == "" {
		return nil, failure.External(fmt.Errorf("%d image(s) need compression but no API key is configured", len(todo)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.ParallelMax)
	for _, i := range todo {
		g.Go(func() error {
			f := files[i]
			data, err := t.shrink(gctx, f.Contents)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			logger.Debug("Image compressed.", "file", f.Path, "before", len(f.Contents), "after", len(data))
			cp := *f
			cp.Contents = data
			out[i] = &cp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failure.External(err)
	}

	for _, i := range todo {
		if sigs, err = sjson.SetBytes(sigs, gjson.Escape(out[i].Path), digest(out[i].Contents)); err != nil {
			return nil, fmt.Errorf("failed to record signature for %s: %w", out[i].Path, err)
		}
	}
	if err := t.saveSignatures(sigs); err != nil {
		return nil, err
	}
	logger.Info("🗜️ Images compressed.", "count", len(todo))
	return out, nil
}

// loadSignatures returns the signature document, or an empty one when no
// signature file is configured or it does not exist yet.
func (t *Transform) loadSignatures() ([]byte, error) {
	if t.sigPath == "" {
		return []byte("{}"), nil
	}
	data, err := os.ReadFile(t.sigPath)
	if errors.Is(err, os.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, failure.Filesystem(err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("signature file %s is not valid JSON", t.sigPath)
	}
	return data, nil
}

func (t *Transform) saveSignatures(sigs []byte) error {
	if t.sigPath == "" {
		return nil
	}
	if _, err := fsutil.WriteFile(filepath.Dir(t.sigPath), filepath.Base(t.sigPath), sigs); err != nil {
		return failure.Filesystem(err)
	}
	return nil
}

// shrink uploads data and downloads the compressed result.
func (t *Transform) shrink(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("api", t.opts.Key)

	body, header, err := t.do(req)
	if err != nil {
		return nil, err
	}
	location := gjson.GetBytes(body, "output.url").String()
	if location == "" {
		location = header.Get("Location")
	}
	if location == "" {
		return nil, errors.New("service response has no output url")
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("api", t.opts.Key)
	result, _, err := t.do(req)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("GET %s: service returned an empty image", req.URL.Redacted())
	}
	return result, nil
}

// do executes req and returns the body of a 2xx response.
func (t *Transform) do(req *http.Request) ([]byte, http.Header, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, nil, fmt.Errorf("%s %s: %s (%s)", req.Method, req.URL.Redacted(), resp.Status, msg)
	}
	return body, resp.Header, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("tinypng", &registry.RegisteredTransform{
		NewOptions: func() any {
			return &Options{Endpoint: DefaultEndpoint, ParallelMax: 50, Timeout: "60s"}
		},
		New: func(env transform.Env, opts any) (transform.Transform, error) {
			return New(env, *opts.(*Options))
		},
	})
}

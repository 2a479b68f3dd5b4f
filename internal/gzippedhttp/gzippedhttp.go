// Package gzippedhttp provides the middlewares that transparently decompress
// gzip request bodies and compress responses for clients accepting gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/patric-chuzhbe/bookstore/internal/logger"
)

// CompressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

// NewCompressedReader returns a CompressedReader over the gzip stream in body.
func NewCompressedReader(body io.ReadCloser) (*CompressedReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  body,
		zr: zr,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying body.
func (c *CompressedReader) Close() error {
	if err := c.zr.Close(); err != nil {
		_ = c.r.Close()
		return err
	}

	return c.r.Close()
}

// CompressedResponseWriter gzips everything written through it. The
// Content-Encoding header is set before the first byte of the response.
type CompressedResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

func NewCompressedResponseWriter(w http.ResponseWriter) *CompressedResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)

	return &CompressedResponseWriter{
		w:  w,
		zw: zw,
	}
}

func (c *CompressedResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CompressedResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	c.w.Header().Set("Content-Encoding", "gzip")
	c.w.Header().Add("Vary", "Accept-Encoding")
	c.w.Header().Del("Content-Length")
	c.w.WriteHeader(statusCode)
}

func (c *CompressedResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}

	return c.zw.Write(p)
}

// Close flushes the gzip stream and returns the writer to the pool. A handler
// that never wrote anything produces an empty, uncompressed body.
func (c *CompressedResponseWriter) Close() error {
	defer gzipWriterPool.Put(c.zw)

	if !c.wroteHeader {
		c.zw.Reset(io.Discard)
		return nil
	}

	return c.zw.Close()
}

// GzipResponse compresses responses for requests whose Accept-Encoding includes gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := NewCompressedResponseWriter(response)
		defer func() {
			if err := compressed.Close(); err != nil {
				logger.Log.Debugln("Error calling the `compressed.Close()`: ", err)
			}
		}()

		h.ServeHTTP(compressed, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressing
// reader. A body that is not valid gzip is rejected with 400.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		body, err := NewCompressedReader(request.Body)
		if err != nil {
			http.Error(response, "malformed gzip body", http.StatusBadRequest)
			return
		}
		defer body.Close()

		request.Body = body
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

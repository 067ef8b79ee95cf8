// Package storage keeps uploaded media behind a small blob interface. The S3
// implementation targets any S3-compatible endpoint; the memory one backs
// development and tests.
package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrUnmanagedURL = errors.New("url is not managed by this store")

type Blobs interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	DeleteURL(ctx context.Context, rawURL string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

const defaultCacheControl = "public, max-age=31536000, immutable"

func cleanKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}

// ProductImageKey is the object key for a processed product photo.
func ProductImageKey(businessID, productID, variant, stamp string) string {
	return "comercios/" + businessID + "/products/" + productID + "/" + variant + "-" + stamp + ".jpg"
}

// BusinessPrefix covers every object that belongs to one business.
func BusinessPrefix(businessID string) string {
	return "comercios/" + businessID + "/"
}

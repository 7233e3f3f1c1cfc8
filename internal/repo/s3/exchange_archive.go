package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/ivankudzin/oneclick/internal/domain/model"
)

const exchangePrefix = "exchanges"

// ExchangeArchive writes gateway exchanges as JSON objects keyed by operation
// and day.
type ExchangeArchive struct {
	client *minio.Client
	bucket string

	ensureOnce sync.Once
	ensureErr  error
}

func NewExchangeArchive(client *minio.Client, bucket string) *ExchangeArchive {
	return &ExchangeArchive{
		client: client,
		bucket: strings.TrimSpace(bucket),
	}
}

func (a *ExchangeArchive) EnsureBucket(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if a.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	a.ensureOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.ensureErr = err
			return
		}
		if exists {
			return
		}
		a.ensureErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	})

	if a.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", a.bucket, a.ensureErr)
	}
	return nil
}

func (a *ExchangeArchive) Archive(ctx context.Context, exchange model.GatewayExchange) error {
	if err := a.EnsureBucket(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("marshal gateway exchange: %w", err)
	}

	key := ExchangeKey(exchange)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put gateway exchange %s: %w", key, err)
	}
	return nil
}

// ExchangeKey builds exchanges/<op>/<yyyy>/<mm>/<dd>/<ref>-<unixnano>.json.
func ExchangeKey(exchange model.GatewayExchange) string {
	at := exchange.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	op := strings.TrimSpace(exchange.Operation)
	if op == "" {
		op = "unknown"
	}
	ref := strings.TrimSpace(exchange.Reference)
	if ref == "" {
		ref = "none"
	}

	return fmt.Sprintf("%s/%s/%s/%s-%d.json",
		exchangePrefix,
		url.PathEscape(op),
		at.Format("2006/01/02"),
		url.PathEscape(ref),
		at.UnixNano(),
	)
}

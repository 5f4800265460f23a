package lending

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

// Quote is one collateral price observation: how many principal-asset units
// one collateral unit is worth, and when that was observed.
type Quote struct {
	Price *big.Rat
	Time  time.Time
}

// PriceOracle quotes the collateral asset in principal-asset units.
type PriceOracle interface {
	Quote(ctx context.Context, collateralAsset, principalAsset string) (Quote, error)
}

// StaticOracle returns a fixed quote. Tests and local development.
type StaticOracle struct {
	mu    sync.RWMutex
	quote Quote
}

func NewStaticOracle(price *big.Rat, at time.Time) *StaticOracle {
	return &StaticOracle{quote: Quote{Price: price, Time: at}}
}

// SetQuote replaces the current quote.
func (o *StaticOracle) SetQuote(price *big.Rat, at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quote = Quote{Price: price, Time: at}
}

func (o *StaticOracle) Quote(context.Context, string, string) (Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.quote, nil
}

// HTTPOracle fetches quotes from a JSON price feed. PricePath and
// TimestampPath are gjson paths into the response body; TimestampPath may be
// empty, in which case the fetch time is used.
type HTTPOracle struct {
	URL           string
	APIKey        string
	PricePath     string
	TimestampPath string
	Client        *http.Client
}

func (o *HTTPOracle) Quote(ctx context.Context, collateralAsset, principalAsset string) (Quote, error) {
	client := o.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	url := fmt.Sprintf(o.URL, collateralAsset, principalAsset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, serrors.Internal("build price request: %s", err)
	}
	if o.APIKey != "" {
		req.Header.Set("X-API-Key", o.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Quote{}, serrors.Internal("fetch price: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, serrors.Internal("price feed returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Quote{}, serrors.Internal("read price response: %s", err)
	}

	raw := gjson.GetBytes(body, o.PricePath)
	if !raw.Exists() {
		return Quote{}, serrors.Internal("price path %q missing from feed response", o.PricePath)
	}
	price, ok := new(big.Rat).SetString(raw.String())
	if !ok || price.Sign() <= 0 {
		return Quote{}, serrors.Internal("unusable price %q", raw.String())
	}

	at := time.Now().UTC()
	if o.TimestampPath != "" {
		ts := gjson.GetBytes(body, o.TimestampPath)
		switch {
		case ts.Type == gjson.Number:
			at = time.Unix(ts.Int(), 0).UTC()
		case ts.Type == gjson.String:
			parsed, err := time.Parse(time.RFC3339, ts.String())
			if err != nil {
				return Quote{}, serrors.Internal("unusable feed timestamp %q", ts.String())
			}
			at = parsed.UTC()
		}
	}
	return Quote{Price: price, Time: at}, nil
}

// Package chain implements the full node gateway the wallet reads the chain
// through: a REST client with rate limiting and a circuit breaker in front
// of it.
package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/zwallet-network/zwallet-daemon/internal/core/ports"
	"github.com/zwallet-network/zwallet-daemon/pkg/circuitbreaker"
)

var (
	// ErrRequestFailed ...
	ErrRequestFailed = errors.New("node request failed")
	// ErrUnavailable is returned while the circuit is open after repeated
	// node failures.
	ErrUnavailable = errors.New("node is unavailable, try again later")
)

type service struct {
	apiURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewService returns a ChainSource reading from the REST gateway at the
// given URL, capped at requestsPerSecond towards the node.
func NewService(apiURL string, requestsPerSecond int) (ports.ChainSource, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%w: missing node url", ErrRequestFailed)
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 100
	}
	return &service{
		apiURL:  strings.TrimSuffix(apiURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: circuitbreaker.NewCircuitBreaker("chainsource"),
		limiter: ratelimit.New(requestsPerSecond),
	}, nil
}

func (s *service) GetChainTip(ctx context.Context) (*ports.ChainTip, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/chain/tip", nil)
	if err != nil {
		return nil, err
	}

	var tip struct {
		Height            uint32 `json:"height"`
		ConsensusBranchID string `json:"consensus_branch_id"`
	}
	if err := json.Unmarshal(resp, &tip); err != nil {
		return nil, fmt.Errorf("%w: malformed tip response: %v", ErrRequestFailed, err)
	}
	branchID, err := strconv.ParseUint(tip.ConsensusBranchID, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed branch id %q", ErrRequestFailed, tip.ConsensusBranchID)
	}

	return &ports.ChainTip{
		Height:            tip.Height,
		ConsensusBranchID: uint32(branchID),
	}, nil
}

func (s *service) GetTxConfirmations(ctx context.Context, txid string) (uint32, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/tx/"+txid+"/confirmations", nil)
	if err != nil {
		return 0, err
	}

	confirmations, err := strconv.ParseUint(strings.TrimSpace(string(resp)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed confirmations response", ErrRequestFailed)
	}
	return uint32(confirmations), nil
}

func (s *service) BroadcastTransaction(ctx context.Context, rawTx []byte) (string, error) {
	resp, err := s.doRequest(
		ctx, http.MethodPost, "/tx", []byte(hex.EncodeToString(rawTx)),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp)), nil
}

func (s *service) doRequest(
	ctx context.Context, method, path string, body []byte,
) ([]byte, error) {
	s.limiter.Take()

	resp, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(
			ctx, method, s.apiURL+path, bytes.NewReader(body),
		)
		if err != nil {
			return nil, err
		}
		if method == http.MethodPost {
			req.Header.Set("Content-Type", "text/plain")
		}

		res, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		payload, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf(
				"%w: %s %s: %d %s",
				ErrRequestFailed, method, path, res.StatusCode,
				strings.TrimSpace(string(payload)),
			)
		}
		return payload, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return resp.([]byte), nil
}

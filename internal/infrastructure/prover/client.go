// Package prover implements the client of the external proving service.
// Proof generation needs the proving parameters and circuit implementations
// the wallet deliberately does not embed; the returned proof bytes are
// carried opaquely.
package prover

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/zwallet-network/zwallet-daemon/internal/core/ports"
	"github.com/zwallet-network/zwallet-daemon/pkg/circuitbreaker"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

var (
	// ErrProvingFailed ...
	ErrProvingFailed = errors.New("proving service request failed")
	// ErrUnavailable ...
	ErrUnavailable = errors.New("proving service is unavailable, try again later")
)

type service struct {
	apiURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewService returns a Prover backed by the proving service at the given
// URL. Proof generation is slow, so the client carries a generous timeout.
func NewService(apiURL string) (ports.Prover, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%w: missing prover url", ErrProvingFailed)
	}
	return &service{
		apiURL:  strings.TrimSuffix(apiURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		breaker: circuitbreaker.NewCircuitBreaker("prover"),
	}, nil
}

func (s *service) CreateProofs(ctx context.Context, p *pczt.Pczt) error {
	if len(p.Orchard.Actions) == 0 {
		return nil
	}

	encoded, err := pczt.EncodeBase64(p)
	if err != nil {
		return err
	}

	resp, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, s.apiURL+"/prove",
			bytes.NewReader([]byte(encoded)),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/plain")

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
				"%w: %d %s",
				ErrProvingFailed, res.StatusCode, strings.TrimSpace(string(payload)),
			)
		}
		return payload, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return err
	}

	proof, err := base64.StdEncoding.DecodeString(
		strings.TrimSpace(string(resp.([]byte))),
	)
	if err != nil {
		return fmt.Errorf("%w: malformed proof response", ErrProvingFailed)
	}
	if len(proof) == 0 {
		return fmt.Errorf("%w: empty proof", ErrProvingFailed)
	}
	p.Orchard.ZkProof = proof
	return nil
}

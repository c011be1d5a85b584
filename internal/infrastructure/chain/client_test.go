package chain_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zwallet-network/zwallet-daemon/internal/infrastructure/chain"
)

func newTestNode(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/chain/tip", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"height": 2500000, "consensus_branch_id": "c2d6d0b4"}`)
	})
	mux.HandleFunc("/tx/abcd/confirmations", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "12\n")
	})
	mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			http.Error(w, "empty transaction", http.StatusBadRequest)
			return
		}
		io.WriteString(w, "deadbeef")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetChainTip(t *testing.T) {
	t.Parallel()

	svc, err := chain.NewService(newTestNode(t).URL, 100)
	require.NoError(t, err)

	tip, err := svc.GetChainTip(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(2_500_000), tip.Height)
	require.Equal(t, uint32(0xc2d6d0b4), tip.ConsensusBranchID)
}

func TestGetTxConfirmations(t *testing.T) {
	t.Parallel()

	svc, err := chain.NewService(newTestNode(t).URL, 100)
	require.NoError(t, err)

	confirmations, err := svc.GetTxConfirmations(context.Background(), "abcd")
	require.NoError(t, err)
	require.Equal(t, uint32(12), confirmations)
}

func TestBroadcastTransaction(t *testing.T) {
	t.Parallel()

	svc, err := chain.NewService(newTestNode(t).URL, 100)
	require.NoError(t, err)

	txid, err := svc.BroadcastTransaction(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, "deadbeef", txid)

	_, err = svc.BroadcastTransaction(context.Background(), nil)
	require.ErrorIs(t, err, chain.ErrRequestFailed)
}

func TestNewServiceRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := chain.NewService("", 100)
	require.Error(t, err)
}

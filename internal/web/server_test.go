package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/elys-network/ilshield/internal/engine"
	"github.com/elys-network/ilshield/internal/insurer"
)

// newTestServer wires a web server around an insurer whose engine has not
// been initialized: the state the service serves from before the one-time
// POST /api/policy has happened.
func newTestServer(t *testing.T) *WebServer {
	t.Helper()

	conn, err := grpc.NewClient("localhost:9090", grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ins, err := insurer.New(insurer.Config{
		GRPCClient:   conn,
		Engine:       engine.New(),
		PoolID:       1,
		DenomA:       "ueth",
		DenomB:       "uusdc",
		ConfigName:   insurer.DEFAULT_POLICY_CONFIG_NAME,
		SyncInterval: time.Minute,
	})
	require.NoError(t, err)

	return NewWebServer("8080", ins)
}

func serve(ws *WebServer, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ws.router.ServeHTTP(rec, req)
	return rec
}

func TestPolicyEndpoints_BeforeInitialization(t *testing.T) {
	ws := newTestServer(t)

	// The server comes up uninitialized; reads report the missing policy.
	rec := serve(ws, http.MethodGet, "/api/policy", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "not initialized")

	// Valuations are likewise gated on initialization, not crashed.
	rec = serve(ws, http.MethodGet, "/api/positions/elys1qexampleaddress/payout", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestInitializePolicy_InvalidPolicyRejected(t *testing.T) {
	ws := newTestServer(t)

	rec := serve(ws, http.MethodPost, "/api/policy",
		`{"threshold_bps":3000,"upper_cap_bps":2000,"payout_ratio_bps":8000}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(ws, http.MethodPost, "/api/policy", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitializePolicy_TransitionStaysOpenOnStorageFailure(t *testing.T) {
	ws := newTestServer(t)

	// With no database behind the insurer, persisting the policy fails.
	// The one-time transition must remain unconsumed: the response is a
	// storage error, never AlreadyInitialized.
	body := `{"threshold_bps":1000,"upper_cap_bps":2000,"payout_ratio_bps":8000}`

	rec := serve(ws, http.MethodPost, "/api/policy", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.False(t, ws.insurer.Initialized())

	rec = serve(ws, http.MethodPost, "/api/policy", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotEqual(t, http.StatusConflict, rec.Code)
}

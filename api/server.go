// Package api exposes the adapter's HTTP surface: the synchronous data-access
// endpoint and the callbacks through which the connector delivers
// asynchronous events.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/bus"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/internal/httpx"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/result"
)

const (
	// DefaultResultTimeout is the default duration a synchronous request
	// waits for its result before giving up.
	DefaultResultTimeout = 30 * time.Second

	// syncPath is the prefix of the synchronous data-access endpoint. The
	// requested asset ID is the remainder of the path.
	syncPath = "/adapter/asset/sync/"

	// negotiationCallbackPath receives negotiation state events pushed by
	// the connector.
	negotiationCallbackPath = "/adapter/callback/negotiation"

	// dataReferenceCallbackPath receives data-references pushed by the
	// provider.
	dataReferenceCallbackPath = "/adapter/callback/data-reference"
)

// Server serves the adapter's HTTP API.
type Server struct {
	// ListenAddress is the address the server listens on.
	ListenAddress string

	// Bus is the bus that inbound parcels are sent on.
	Bus *bus.Bus

	// Packer is used to pack inbound requests and data-references into
	// parcels.
	Packer *process.Packer

	// Results is the exchange that synchronous requests wait on.
	Results *result.Exchange

	// Negotiations is the listener that negotiation state events are
	// delivered to.
	Negotiations connector.EventListener

	// ResultTimeout is the duration a synchronous request waits for its
	// result before giving up. If it is zero, DefaultResultTimeout is used.
	ResultTimeout time.Duration

	// Logger is the target for log messages about the requests being
	// served.
	Logger logging.Logger
}

// Run serves the API until an error occurs or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.ListenAddress,
		Handler: s.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}

	return err
}

// Handler returns the handler that serves the API's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(syncPath, s.sync)
	mux.HandleFunc(negotiationCallbackPath, s.negotiationCallback)
	mux.HandleFunc(dataReferenceCallbackPath, s.dataReferenceCallback)

	return mux
}

// sync serves the synchronous data-access endpoint.
//
// It creates a process for the requested asset, sends it into the pipeline,
// and blocks until the process produces a terminal record or the configured
// timeout elapses.
func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	assetID := strings.TrimPrefix(r.URL.Path, syncPath)
	providerURL := r.URL.Query().Get("providerUrl")

	if strings.TrimSpace(assetID) == "" ||
		strings.Contains(assetID, "/") ||
		strings.TrimSpace(providerURL) == "" {
		httpx.WriteError(
			w,
			http.StatusBadRequest,
			"an asset ID and a providerUrl parameter are required",
		)
		return
	}

	p := s.Packer.PackInitial(assetID, providerURL)

	// The result may be produced synchronously by the bus listeners, so the
	// expectation must be registered before the parcel is sent.
	s.Results.Expect(p.TraceID)
	s.Bus.Send(r.Context(), p)

	ctx, cancel := linger.ContextWithTimeout(
		r.Context(),
		s.ResultTimeout,
		DefaultResultTimeout,
	)
	defer cancel()

	rec, err := s.Results.Pull(ctx, p.TraceID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			httpx.WriteError(
				w,
				http.StatusRequestTimeout,
				"no result was produced for asset %s within the configured timeout",
				assetID,
			)
			return
		}

		httpx.WriteError(
			w,
			http.StatusNotFound,
			"the wait for the result of asset %s was interrupted",
			assetID,
		)
		return
	}

	if rec.ErrorStatus != 0 {
		httpx.WriteError(w, rec.ErrorStatus, "%s", rec.ErrorMessage)
		return
	}

	httpx.WriteJSON(
		w,
		http.StatusOK,
		process.DataReference{
			AgreementID: rec.AgreementID,
			Endpoint:    rec.AccessEndpoint,
			AuthCode:    rec.AccessToken,
		},
	)
}

// negotiationCallback receives negotiation state events pushed by the
// connector.
func (s *Server) negotiationCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var ev connector.NegotiationEvent
	if err := httpx.ReadJSON(r, &ev); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed negotiation event")
		return
	}

	if ev.NegotiationID == "" {
		httpx.WriteError(
			w,
			http.StatusBadRequest,
			"a negotiation event must identify its negotiation",
		)
		return
	}

	if err := s.Negotiations.NotifyNegotiationUpdate(r.Context(), ev); err != nil {
		logging.Log(
			s.Logger,
			"unable to handle %s event for negotiation %s: %s",
			ev.State,
			ev.NegotiationID,
			err,
		)

		httpx.WriteError(
			w,
			http.StatusInternalServerError,
			"the negotiation event could not be handled",
		)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// dataReferenceCallback receives data-references pushed by the provider.
func (s *Server) dataReferenceCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var ref process.DataReference
	if err := httpx.ReadJSON(r, &ref); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "malformed data-reference")
		return
	}

	if ref.AgreementID == "" {
		httpx.WriteError(
			w,
			http.StatusBadRequest,
			"a data-reference must identify its contract agreement",
		)
		return
	}

	s.Bus.Send(r.Context(), s.Packer.PackReference(ref))
	w.WriteHeader(http.StatusNoContent)
}

package connector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type HTTPClient", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		handler http.HandlerFunc
		server  *httptest.Server
		client  *HTTPClient
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		server = httptest.NewServer(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handler(w, r)
			}),
		)
		DeferCleanup(server.Close)

		client = &HTTPClient{
			BaseURL: server.URL,
			APIKey:  "<api-key>",
		}
	})

	Describe("func InitiateNegotiation()", func() {
		It("posts the request and returns the negotiation ID", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/contractnegotiations"))
				Expect(r.Header.Get("X-Api-Key")).To(Equal("<api-key>"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

				var req NegotiationRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(req).To(Equal(NegotiationRequest{
					ProviderURL: "https://provider.example.com",
					AssetID:     "<asset>",
				}))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id": "<negotiation>"}`))
			}

			id, err := client.InitiateNegotiation(ctx, NegotiationRequest{
				ProviderURL: "https://provider.example.com",
				AssetID:     "<asset>",
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(id).To(Equal("<negotiation>"))
		})

		It("returns an APIError if the request is rejected", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such asset", http.StatusBadRequest)
			}

			_, err := client.InitiateNegotiation(ctx, NegotiationRequest{})
			Expect(err).To(Equal(APIError{
				Status:  http.StatusBadRequest,
				Message: "no such asset",
			}))
			Expect(IsFatal(err)).To(BeTrue())
		})

		It("returns a non-fatal error if the connector is unavailable", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "shutting down", http.StatusServiceUnavailable)
			}

			_, err := client.InitiateNegotiation(ctx, NegotiationRequest{})
			Expect(err).Should(HaveOccurred())
			Expect(IsFatal(err)).To(BeFalse())
		})

		It("returns a non-fatal error if the connector cannot be reached", func() {
			server.Close()

			_, err := client.InitiateNegotiation(ctx, NegotiationRequest{})
			Expect(err).Should(HaveOccurred())
			Expect(IsFatal(err)).To(BeFalse())
		})

		It("returns an error if the response is malformed", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{`))
			}

			_, err := client.InitiateNegotiation(ctx, NegotiationRequest{})
			Expect(err).To(MatchError(
				ContainSubstring("connector returned a malformed response"),
			))
		})
	})

	Describe("func GetNegotiation()", func() {
		It("returns the negotiation state", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/contractnegotiations/<negotiation>"))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{
					"id": "<negotiation>",
					"state": "CONFIRMED",
					"contractAgreementId": "<agreement>"
				}`))
			}

			n, err := client.GetNegotiation(ctx, "<negotiation>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(n).To(Equal(Negotiation{
				ID:          "<negotiation>",
				State:       NegotiationConfirmed,
				AgreementID: "<agreement>",
			}))
		})
	})

	Describe("func InitiateTransfer()", func() {
		It("posts the request and returns the transfer process ID", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/transferprocesses"))

				var req TransferRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(req).To(Equal(TransferRequest{
					ProviderURL: "https://provider.example.com",
					AssetID:     "<asset>",
					AgreementID: "<agreement>",
				}))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id": "<transfer>"}`))
			}

			id, err := client.InitiateTransfer(ctx, TransferRequest{
				ProviderURL: "https://provider.example.com",
				AssetID:     "<asset>",
				AgreementID: "<agreement>",
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(id).To(Equal("<transfer>"))
		})
	})

	Describe("func GetTransferProcess()", func() {
		It("returns the transfer process state", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/transferprocesses/<transfer>"))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{
					"id": "<transfer>",
					"state": "ERROR"
				}`))
			}

			tp, err := client.GetTransferProcess(ctx, "<transfer>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(tp).To(Equal(TransferProcess{
				ID:    "<transfer>",
				State: TransferError,
			}))
		})
	})
})

var _ = Describe("type NegotiationState", func() {
	DescribeTable(
		"func IsTerminal()",
		func(s NegotiationState, expect bool) {
			Expect(s.IsTerminal()).To(Equal(expect))
		},
		Entry("requested", NegotiationRequested, false),
		Entry("confirmed", NegotiationConfirmed, true),
		Entry("declined", NegotiationDeclined, true),
		Entry("error", NegotiationError, true),
	)

	DescribeTable(
		"func IsFailed()",
		func(s NegotiationState, expect bool) {
			Expect(s.IsFailed()).To(Equal(expect))
		},
		Entry("requested", NegotiationRequested, false),
		Entry("confirmed", NegotiationConfirmed, false),
		Entry("declined", NegotiationDeclined, true),
		Entry("error", NegotiationError, true),
	)
})

var _ = Describe("type TransferState", func() {
	DescribeTable(
		"func IsTerminal()",
		func(s TransferState, expect bool) {
			Expect(s.IsTerminal()).To(Equal(expect))
		},
		Entry("in progress", TransferInProgress, false),
		Entry("completed", TransferCompleted, true),
		Entry("error", TransferError, true),
	)
})

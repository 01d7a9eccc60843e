package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPClient is a Client that drives a connector's management API over
// REST/JSON.
type HTTPClient struct {
	// BaseURL is the base URL of the management API, without a trailing
	// slash.
	BaseURL string

	// APIKey is sent in the X-Api-Key header of every request. If it is
	// empty no authentication header is sent.
	APIKey string

	// HTTP is the HTTP client used to make requests. If it is nil,
	// http.DefaultClient is used.
	HTTP *http.Client
}

// InitiateNegotiation starts a contract negotiation and returns its
// identifier.
func (c *HTTPClient) InitiateNegotiation(
	ctx context.Context,
	req NegotiationRequest,
) (string, error) {
	var res struct {
		ID string `json:"id"`
	}

	if err := c.post(ctx, "/contractnegotiations", req, &res); err != nil {
		return "", err
	}

	return res.ID, nil
}

// GetNegotiation returns the current state of a negotiation.
func (c *HTTPClient) GetNegotiation(
	ctx context.Context,
	id string,
) (Negotiation, error) {
	var n Negotiation
	err := c.get(ctx, "/contractnegotiations/"+id, &n)
	return n, err
}

// InitiateTransfer starts a transfer process and returns its identifier.
func (c *HTTPClient) InitiateTransfer(
	ctx context.Context,
	req TransferRequest,
) (string, error) {
	var res struct {
		ID string `json:"id"`
	}

	if err := c.post(ctx, "/transferprocesses", req, &res); err != nil {
		return "", err
	}

	return res.ID, nil
}

// GetTransferProcess returns the current state of a transfer process.
func (c *HTTPClient) GetTransferProcess(
	ctx context.Context,
	id string,
) (TransferProcess, error) {
	var tp TransferProcess
	err := c.get(ctx, "/transferprocesses/"+id, &tp)
	return tp, err
}

func (c *HTTPClient) post(
	ctx context.Context,
	path string,
	in, out interface{},
) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+path,
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *HTTPClient) get(
	ctx context.Context,
	path string,
	out interface{},
) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.BaseURL+path,
		nil,
	)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		message, _ := io.ReadAll(
			io.LimitReader(res.Body, 8192),
		)

		return APIError{
			Status:  res.StatusCode,
			Message: strings.TrimSpace(string(message)),
		}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("connector returned a malformed response: %w", err)
	}

	return nil
}

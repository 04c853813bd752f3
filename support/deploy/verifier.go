package deploy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	addr "github.com/filecoin-project/go-address"
	json "github.com/goccy/go-json"
	cid "github.com/ipfs/go-cid"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
)

// A deployed contract submitted for explorer verification.
type Contract struct {
	Name              string
	Address           addr.Address
	Code              cid.Cid
	ConstructorParams interface{}
}

// Verifier publishes a deployed contract's code and constructor arguments to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, network string, c Contract) error
}

// HTTPVerifier posts verification requests to an explorer API.
type HTTPVerifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPVerifier(endpoint, apiKey string) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type verifyRequest struct {
	Network              string      `json:"network"`
	Contract             string      `json:"contract"`
	Address              string      `json:"address"`
	Code                 string      `json:"code"`
	ConstructorArguments interface{} `json:"constructorArguments"`
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, network string, c Contract) error {
	body, err := json.Marshal(&verifyRequest{
		Network:              network,
		Contract:             c.Name,
		Address:              c.Address.String(),
		Code:                 builtin.ActorNameByCode(c.Code),
		ConstructorArguments: c.ConstructorParams,
	})
	if err != nil {
		return xerrors.Errorf("failed to encode verification of %s: %w", c.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("X-API-Key", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return xerrors.Errorf("verification of %s failed: %w", c.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return xerrors.Errorf("failed to read verification response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return xerrors.Errorf("verification of %s rejected with status %d: %s", c.Name, resp.StatusCode, bytes.TrimSpace(data))
	}

	var out verifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return xerrors.Errorf("failed to decode verification response: %w", err)
	}
	if out.Status != "1" && out.Status != "ok" {
		return xerrors.Errorf("verification of %s not accepted: %s", c.Name, out.Message)
	}
	return nil
}

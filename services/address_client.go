package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"settlement-service/models"

	"github.com/google/uuid"
)

// AddressAPI resolves a customer's saved address into the snapshot stored on
// the order.
type AddressAPI interface {
	FetchAddress(ctx context.Context, customerID, addressID uuid.UUID) (*models.Address, error)
}

type AddressClient struct {
	baseURL string
	client  *http.Client
}

func NewAddressClient(baseURL string) *AddressClient {
	return &AddressClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *AddressClient) FetchAddress(ctx context.Context, customerID, addressID uuid.UUID) (*models.Address, error) {
	url := fmt.Sprintf("%s/users/internal/%s/addresses/%s", c.baseURL, customerID.String(), addressID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address service returned %d", resp.StatusCode)
	}

	var addr models.Address
	if err := json.NewDecoder(resp.Body).Decode(&addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDirectory is returned when the technician directory cannot be read.
var ErrDirectory = errors.New("technician directory unavailable")

// Directory lists technicians.
type Directory interface {
	List(ctx context.Context) ([]Technician, error)
}

// DirectoryClient reads technicians from the operations backend.
type DirectoryClient struct {
	baseURL string
	http    *http.Client
}

var _ Directory = (*DirectoryClient)(nil)

func NewDirectoryClient(baseURL string, timeout time.Duration) *DirectoryClient {
	return &DirectoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *DirectoryClient) List(ctx context.Context) ([]Technician, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/technicians", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectory, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDirectory, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectory, err)
	}
	return DecodeTechnicians(body)
}

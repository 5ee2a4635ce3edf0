package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// ErrRoomProvisioning is returned when the relay could not allocate a room.
var ErrRoomProvisioning = errors.New("failed to create a private room")

// maxRoomIDBytes bounds how much of the response body is read.
const maxRoomIDBytes = 4096

// Provisioner allocates fresh rooms on the relay.
type Provisioner struct {
	origins Origins
	client  *http.Client
	logger  zerolog.Logger
}

// NewProvisioner creates a Provisioner. A nil client uses http.DefaultClient.
func NewProvisioner(origins Origins, client *http.Client, logger zerolog.Logger) *Provisioner {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provisioner{
		origins: origins,
		client:  client,
		logger:  logger,
	}
}

// CreateRoom asks the relay for a new room and returns its identifier.
// The call is not retried.
func (p *Provisioner) CreateRoom(ctx context.Context) (string, error) {
	endpoint := p.origins.Request + "/api/room"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoomProvisioning, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRoomProvisioning, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRoomIDBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrRoomProvisioning, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s returned %s", ErrRoomProvisioning, endpoint, resp.Status)
	}

	room := strings.TrimSpace(string(body))
	if room == "" {
		return "", fmt.Errorf("%w: empty room id", ErrRoomProvisioning)
	}

	p.logger.Debug().Str("room", room).Msg("room created")
	return room, nil
}

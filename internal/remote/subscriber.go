package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/kartoza/cplus-engine/internal/ctxlog"
)

// statusNamespace is the socket.io namespace the API streams job status on.
const statusNamespace = "/status"

// Subscriber follows a job's status events over socket.io instead of
// polling. Servers that do not stream still answer the REST status
// endpoint, so callers fall back to Client.Wait when Follow fails.
type Subscriber struct {
	manager *socket.Manager
	io      *socket.Socket
}

// NewSubscriber connects to the API's status namespace.
func NewSubscriber(apiURL string) (*Subscriber, error) {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(statusNamespace, opts)
	return &Subscriber{manager: manager, io: io}, nil
}

// Close disconnects the underlying socket.
func (s *Subscriber) Close() {
	s.io.Disconnect()
}

// result passes one event through the done channel.
type result struct {
	status JobStatus
	err    error
}

// Follow subscribes to the job's status events and blocks until the job
// reaches a terminal state, the context is cancelled, or connectTimeout
// expires before the first connection. Every observed status is forwarded
// to onStatus when it is not nil.
func (s *Subscriber) Follow(ctx context.Context, jobID string, connectTimeout time.Duration, onStatus func(JobStatus)) (JobStatus, error) {
	logger := ctxlog.FromContext(ctx).With("jobID", jobID)

	connected := make(chan struct{}, 1)
	done := make(chan result, 16)

	s.io.On(types.EventName("connect"), func(...any) {
		logger.Info("Status stream connected.", "sid", s.io.Id())
		select {
		case connected <- struct{}{}:
		default:
		}
		s.io.Emit("subscribe", map[string]string{"job": jobID})
	})

	s.io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				done <- result{err: fmt.Errorf("status stream: %w", err)}
				return
			}
		}
		done <- result{err: fmt.Errorf("status stream: connection failed")}
	})

	s.io.On(types.EventName("status"), func(data ...any) {
		if len(data) == 0 {
			return
		}
		status, err := decodeStatus(data[0])
		if err != nil {
			done <- result{err: err}
			return
		}
		if status.JobID != jobID {
			return
		}
		done <- result{status: status}
	})

	s.io.Connect()
	defer s.io.Disconnect()

	connectDeadline := time.NewTimer(connectTimeout)
	defer connectDeadline.Stop()

	select {
	case <-connected:
	case res := <-done:
		// A status can land before the connect handler runs.
		if res.err != nil {
			return JobStatus{}, res.err
		}
		if onStatus != nil {
			onStatus(res.status)
		}
		if res.status.State.Terminal() {
			return res.status, nil
		}
	case <-connectDeadline.C:
		return JobStatus{}, fmt.Errorf("status stream: no connection within %s", connectTimeout)
	case <-ctx.Done():
		return JobStatus{}, ctx.Err()
	}

	for {
		select {
		case res := <-done:
			if res.err != nil {
				return JobStatus{}, res.err
			}
			if onStatus != nil {
				onStatus(res.status)
			}
			if res.status.State.Terminal() {
				return res.status, nil
			}
		case <-ctx.Done():
			return JobStatus{}, ctx.Err()
		}
	}
}

// decodeStatus converts a socket.io event payload into a JobStatus. The
// parser hands events over as generic maps, so round-trip through JSON.
func decodeStatus(payload any) (JobStatus, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return JobStatus{}, fmt.Errorf("status stream: encode event: %w", err)
	}
	var status JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return JobStatus{}, fmt.Errorf("status stream: decode event: %w", err)
	}
	return status, nil
}

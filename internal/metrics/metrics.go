package metrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkmtelecom/outagemon/internal/event"
	"github.com/mkmtelecom/outagemon/internal/state"
)

// Server exposes Prometheus-style metrics based on current state and the
// recorded event log.
type Server struct {
	store  *state.Store
	events *event.Log
}

// NewServer constructs a metrics server. events may be nil.
func NewServer(store *state.Store, events *event.Log) *Server {
	return &Server{store: store, events: events}
}

// Handler returns an http handler that serves metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		bw := bufio.NewWriter(w)
		defer bw.Flush()
		s.writeMetrics(bw)
	})
}

func (s *Server) writeMetrics(w *bufio.Writer) {
	snapshot := s.store.Snapshot()

	var upCount, downCount, unknownCount int
	for _, target := range snapshot {
		switch target.Status {
		case state.StatusUp:
			upCount++
		case state.StatusDown:
			downCount++
		default:
			unknownCount++
		}
	}
	fmt.Fprintf(w, "outagemon_targets_total %d\n", len(snapshot))
	fmt.Fprintf(w, "outagemon_targets_up %d\n", upCount)
	fmt.Fprintf(w, "outagemon_targets_down %d\n", downCount)
	fmt.Fprintf(w, "outagemon_targets_unknown %d\n", unknownCount)
	if s.events != nil {
		fmt.Fprintf(w, "outagemon_outages_recorded_total %d\n", s.events.Len())
	}

	for _, target := range snapshot {
		labels := fmt.Sprintf(
			`target="%s",address="%s",group="%s"`,
			escapeLabel(target.Name),
			escapeLabel(target.Address),
			escapeLabel(target.Group),
		)
		up := 0
		if target.Status == state.StatusUp {
			up = 1
		}
		fmt.Fprintf(w, "outagemon_target_up{%s} %d\n", labels, up)
		fmt.Fprintf(w, "outagemon_target_fail_streak{%s} %d\n", labels, target.FailStreak)
		fmt.Fprintf(w, "outagemon_target_success_streak{%s} %d\n", labels, target.SuccessStreak)
		if target.LastLatency > 0 {
			fmt.Fprintf(w, "outagemon_target_latency_ms{%s} %d\n", labels, target.LastLatency.Milliseconds())
		}
	}
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// Serve starts an HTTP server and blocks until context cancellation.
func Serve(ctx context.Context, addr string, store *state.Store, events *event.Log) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewServer(store, events).Handler())
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}

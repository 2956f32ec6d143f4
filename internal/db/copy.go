package db

import (
	"github.com/jackc/pgx/v5"
)

// ChannelSource implements pgx.CopyFromSource by reading pre-built value
// slices from a channel. This provides natural backpressure between the
// row producer and the COPY writer.
type ChannelSource struct {
	ch      <-chan []any
	current []any
}

// NewChannelSource creates a CopyFromSource backed by a channel.
func NewChannelSource(ch <-chan []any) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *ChannelSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in COPY column order.
func (s *ChannelSource) Values() ([]any, error) {
	return s.current, nil
}

// Err returns any error encountered during iteration.
func (s *ChannelSource) Err() error {
	return nil
}

// Compile-time check that ChannelSource satisfies the interface.
var _ pgx.CopyFromSource = (*ChannelSource)(nil)

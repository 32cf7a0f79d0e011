package traffic

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseSink writes batches directly to ClickHouse tables via the
// native protocol driver.
type ClickHouseSink struct {
	conn           chdriver.Conn
	downstreamTable string
	upstreamTable   string
}

func NewClickHouseSink(ctx context.Context, opts *clickhouse.Options, downstreamTable, upstreamTable string) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("traffic: open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("traffic: ping clickhouse: %w", err)
	}
	return &ClickHouseSink{conn: conn, downstreamTable: downstreamTable, upstreamTable: upstreamTable}, nil
}

func (s *ClickHouseSink) InsertDownstream(ctx context.Context, events []DownstreamEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (trace_id, provider, provider_id, operation, model, user_id, key_id, method, path, query, resp_status, is_stream, created_at)",
		s.downstreamTable,
	))
	if err != nil {
		return fmt.Errorf("prepare downstream batch: %w", err)
	}
	for _, e := range events {
		if err := batch.Append(
			e.TraceID, e.Provider, e.ProviderID, e.Operation.String(), e.Model,
			e.UserID, e.KeyID, e.Method, e.Path, e.Query,
			e.RespStatus, e.IsStream, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("append downstream row: %w", err)
		}
	}
	return batch.Send()
}

func (s *ClickHouseSink) InsertUpstream(ctx context.Context, events []UpstreamEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (trace_id, provider, credential_id, attempt_no, model, input_tokens, output_tokens, cached_input_tokens, reasoning_tokens, resp_status, created_at)",
		s.upstreamTable,
	))
	if err != nil {
		return fmt.Errorf("prepare upstream batch: %w", err)
	}
	for _, e := range events {
		if err := batch.Append(
			e.TraceID, e.Provider, e.CredentialID, e.AttemptNo, e.Model,
			e.Usage.InputTokens, e.Usage.OutputTokens, e.Usage.CachedInputTokens, e.Usage.ReasoningTokens,
			e.RespStatus, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("append upstream row: %w", err)
		}
	}
	return batch.Send()
}

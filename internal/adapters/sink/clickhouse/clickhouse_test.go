package clickhouse

import (
	"context"
	"errors"
	"testing"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	perr "sondeo/internal/platform/errors"
	"sondeo/internal/platform/testkit"
)

func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{URL: "://nope"})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("error code = %v, want unavailable", err)
	}
}

func TestOpen_ConnectError(t *testing.T) {
	testkit.Serial(t)

	testkit.Swap(t, &connect, func(_ *ch.Options) (driver.Conn, error) {
		return nil, errors.New("refused")
	})

	_, err := Open(context.Background(), Config{URL: "clickhouse://localhost:9000/analytics"})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("error code = %v, want unavailable", err)
	}
}

func TestClose_NilSafe(t *testing.T) {
	var s *Sink
	if err := s.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if err := (&Sink{}).Close(); err != nil {
		t.Fatalf("zero close: %v", err)
	}
}

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quickset/quickset/internal/config"
	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/pkg/types"
)

// ClickHouse pulls tables over the ClickHouse HTTP interface in TabSeparated
// format, which keeps the source free of driver dependencies.
type ClickHouse struct {
	cfg    config.SourceConfig
	client *http.Client
}

// NewClickHouse creates a ClickHouse source.
func NewClickHouse(cfg config.SourceConfig) *ClickHouse {
	return &ClickHouse{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name identifies the source in logs.
func (c *ClickHouse) Name() string {
	return c.cfg.Name
}

// Connect probes the server with a trivial query.
func (c *ClickHouse) Connect(ctx context.Context) error {
	_, err := c.execute(ctx, "SELECT 1")
	return err
}

// Close is a no-op; connections are pooled by the HTTP client.
func (c *ClickHouse) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// FetchTable runs the table's SELECT and parses the TSV response. Rows with
// NULL cells or unparseable integers are dropped and counted.
func (c *ClickHouse) FetchTable(ctx context.Context, tbl config.SourceTableConfig) ([][]types.Value, int, error) {
	colTypes, err := columnTypes(tbl)
	if err != nil {
		return nil, 0, err
	}

	body, err := c.execute(ctx, buildQuery(tbl))
	if err != nil {
		return nil, 0, err
	}

	return parseTSV(body, colTypes)
}

// execute posts a query with FORMAT TabSeparated appended and returns the
// raw response body.
func (c *ClickHouse) execute(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("database", defaultStr(c.cfg.Database, "default"))
	params.Set("user", defaultStr(c.cfg.User, "default"))
	params.Set("password", c.cfg.Password)

	endpoint := fmt.Sprintf("http://%s:%d/?%s", c.cfg.Host, c.cfg.Port, params.Encode())
	fullQuery := query + " FORMAT TabSeparated"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(fullQuery))
	if err != nil {
		return "", qerr.NewSourceError(qerr.CodeSourceUnavailable, "failed to build request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", qerr.NewSourceError(qerr.CodeSourceUnavailable,
			fmt.Sprintf("failed to reach clickhouse at %s:%d", c.cfg.Host, c.cfg.Port), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", qerr.NewSourceError(qerr.CodeSourceUnavailable, "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", qerr.NewSourceError(qerr.CodeSourceBadData,
			fmt.Sprintf("clickhouse returned %s: %s", resp.Status, strings.TrimSpace(string(data))), nil)
	}
	return string(data), nil
}

// parseTSV converts a TabSeparated body into value rows. A row is dropped
// when a cell is NULL, missing, or fails integer parsing; quickset has no
// null value.
func parseTSV(body string, colTypes []types.ColumnType) ([][]types.Value, int, error) {
	var rows [][]types.Value
	dropped := 0

	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < len(colTypes) {
			dropped++
			continue
		}

		values := make([]types.Value, len(colTypes))
		ok := true
		for i, t := range colTypes {
			v, parsed := parseTSVValue(fields[i], t)
			if !parsed {
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			dropped++
			continue
		}
		rows = append(rows, values)
	}

	return rows, dropped, nil
}

// parseTSVValue parses one TSV cell per the column type.
func parseTSVValue(s string, t types.ColumnType) (types.Value, bool) {
	s = strings.TrimSpace(s)
	if s == "\\N" || s == "NULL" {
		return types.Value{}, false
	}

	if t == types.ColumnInt {
		if s == "" {
			return types.Value{}, false
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return types.Value{}, false
		}
		return types.IntValue(i), true
	}

	// Undo ClickHouse TSV escaping
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return types.StringValue(s), true
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

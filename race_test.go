package dbmcp_test

import (
	"context"
	"sync"
	"testing"

	dbmcp "github.com/klauseduard/jdbc-mcp"
)

// TestRace_ConcurrentExecuteQuery hammers a single-connection gateway from
// multiple goroutines. Run with -race; every caller must see a complete,
// consistent result.
func TestRace_ConcurrentExecuteQuery(t *testing.T) {
	d := newSeededGateway(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				out, err := d.ExecuteQuery(context.Background(), dbmcp.QueryInput{
					SQL:     "SELECT n FROM numbers ORDER BY n LIMIT 7",
					MaxRows: 5,
				})
				if err != nil {
					t.Errorf("ExecuteQuery failed: %v", err)
					return
				}
				if out.RowCount != 5 || !out.HasMore {
					t.Errorf("inconsistent result: %d rows, has_more=%v", out.RowCount, out.HasMore)
					return
				}
				for k, row := range out.Rows {
					if row[0].(int64) != int64(k+1) {
						t.Errorf("row interleaving detected: %v", out.Rows)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

// TestRace_QueriesAndMetadata mixes query execution with catalog calls.
func TestRace_QueriesAndMetadata(t *testing.T) {
	d := newSeededGateway(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := d.ExecuteQuery(context.Background(), dbmcp.QueryInput{SQL: "SELECT count(*) FROM books"}); err != nil {
					t.Errorf("ExecuteQuery failed: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := d.GetColumns(context.Background(), dbmcp.GetColumnsInput{Table: "books"}); err != nil {
					t.Errorf("GetColumns failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

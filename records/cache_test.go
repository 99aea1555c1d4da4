package records

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/professorSergio12/Stock-Broker/store"
	"github.com/redis/go-redis/v9"
)

// unreachableRedis points the shared client at a closed port for the test.
func unreachableRedis(t *testing.T) {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	prev := config.GetRedisDB()
	config.SetRedisDB(client)
	t.Cleanup(func() {
		config.SetRedisDB(prev)
		_ = client.Close()
	})
}

func TestCache_RedisErrorsAreMisses(t *testing.T) {
	unreachableRedis(t)
	ctx := context.Background()
	c := NewCache(time.Minute)

	var dest []string
	if c.Get(ctx, "records:k", &dest) {
		t.Fatalf("expected a miss when redis is down")
	}
	c.Set(ctx, "records:k", []string{"x"})
	if err := c.Invalidate(ctx); err == nil {
		t.Fatalf("expected invalidate to report the redis error")
	}
	c.InvalidateOnImport(ctx, models.ImportJob{ID: "job1", Imported: 3})
}

func TestDistinct_ServedFromStoreWhenRedisDown(t *testing.T) {
	unreachableRedis(t)
	st := (&scriptedStore{}).rows("select distinct EXCHG", store.Row{"EXCHG": "NSE"})
	svc := NewService(Config{Store: st, Table: "Transaction", Cache: NewCache(time.Minute)})

	got, err := svc.Distinct(context.Background(), MetaExchanges, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"NSE"}) {
		t.Fatalf("expected [NSE], got %v", got)
	}
}
